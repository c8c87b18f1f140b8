package commands

import (
	"database/sql"
	"fritzy-backend/internal/components/chrono"
	"fritzy-backend/internal/components/telemetry"
	"fritzy-backend/lib/platforms/fritzbox/core"
	"fritzy-backend/lib/platforms/fritzbox/netcnt"
	"fritzy-backend/lib/restyutil"
	"fritzy-backend/lib/trafficbus"
	"fritzy-backend/lib/trafficstore"
	"fritzy-backend/services/fritzy"
	"log/slog"
)

const restyDumpDir = ".dev/resty/fritzbox"

func newClock() (chrono.StandardImpl, error) {
	return chrono.NewStandardImpl(config.Timezone)
}

func openStore(clock chrono.TimeAPI) (*sql.DB, trafficstore.Store, error) {
	database, err := config.Database.OpenDB()
	if err != nil {
		return nil, trafficstore.Store{}, err
	}
	return database, trafficstore.NewStore(database, clock), nil
}

// collector is a Collector together with everything it holds open.
type collector struct {
	*fritzy.Collector
	closers []func()
}

func (c collector) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newCollector(clock chrono.TimeAPI, tel telemetry.API) (out collector, err error) {
	defer func() {
		if err != nil {
			out.Close()
		}
	}()

	cfg := config.Router
	httpClient := core.NewHttpClient(core.HttpOptions{
		Timeout:           cfg.timeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, tel)
	if verbose {
		output, err := restyutil.NewFilesystemOutput(restyDumpDir)
		if err != nil {
			slog.Warn("failed to create resty output directory", "dir", restyDumpDir, "err", err)
		} else {
			restyutil.InstrumentClient(httpClient, "fritzbox", output)
		}
	}

	auth, err := core.NewClient(core.ClientOptions{
		BaseUrl:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		Time:     clock,
	}, httpClient, tel)
	if err != nil {
		return out, err
	}
	stats, err := netcnt.NewClient(cfg.Address, httpClient, clock, tel)
	if err != nil {
		return out, err
	}

	database, store, err := openStore(clock)
	if err != nil {
		return out, err
	}
	out.closers = append(out.closers, func() { database.Close() })
	sinks := fritzy.MultiSink{store}

	if config.Nats.Enabled() {
		publisher, err := trafficbus.Connect(config.Nats, tel)
		if err != nil {
			return out, err
		}
		out.closers = append(out.closers, publisher.Close)
		sinks = append(sinks, publisher)
	}

	out.Collector, err = fritzy.NewCollector(fritzy.Options{
		Auth:  auth,
		Stats: stats,
		Sink:  sinks,
	}, tel)
	return out, err
}
