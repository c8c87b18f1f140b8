package fritzy

import (
	"context"
	"fmt"
	"fritzy-backend/internal/components/telemetry"
	"fritzy-backend/lib/platforms/fritzbox/core"
	"fritzy-backend/lib/platforms/fritzbox/netcnt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_collector_run    = "collector.run"
	report_collector_logout = "collector.logout"
)

const (
	OutcomeSuccess       = "success"
	OutcomeAuthFailed    = "auth_failed"
	OutcomeExtractFailed = "extract_failed"
	OutcomePersistFailed = "persist_failed"
	OutcomeLogoutFailed  = "logout_failed"
)

const logoutTimeout = time.Second * 30

var tracer = otel.Tracer("services/fritzy")

type Authenticator interface {
	Login(ctx context.Context) (core.SessionId, error)
	Logout(ctx context.Context, sid core.SessionId) error
}

type Extractor interface {
	GetYesterday(ctx context.Context, sid core.SessionId) (netcnt.TrafficStatsRecord, error)
}

type Options struct {
	Auth  Authenticator
	Stats Extractor
	Sink  Sink
	// Meter defaults to the global meter provider.
	Meter metric.MeterProvider
}

// Collector runs one authenticate, extract, persist, logout cycle per Run.
// Concurrent calls to Run are serialized, the router clients hold per-cycle
// state.
type Collector struct {
	mutex sync.Mutex
	auth  Authenticator
	stats Extractor
	sink  Sink
	tel   telemetry.API

	runs      metric.Int64Counter
	megabytes metric.Float64Histogram
}

func NewCollector(opts Options, tel telemetry.API) (*Collector, error) {
	if opts.Auth == nil || opts.Stats == nil || opts.Sink == nil {
		return nil, fmt.Errorf("collector requires an authenticator, an extractor and a sink")
	}
	provider := opts.Meter
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter("services/fritzy")

	runs, err := meter.Int64Counter(
		"fritzy.runs",
		metric.WithDescription("Collection cycles by outcome."),
	)
	if err != nil {
		return nil, err
	}
	megabytes, err := meter.Float64Histogram(
		"fritzy.megabytes_total",
		metric.WithDescription("Megabytes transferred on the collected day."),
		metric.WithUnit("MBy"),
	)
	if err != nil {
		return nil, err
	}

	return &Collector{
		auth:      opts.Auth,
		stats:     opts.Stats,
		sink:      opts.Sink,
		tel:       telemetry.NewScopedAPI("fritzy", tel),
		runs:      runs,
		megabytes: megabytes,
	}, nil
}

// Run collects yesterday's counters and pushes them to the sink. Once a
// session exists it is logged out on every path, a failed logout is only
// returned when nothing failed before it.
func (c *Collector) Run(ctx context.Context) (record netcnt.TrafficStatsRecord, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ctx, span := tracer.Start(ctx, "Collector:Run")
	defer span.End()

	outcome := OutcomeSuccess
	defer func() {
		span.SetAttributes(attribute.String("outcome", outcome))
		c.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.tel.ReportBroken(report_collector_run, outcome, err)
		}
	}()

	sid, err := c.auth.Login(ctx)
	if err != nil {
		outcome = OutcomeAuthFailed
		return netcnt.TrafficStatsRecord{}, fmt.Errorf("login: %w", err)
	}

	defer func() {
		logoutErr := c.logout(ctx, sid)
		if logoutErr == nil {
			return
		}
		if err != nil {
			c.tel.ReportWarning(report_collector_logout, "logout failed after an earlier error", logoutErr)
			return
		}
		outcome = OutcomeLogoutFailed
		err = fmt.Errorf("logout: %w", logoutErr)
	}()

	record, err = c.stats.GetYesterday(ctx, sid)
	if err != nil {
		outcome = OutcomeExtractFailed
		return netcnt.TrafficStatsRecord{}, fmt.Errorf("get yesterday: %w", err)
	}

	err = c.sink.Push(ctx, record)
	if err != nil {
		outcome = OutcomePersistFailed
		return netcnt.TrafficStatsRecord{}, fmt.Errorf("persist: %w", err)
	}
	c.megabytes.Record(ctx, record.MegabytesTotal)

	c.tel.ReportDebug(
		"collected traffic stats",
		record.Date.Format(time.DateOnly),
		record.MegabytesTotal,
	)
	return record, nil
}

// a cancelled run still gets to end its session
func (c *Collector) logout(ctx context.Context, sid core.SessionId) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()
	return c.auth.Logout(ctx, sid)
}
