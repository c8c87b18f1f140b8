package trafficbus

import (
	"context"
	"encoding/json"
	"fmt"
	"fritzy-backend/internal/components/telemetry"
	"fritzy-backend/lib/platforms/fritzbox/netcnt"

	"github.com/nats-io/nats.go"
)

const report_publisher_push = "publisher.push"

const DefaultSubject = "fritzy.trafficstats"

type Config struct {
	// Url of the NATS server, publishing is disabled when empty.
	Url     string `json:"url"`
	Subject string `json:"subject"`
}

func (c Config) Enabled() bool {
	return c.Url != ""
}

type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// Publisher publishes every record it is pushed as a JSON message.
type Publisher struct {
	nc      conn
	close   func()
	subject string
	tel     telemetry.API
}

func newPublisher(nc conn, subject string, tel telemetry.API) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{
		nc:      nc,
		close:   func() {},
		subject: subject,
		tel:     telemetry.NewScopedAPI("trafficbus", tel),
	}
}

// Connect dials the NATS server in `cfg`.
func Connect(cfg Config, tel telemetry.API) (*Publisher, error) {
	nc, err := nats.Connect(cfg.Url, nats.Name("fritzy"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.Url, err)
	}
	p := newPublisher(nc, cfg.Subject, tel)
	p.close = func() {
		nc.Drain()
	}
	p.tel.ReportDebug("connected to nats", cfg.Url)
	return p, nil
}

func (p *Publisher) Push(ctx context.Context, record netcnt.TrafficStatsRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	err = p.nc.Publish(p.subject, data)
	if err == nil {
		// the message is only known to have left once the server acknowledged the flush
		err = p.nc.FlushWithContext(ctx)
	}
	if err != nil {
		p.tel.ReportBroken(report_publisher_push, err)
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	p.close()
}
