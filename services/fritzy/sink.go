package fritzy

import (
	"context"
	"errors"
	"fritzy-backend/lib/platforms/fritzbox/netcnt"
)

// Sink is where a collected record ends up.
type Sink interface {
	Push(ctx context.Context, record netcnt.TrafficStatsRecord) error
}

// MultiSink pushes to every sink in order, a failing sink does not keep
// the record from the ones after it.
type MultiSink []Sink

func (m MultiSink) Push(ctx context.Context, record netcnt.TrafficStatsRecord) error {
	var errs []error
	for _, sink := range m {
		err := sink.Push(ctx, record)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, record netcnt.TrafficStatsRecord) error

func (f SinkFunc) Push(ctx context.Context, record netcnt.TrafficStatsRecord) error {
	return f(ctx, record)
}
