package chrono

import (
	"context"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the configured location.
	Now() time.Time
	// Sleep blocks for d or until ctx is done, in which case ctx.Err() is returned.
	Sleep(ctx context.Context, d time.Duration) error
}

// StandardImpl is the standard implementation of TimeAPI using the standard library.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl creates a StandardImpl for the given IANA timezone name,
// an empty name means the local timezone of the host.
func NewStandardImpl(timezone string) (StandardImpl, error) {
	if timezone == "" {
		return StandardImpl{location: time.Local}, nil
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	if s.location == nil {
		return time.Now()
	}
	return time.Now().In(s.location)
}

func (s StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Yesterday returns midnight of the day before `now`, in now's location.
func Yesterday(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, now.Location())
}
