package trafficbus

import (
	"context"
	"encoding/json"
	"fmt"
	"fritzy-backend/internal/components/telemetry"
	"fritzy-backend/lib/platforms/fritzbox/netcnt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	published  []message
	publishErr error
	flushErr   error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, message{subject: subject, data: data})
	return nil
}

func (c *fakeConn) FlushWithContext(ctx context.Context) error {
	return c.flushErr
}

func TestPush(t *testing.T) {
	nc := &fakeConn{}
	tel := telemetry.NewRecorderAPI()
	p := newPublisher(nc, "", tel)

	record := netcnt.TrafficStatsRecord{
		Date:              time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		Connections:       42,
		OnlineTimeMinutes: 90,
		MegabytesSent:     4096,
		MegabytesReceived: 2,
		MegabytesTotal:    4098,
	}
	err := p.Push(context.Background(), record)
	require.NoError(t, err)
	require.Empty(t, tel.Broken())

	require.Len(t, nc.published, 1)
	require.Equal(t, DefaultSubject, nc.published[0].subject)

	var decoded map[string]any
	err = json.Unmarshal(nc.published[0].data, &decoded)
	require.NoError(t, err)
	require.Equal(t, "2024-06-01T00:00:00Z", decoded["date"])
	require.Equal(t, 42.0, decoded["connections"])
	require.Equal(t, 90.0, decoded["online_time"])
	require.Equal(t, 4098.0, decoded["megabytes_total"])
}

func TestPushErrors(t *testing.T) {
	for _, nc := range []*fakeConn{
		{publishErr: fmt.Errorf("connection closed")},
		{flushErr: fmt.Errorf("timeout")},
	} {
		tel := telemetry.NewRecorderAPI()
		p := newPublisher(nc, "custom", tel)
		err := p.Push(context.Background(), netcnt.TrafficStatsRecord{})
		require.Error(t, err)
		require.Equal(t, []string{"trafficbus: publisher.push"}, tel.Broken())
	}
}

func TestConfigEnabled(t *testing.T) {
	require.False(t, Config{}.Enabled())
	require.True(t, Config{Url: "nats://localhost:4222"}.Enabled())
}
