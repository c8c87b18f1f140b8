package netcnt_test

import (
	"context"
	"fritzy-backend/internal/components/chrono"
	"fritzy-backend/internal/components/telemetry"
	"fritzy-backend/lib/platforms/fritzbox/core"
	"fritzy-backend/lib/platforms/fritzbox/fritzboxtest"
	"fritzy-backend/lib/platforms/fritzbox/netcnt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	chrono.StandardImpl
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func newClient(t testing.TB, router *fritzboxtest.Router) (*netcnt.Client, *telemetry.RecorderAPI) {
	tel := telemetry.NewRecorderAPI()
	clock := fixedClock{now: time.Date(2024, time.June, 2, 3, 0, 0, 0, time.UTC)}
	httpClient := core.NewHttpClient(core.HttpOptions{Timeout: time.Second * 5, RequestsPerSecond: 100}, tel)
	client, err := netcnt.NewClient(router.URL(), httpClient, clock, tel)
	if err != nil {
		t.Fatal(err)
	}
	return client, tel
}

func TestGetYesterday(t *testing.T) {
	page, err := os.ReadFile("netcnt_page_test.html")
	if err != nil {
		t.Fatal(err)
	}
	router := fritzboxtest.NewRouter(t)
	router.NetCntPage = page
	client, tel := newClient(t, router)

	record, err := client.GetYesterday(context.Background(), fritzboxtest.DefaultSid)
	require.NoError(t, err)
	require.Equal(t, netcnt.TrafficStatsRecord{
		Date:              time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		Connections:       42,
		OnlineTimeMinutes: 90,
		MegabytesSent:     4096,
		MegabytesReceived: 2,
		MegabytesTotal:    4098,
	}, record)
	require.Empty(t, tel.Broken())

	calls := router.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "/data.lua", calls[0].Path)
	require.Equal(t, map[string]string{
		"xhr":          "1",
		"sid":          string(fritzboxtest.DefaultSid),
		"lang":         "en",
		"no_siderenew": "",
		"page":         "netCnt",
	}, calls[0].Form)
}

func TestGetYesterdayErrors(t *testing.T) {
	{
		router := fritzboxtest.NewRouter(t)
		router.NetCntPage = []byte("<html></html>")
		router.StatsStatus = http.StatusInternalServerError
		client, tel := newClient(t, router)

		_, err := client.GetYesterday(context.Background(), fritzboxtest.DefaultSid)
		require.ErrorIs(t, err, core.ErrTransport)
		require.Equal(t, []string{"fritzbox_netcnt: client.get-yesterday"}, tel.Broken())
	}
	{
		router := fritzboxtest.NewRouter(t)
		router.NetCntPage = []byte("<html><body>please log in</body></html>")
		client, _ := newClient(t, router)

		_, err := client.GetYesterday(context.Background(), fritzboxtest.DefaultSid)
		require.ErrorIs(t, err, core.ErrParse)
	}
	{
		router := fritzboxtest.NewRouter(t)
		client, _ := newClient(t, router)

		_, err := client.GetYesterday(context.Background(), "ffffffffffffffff")
		require.ErrorIs(t, err, core.ErrTransport)
	}
}
