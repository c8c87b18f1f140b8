package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := NewRecorderAPI()
	// a component scoping the api it was handed nests inside the caller's scope
	scoped := NewScopedAPI("core", NewScopedAPI("fritzbox", recorder))

	scoped.ReportBroken("client.login", "boom")
	scoped.ReportWarning("client.logout")
	scoped.ReportCount("runs", 3)

	require.Equal(t, []string{"fritzbox: core: client.login"}, recorder.Broken())

	reports := recorder.Reports()
	require.Len(t, reports, 3)
	require.Equal(t, "warning", reports[1].Kind)
	require.Equal(t, []any{int64(3)}, reports[2].Params)
}

func TestSetupOtelDisabled(t *testing.T) {
	tel, err := SetupOtel(context.Background(), "test:telemetry", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}
