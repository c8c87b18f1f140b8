package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestRedactForm(t *testing.T) {
	require.Equal(
		t,
		"response=%3CREDACTED%3E&username=admin",
		redactForm("username=admin&response=abcd%24ef01"),
	)
	require.Equal(t, "page=netCnt", redactForm("page=netCnt"))
	require.Equal(t, "<SID>"+redacted+"</SID>", redactBody("<SID>0123456789abcdef</SID>"))
}

func TestInstrumentClientRedacts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<SessionInfo><SID>0123456789abcdef</SID></SessionInfo>"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "resty")
	output, err := NewFilesystemOutput(dir)
	if err != nil {
		t.Fatal(err)
	}

	client := resty.New()
	InstrumentClient(client, "login", output)

	_, err = client.R().
		SetFormData(map[string]string{
			"username": "admin",
			"response": "secret",
		}).
		Post(server.URL + "/login_sid.lua")
	if err != nil {
		t.Fatal(err)
	}

	contents, err := os.ReadFile(filepath.Join(dir, "login-1.txt"))
	if err != nil {
		t.Fatal(err)
	}
	dump := string(contents)
	require.True(t, strings.Contains(dump, "POST"))
	require.False(t, strings.Contains(dump, "secret"))
	require.False(t, strings.Contains(dump, "0123456789abcdef"))
}
