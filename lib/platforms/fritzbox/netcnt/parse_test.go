package netcnt

import (
	"fmt"
	"fritzy-backend/lib/platforms/fritzbox/core"
	"math"
	"testing"
	"time"

	_ "embed"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed netcnt_page_test.html
var netcntPageTest []byte

func TestParsePage(t *testing.T) {
	now := time.Date(2024, time.June, 2, 3, 0, 0, 0, time.UTC)
	record, err := ParsePage(netcntPageTest, now)
	require.NoError(t, err)

	expected := TrafficStatsRecord{
		Date:              time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		Connections:       42,
		OnlineTimeMinutes: 90,
		MegabytesSent:     4096.0,
		MegabytesReceived: 2.0,
		MegabytesTotal:    4098.0,
	}
	if diff := cmp.Diff(expected, record); diff != "" {
		t.Fatalf("unexpected record (-want +got):\n%s", diff)
	}
}

func TestParseCountersObjectLiteral(t *testing.T) {
	page := []byte(`<script>
const data = {
	Today: {BytesSentHigh: 0, BytesSentLow: 1, BytesReceivedHigh: 0, BytesReceivedLow: 1},
	Yesterday: {BytesSentHigh: 1, BytesSentLow: 0, BytesReceivedHigh: 0, BytesReceivedLow: 2097152},
};
</script>`)
	counters, err := ParseCounters(page)
	require.NoError(t, err)
	require.Equal(t, Counters{
		Sent:     SplitByteCounter{High: 1, Low: 0},
		Received: SplitByteCounter{High: 0, Low: 2097152},
	}, counters)
}

func TestParseCountersInvalid(t *testing.T) {
	cases := map[string]string{
		"no script":         `<html><body>login</body></html>`,
		"no terminator":     `const data = {"Yesterday":{"BytesSentHigh":"0","BytesSentLow":"0","BytesReceivedHigh":"0","BytesReceivedLow":"0"}}`,
		"not json":          `const data = {Yesterday: [};`,
		"no yesterday":      `const data = {"Today":{"BytesSentHigh":"0","BytesSentLow":"0","BytesReceivedHigh":"0","BytesReceivedLow":"0"}};`,
		"yesterday scalar":  `const data = {"Yesterday": 12};`,
		"missing low":       `const data = {"Yesterday":{"BytesSentHigh":"0","BytesReceivedHigh":"0","BytesReceivedLow":"0"}};`,
		"negative":          `const data = {"Yesterday":{"BytesSentHigh":"0","BytesSentLow":-1,"BytesReceivedHigh":"0","BytesReceivedLow":"0"}};`,
		"overflow":          `const data = {"Yesterday":{"BytesSentHigh":"4294967296","BytesSentLow":"0","BytesReceivedHigh":"0","BytesReceivedLow":"0"}};`,
		"fraction":          `const data = {"Yesterday":{"BytesSentHigh":0.5,"BytesSentLow":"0","BytesReceivedHigh":"0","BytesReceivedLow":"0"}};`,
		"non numeric":       `const data = {"Yesterday":{"BytesSentHigh":"a","BytesSentLow":"0","BytesReceivedHigh":"0","BytesReceivedLow":"0"}};`,
		"unexpected type":   `const data = {"Yesterday":{"BytesSentHigh":true,"BytesSentLow":"0","BytesReceivedHigh":"0","BytesReceivedLow":"0"}};`,
	}
	for name, page := range cases {
		_, err := ParseCounters([]byte(page))
		require.ErrorIs(t, err, core.ErrParse, name)
	}
}

func TestParseOnlineTime(t *testing.T) {
	valid := map[string]int{
		"02:15":   135,
		"00:00":   0,
		"01:30":   90,
		"23:59":   1439,
		"120:05":  7205,
		" 00:01 ": 1,
	}
	valid[fmt.Sprintf("%d:59", maxOnlineHours)] = maxOnlineHours*60 + 59
	for text, expected := range valid {
		minutes, err := ParseOnlineTime(text)
		require.NoError(t, err, text)
		require.Equal(t, expected, minutes, text)
	}

	invalid := []string{
		"",
		"0215",
		"02:15:00",
		"02-15",
		":15",
		"02:",
		"aa:15",
		"02:bb",
		"-1:15",
		"+1:15",
		"02:60",
		"02: 15",
		"200000000000000000:00",
		"99999999999999999999:00",
	}
	for _, text := range invalid {
		_, err := ParseOnlineTime(text)
		require.ErrorIs(t, err, core.ErrParse, text)
	}
}

func TestParseOnlineTableInvalid(t *testing.T) {
	table := func(row string) []byte {
		return []byte("<table><tbody>" + row + "</tbody></table>")
	}
	cases := map[string][]byte{
		"no row":        table(`<tr id="uiToday"><td class="time">00:10</td><td class="conn">1</td></tr>`),
		"no conn":       table(`<tr id="uiYesterday"><td class="time">00:10</td></tr>`),
		"bad time":      table(`<tr id="uiYesterday"><td class="time">10 min</td><td class="conn">1</td></tr>`),
		"bad conn":      table(`<tr id="uiYesterday"><td class="time">00:10</td><td class="conn">many</td></tr>`),
		"negative conn": table(`<tr id="uiYesterday"><td class="time">00:10</td><td class="conn">-1</td></tr>`),
	}
	for name, page := range cases {
		_, _, err := ParseOnlineTable(page)
		require.ErrorIs(t, err, core.ErrParse, name)
	}

	minutes, connections, err := ParseOnlineTable(table(
		`<tr id="uiYesterday"><td class="time"> 12:00 </td><td class="conn">
			7
		</td></tr>`,
	))
	require.NoError(t, err)
	require.Equal(t, 720, minutes)
	require.Equal(t, 7, connections)
}

func TestSplitByteCounter(t *testing.T) {
	cases := []struct {
		counter  SplitByteCounter
		expected uint64
	}{
		{counter: SplitByteCounter{}, expected: 0},
		{counter: SplitByteCounter{High: 0, Low: 2097152}, expected: 2097152},
		{counter: SplitByteCounter{High: 1, Low: 0}, expected: 1 << 32},
		{counter: SplitByteCounter{High: 2, Low: 5}, expected: 2*(1<<32) + 5},
		{counter: SplitByteCounter{High: math.MaxUint32, Low: math.MaxUint32}, expected: math.MaxUint64},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, test.counter.Bytes())
	}
}

func TestToMegabytes(t *testing.T) {
	require.Equal(t, 0.0, ToMegabytes(0))
	require.Equal(t, 1.0, ToMegabytes(1048576))
	require.Equal(t, 4096.0, ToMegabytes(1<<32))
	require.Equal(t, 0.5, ToMegabytes(524288))

	// linear and monotonic non-decreasing
	previous := -1.0
	for _, bytes := range []uint64{0, 1, 1023, 1024, 1 << 20, 3 << 20, 1 << 32, 1 << 40} {
		mb := ToMegabytes(bytes)
		require.GreaterOrEqual(t, mb, previous)
		require.InDelta(t, ToMegabytes(bytes)*2, ToMegabytes(bytes*2), 1e-9)
		previous = mb
	}
}

func TestParsePageDateIgnoresPayload(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	record, err := ParsePage(netcntPageTest, time.Date(2025, time.January, 1, 0, 30, 0, 0, loc))
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, loc), record.Date)
}
