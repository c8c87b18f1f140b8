package netcnt

import (
	"bytes"
	"fmt"
	"fritzy-backend/internal/components/chrono"
	"fritzy-backend/lib/platforms/fritzbox/core"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
)

// the counters are an object literal assigned inside an inline script,
// the object is only terminated by a closing brace directly followed by `;`
var dataRegex = regexp.MustCompile(`(?s)const\s+data\s*=\s*(\{.*?\})\s*;`)

const (
	yesterdayKey        = "Yesterday"
	onlineTimeSelector  = "tr#uiYesterday>td.time"
	connectionsSelector = "tr#uiYesterday>td.conn"
)

func parseError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrParse, fmt.Sprintf(format, args...))
}

func counterHalf(period map[string]any, field string) (uint32, error) {
	raw, ok := period[field]
	if !ok {
		return 0, parseError("%s.%s is missing", yesterdayKey, field)
	}
	switch value := raw.(type) {
	case float64:
		if value < 0 || value > math.MaxUint32 || value != math.Trunc(value) {
			return 0, parseError("%s.%s %v is not an unsigned 32 bit integer", yesterdayKey, field, value)
		}
		return uint32(value), nil
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
		if err != nil {
			return 0, parseError("%s.%s %q is not an unsigned 32 bit integer", yesterdayKey, field, value)
		}
		return uint32(n), nil
	}
	return 0, parseError("%s.%s has unexpected type %T", yesterdayKey, field, raw)
}

func splitCounter(period map[string]any, prefix string) (SplitByteCounter, error) {
	high, err := counterHalf(period, prefix+"High")
	if err != nil {
		return SplitByteCounter{}, err
	}
	low, err := counterHalf(period, prefix+"Low")
	if err != nil {
		return SplitByteCounter{}, err
	}
	return SplitByteCounter{High: high, Low: low}, nil
}

// ParseCounters reads yesterday's counters out of the `const data = {...};`
// assignment embedded in the page.
func ParseCounters(page []byte) (Counters, error) {
	groups := dataRegex.FindSubmatch(page)
	if len(groups) < 2 {
		return Counters{}, parseError("could not find embedded data object")
	}

	var data map[string]any
	err := json5.Unmarshal(groups[1], &data)
	if err != nil {
		return Counters{}, parseError("unmarshal embedded data object: %v", err)
	}
	yesterday, ok := data[yesterdayKey].(map[string]any)
	if !ok {
		return Counters{}, parseError("embedded data object has no %s object", yesterdayKey)
	}

	sent, err := splitCounter(yesterday, "BytesSent")
	if err != nil {
		return Counters{}, err
	}
	received, err := splitCounter(yesterday, "BytesReceived")
	if err != nil {
		return Counters{}, err
	}
	return Counters{Sent: sent, Received: received}, nil
}

func parseUnsigned(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	for _, c := range text {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseOnlineTime converts "hh:mm" into minutes, anything that is not
// exactly two unsigned integers separated by one colon, or has 60 or
// more minutes, fails with ErrParse.
func ParseOnlineTime(text string) (int, error) {
	text = strings.TrimSpace(text)
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return 0, parseError("online time %q is not in the format hh:mm", text)
	}
	hours, ok := parseUnsigned(parts[0])
	if !ok {
		return 0, parseError("online time %q has invalid hours", text)
	}
	if hours > maxOnlineHours {
		return 0, parseError("online time %q has too many hours", text)
	}
	minutes, ok := parseUnsigned(parts[1])
	if !ok || minutes >= 60 {
		return 0, parseError("online time %q has invalid minutes", text)
	}
	return hours*60 + minutes, nil
}

// keeps hours*60 + 59 from overflowing
const maxOnlineHours = (math.MaxInt - 59) / 60

func cellText(doc *goquery.Document, selector string) (string, error) {
	cell := doc.Find(selector)
	if cell.Length() != 1 {
		return "", parseError("expected a single %q cell, found %d", selector, cell.Length())
	}
	return strings.TrimSpace(cell.Text()), nil
}

// ParseOnlineTable reads the online time in minutes and the connection
// count out of the table row of yesterday.
func ParseOnlineTable(page []byte) (onlineTimeMinutes int, connections int, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return 0, 0, parseError("parse html: %v", err)
	}

	onlineTime, err := cellText(doc, onlineTimeSelector)
	if err != nil {
		return 0, 0, err
	}
	onlineTimeMinutes, err = ParseOnlineTime(onlineTime)
	if err != nil {
		return 0, 0, err
	}

	connectionsText, err := cellText(doc, connectionsSelector)
	if err != nil {
		return 0, 0, err
	}
	connections, ok := parseUnsigned(connectionsText)
	if !ok {
		return 0, 0, parseError("connection count %q is not an unsigned integer", connectionsText)
	}
	return onlineTimeMinutes, connections, nil
}

// ParsePage parses a netCnt page into the record of the day before `now`.
func ParsePage(page []byte, now time.Time) (TrafficStatsRecord, error) {
	counters, err := ParseCounters(page)
	if err != nil {
		return TrafficStatsRecord{}, err
	}
	onlineTimeMinutes, connections, err := ParseOnlineTable(page)
	if err != nil {
		return TrafficStatsRecord{}, err
	}
	return newRecord(chrono.Yesterday(now), counters, onlineTimeMinutes, connections), nil
}
