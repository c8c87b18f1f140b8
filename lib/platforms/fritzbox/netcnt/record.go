package netcnt

import "time"

const bytesPerMegabyte = 1024 * 1024

// SplitByteCounter is a 64 bit byte count transmitted as two 32 bit halves.
type SplitByteCounter struct {
	High uint32
	Low  uint32
}

// Bytes reconstructs High * 2^32 + Low.
func (c SplitByteCounter) Bytes() uint64 {
	return uint64(c.High)<<32 | uint64(c.Low)
}

// ToMegabytes converts bytes into binary megabytes (MiB).
func ToMegabytes(bytes uint64) float64 {
	return float64(bytes) / bytesPerMegabyte
}

// Counters are the traffic counters of a single period.
type Counters struct {
	Sent     SplitByteCounter
	Received SplitByteCounter
}

// TrafficStatsRecord is the normalized online counter of a single day.
type TrafficStatsRecord struct {
	Date              time.Time `json:"date"`
	Connections       int       `json:"connections"`
	OnlineTimeMinutes int       `json:"online_time"`
	MegabytesSent     float64   `json:"megabytes_sent"`
	MegabytesReceived float64   `json:"megabytes_received"`
	MegabytesTotal    float64   `json:"megabytes_total"`
}

func newRecord(date time.Time, counters Counters, onlineTimeMinutes, connections int) TrafficStatsRecord {
	sent := ToMegabytes(counters.Sent.Bytes())
	received := ToMegabytes(counters.Received.Bytes())
	return TrafficStatsRecord{
		Date:              date,
		Connections:       connections,
		OnlineTimeMinutes: onlineTimeMinutes,
		MegabytesSent:     sent,
		MegabytesReceived: received,
		MegabytesTotal:    sent + received,
	}
}
