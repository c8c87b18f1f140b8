package trafficstore

import (
	"context"
	"database/sql"
	"fritzy-backend/internal/components/chrono"
	"fritzy-backend/lib/platforms/fritzbox/netcnt"
	"fritzy-backend/lib/trafficstore/db"
	"time"
)

// Store keeps one traffic record per day.
type Store struct {
	qry  *db.Queries
	time chrono.TimeAPI
}

// NewStore creates a Store, dates read back are interpreted in the
// location of `clock`.
func NewStore(database *sql.DB, clock chrono.TimeAPI) Store {
	return Store{
		qry:  db.New(database),
		time: clock,
	}
}

// Push stores `record`, replacing a previous record of the same day.
func (s Store) Push(ctx context.Context, record netcnt.TrafficStatsRecord) error {
	return s.qry.UpsertTrafficStats(ctx, db.UpsertTrafficStatsParams{
		Date:              record.Date.Format(time.DateOnly),
		Connections:       int64(record.Connections),
		OnlineTime:        int64(record.OnlineTimeMinutes),
		MegabytesSent:     record.MegabytesSent,
		MegabytesReceived: record.MegabytesReceived,
		MegabytesTotal:    record.MegabytesTotal,
		CollectedAt:       s.time.Now().Unix(),
	})
}

// Pull returns the records from `from` to `to` (both inclusive, compared by day) ordered by date.
func (s Store) Pull(ctx context.Context, from, to time.Time) ([]netcnt.TrafficStatsRecord, error) {
	rows, err := s.qry.GetTrafficStatsIn(ctx, db.GetTrafficStatsInParams{
		From: from.Format(time.DateOnly),
		To:   to.Format(time.DateOnly),
	})
	if err != nil {
		return nil, err
	}

	location := s.time.Now().Location()
	var records []netcnt.TrafficStatsRecord
	for _, row := range rows {
		date, err := time.ParseInLocation(time.DateOnly, row.Date, location)
		if err != nil {
			return nil, err
		}
		records = append(records, netcnt.TrafficStatsRecord{
			Date:              date,
			Connections:       int(row.Connections),
			OnlineTimeMinutes: int(row.OnlineTime),
			MegabytesSent:     row.MegabytesSent,
			MegabytesReceived: row.MegabytesReceived,
			MegabytesTotal:    row.MegabytesTotal,
		})
	}
	return records, nil
}

// CollectedAt returns when the record of `date` was last pushed.
func (s Store) CollectedAt(ctx context.Context, date time.Time) (time.Time, bool, error) {
	rows, err := s.qry.GetTrafficStatsIn(ctx, db.GetTrafficStatsInParams{
		From: date.Format(time.DateOnly),
		To:   date.Format(time.DateOnly),
	})
	if err != nil || len(rows) == 0 {
		return time.Time{}, false, err
	}
	return time.Unix(rows[0].CollectedAt, 0).In(s.time.Now().Location()), true, nil
}

// Total returns the sum of the total megabytes of every stored day.
func (s Store) Total(ctx context.Context) (float64, error) {
	return s.qry.GetTotalMegabytes(ctx)
}
