package db

import (
	"context"
)

const upsertTrafficStats = `-- name: UpsertTrafficStats :exec
insert into traffic_stats (
    date, connections, online_time, megabytes_sent, megabytes_received, megabytes_total, collected_at
) values (?, ?, ?, ?, ?, ?, ?)
on conflict (date) do update set
    connections = excluded.connections,
    online_time = excluded.online_time,
    megabytes_sent = excluded.megabytes_sent,
    megabytes_received = excluded.megabytes_received,
    megabytes_total = excluded.megabytes_total,
    collected_at = excluded.collected_at
`

type UpsertTrafficStatsParams struct {
	Date              string
	Connections       int64
	OnlineTime        int64
	MegabytesSent     float64
	MegabytesReceived float64
	MegabytesTotal    float64
	CollectedAt       int64
}

func (q *Queries) UpsertTrafficStats(ctx context.Context, arg UpsertTrafficStatsParams) error {
	_, err := q.db.ExecContext(ctx, upsertTrafficStats,
		arg.Date,
		arg.Connections,
		arg.OnlineTime,
		arg.MegabytesSent,
		arg.MegabytesReceived,
		arg.MegabytesTotal,
		arg.CollectedAt,
	)
	return err
}

const getTrafficStatsIn = `-- name: GetTrafficStatsIn :many
select date, connections, online_time, megabytes_sent, megabytes_received, megabytes_total, collected_at
from traffic_stats
where date >= ?1 and date <= ?2
order by date asc
`

type GetTrafficStatsInParams struct {
	From string
	To   string
}

func (q *Queries) GetTrafficStatsIn(ctx context.Context, arg GetTrafficStatsInParams) ([]TrafficStat, error) {
	rows, err := q.db.QueryContext(ctx, getTrafficStatsIn, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TrafficStat
	for rows.Next() {
		var i TrafficStat
		if err := rows.Scan(
			&i.Date,
			&i.Connections,
			&i.OnlineTime,
			&i.MegabytesSent,
			&i.MegabytesReceived,
			&i.MegabytesTotal,
			&i.CollectedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTotalMegabytes = `-- name: GetTotalMegabytes :one
select cast(coalesce(sum(megabytes_total), 0) as real) from traffic_stats
`

func (q *Queries) GetTotalMegabytes(ctx context.Context) (float64, error) {
	row := q.db.QueryRowContext(ctx, getTotalMegabytes)
	var column_1 float64
	err := row.Scan(&column_1)
	return column_1, err
}
