package netcnt

import (
	"context"
	"fmt"
	"fritzy-backend/internal/components/chrono"
	"fritzy-backend/internal/components/telemetry"
	"fritzy-backend/lib/platforms/fritzbox/core"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_client_get_yesterday = "client.get-yesterday"
)

const dataPath = "/data.lua"

var tracer = otel.Tracer("platforms/fritzbox/netcnt")

// Client fetches the online counter page (page=netCnt) of an authenticated session.
type Client struct {
	dataUrl string
	http    *resty.Client
	time    chrono.TimeAPI
	tel     telemetry.API
}

func NewClient(baseUrl string, http *resty.Client, clock chrono.TimeAPI, tel telemetry.API) (*Client, error) {
	tel = telemetry.NewScopedAPI("fritzbox_netcnt", tel)

	dataUrl, err := core.ResolveUrl(baseUrl, dataPath)
	if err != nil {
		return nil, err
	}
	if http == nil {
		http = core.NewHttpClient(core.HttpOptions{}, tel)
	}
	if clock == nil {
		clock, err = chrono.NewStandardImpl("")
		if err != nil {
			return nil, err
		}
	}
	return &Client{
		dataUrl: dataUrl,
		http:    http,
		time:    clock,
		tel:     tel,
	}, nil
}

func (c *Client) fetchPage(ctx context.Context, sid core.SessionId) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"xhr":          "1",
			"sid":          string(sid),
			"lang":         "en",
			"no_siderenew": "",
			"page":         "netCnt",
		}).
		Post(c.dataUrl)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to retrieve stats page: %v", core.ErrTransport, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf(
			"%w: unable to retrieve stats page, received status-code %d",
			core.ErrTransport, res.StatusCode(),
		)
	}
	return res.Body(), nil
}

// GetYesterday returns yesterday's traffic, the date is derived from the
// local clock and not from the page.
func (c *Client) GetYesterday(ctx context.Context, sid core.SessionId) (TrafficStatsRecord, error) {
	ctx, span := tracer.Start(ctx, "client:GetYesterday")
	defer span.End()

	page, err := c.fetchPage(ctx, sid)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch stats page")
		c.tel.ReportBroken(report_client_get_yesterday, err)
		return TrafficStatsRecord{}, err
	}

	record, err := ParsePage(page, c.time.Now())
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse stats page")
		c.tel.ReportBroken(report_client_get_yesterday, err, len(page))
		return TrafficStatsRecord{}, err
	}

	span.SetAttributes(
		attribute.Int("connections", record.Connections),
		attribute.Int("online_time_minutes", record.OnlineTimeMinutes),
		attribute.Float64("megabytes_total", record.MegabytesTotal),
	)
	c.tel.ReportDebug(
		"parsed yesterday",
		record.Date.Format("2006-01-02"),
		record.MegabytesTotal,
	)
	return record, nil
}
