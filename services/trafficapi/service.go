package trafficapi

import (
	"context"
	"encoding/json"
	"fmt"
	"fritzy-backend/internal/components/chrono"
	"fritzy-backend/internal/components/telemetry"
	"fritzy-backend/lib/platforms/fritzbox/netcnt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_service_total = "service.total"
	report_service_stats = "service.stats"
)

const (
	DefaultPort = 8081
	// days returned by /stats when no range is given
	defaultRangeDays = 30
)

var tracer = otel.Tracer("services/trafficapi")

type Store interface {
	Total(ctx context.Context) (float64, error)
	Pull(ctx context.Context, from, to time.Time) ([]netcnt.TrafficStatsRecord, error)
}

type Service struct {
	store Store
	time  chrono.TimeAPI
	tel   telemetry.API
}

func NewService(store Store, clock chrono.TimeAPI, tel telemetry.API) Service {
	return Service{
		store: store,
		time:  clock,
		tel:   telemetry.NewScopedAPI("trafficapi", tel),
	}
}

// Router serves GET /total and GET /stats.
func (s Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/total", s.totalHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	return r
}

type TotalResponse struct {
	TotalMegabytes float64 `json:"totalMegabytes"`
}

func writeJson(w http.ResponseWriter, value any) {
	body, err := json.Marshal(value)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s Service) totalHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "Total")
	defer span.End()

	total, err := s.store.Total(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportBroken(report_service_total, err)
		http.Error(w, "failed to query total", http.StatusInternalServerError)
		return
	}
	writeJson(w, TotalResponse{TotalMegabytes: total})
}

func (s Service) parseDate(query string, fallback time.Time) (time.Time, error) {
	if query == "" {
		return fallback, nil
	}
	now := s.time.Now()
	return time.ParseInLocation(time.DateOnly, query, now.Location())
}

func (s Service) statsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "Stats")
	defer span.End()

	today := chrono.Yesterday(s.time.Now()).AddDate(0, 0, 1)
	to, err := s.parseDate(r.URL.Query().Get("to"), today)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid 'to' date: %v", err), http.StatusBadRequest)
		return
	}
	from, err := s.parseDate(r.URL.Query().Get("from"), to.AddDate(0, 0, -defaultRangeDays))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid 'from' date: %v", err), http.StatusBadRequest)
		return
	}
	if from.After(to) {
		http.Error(w, "'from' must not be after 'to'", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("from", from.Format(time.DateOnly)),
		attribute.String("to", to.Format(time.DateOnly)),
	)

	records, err := s.store.Pull(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportBroken(report_service_stats, err)
		http.Error(w, "failed to query stats", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []netcnt.TrafficStatsRecord{}
	}
	writeJson(w, records)
}
