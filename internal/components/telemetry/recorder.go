package telemetry

import (
	"sync"
)

// Report is a single call made against a RecorderAPI.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

// RecorderAPI implements API by keeping every report in memory, it is meant
// for asserting on reported brokenness in tests.
type RecorderAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func NewRecorderAPI() *RecorderAPI {
	return &RecorderAPI{}
}

func (r *RecorderAPI) record(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, Id: id, Params: params})
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
}

func (r *RecorderAPI) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.record("count", id, []any{count})
}

// Broken returns the ids of all ReportBroken calls in order.
func (r *RecorderAPI) Broken() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var ids []string
	for _, report := range r.reports {
		if report.Kind == "broken" {
			ids = append(ids, report.Id)
		}
	}
	return ids
}

func (r *RecorderAPI) Reports() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}
