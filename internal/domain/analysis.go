package domain

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
)

// MonthLayout is the wire format of analysis months. Only year and month
// carry meaning downstream.
const MonthLayout = "2006-01-02"

var errInvalidMonth = errors.New("analysis month must be YYYY-MM-DD or YYYY-MM")

// AnalysisRequest asks the backend to analyse one client for one month.
type AnalysisRequest struct {
	ClientID        string
	AnalysisMonth   time.Time
	SelectedMetrics []string
}

type analysisRequestWire struct {
	ClientID        string   `json:"client_id"`
	AnalysisMonth   string   `json:"mes_analise"`
	SelectedMetrics []string `json:"metricas_selecionadas"`
}

func (r AnalysisRequest) MarshalJSON() ([]byte, error) {
	metrics := r.SelectedMetrics
	if metrics == nil {
		metrics = []string{}
	}
	return json.Marshal(analysisRequestWire{
		ClientID:        r.ClientID,
		AnalysisMonth:   r.Month(),
		SelectedMetrics: metrics,
	})
}

func (r *AnalysisRequest) UnmarshalJSON(data []byte) error {
	var wire analysisRequestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.ClientID = wire.ClientID
	r.SelectedMetrics = wire.SelectedMetrics
	r.AnalysisMonth = time.Time{}
	if strings.TrimSpace(wire.AnalysisMonth) == "" {
		return nil
	}
	month, err := ParseAnalysisMonth(wire.AnalysisMonth)
	if err != nil {
		return err
	}
	r.AnalysisMonth = month
	return nil
}

// Month renders the analysis month in wire format, or "" when unset.
func (r AnalysisRequest) Month() string {
	if r.AnalysisMonth.IsZero() {
		return ""
	}
	return r.AnalysisMonth.Format(MonthLayout)
}

// Validate requires a client and a month. An empty metric set is valid and
// means "use the backend defaults".
func (r AnalysisRequest) Validate() error {
	missing := make([]string, 0, 2)
	if blank(r.ClientID) {
		missing = append(missing, "client_id")
	}
	if r.AnalysisMonth.IsZero() {
		missing = append(missing, "mes_analise")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Normalized returns a copy with a trimmed client id and a metric set.
func (r AnalysisRequest) Normalized() AnalysisRequest {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.SelectedMetrics = NormalizeMetrics(r.SelectedMetrics)
	return r
}

// NormalizeMetrics lowercases, dedupes and sorts metric keys.
func NormalizeMetrics(metrics []string) []string {
	seen := make(map[string]struct{}, len(metrics))
	out := make([]string, 0, len(metrics))
	for _, metric := range metrics {
		key := strings.ToLower(strings.TrimSpace(metric))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// ParseAnalysisMonth accepts YYYY-MM-DD or YYYY-MM and returns the date in UTC.
func ParseAnalysisMonth(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if parsed, err := time.Parse(MonthLayout, trimmed); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse("2006-01", trimmed); err == nil {
		return parsed, nil
	}
	return time.Time{}, errInvalidMonth
}
