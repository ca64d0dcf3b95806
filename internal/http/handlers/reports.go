package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iago/media-console/internal/domain"
	"github.com/iago/media-console/internal/reports"
)

type reportItem struct {
	domain.ReportSummary
	Title string `json:"title"`
}

func (api *API) Reports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	query := r.URL.Query()
	openClientID := strings.TrimSpace(query.Get("open_client_id"))
	openMonth := strings.TrimSpace(query.Get("open_month"))
	if openClientID != "" && openMonth != "" && query.Get("await") == "true" {
		// A just-finished report can take a few listings to show up.
		_, err := api.reports.Await(r.Context(), openClientID, openMonth, api.reportAwait)
		if err != nil && !errors.Is(err, reports.ErrReportNotFound) {
			writeFailure(w, r, err)
			return
		}
	}

	all, err := api.reports.ListAll(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	criteria := reports.Criteria{
		ClientID:    strings.TrimSpace(query.Get("client_id")),
		MonthPrefix: strings.TrimSpace(query.Get("month")),
	}
	sorted := reports.SortNewestFirst(all)
	filtered := reports.Filter(sorted, criteria)

	items := make([]reportItem, 0, len(filtered))
	for _, report := range filtered {
		items = append(items, reportItem{ReportSummary: report, Title: reports.Title(report)})
	}

	response := map[string]any{
		"items":  items,
		"months": reports.Months(all),
		"total":  len(items),
	}

	if openClientID != "" && openMonth != "" {
		if report, ok := reports.FindExact(sorted, criteria, openClientID, openMonth); ok {
			response["open"] = reportItem{ReportSummary: report, Title: reports.Title(report)}
		} else {
			response["open"] = nil
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// ReportContent returns a report body. A failed fetch yields the
// placeholder text rather than an error status.
func (api *API) ReportContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	query := r.URL.Query()
	ref := domain.ReportRef{
		FileName:      strings.TrimSpace(query.Get("file_name")),
		ClientID:      strings.TrimSpace(query.Get("client_id")),
		AnalysisMonth: strings.TrimSpace(query.Get("month")),
	}
	if ref.Empty() {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "file_name or client_id and month are required")
		return
	}
	if !ref.ByFileName() {
		month, err := domain.ParseAnalysisMonth(ref.AnalysisMonth)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "month must be YYYY-MM-DD or YYYY-MM")
			return
		}
		ref.AnalysisMonth = month.Format(domain.MonthLayout)
	}

	content := api.reports.FetchContent(r.Context(), ref)
	response := map[string]any{
		"content":     content,
		"unavailable": content == reports.ContentUnavailable,
	}
	if !ref.ByFileName() {
		summary := domain.ReportSummary{ClientID: ref.ClientID, AnalysisMonth: ref.AnalysisMonth}
		if client, ok := api.clients.Get(ref.ClientID); ok {
			summary.ClientName = client.DisplayName
			response["title"] = reports.Title(summary)
		}
	}
	writeJSON(w, http.StatusOK, response)
}
