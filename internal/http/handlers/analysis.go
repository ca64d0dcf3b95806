package handlers

import (
	"net/http"
	"strings"

	"github.com/iago/media-console/internal/domain"
	"github.com/iago/media-console/internal/repository"
)

func (api *API) Analysis(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, api.analysisState(api.analysis.State()))
	case http.MethodPost:
		api.startAnalysis(w, r)
	case http.MethodDelete:
		state, err := api.analysis.Dismiss(r.Context())
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, api.analysisState(state))
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *API) startAnalysis(w http.ResponseWriter, r *http.Request) {
	var request domain.AnalysisRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	request = request.Normalized()
	if err := request.Validate(); err != nil {
		writeFailure(w, r, err)
		return
	}
	if api.busy(w, r) {
		return
	}
	if _, ok := api.clients.Get(request.ClientID); !ok {
		writeError(w, r, http.StatusNotFound, "client_not_found", "client is not in the directory")
		return
	}

	state, err := api.analysis.Start(r.Context(), request)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/analysis")
	w.Header().Set("Retry-After", "2")
	writeJSON(w, http.StatusAccepted, api.analysisState(state))
}

func (api *API) AnalysisHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if api.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []repository.HistoryEntry{}})
		return
	}

	query := r.URL.Query()
	items, err := api.history.List(r.Context(), repository.HistoryFilter{
		ClientID: strings.TrimSpace(query.Get("client_id")),
		Token:    strings.TrimSpace(query.Get("token")),
		Limit:    parseLimit(query.Get("limit"), 50, 500),
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list analysis history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (api *API) Metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	options, err := api.analysis.MetricOptions(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": options})
}

func (api *API) analysisState(state domain.JobState) map[string]any {
	response := map[string]any{
		"state": state,
		"busy":  state.Pending(),
	}
	if state.Phase == domain.JobPhaseSucceeded {
		response["report"] = state.ReportRef()
	}
	return response
}
