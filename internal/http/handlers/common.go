package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/iago/media-console/internal/analysis"
	"github.com/iago/media-console/internal/directory"
	"github.com/iago/media-console/internal/domain"
	"github.com/iago/media-console/internal/http/middleware"
	"github.com/iago/media-console/internal/notify"
	"github.com/iago/media-console/internal/remote"
	"github.com/iago/media-console/internal/reports"
	"github.com/iago/media-console/internal/repository"
)

var errInvalidPayload = errors.New("invalid payload")

type Dependencies struct {
	Clients       *directory.ClientStore
	Prompts       *directory.PromptStore
	Analysis      *analysis.Controller
	Reports       *reports.Lookup
	History       repository.HistoryRepository
	Notifications *notify.Center
	ReportAwait   reports.AwaitPolicy
}

// API serves the console endpoints consumed by the dashboard.
type API struct {
	clients       *directory.ClientStore
	prompts       *directory.PromptStore
	analysis      *analysis.Controller
	reports       *reports.Lookup
	history       repository.HistoryRepository
	notifications *notify.Center
	reportAwait   reports.AwaitPolicy
}

func NewAPI(deps Dependencies) *API {
	return &API{
		clients:       deps.Clients,
		prompts:       deps.Prompts,
		analysis:      deps.Analysis,
		reports:       deps.Reports,
		history:       deps.History,
		notifications: deps.Notifications,
		reportAwait:   deps.ReportAwait,
	}
}

type errorPayload struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Fields  []string `json:"fields,omitempty"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err *domain.ValidationError) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = "invalid_request"
	payload.Error.Message = err.Error()
	payload.Error.Fields = err.Fields
	writeJSON(w, http.StatusBadRequest, payload)
}

// writeFailure maps store and backend failures onto the console envelope.
// Backend 4xx answers keep their status; anything else is a 502.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		writeValidationError(w, r, validationErr)
		return
	}
	if errors.Is(err, analysis.ErrJobInFlight) {
		writeBusy(w, r)
		return
	}

	status := remote.StatusCode(err)
	switch {
	case status == http.StatusNotFound:
		writeError(w, r, status, "not_found", remote.Message(err))
	case status >= 400 && status < 500:
		writeError(w, r, status, "backend_rejected", remote.Message(err))
	default:
		writeError(w, r, http.StatusBadGateway, "backend_error", remote.Message(err))
	}
}

func writeBusy(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusConflict, "analysis_in_progress", "an analysis is in progress; try again when it finishes")
}

// busy enforces the pending-analysis gate on client-mutating routes.
func (api *API) busy(w http.ResponseWriter, r *http.Request) bool {
	if api.analysis != nil && api.analysis.Busy() {
		writeBusy(w, r)
		return true
	}
	return false
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

// pathParam returns the single path segment after prefix, unescaped. An
// encoded slash stays part of the segment.
func pathParam(r *http.Request, prefix string) string {
	value := strings.TrimPrefix(r.URL.EscapedPath(), prefix)
	value = strings.Trim(value, "/")
	if strings.Contains(value, "/") {
		return ""
	}
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(decoded)
}

func parseLimit(raw string, fallback, max int) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
