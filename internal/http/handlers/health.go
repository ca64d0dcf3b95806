package handlers

import "net/http"

// Health reports liveness plus a summary of the local sync state. A failed
// client refresh does not make the console unhealthy; it is only reported.
func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	response := map[string]any{"status": "ok"}
	if api.clients != nil {
		response["clients"] = api.clients.Len()
		response["clients_synced"] = api.clients.Err() == nil && !api.clients.LastRefreshed().IsZero()
	}
	if api.prompts != nil {
		response["prompts"] = api.prompts.Len()
	}
	if api.analysis != nil {
		response["analysis"] = api.analysis.State().Phase
	}
	writeJSON(w, http.StatusOK, response)
}
