package handlers

import (
	"net/http"
	"time"

	"github.com/iago/media-console/internal/domain"
	"github.com/iago/media-console/internal/remote"
)

type clientListResponse struct {
	Items       []domain.Client `json:"items"`
	Loading     bool            `json:"loading"`
	Error       string          `json:"error,omitempty"`
	RefreshedAt *time.Time      `json:"refreshed_at,omitempty"`
}

func (api *API) Clients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, api.clientList())
	case http.MethodPost:
		api.addClient(w, r)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *API) ClientByID(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "/v1/clients/")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "client id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		client, ok := api.clients.Get(id)
		if !ok {
			writeError(w, r, http.StatusNotFound, "not_found", "client not found")
			return
		}
		writeJSON(w, http.StatusOK, client)
	case http.MethodPut:
		api.updateClient(w, r, id)
	case http.MethodDelete:
		api.removeClient(w, r, id)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// RefreshClients answers POST /v1/clients/refresh. Other methods on that
// path address a client whose id is "refresh".
func (api *API) RefreshClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.ClientByID(w, r)
		return
	}
	if err := api.clients.Refresh(r.Context()); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.clientList())
}

func (api *API) addClient(w http.ResponseWriter, r *http.Request) {
	var client domain.Client
	if err := decodeJSON(r, &client); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if err := client.Validate(); err != nil {
		writeFailure(w, r, err)
		return
	}
	if api.busy(w, r) {
		return
	}

	if err := api.clients.Add(r.Context(), client); err != nil {
		writeFailure(w, r, err)
		return
	}
	if stored, ok := api.clients.Get(client.ID); ok {
		client = stored
	}
	writeJSON(w, http.StatusCreated, client)
}

func (api *API) updateClient(w http.ResponseWriter, r *http.Request, id string) {
	var patch domain.ClientPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if err := patch.Validate(); err != nil {
		writeFailure(w, r, err)
		return
	}
	if api.busy(w, r) {
		return
	}

	if err := api.clients.Update(r.Context(), id, patch); err != nil {
		writeFailure(w, r, err)
		return
	}
	client, ok := api.clients.Get(id)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "updated": true})
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (api *API) removeClient(w http.ResponseWriter, r *http.Request, id string) {
	if api.busy(w, r) {
		return
	}
	if err := api.clients.Remove(r.Context(), id); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (api *API) clientList() clientListResponse {
	response := clientListResponse{
		Items:   api.clients.List(),
		Loading: api.clients.Loading(),
	}
	if response.Items == nil {
		response.Items = []domain.Client{}
	}
	if err := api.clients.Err(); err != nil {
		response.Error = remote.Message(err)
	}
	if refreshed := api.clients.LastRefreshed(); !refreshed.IsZero() {
		response.RefreshedAt = &refreshed
	}
	return response
}
