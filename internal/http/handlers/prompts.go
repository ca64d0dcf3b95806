package handlers

import (
	"net/http"
	"time"

	"github.com/iago/media-console/internal/domain"
	"github.com/iago/media-console/internal/remote"
)

type promptListResponse struct {
	Items       []domain.Prompt `json:"items"`
	Loading     bool            `json:"loading"`
	Error       string          `json:"error,omitempty"`
	RefreshedAt *time.Time      `json:"refreshed_at,omitempty"`
}

func (api *API) Prompts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	response := promptListResponse{
		Items:   api.prompts.List(),
		Loading: api.prompts.Loading(),
	}
	if response.Items == nil {
		response.Items = []domain.Prompt{}
	}
	if err := api.prompts.Err(); err != nil {
		response.Error = remote.Message(err)
	}
	if refreshed := api.prompts.LastRefreshed(); !refreshed.IsZero() {
		response.RefreshedAt = &refreshed
	}
	writeJSON(w, http.StatusOK, response)
}

// PromptByName updates a prompt addressed by its name.
func (api *API) PromptByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	name := pathParam(r, "/v1/prompts/")
	if name == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "prompt name is required")
		return
	}

	var patch domain.PromptPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if patch.Content != nil && *patch.Content == "" {
		writeValidationError(w, r, &domain.ValidationError{Fields: []string{"conteudo"}})
		return
	}

	if err := api.prompts.Update(r.Context(), name, patch); err != nil {
		writeFailure(w, r, err)
		return
	}
	lookupName := name
	if patch.Name != nil && *patch.Name != "" {
		lookupName = *patch.Name
	}
	if prompt, ok := api.prompts.Get(lookupName); ok {
		writeJSON(w, http.StatusOK, prompt)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nome": lookupName, "updated": true})
}
