package handlers

import (
	"net/http"

	"github.com/iago/media-console/internal/notify"
)

func (api *API) Notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	items := []notify.Notification{}
	if api.notifications != nil {
		items = api.notifications.List(parseLimit(r.URL.Query().Get("limit"), 50, 200))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
