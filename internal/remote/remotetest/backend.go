// Package remotetest serves an in-memory analysis backend over httptest so
// console components can be exercised against the real wire contract.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/iago/media-console/internal/domain"
)

// Route names used by Fail and Calls.
const (
	RouteListClients  = "GET /clients"
	RouteCreateClient = "POST /clients"
	RouteUpdateClient = "PUT /clients/{id}"
	RouteDeleteClient = "DELETE /clients/{id}"
	RouteListPrompts  = "GET /prompts"
	RouteUpdatePrompt = "PUT /prompts/{name}"
	RouteListMetrics  = "GET /metrics"
	RouteAnalyze      = "POST /analyze"
	RouteListReports  = "GET /reports/list"
	RouteViewByMonth  = "GET /reports/view/{client_id}/{month}"
	RouteViewByFile   = "GET /reports/view/{file_name}"
)

type failure struct {
	status    int
	detail    string
	remaining int
}

type pendingReport struct {
	summary domain.ReportSummary
	content string
	// listsLeft counts report listings that still omit the report.
	listsLeft int
}

type Backend struct {
	mu       sync.Mutex
	clients  map[string]domain.Client
	prompts  []domain.Prompt
	metrics  []string
	reports  []domain.ReportSummary
	contents map[string]string
	pending  []pendingReport
	failures map[string]failure
	calls    map[string]int
	requests []*http.Request

	// PublishDelay is how many report listings miss a freshly generated
	// report before it shows up.
	PublishDelay int

	gate   chan struct{}
	server *httptest.Server
}

// New starts a backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	backend := &Backend{
		clients:  make(map[string]domain.Client),
		contents: make(map[string]string),
		failures: make(map[string]failure),
		calls:    make(map[string]int),
		metrics:  []string{"CPA", "CTR", "Conversion_Rate", "ROAS", "Spend"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(RouteListClients, backend.route(RouteListClients, backend.listClients))
	mux.HandleFunc(RouteCreateClient, backend.route(RouteCreateClient, backend.createClient))
	mux.HandleFunc(RouteUpdateClient, backend.route(RouteUpdateClient, backend.updateClient))
	mux.HandleFunc(RouteDeleteClient, backend.route(RouteDeleteClient, backend.deleteClient))
	mux.HandleFunc(RouteListPrompts, backend.route(RouteListPrompts, backend.listPrompts))
	mux.HandleFunc(RouteUpdatePrompt, backend.route(RouteUpdatePrompt, backend.updatePrompt))
	mux.HandleFunc(RouteListMetrics, backend.route(RouteListMetrics, backend.listMetrics))
	mux.HandleFunc(RouteAnalyze, backend.analyze)
	mux.HandleFunc(RouteListReports, backend.route(RouteListReports, backend.listReports))
	mux.HandleFunc(RouteViewByMonth, backend.route(RouteViewByMonth, backend.viewByMonth))
	mux.HandleFunc(RouteViewByFile, backend.route(RouteViewByFile, backend.viewByFile))

	backend.server = httptest.NewServer(mux)
	t.Cleanup(backend.server.Close)
	return backend
}

func (b *Backend) URL() string {
	return b.server.URL
}

func (b *Backend) SeedClients(clients ...domain.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, client := range clients {
		b.clients[client.ID] = client
	}
}

func (b *Backend) SeedPrompts(prompts ...domain.Prompt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, prompts...)
}

func (b *Backend) SetMetrics(metrics ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = append([]string(nil), metrics...)
}

// AddReport makes a report and its content visible immediately.
func (b *Backend) AddReport(summary domain.ReportSummary, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = append(b.reports, summary)
	b.contents[summary.FileName] = content
}

// Fail makes the next times calls to route answer with status and a
// FastAPI detail body. times <= 0 fails until Recover is called.
func (b *Backend) Fail(route string, status int, detail string, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, detail: detail, remaining: times}
}

func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// LastRequest returns the most recent request the backend received.
func (b *Backend) LastRequest() *http.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return nil
	}
	return b.requests[len(b.requests)-1]
}

// Hold blocks /analyze until the returned release func is called.
func (b *Backend) Hold() func() {
	b.mu.Lock()
	gate := make(chan struct{})
	b.gate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.gate == gate {
				b.gate = nil
			}
			b.mu.Unlock()
			close(gate)
		})
	}
}

func (b *Backend) Clients() []domain.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedClientsLocked()
}

func (b *Backend) Prompts() []domain.Prompt {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Prompt(nil), b.prompts...)
}

func (b *Backend) route(name string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.intercept(name, w, r) {
			return
		}
		handler(w, r)
	}
}

// intercept records the call and answers with a configured failure.
func (b *Backend) intercept(name string, w http.ResponseWriter, r *http.Request) bool {
	b.mu.Lock()
	b.calls[name]++
	b.requests = append(b.requests, r.Clone(r.Context()))
	fail, ok := b.failures[name]
	if ok && fail.remaining > 0 {
		fail.remaining--
		if fail.remaining == 0 {
			delete(b.failures, name)
		} else {
			b.failures[name] = fail
		}
	}
	b.mu.Unlock()

	if !ok {
		return false
	}
	writeDetail(w, fail.status, fail.detail)
	return true
}

func (b *Backend) listClients(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	keyed := make(map[string]domain.Client, len(b.clients))
	for id, client := range b.clients {
		keyed[id] = client
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, keyed)
}

func (b *Backend) createClient(w http.ResponseWriter, r *http.Request) {
	var client domain.Client
	if err := json.NewDecoder(r.Body).Decode(&client); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.clients[client.ID]; exists {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Client with ID '%s' already exists.", client.ID))
		return
	}
	b.clients[client.ID] = client
	writeJSON(w, http.StatusOK, client)
}

func (b *Backend) updateClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch domain.ClientPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	client, exists := b.clients[id]
	if !exists {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Client with ID '%s' not found.", id))
		return
	}
	client = patch.Apply(client)
	b.clients[id] = client
	writeJSON(w, http.StatusOK, client)
}

func (b *Backend) deleteClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.clients[id]; !exists {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Client with ID '%s' not found.", id))
		return
	}
	delete(b.clients, id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   fmt.Sprintf("Client '%s' removed.", id),
		"client_id": id,
	})
}

func (b *Backend) listPrompts(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	prompts := append([]domain.Prompt{}, b.prompts...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, prompts)
}

func (b *Backend) updatePrompt(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var patch domain.PromptPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, prompt := range b.prompts {
		if prompt.Name == name {
			b.prompts[i] = patch.Apply(prompt)
			writeJSON(w, http.StatusOK, b.prompts[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, fmt.Sprintf("Prompt '%s' not found.", name))
}

func (b *Backend) listMetrics(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	metrics := append([]string{}, b.metrics...)
	b.mu.Unlock()
	sort.Strings(metrics)
	writeJSON(w, http.StatusOK, metrics)
}

func (b *Backend) analyze(w http.ResponseWriter, r *http.Request) {
	if b.intercept(RouteAnalyze, w, r) {
		return
	}

	var request domain.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	client, exists := b.clients[request.ClientID]
	if !exists {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Client with ID '%s' not found.", request.ClientID))
		return
	}

	month := request.Month()
	fileName := fmt.Sprintf("%s_%s.md", client.ID, month)
	summary := domain.ReportSummary{
		ClientID:      client.ID,
		ClientName:    client.DisplayName,
		AnalysisMonth: month,
		FileName:      fileName,
		FilePath:      "reports/" + client.ID + "/" + fileName,
	}
	content := fmt.Sprintf("# %s %s\n\nmetrics: %s\n", client.DisplayName, month, strings.Join(request.SelectedMetrics, ","))
	b.pending = append(b.pending, pendingReport{summary: summary, content: content, listsLeft: b.PublishDelay})
	b.contents[fileName] = content
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Analysis completed.",
		"report_path": summary.FilePath,
	})
}

func (b *Backend) listReports(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	remaining := b.pending[:0]
	for _, item := range b.pending {
		if item.listsLeft <= 0 {
			b.reports = append(b.reports, item.summary)
			continue
		}
		item.listsLeft--
		remaining = append(remaining, item)
	}
	b.pending = remaining
	reports := append([]domain.ReportSummary{}, b.reports...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, reports)
}

func (b *Backend) viewByMonth(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("client_id")
	month := domain.MonthKey(r.PathValue("month"))

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, report := range b.reports {
		if report.ClientID == clientID && report.MonthKey() == month {
			writeJSON(w, http.StatusOK, map[string]string{"report_content": b.contents[report.FileName]})
			return
		}
	}
	for _, item := range b.pending {
		if item.summary.ClientID == clientID && item.summary.MonthKey() == month {
			writeJSON(w, http.StatusOK, map[string]string{"report_content": item.content})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Report not found.")
}

func (b *Backend) viewByFile(w http.ResponseWriter, r *http.Request) {
	fileName := r.PathValue("file_name")

	b.mu.Lock()
	defer b.mu.Unlock()
	content, ok := b.contents[fileName]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Report not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report_content": content})
}

func (b *Backend) sortedClientsLocked() []domain.Client {
	clients := make([]domain.Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].ID < clients[j].ID
	})
	return clients
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
