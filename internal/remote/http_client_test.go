package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/iago/media-console/internal/domain"
)

func newTestClient(baseURL string, maxRetries int) *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
	})
}

func TestHTTPClientListClientsSortsKeyedObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/clients" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"zeta":{"id":"zeta","nome_exibicao":"Zeta","contexto_cliente_prompt":"ctx","planilha_id_ou_nome":"sheet-z"},
			"acme":{"nome_exibicao":"Acme","contexto_cliente_prompt":"ctx","planilha_id_ou_nome":"sheet-a","google_sheet_tab_name":null}
		}`))
	}))
	defer server.Close()

	clients, err := newTestClient(server.URL, 0).ListClients(context.Background())
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	if clients[0].ID != "acme" || clients[1].ID != "zeta" {
		t.Fatalf("expected clients sorted by id with key fallback, got %+v", clients)
	}
}

func TestHTTPClientClassifiesFastAPIDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Client with ID 'acme' already exists."}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL, 2).CreateClient(context.Background(), domain.Client{ID: "acme"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var remoteErr *Error
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if remoteErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", remoteErr.StatusCode)
	}
	if got := Message(err); got != "Client with ID 'acme' already exists." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestHTTPClientJoinsValidationDetailList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","id"],"msg":"field required"},{"loc":["body","nome_exibicao"],"msg":"field required"}]}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL, 0).CreateClient(context.Background(), domain.Client{})
	if got := Message(err); got != "field required; field required" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestHTTPClientRetriesGetOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["CTR","ROAS"]`))
	}))
	defer server.Close()

	metrics, err := newTestClient(server.URL, 2).ListMetrics(context.Background())
	if err != nil {
		t.Fatalf("expected success after retry, got err=%v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %v", metrics)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestHTTPClientNeverRetriesMutations(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	if err := client.DeleteClient(context.Background(), "acme"); err == nil {
		t.Fatalf("expected delete error")
	}
	_, err := client.SubmitAnalysis(context.Background(), domain.AnalysisRequest{
		ClientID:      "acme",
		AnalysisMonth: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatalf("expected submit error")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected exactly one call per mutation, got %d", got)
	}
}

func TestHTTPClientTransportFailureHidesBackendAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	_, err := newTestClient(baseURL, 0).ListReports(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if !IsTransport(err) {
		t.Fatalf("expected transport classification, got %v", err)
	}
	if got := Message(err); got != FallbackMessage {
		t.Fatalf("expected generic message, got %q", got)
	}
	if host := strings.TrimPrefix(baseURL, "http://"); strings.Contains(Message(err), host) {
		t.Fatalf("message leaks backend address %q", host)
	}
	if !strings.Contains(err.Error(), "transport error") {
		t.Fatalf("expected cause kept on the error for logs, got %v", err)
	}
}

func TestParseDetailKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("a", 699) + "ção"
	got := parseDetail([]byte(body))
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid utf-8 after truncation")
	}
	if len(got) != 699 {
		t.Fatalf("expected cut before the split rune, got %d bytes", len(got))
	}
}

func TestHTTPClientSubmitAnalysisWireFormat(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"done","report_path":"reports/acme/acme_2024-05-01.md"}`))
	}))
	defer server.Close()

	receipt, err := newTestClient(server.URL, 0).SubmitAnalysis(context.Background(), domain.AnalysisRequest{
		ClientID:      "acme",
		AnalysisMonth: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if receipt.ReportPath != "reports/acme/acme_2024-05-01.md" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	expected := `{"client_id":"acme","mes_analise":"2024-05-01","metricas_selecionadas":[]}`
	if body != expected {
		t.Fatalf("unexpected wire body %s", body)
	}
}

func TestHTTPClientFetchReportPathsAndRequestID(t *testing.T) {
	var paths []string
	var requestIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		requestIDs = append(requestIDs, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"report_content":"# report"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPClientConfig{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
		RequestID: func(context.Context) string {
			return "req-1"
		},
	})
	content, err := client.FetchReportByMonth(context.Background(), "acme", "2024-05-01")
	if err != nil || content != "# report" {
		t.Fatalf("unexpected result content=%q err=%v", content, err)
	}
	if _, err := client.FetchReportByFileName(context.Background(), "acme 2024.md"); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}

	if paths[0] != "/reports/view/acme/2024-05-01" {
		t.Fatalf("unexpected month path %q", paths[0])
	}
	if paths[1] != "/reports/view/acme%202024.md" {
		t.Fatalf("unexpected file path %q", paths[1])
	}
	if requestIDs[0] != "req-1" {
		t.Fatalf("expected forwarded request id, got %q", requestIDs[0])
	}
}

func TestMessageFallsBackToGenericText(t *testing.T) {
	if got := Message(&Error{Op: "list clients"}); got != FallbackMessage {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := Message(&Error{Op: "x", StatusCode: 404, Detail: "missing"}); got != "missing" {
		t.Fatalf("expected detail, got %q", got)
	}
	if !IsNotFound(&Error{StatusCode: http.StatusNotFound}) {
		t.Fatalf("expected not found classification")
	}
}
