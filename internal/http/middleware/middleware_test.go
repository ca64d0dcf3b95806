package middleware

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingTokenOnV1(t *testing.T) {
	handler := RequestID(Auth("secret")(okHandler()))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/clients", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"unauthorized"`) {
		t.Fatalf("expected error envelope, got %s", recorder.Body.String())
	}

	request := httptest.NewRequest(http.MethodGet, "/v1/clients", nil)
	request.Header.Set("Authorization", "Bearer secret")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected health to skip auth, got %d", recorder.Code)
	}
}

func TestRequestIDKeepsValidIncomingID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	request := httptest.NewRequest(http.MethodGet, "/v1/clients", nil)
	request.Header.Set("X-Request-Id", "dash-123")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if seen != "dash-123" || recorder.Header().Get("X-Request-Id") != "dash-123" {
		t.Fatalf("expected incoming id reused, got %q", seen)
	}

	request = httptest.NewRequest(http.MethodGet, "/v1/clients", nil)
	request.Header.Set("X-Request-Id", "bad id with spaces")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	if seen == "bad id with spaces" || seen == "" {
		t.Fatalf("expected a fresh id for an invalid header, got %q", seen)
	}
}

func TestGetRequestIDPlaceholder(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "unknown" {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimit(ctx, 0.001, 1)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/clients", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/clients", nil))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestTraceLogsStatus(t *testing.T) {
	var buffer bytes.Buffer
	logger := log.New(&buffer, "", 0)
	handler := Trace(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/analysis", nil))
	if !strings.Contains(buffer.String(), "status=409") || !strings.Contains(buffer.String(), "path=/v1/analysis") {
		t.Fatalf("unexpected trace line %q", buffer.String())
	}
}
