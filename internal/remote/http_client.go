package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iago/media-console/internal/domain"
)

type HTTPClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client

	// RequestsPerSecond caps outbound calls; zero disables the limiter.
	RequestsPerSecond float64
	Burst             int

	// RequestID returns the id to forward as X-Request-Id, if any.
	RequestID func(ctx context.Context) string
}

// HTTPClient talks to the analysis backend over its REST contract.
type HTTPClient struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	requestID  func(ctx context.Context) string
}

var _ Port = (*HTTPClient)(nil)

func NewHTTPClient(config HTTPClientConfig) *HTTPClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &HTTPClient{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(config.BaseURL), "/"),
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		httpClient: config.HTTPClient,
		limiter:    limiter,
		requestID:  config.RequestID,
	}
}

func (c *HTTPClient) ListClients(ctx context.Context) ([]domain.Client, error) {
	var keyed map[string]domain.Client
	if err := c.do(ctx, "list clients", http.MethodGet, "/clients", nil, &keyed); err != nil {
		return nil, err
	}
	clients := make([]domain.Client, 0, len(keyed))
	for id, client := range keyed {
		if client.ID == "" {
			client.ID = id
		}
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].ID < clients[j].ID
	})
	return clients, nil
}

func (c *HTTPClient) CreateClient(ctx context.Context, client domain.Client) error {
	return c.do(ctx, "create client", http.MethodPost, "/clients", client, nil)
}

func (c *HTTPClient) UpdateClient(ctx context.Context, id string, patch domain.ClientPatch) error {
	return c.do(ctx, "update client", http.MethodPut, "/clients/"+url.PathEscape(id), patch, nil)
}

func (c *HTTPClient) DeleteClient(ctx context.Context, id string) error {
	return c.do(ctx, "delete client", http.MethodDelete, "/clients/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ListPrompts(ctx context.Context) ([]domain.Prompt, error) {
	prompts := make([]domain.Prompt, 0)
	if err := c.do(ctx, "list prompts", http.MethodGet, "/prompts", nil, &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

func (c *HTTPClient) UpdatePrompt(ctx context.Context, name string, patch domain.PromptPatch) error {
	return c.do(ctx, "update prompt", http.MethodPut, "/prompts/"+url.PathEscape(name), patch, nil)
}

func (c *HTTPClient) ListMetrics(ctx context.Context) ([]string, error) {
	metrics := make([]string, 0)
	if err := c.do(ctx, "list metrics", http.MethodGet, "/metrics", nil, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (c *HTTPClient) SubmitAnalysis(ctx context.Context, request domain.AnalysisRequest) (AnalysisReceipt, error) {
	var receipt AnalysisReceipt
	if err := c.do(ctx, "submit analysis", http.MethodPost, "/analyze", request, &receipt); err != nil {
		return AnalysisReceipt{}, err
	}
	return receipt, nil
}

func (c *HTTPClient) ListReports(ctx context.Context) ([]domain.ReportSummary, error) {
	reports := make([]domain.ReportSummary, 0)
	if err := c.do(ctx, "list reports", http.MethodGet, "/reports/list", nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *HTTPClient) FetchReportByMonth(ctx context.Context, clientID, analysisMonth string) (string, error) {
	path := "/reports/view/" + url.PathEscape(clientID) + "/" + url.PathEscape(analysisMonth)
	return c.fetchReport(ctx, path)
}

func (c *HTTPClient) FetchReportByFileName(ctx context.Context, fileName string) (string, error) {
	return c.fetchReport(ctx, "/reports/view/"+url.PathEscape(fileName))
}

func (c *HTTPClient) fetchReport(ctx context.Context, path string) (string, error) {
	var payload struct {
		ReportContent string `json:"report_content"`
	}
	if err := c.do(ctx, "fetch report", http.MethodGet, path, nil, &payload); err != nil {
		return "", err
	}
	return payload.ReportContent, nil
}

// do sends one request. Only GETs are retried; writes and submissions must
// not be replayed against the backend.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var encoded []byte
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", op, err)
		}
		encoded = payload
	}

	retries := 0
	if method == http.MethodGet {
		retries = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		callErr := c.call(ctx, op, method, path, encoded, out)
		if callErr == nil {
			return nil
		}
		lastErr = callErr

		if !isRetryable(callErr) || attempt == retries {
			break
		}

		backoff := time.Duration(350*(attempt+1)) * time.Millisecond
		select {
		case <-ctx.Done():
			return &Error{Op: op, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}

	if lastErr == nil {
		lastErr = &Error{Op: op}
	}
	return lastErr
}

func (c *HTTPClient) call(ctx context.Context, op, method, path string, payload []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpRequest, err := http.NewRequestWithContext(timeoutCtx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	httpRequest.Header.Set("Accept", "application/json")
	if payload != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if c.requestID != nil {
		if id := c.requestID(ctx); id != "" && id != "unknown" {
			httpRequest.Header.Set("X-Request-Id", id)
		}
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return &Error{Op: op, Err: fmt.Errorf("timeout: %w", err)}
		}
		return &Error{Op: op, Err: fmt.Errorf("transport error: %w", err)}
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return &Error{
			Op:         op,
			StatusCode: httpResponse.StatusCode,
			Detail:     parseDetail(body),
		}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
