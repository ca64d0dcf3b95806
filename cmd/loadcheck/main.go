// Command loadcheck measures latency of a running console's read routes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type scenarioResult struct {
	Name          string   `json:"name"`
	Total         int      `json:"total"`
	Success       int      `json:"success"`
	Errors        int      `json:"errors"`
	P50MS         float64  `json:"p50_ms"`
	P95MS         float64  `json:"p95_ms"`
	P99MS         float64  `json:"p99_ms"`
	MaxMS         float64  `json:"max_ms"`
	ThroughputRPS float64  `json:"throughput_rps"`
	ErrorSamples  []string `json:"error_samples,omitempty"`
}

type runResult struct {
	GeneratedAtUTC string           `json:"generated_at_utc"`
	Target         string           `json:"target"`
	Results        []scenarioResult `json:"results"`
	SLOEvaluation  map[string]bool  `json:"slo_evaluation"`
}

type loadTarget struct {
	client  *http.Client
	baseURL string
	token   string
}

func main() {
	target := flag.String("target", "http://127.0.0.1:8080", "console base URL")
	token := flag.String("token", os.Getenv("API_AUTH_TOKEN"), "bearer token for /v1 routes")
	total := flag.Int("total", 200, "requests per scenario")
	concurrency := flag.Int("concurrency", 16, "concurrent requests per scenario")
	reportsClientID := flag.String("client-id", "", "client id used by the filtered report scenario")
	outputPath := flag.String("output", "", "optional path to persist results JSON")
	flag.Parse()

	p := loadTarget{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(*target, "/"),
		token:   *token,
	}
	if err := p.get("/healthz"); err != nil {
		log.Fatalf("console not reachable at %s: %v", p.baseURL, err)
	}

	clientsScenario := runScenario("clients_list", *total, *concurrency, func(int) error {
		return p.get("/v1/clients")
	})
	reportsScenario := runScenario("reports_list", *total, *concurrency, func(int) error {
		return p.get("/v1/reports")
	})
	filteredScenario := runScenario("reports_filtered", *total, *concurrency, func(index int) error {
		query := url.Values{}
		if *reportsClientID != "" {
			query.Set("client_id", *reportsClientID)
		}
		query.Set("month", fmt.Sprintf("2024-%02d", (index%12)+1))
		return p.get("/v1/reports?" + query.Encode())
	})
	notificationsScenario := runScenario("notifications_list", *total, *concurrency, func(int) error {
		return p.get("/v1/notifications?limit=20")
	})

	results := []scenarioResult{
		clientsScenario,
		reportsScenario,
		filteredScenario,
		notificationsScenario,
	}
	slo := map[string]bool{
		"clients_list_p95_le_500ms":       clientsScenario.P95MS <= 500,
		"reports_list_p95_le_2000ms":      reportsScenario.P95MS <= 2000,
		"notifications_list_p95_le_100ms": notificationsScenario.P95MS <= 100,
	}

	report := runResult{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Target:         p.baseURL,
		Results:        results,
		SLOEvaluation:  slo,
	}
	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal loadcheck report: %v", err)
	}
	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, encoded, 0o644); err != nil {
			log.Fatalf("failed to write output file: %v", err)
		}
	}
	_, _ = fmt.Fprintln(os.Stdout, string(encoded))
}

func runScenario(
	name string,
	total int,
	concurrency int,
	requestFn func(index int) error,
) scenarioResult {
	if total <= 0 {
		return scenarioResult{Name: name}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	startedAt := time.Now()
	type sample struct {
		durationMS float64
		err        string
	}

	jobs := make(chan int, total)
	results := make(chan sample, total)
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				requestStart := time.Now()
				err := requestFn(index)
				s := sample{durationMS: float64(time.Since(requestStart).Microseconds()) / 1000.0}
				if err != nil {
					s.err = err.Error()
				}
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	durations := make([]float64, 0, total)
	errorSamples := make([]string, 0, 5)
	success := 0
	for item := range results {
		durations = append(durations, item.durationMS)
		if item.err == "" {
			success++
			continue
		}
		if len(errorSamples) < 5 {
			errorSamples = append(errorSamples, item.err)
		}
	}

	sort.Float64s(durations)
	throughput := 0.0
	if elapsed := time.Since(startedAt).Seconds(); elapsed > 0 {
		throughput = float64(total) / elapsed
	}

	return scenarioResult{
		Name:          name,
		Total:         total,
		Success:       success,
		Errors:        total - success,
		P50MS:         percentile(durations, 0.50),
		P95MS:         percentile(durations, 0.95),
		P99MS:         percentile(durations, 0.99),
		MaxMS:         percentile(durations, 1.00),
		ThroughputRPS: round2(throughput),
		ErrorSamples:  errorSamples,
	}
}

func (p loadTarget) get(path string) error {
	request, err := http.NewRequest(http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if p.token != "" {
		request.Header.Set("Authorization", "Bearer "+p.token)
	}

	response, err := p.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d on %s: %s", response.StatusCode, path, string(body))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return round2(values[0])
	}
	if p >= 1 {
		return round2(values[len(values)-1])
	}
	rank := int(math.Ceil(float64(len(values))*p)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return round2(values[rank])
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
