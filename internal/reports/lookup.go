// Package reports is the read-only view over generated reports.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iago/media-console/internal/cache"
	"github.com/iago/media-console/internal/domain"
	"github.com/iago/media-console/internal/remote"
)

// ContentUnavailable replaces a report body that could not be fetched.
const ContentUnavailable = "Report content unavailable."

var ErrReportNotFound = errors.New("report not found")

// ContentCache stores report bodies by key.
type ContentCache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

type AwaitPolicy struct {
	Attempts int
	Interval time.Duration
}

type Lookup struct {
	port   remote.ReportPort
	cache  ContentCache
	logger *log.Logger
}

func NewLookup(port remote.ReportPort, contentCache ContentCache, logger *log.Logger) *Lookup {
	return &Lookup{
		port:   port,
		cache:  contentCache,
		logger: logger,
	}
}

// ListAll returns every report the backend knows about.
func (l *Lookup) ListAll(ctx context.Context) ([]domain.ReportSummary, error) {
	reports, err := l.port.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// FetchContent returns the report body addressed by ref, or
// ContentUnavailable when it cannot be fetched. Only bodies addressed by
// file name are cached; a client and month may be re-analysed.
func (l *Lookup) FetchContent(ctx context.Context, ref domain.ReportRef) string {
	if ref.Empty() {
		return ContentUnavailable
	}

	if ref.ByFileName() {
		key := cache.BuildKey("file", ref.FileName)
		if l.cache != nil {
			if content, ok := l.cache.Get(key); ok {
				return content
			}
		}
		content, err := l.port.FetchReportByFileName(ctx, ref.FileName)
		if err != nil {
			l.logf("report content unavailable file_name=%s err=%v", ref.FileName, err)
			return ContentUnavailable
		}
		if l.cache != nil {
			l.cache.Set(key, content)
		}
		return content
	}

	content, err := l.port.FetchReportByMonth(ctx, ref.ClientID, ref.AnalysisMonth)
	if err != nil {
		l.logf("report content unavailable client_id=%s month=%s err=%v", ref.ClientID, ref.AnalysisMonth, err)
		return ContentUnavailable
	}
	return content
}

// Await polls the listing until the report of clientID and month shows up.
// The backend may publish a finished report with a delay.
func (l *Lookup) Await(ctx context.Context, clientID, month string, policy AwaitPolicy) (domain.ReportSummary, error) {
	if policy.Attempts <= 0 {
		policy.Attempts = 5
	}
	if policy.Interval <= 0 {
		policy.Interval = time.Second
	}

	criteria := Criteria{ClientID: clientID}
	var lastErr error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		reports, err := l.ListAll(ctx)
		if err == nil {
			if report, ok := FindExact(reports, criteria, clientID, month); ok {
				return report, nil
			}
		}
		lastErr = err

		if attempt == policy.Attempts-1 {
			break
		}
		timer := time.NewTimer(policy.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.ReportSummary{}, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr != nil {
		return domain.ReportSummary{}, fmt.Errorf("%w: %v", ErrReportNotFound, lastErr)
	}
	return domain.ReportSummary{}, ErrReportNotFound
}

func (l *Lookup) logf(format string, args ...any) {
	if l.logger != nil {
		l.logger.Printf(format, args...)
	}
}
