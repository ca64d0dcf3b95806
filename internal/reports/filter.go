package reports

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iago/media-console/internal/domain"
)

// Criteria narrows a report listing. Empty fields match everything.
// MonthPrefix is matched textually against the start of AnalysisMonth.
type Criteria struct {
	ClientID    string
	MonthPrefix string
}

// Filter keeps the reports matching criteria, preserving input order.
func Filter(reports []domain.ReportSummary, criteria Criteria) []domain.ReportSummary {
	filtered := make([]domain.ReportSummary, 0, len(reports))
	for _, report := range reports {
		if criteria.ClientID != "" && report.ClientID != criteria.ClientID {
			continue
		}
		if criteria.MonthPrefix != "" && !strings.HasPrefix(report.AnalysisMonth, criteria.MonthPrefix) {
			continue
		}
		filtered = append(filtered, report)
	}
	return filtered
}

// SortNewestFirst returns a copy ordered by AnalysisMonth descending.
func SortNewestFirst(reports []domain.ReportSummary) []domain.ReportSummary {
	sorted := append([]domain.ReportSummary(nil), reports...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AnalysisMonth > sorted[j].AnalysisMonth
	})
	return sorted
}

// Months lists the distinct YYYY-MM keys, newest first.
func Months(reports []domain.ReportSummary) []string {
	seen := make(map[string]struct{}, len(reports))
	months := make([]string, 0)
	for _, report := range reports {
		key := report.MonthKey()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		months = append(months, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

// FindExact looks for the report of clientID and month inside the reports
// that pass criteria. A report hidden by the filter is never returned.
func FindExact(reports []domain.ReportSummary, criteria Criteria, clientID, month string) (domain.ReportSummary, bool) {
	for _, report := range Filter(reports, criteria) {
		if report.ClientID != clientID {
			continue
		}
		if report.AnalysisMonth == month || report.AnalysisMonth == domain.MonthKey(month) {
			return report, true
		}
	}
	return domain.ReportSummary{}, false
}

// Title renders the viewer heading, e.g. "Report - Acme - May 2024".
func Title(report domain.ReportSummary) string {
	return fmt.Sprintf("Report - %s - %s", report.ClientName, MonthLabel(report.AnalysisMonth))
}

// MonthLabel renders "2024-05" or "2024-05-01" as "May 2024". Unparseable
// values are returned unchanged.
func MonthLabel(month string) string {
	parsed, err := time.Parse("2006-01", domain.MonthKey(month))
	if err != nil {
		return month
	}
	return parsed.Format("January 2006")
}
