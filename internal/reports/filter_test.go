package reports

import (
	"reflect"
	"testing"

	"github.com/iago/media-console/internal/domain"
)

func sampleReports() []domain.ReportSummary {
	return []domain.ReportSummary{
		{ClientID: "c1", ClientName: "Acme", AnalysisMonth: "2024-04-01", FileName: "c1_2024-04-01.md"},
		{ClientID: "c2", ClientName: "Globex", AnalysisMonth: "2024-05-01", FileName: "c2_2024-05-01.md"},
		{ClientID: "c1", ClientName: "Acme", AnalysisMonth: "2024-06-01", FileName: "c1_2024-06-01.md"},
		{ClientID: "c1", ClientName: "Acme", AnalysisMonth: "2024-05-01", FileName: "c1_2024-05-01.md"},
	}
}

func TestFilterByClientPreservesOrder(t *testing.T) {
	got := Filter(sampleReports(), Criteria{ClientID: "c1"})
	files := make([]string, 0, len(got))
	for _, report := range got {
		if report.ClientID != "c1" {
			t.Fatalf("unexpected client %q in result", report.ClientID)
		}
		files = append(files, report.FileName)
	}
	expected := []string{"c1_2024-04-01.md", "c1_2024-06-01.md", "c1_2024-05-01.md"}
	if !reflect.DeepEqual(files, expected) {
		t.Fatalf("expected %v, got %v", expected, files)
	}
}

func TestFilterByMonthPrefix(t *testing.T) {
	reports := []domain.ReportSummary{
		{ClientID: "c1", AnalysisMonth: "2024-05-01"},
		{ClientID: "c1", AnalysisMonth: "2024-06-01"},
	}
	got := Filter(reports, Criteria{MonthPrefix: "2024-05"})
	if len(got) != 1 || got[0].AnalysisMonth != "2024-05-01" {
		t.Fatalf("expected only the May report, got %+v", got)
	}
}

func TestFilterWithoutCriteriaKeepsEverything(t *testing.T) {
	if got := Filter(sampleReports(), Criteria{}); len(got) != 4 {
		t.Fatalf("expected all reports, got %d", len(got))
	}
}

func TestFindExactAppliesFilterFirst(t *testing.T) {
	reports := sampleReports()

	if _, ok := FindExact(reports, Criteria{ClientID: "c2"}, "c1", "2024-05-01"); ok {
		t.Fatalf("report outside the active filter must not be found")
	}
	if _, ok := FindExact(reports, Criteria{MonthPrefix: "2024-06"}, "c1", "2024-05-01"); ok {
		t.Fatalf("report outside the active month filter must not be found")
	}
	report, ok := FindExact(reports, Criteria{ClientID: "c1"}, "c1", "2024-05-01")
	if !ok || report.FileName != "c1_2024-05-01.md" {
		t.Fatalf("expected exact match, got %+v ok=%v", report, ok)
	}
}

func TestFindExactMatchesBareMonth(t *testing.T) {
	reports := []domain.ReportSummary{{ClientID: "c1", AnalysisMonth: "2024-05", FileName: "x.md"}}
	if _, ok := FindExact(reports, Criteria{}, "c1", "2024-05-01"); !ok {
		t.Fatalf("expected bare-month report to match")
	}
}

func TestSortNewestFirstAndMonths(t *testing.T) {
	sorted := SortNewestFirst(sampleReports())
	if sorted[0].AnalysisMonth != "2024-06-01" || sorted[len(sorted)-1].AnalysisMonth != "2024-04-01" {
		t.Fatalf("unexpected order %+v", sorted)
	}
	if sorted[1].ClientID != "c2" {
		t.Fatalf("expected stable order among equal months, got %+v", sorted[1:3])
	}

	months := Months(sampleReports())
	expected := []string{"2024-06", "2024-05", "2024-04"}
	if !reflect.DeepEqual(months, expected) {
		t.Fatalf("expected %v, got %v", expected, months)
	}
}

func TestTitle(t *testing.T) {
	got := Title(domain.ReportSummary{ClientName: "Acme", AnalysisMonth: "2024-05-01"})
	if got != "Report - Acme - May 2024" {
		t.Fatalf("unexpected title %q", got)
	}
}
