package domain

// ReportSummary describes a report the backend generated for a finished
// analysis. ClientName is captured at generation time and may be stale.
type ReportSummary struct {
	ClientID      string `json:"client_id"`
	ClientName    string `json:"client_name"`
	AnalysisMonth string `json:"mes_analise"`
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
}

// MonthKey returns the YYYY-MM prefix of AnalysisMonth.
func (r ReportSummary) MonthKey() string {
	return MonthKey(r.AnalysisMonth)
}

// MonthKey truncates an ISO-like date string to its YYYY-MM prefix.
func MonthKey(month string) string {
	if len(month) < 7 {
		return month
	}
	return month[:7]
}

// ReportRef addresses report content either by file name or by client and
// month. A freshly completed job only knows the latter.
type ReportRef struct {
	ClientID      string `json:"client_id,omitempty"`
	AnalysisMonth string `json:"mes_analise,omitempty"`
	FileName      string `json:"file_name,omitempty"`
}

func (r ReportRef) ByFileName() bool {
	return r.FileName != ""
}

func (r ReportRef) Empty() bool {
	return r.FileName == "" && (r.ClientID == "" || r.AnalysisMonth == "")
}
