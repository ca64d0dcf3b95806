package remote

import (
	"context"

	"github.com/iago/media-console/internal/domain"
)

type ClientPort interface {
	ListClients(ctx context.Context) ([]domain.Client, error)
	CreateClient(ctx context.Context, client domain.Client) error
	UpdateClient(ctx context.Context, id string, patch domain.ClientPatch) error
	DeleteClient(ctx context.Context, id string) error
}

// PromptPort updates prompts by name; the backend has no id-keyed route.
type PromptPort interface {
	ListPrompts(ctx context.Context) ([]domain.Prompt, error)
	UpdatePrompt(ctx context.Context, name string, patch domain.PromptPatch) error
}

// AnalysisPort submits analyses. SubmitAnalysis resolves only when the
// backend has finished, so callers treat its return as completion.
type AnalysisPort interface {
	ListMetrics(ctx context.Context) ([]string, error)
	SubmitAnalysis(ctx context.Context, request domain.AnalysisRequest) (AnalysisReceipt, error)
}

type ReportPort interface {
	ListReports(ctx context.Context) ([]domain.ReportSummary, error)
	FetchReportByMonth(ctx context.Context, clientID, analysisMonth string) (string, error)
	FetchReportByFileName(ctx context.Context, fileName string) (string, error)
}

type Port interface {
	ClientPort
	PromptPort
	AnalysisPort
	ReportPort
}

type AnalysisReceipt struct {
	Message    string `json:"message"`
	ReportPath string `json:"report_path"`
}
