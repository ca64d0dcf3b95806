package domain

import "time"

type JobPhase string

const (
	JobPhaseIdle      JobPhase = "idle"
	JobPhasePending   JobPhase = "pending"
	JobPhaseSucceeded JobPhase = "succeeded"
	JobPhaseFailed    JobPhase = "failed"
)

// JobState is the locally initiated analysis the console is tracking.
// At most one is tracked at a time.
type JobState struct {
	Phase         JobPhase  `json:"phase"`
	Token         string    `json:"token,omitempty"`
	ClientID      string    `json:"client_id,omitempty"`
	AnalysisMonth string    `json:"mes_analise,omitempty"`
	Metrics       []string  `json:"metricas_selecionadas,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
}

func (s JobState) Pending() bool {
	return s.Phase == JobPhasePending
}

func (s JobState) Terminal() bool {
	return s.Phase == JobPhaseSucceeded || s.Phase == JobPhaseFailed
}

// ReportRef addresses the report a successful job produced.
func (s JobState) ReportRef() ReportRef {
	return ReportRef{ClientID: s.ClientID, AnalysisMonth: s.AnalysisMonth}
}
