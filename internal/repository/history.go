package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iago/media-console/internal/domain"
)

var ErrNotFound = errors.New("resource not found")

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryEntry is one recorded analysis transition.
type HistoryEntry struct {
	ID            string          `json:"id"`
	Token         string          `json:"token"`
	ClientID      string          `json:"client_id"`
	AnalysisMonth string          `json:"mes_analise"`
	Phase         domain.JobPhase `json:"phase"`
	Reason        string          `json:"reason,omitempty"`
	Metrics       []string        `json:"metricas_selecionadas"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

type HistoryFilter struct {
	ClientID string
	Token    string
	Limit    int
}

// HistoryRepository keeps the audit trail of analyses started from this console.
type HistoryRepository interface {
	Record(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
}

// MemoryHistoryRepository stores history in memory for local development.
type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	entries []HistoryEntry
}

func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{}
}

func (r *MemoryHistoryRepository) Record(_ context.Context, entry HistoryEntry) error {
	if entry.ID == "" {
		return errors.New("history entry id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, cloneEntry(entry))
	return nil
}

func (r *MemoryHistoryRepository) List(_ context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	limit := normalizeLimit(filter.Limit)

	r.mu.RLock()
	items := make([]HistoryEntry, 0)
	for _, entry := range r.entries {
		if filter.ClientID != "" && entry.ClientID != filter.ClientID {
			continue
		}
		if filter.Token != "" && entry.Token != filter.Token {
			continue
		}
		items = append(items, cloneEntry(entry))
	}
	r.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RecordedAt.After(items[j].RecordedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func cloneEntry(entry HistoryEntry) HistoryEntry {
	clone := entry
	clone.Metrics = append([]string(nil), entry.Metrics...)
	return clone
}
