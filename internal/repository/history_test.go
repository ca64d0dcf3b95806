package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/iago/media-console/internal/domain"
)

func TestMemoryHistoryRepositoryFiltersNewestFirst(t *testing.T) {
	repo := NewMemoryHistoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	entries := []HistoryEntry{
		{ID: "1", Token: "t1", ClientID: "acme", Phase: domain.JobPhasePending, RecordedAt: base},
		{ID: "2", Token: "t1", ClientID: "acme", Phase: domain.JobPhaseSucceeded, RecordedAt: base.Add(time.Minute)},
		{ID: "3", Token: "t2", ClientID: "globex", Phase: domain.JobPhasePending, RecordedAt: base.Add(2 * time.Minute)},
	}
	for _, entry := range entries {
		if err := repo.Record(ctx, entry); err != nil {
			t.Fatalf("record %s: %v", entry.ID, err)
		}
	}

	items, err := repo.List(ctx, HistoryFilter{ClientID: "acme"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "2" || items[1].ID != "1" {
		t.Fatalf("expected acme entries newest first, got %+v", items)
	}

	limited, err := repo.List(ctx, HistoryFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "3" {
		t.Fatalf("expected newest entry only, got %+v", limited)
	}
}

func TestMemoryHistoryRepositoryRejectsMissingID(t *testing.T) {
	if err := NewMemoryHistoryRepository().Record(context.Background(), HistoryEntry{}); err == nil {
		t.Fatalf("expected missing id error")
	}
}

func TestBuildHistoryQueryClampsLimit(t *testing.T) {
	query, args := buildHistoryQuery(HistoryFilter{ClientID: "acme", Limit: 10_000})
	if !strings.Contains(query, "client_id = $1") || !strings.Contains(query, "LIMIT $2") {
		t.Fatalf("unexpected query %s", query)
	}
	if len(args) != 2 || args[1] != maxHistoryLimit {
		t.Fatalf("expected clamped limit, got %v", args)
	}
}
