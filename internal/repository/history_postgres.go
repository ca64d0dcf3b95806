package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iago/media-console/internal/domain"
)

type PostgresHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHistoryRepository connects and applies pending migrations.
func NewPostgresHistoryRepository(ctx context.Context, databaseURL string) (*PostgresHistoryRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &PostgresHistoryRepository{pool: pool}, nil
}

func (r *PostgresHistoryRepository) Close() {
	r.pool.Close()
}

func (r *PostgresHistoryRepository) Record(ctx context.Context, entry HistoryEntry) error {
	metrics := entry.Metrics
	if metrics == nil {
		metrics = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analysis_runs (
			id,
			token,
			client_id,
			analysis_month,
			phase,
			reason,
			metrics,
			recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		entry.ID,
		entry.Token,
		entry.ClientID,
		entry.AnalysisMonth,
		string(entry.Phase),
		entry.Reason,
		metrics,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis run: %w", err)
	}
	return nil
}

func (r *PostgresHistoryRepository) List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	query, args := buildHistoryQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analysis runs: %w", err)
	}
	defer rows.Close()

	items := make([]HistoryEntry, 0)
	for rows.Next() {
		var (
			entry HistoryEntry
			phase string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Token,
			&entry.ClientID,
			&entry.AnalysisMonth,
			&phase,
			&entry.Reason,
			&entry.Metrics,
			&entry.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis run: %w", err)
		}
		entry.Phase = domain.JobPhase(phase)
		items = append(items, entry)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate analysis runs: %w", rows.Err())
	}
	return items, nil
}

func buildHistoryQuery(filter HistoryFilter) (string, []any) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, token, client_id, analysis_month, phase, reason, metrics, recorded_at
		FROM analysis_runs WHERE 1=1`)

	args := make([]any, 0, 3)
	argIndex := 1

	if clientID := strings.TrimSpace(filter.ClientID); clientID != "" {
		query.WriteString(fmt.Sprintf(" AND client_id = $%d", argIndex))
		args = append(args, clientID)
		argIndex++
	}
	if token := strings.TrimSpace(filter.Token); token != "" {
		query.WriteString(fmt.Sprintf(" AND token = $%d", argIndex))
		args = append(args, token)
		argIndex++
	}

	query.WriteString(fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT $%d", argIndex))
	args = append(args, normalizeLimit(filter.Limit))
	return query.String(), args
}
