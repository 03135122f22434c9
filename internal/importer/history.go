package importer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// HistoryRecord is one completed import or sync run.
type HistoryRecord struct {
	ID            uuid.UUID `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Source        string    `json:"source"`
	Success       bool      `json:"success"`
	Added         int       `json:"added"`
	Updated       int       `json:"updated"`
	Skipped       int       `json:"skipped"`
	Errors        int       `json:"errors"`
	Total         int       `json:"total"`
	ErrorMessages []string  `json:"error_messages"`
}

// InMemoryHistory keeps run records in order of arrival.
type InMemoryHistory struct {
	mu      sync.RWMutex
	records []HistoryRecord
}

func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{}
}

func (h *InMemoryHistory) Record(_ context.Context, record HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
	return nil
}

// List returns recorded runs, most recent last.
func (h *InMemoryHistory) List(_ context.Context) ([]HistoryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryRecord, len(h.records))
	copy(out, h.records)
	return out, nil
}

// PostgresHistory persists run records through database/sql.
type PostgresHistory struct {
	db *sql.DB
}

func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

func (h *PostgresHistory) Record(ctx context.Context, record HistoryRecord) error {
	_, err := h.db.ExecContext(ctx, `
INSERT INTO import_history (
	id, started_at, finished_at, source, success,
	added, updated, skipped, errors, total, error_messages
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		record.ID,
		record.StartedAt,
		record.FinishedAt,
		record.Source,
		record.Success,
		record.Added,
		record.Updated,
		record.Skipped,
		record.Errors,
		record.Total,
		pq.Array(record.ErrorMessages),
	)
	if err != nil {
		return fmt.Errorf("record import history: %w", err)
	}
	return nil
}

// List returns run records, most recent first.
func (h *PostgresHistory) List(ctx context.Context) ([]HistoryRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
SELECT id, started_at, finished_at, source, success,
	added, updated, skipped, errors, total, error_messages
FROM import_history
ORDER BY started_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list import history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var record HistoryRecord
		err := rows.Scan(
			&record.ID,
			&record.StartedAt,
			&record.FinishedAt,
			&record.Source,
			&record.Success,
			&record.Added,
			&record.Updated,
			&record.Skipped,
			&record.Errors,
			&record.Total,
			pq.Array(&record.ErrorMessages),
		)
		if err != nil {
			return nil, fmt.Errorf("scan import history: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import history: %w", err)
	}
	return out, nil
}
