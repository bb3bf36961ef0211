// Package history keeps a write-only audit log of emitted rebalance plans.
// The engine itself never reads this - plans are pure functions of their
// inputs and carry no identity beyond the audit row.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasfin/rebalancer/internal/domain"
)

// Entry is one recorded plan.
type Entry struct {
	UUID              string             `json:"uuid"`
	RequestID         string             `json:"request_id"`
	TotalValueBefore  float64            `json:"total_value_before"`
	ProjectedTurnover float64            `json:"projected_turnover"`
	TradeCount        int                `json:"trade_count"`
	Trades            []domain.Trade     `json:"trades"`
	AllocationAfter   map[string]float64 `json:"allocation_after"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Repository stores plan audit entries in sqlite.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "history").Logger(),
	}
}

// InitSchema creates the plans table if missing.
func (r *Repository) InitSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS plans (
			uuid TEXT PRIMARY KEY,
			request_id TEXT NOT NULL DEFAULT '',
			total_value_before REAL NOT NULL,
			projected_turnover REAL NOT NULL,
			trade_count INTEGER NOT NULL,
			trades TEXT NOT NULL,
			allocation_after TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create plans table: %w", err)
	}
	return nil
}

// Record stores a plan and returns the audit entry's UUID.
func (r *Repository) Record(plan *domain.RebalancePlan, requestID string) (string, error) {
	trades, err := json.Marshal(plan.Trades)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trades: %w", err)
	}
	allocation, err := json.Marshal(plan.ProjectedAllocationAfter)
	if err != nil {
		return "", fmt.Errorf("failed to marshal allocation: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().Unix()

	_, err = r.db.Exec(`
		INSERT INTO plans (uuid, request_id, total_value_before, projected_turnover, trade_count, trades, allocation_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, requestID, plan.TotalValueBefore, plan.ProjectedTurnover, len(plan.Trades), string(trades), string(allocation), now)
	if err != nil {
		return "", fmt.Errorf("failed to insert plan: %w", err)
	}

	r.log.Debug().
		Str("uuid", id).
		Str("request_id", requestID).
		Int("trades", len(plan.Trades)).
		Msg("Recorded plan")

	return id, nil
}

// List returns the most recent entries, newest first.
func (r *Repository) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT uuid, request_id, total_value_before, projected_turnover, trade_count, trades, allocation_after, created_at
		FROM plans
		ORDER BY created_at DESC, uuid
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var trades, allocation string
		var createdAt int64
		if err := rows.Scan(
			&entry.UUID,
			&entry.RequestID,
			&entry.TotalValueBefore,
			&entry.ProjectedTurnover,
			&entry.TradeCount,
			&trades,
			&allocation,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		if err := json.Unmarshal([]byte(trades), &entry.Trades); err != nil {
			r.log.Warn().Err(err).Str("uuid", entry.UUID).Msg("Failed to unmarshal stored trades")
		}
		if err := json.Unmarshal([]byte(allocation), &entry.AllocationAfter); err != nil {
			r.log.Warn().Err(err).Str("uuid", entry.UUID).Msg("Failed to unmarshal stored allocation")
		}
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
