package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ai_gateway/internal/models"
)

// RequestLogRepository handles audit log database operations. Records
// are insert-only; nothing ever updates or deletes them.
type RequestLogRepository struct {
	db *DB
}

// NewRequestLogRepository creates a new request log repository
func NewRequestLogRepository(db *DB) *RequestLogRepository {
	return &RequestLogRepository{
		db: db,
	}
}

// Insert writes one audit record.
func (r *RequestLogRepository) Insert(ctx context.Context, entry *models.RequestLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO request_logs (id, account_id, model, prompt_length, cost, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.conn.QueryRowContext(
		ctx, query,
		entry.ID, entry.AccountID, entry.Model, entry.PromptLength, entry.Cost, entry.Status,
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", err)
	}

	return nil
}

// ListRecentByAccount returns the account's most recent entries, newest first.
func (r *RequestLogRepository) ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]*models.RequestLog, error) {
	var logs []*models.RequestLog
	query := `
		SELECT id, account_id, model, prompt_length, cost, status, created_at
		FROM request_logs
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	err := r.db.conn.SelectContext(ctx, &logs, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list request logs: %w", err)
	}

	return logs, nil
}
