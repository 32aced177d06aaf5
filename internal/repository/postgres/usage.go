package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"switchboard/internal/domain"
)

// Message previews in the usage log are capped at this many characters.
const previewLimit = 100

// UsageRepo implements repository.UsageRepository on PostgreSQL for one bot
// instance.
type UsageRepo struct {
	db       *sql.DB
	instance string
}

// NewUsageRepo creates a usage log repository for a bot instance.
func NewUsageRepo(db *sql.DB, instance string) *UsageRepo {
	return &UsageRepo{db: db, instance: instance}
}

// Append writes one usage log entry.
func (r *UsageRepo) Append(ctx context.Context, entry domain.UsageEntry) error {
	preview := entry.MessagePreview
	if utf8.RuneCountInString(preview) > previewLimit {
		preview = string([]rune(preview)[:previewLimit])
	}

	var metadata any
	if entry.Metadata != nil {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal usage metadata: %w", err)
		}
		metadata = raw
	}

	query := `
		INSERT INTO usage_logs (bot_instance, user_id, function_name, action, message_preview, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		r.instance, entry.UserID, entry.FunctionName, string(entry.Event),
		nullString(preview), metadata,
	)
	return err
}

// UserStats returns message counts and last activity for one user.
func (r *UsageRepo) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	stats := domain.UserStats{ByFunction: make(map[string]int)}

	countQuery := `
		SELECT COUNT(*) FROM usage_logs
		WHERE bot_instance = $1 AND user_id = $2 AND action = 'message'
	`
	if err := r.db.QueryRowContext(ctx, countQuery, r.instance, userID).Scan(&stats.MessageCount); err != nil {
		return domain.UserStats{}, err
	}

	breakdownQuery := `
		SELECT function_name, COUNT(*) FROM usage_logs
		WHERE bot_instance = $1 AND user_id = $2 AND action = 'message'
		GROUP BY function_name
	`
	rows, err := r.db.QueryContext(ctx, breakdownQuery, r.instance, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return domain.UserStats{}, err
		}
		stats.ByFunction[name] = count
	}
	if err := rows.Err(); err != nil {
		return domain.UserStats{}, err
	}

	var lastActive sql.NullTime
	lastQuery := `SELECT MAX(created_at) FROM usage_logs WHERE bot_instance = $1 AND user_id = $2`
	if err := r.db.QueryRowContext(ctx, lastQuery, r.instance, userID).Scan(&lastActive); err != nil {
		return domain.UserStats{}, err
	}
	if lastActive.Valid {
		t := lastActive.Time
		stats.LastActive = &t
	}

	return stats, nil
}

// FunctionStats returns usage and error counts for one function.
func (r *UsageRepo) FunctionStats(ctx context.Context, functionName string) (domain.FunctionStats, error) {
	var stats domain.FunctionStats

	query := `
		SELECT
			COUNT(*) FILTER (WHERE action = 'message'),
			COUNT(DISTINCT user_id),
			COUNT(*) FILTER (WHERE action = 'error')
		FROM usage_logs
		WHERE bot_instance = $1 AND function_name = $2
	`
	err := r.db.QueryRowContext(ctx, query, r.instance, functionName).Scan(
		&stats.MessageCount, &stats.UniqueUsers, &stats.ErrorCount,
	)
	if err != nil {
		return domain.FunctionStats{}, err
	}
	return stats, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
