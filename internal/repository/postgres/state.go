package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// StateRepo implements repository.StateRepository on PostgreSQL. One repo
// serves one bot instance; the instance name is baked in at construction.
type StateRepo struct {
	db       *sql.DB
	instance string
}

// NewStateRepo creates a state repository for a bot instance.
func NewStateRepo(db *sql.DB, instance string) *StateRepo {
	return &StateRepo{db: db, instance: instance}
}

// CurrentFunction returns the user's current function name, or "" if the
// user has no selection yet.
func (r *StateRepo) CurrentFunction(ctx context.Context, userID string) (string, error) {
	var current sql.NullString
	query := `SELECT current_function FROM user_state WHERE bot_instance = $1 AND user_id = $2`
	err := r.db.QueryRowContext(ctx, query, r.instance, userID).Scan(&current)

	if err == sql.ErrNoRows {
		// User has not interacted yet
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if !current.Valid {
		return "", nil
	}
	return current.String, nil
}

// SwitchFunction records the new selection and the switch usage log entry in
// one transaction, so a failure leaks no partial state.
func (r *StateRepo) SwitchFunction(ctx context.Context, userID, fromFunction, toFunction string) error {
	metadata, err := json.Marshal(map[string]any{
		"from": fromFunction,
		"to":   toFunction,
	})
	if err != nil {
		return fmt.Errorf("marshal switch metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin switch transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO user_state (bot_instance, user_id, current_function, last_active)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (bot_instance, user_id)
		DO UPDATE SET
			current_function = excluded.current_function,
			last_active = excluded.last_active
	`
	if _, err := tx.ExecContext(ctx, upsert, r.instance, userID, toFunction); err != nil {
		return fmt.Errorf("update user state: %w", err)
	}

	logInsert := `
		INSERT INTO usage_logs (bot_instance, user_id, function_name, action, metadata)
		VALUES ($1, $2, $3, 'switch', $4)
	`
	if _, err := tx.ExecContext(ctx, logInsert, r.instance, userID, toFunction, metadata); err != nil {
		return fmt.Errorf("log switch: %w", err)
	}

	return tx.Commit()
}

// TouchLastActive refreshes the user's last active timestamp.
func (r *StateRepo) TouchLastActive(ctx context.Context, userID string) error {
	query := `UPDATE user_state SET last_active = NOW() WHERE bot_instance = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, r.instance, userID)
	return err
}
