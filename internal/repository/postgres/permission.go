package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"switchboard/internal/domain"
)

// PermissionRepo implements repository.PermissionRepository on PostgreSQL
// for one bot instance.
type PermissionRepo struct {
	db       *sql.DB
	instance string
}

// NewPermissionRepo creates a permission repository for a bot instance.
func NewPermissionRepo(db *sql.DB, instance string) *PermissionRepo {
	return &PermissionRepo{db: db, instance: instance}
}

// IsAllowed checks admin, open-function and allow-list access in a single
// statement so the decision observes one consistent snapshot.
func (r *PermissionRepo) IsAllowed(ctx context.Context, userID, functionName string) (bool, error) {
	var allowed bool
	query := `
		SELECT EXISTS(SELECT 1 FROM admins WHERE bot_instance = $1 AND user_id = $2)
			OR EXISTS(SELECT 1 FROM open_functions WHERE bot_instance = $1 AND function_name = $3)
			OR EXISTS(SELECT 1 FROM function_permissions WHERE bot_instance = $1 AND function_name = $3 AND user_id = $2)
	`
	err := r.db.QueryRowContext(ctx, query, r.instance, userID, functionName).Scan(&allowed)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// IsAdmin checks whether the user is an instance admin.
func (r *PermissionRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var admin bool
	query := `SELECT EXISTS(SELECT 1 FROM admins WHERE bot_instance = $1 AND user_id = $2)`
	err := r.db.QueryRowContext(ctx, query, r.instance, userID).Scan(&admin)
	if err != nil {
		return false, err
	}
	return admin, nil
}

// AllowedFunctions returns the subset of all the user may use, in the order
// given. Admins get everything.
func (r *PermissionRepo) AllowedFunctions(ctx context.Context, userID string, all []string) ([]string, error) {
	admin, err := r.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if admin {
		out := make([]string, len(all))
		copy(out, all)
		return out, nil
	}

	query := `
		SELECT function_name FROM open_functions WHERE bot_instance = $1
		UNION
		SELECT function_name FROM function_permissions WHERE bot_instance = $1 AND user_id = $2
	`
	rows, err := r.db.QueryContext(ctx, query, r.instance, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reachable := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		reachable[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var allowed []string
	for _, name := range all {
		if reachable[name] {
			allowed = append(allowed, name)
		}
	}
	return allowed, nil
}

// SyncRules replaces the instance's ruleset in one transaction. The previous
// rows are dropped first so removed grants do not linger.
func (r *PermissionRepo) SyncRules(ctx context.Context, rules domain.AccessRules) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"admins", "open_functions", "function_permissions"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE bot_instance = $1", table), r.instance); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, userID := range rules.Admins {
		query := `INSERT INTO admins (bot_instance, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, r.instance, userID); err != nil {
			return fmt.Errorf("insert admin: %w", err)
		}
	}

	for _, functionName := range rules.OpenFunctions {
		query := `INSERT INTO open_functions (bot_instance, function_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, r.instance, functionName); err != nil {
			return fmt.Errorf("insert open function: %w", err)
		}
	}

	for functionName, users := range rules.Allow {
		for _, userID := range users {
			query := `INSERT INTO function_permissions (bot_instance, function_name, user_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
			if _, err := tx.ExecContext(ctx, query, r.instance, functionName, userID); err != nil {
				return fmt.Errorf("insert allow-list entry: %w", err)
			}
		}
	}

	return tx.Commit()
}
