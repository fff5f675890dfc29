package store

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/beerpong/internal/models"
	"go.uber.org/zap"
)

// GetOperator retrieves an operator account by username
func GetOperator(ctx context.Context, db *sqlx.DB, username string) (*models.Operator, error) {
	var op models.Operator
	err := db.GetContext(ctx, &op, `SELECT username, display_name, password_hash, roles, created_at, updated_at FROM operators WHERE username=$1`, username)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// UpsertOperator creates or replaces an operator account
func UpsertOperator(ctx context.Context, db *sqlx.DB, username, displayName, passwordHash string, roles []string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO operators (username, display_name, password_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			password_hash = EXCLUDED.password_hash,
			roles = EXCLUDED.roles,
			updated_at = NOW()
	`, username, displayName, passwordHash, pq.Array(roles))
	return err
}

// LogOperatorAction records an operator action in the audit log
func LogOperatorAction(ctx context.Context, db *sqlx.DB, username, ip, route, action string, details map[string]interface{}, success bool) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		zap.L().Warn("failed to marshal operator audit details", zap.Error(err))
		detailsJSON = []byte("{}")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO operator_audit (username, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, username, ip, route, action, detailsJSON, success)
	if err != nil {
		zap.L().Warn("failed to log operator action", zap.String("action", action), zap.Error(err))
	}
	return err
}

// OperatorAuditLogs retrieves recent audit entries with pagination
func OperatorAuditLogs(ctx context.Context, db *sqlx.DB, limit, offset int) ([]models.OperatorAudit, error) {
	var logs []models.OperatorAudit
	err := db.SelectContext(ctx, &logs, `
		SELECT id, username, ip, route, action, details, success, created_at
		FROM operator_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return logs, err
}
