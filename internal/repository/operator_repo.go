package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"weather_station/internal/models"
)

// ErrOperatorExists is returned when the username is already taken.
var ErrOperatorExists = errors.New("operator already exists")

type OperatorSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewOperatorSQLite(db *sql.DB) *OperatorSQLite {
	return &OperatorSQLite{db: db, now: time.Now}
}

var _ OperatorRepo = (*OperatorSQLite)(nil)

// The role is decided inside the insert so two concurrent sign-ups on an
// empty table cannot both become admin.
const (
	insertOperatorSQL = `INSERT INTO operators (username, password_hash, role, created_at)
SELECT ?, ?, CASE WHEN EXISTS (SELECT 1 FROM operators) THEN ? ELSE ? END, ?
RETURNING id, role`
	selectOperatorByUsernameSQL = `SELECT id, username, password_hash, role, created_at FROM operators WHERE username = ?`
)

// Create stores a new operator. The first one on the device gets
// RoleAdmin, every later one RoleViewer.
func (r *OperatorSQLite) Create(ctx context.Context, username, passwordHash string) (models.Operator, error) {
	created := r.now().UTC().Truncate(time.Second)
	op := models.Operator{Username: username, PasswordHash: passwordHash, CreatedAt: created}

	var role string
	err := r.db.QueryRowContext(ctx, insertOperatorSQL,
		username, passwordHash,
		string(models.RoleViewer), string(models.RoleAdmin),
		created.Format(sqliteTimestampLayout),
	).Scan(&op.ID, &role)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Operator{}, fmt.Errorf("%w: %q", ErrOperatorExists, username)
		}
		return models.Operator{}, fmt.Errorf("insert operator %q: %w", username, err)
	}
	op.Role = models.Role(role)
	return op, nil
}

// GetByUsername returns (nil, nil) when no operator has that name.
func (r *OperatorSQLite) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var (
		op      models.Operator
		role    string
		created string
	)
	err := r.db.QueryRowContext(ctx, selectOperatorByUsernameSQL, username).
		Scan(&op.ID, &op.Username, &op.PasswordHash, &role, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select operator %q: %w", username, err)
	}

	op.Role = models.Role(role)
	if !op.Role.Valid() {
		return nil, fmt.Errorf("operator %q has unknown role %q", username, role)
	}
	if op.CreatedAt, err = parseSQLiteTime(created); err != nil {
		return nil, fmt.Errorf("operator %q created_at: %w", username, err)
	}
	return &op, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// parseSQLiteTime accepts the layout written by this package and the
// RFC 3339 form the driver may hand back for TIMESTAMP columns.
func parseSQLiteTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(sqliteTimestampLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
