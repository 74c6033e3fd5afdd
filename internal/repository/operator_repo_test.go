package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"weather_station/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newOperatorRepo(t *testing.T) (*OperatorSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	repo := NewOperatorSQLite(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func TestOperatorSQLite_Create(t *testing.T) {
	tests := []struct {
		name     string
		expect   func(sqlmock.Sqlmock)
		wantRole models.Role
		wantErr  error
		errText  string
	}{
		{
			name: "first operator becomes admin",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("ana", "hash", "viewer", "admin", "2026-03-01 12:00:00").
					WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(1, "admin"))
			},
			wantRole: models.RoleAdmin,
		},
		{
			name: "later operator is a viewer",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("ana", "hash", "viewer", "admin", "2026-03-01 12:00:00").
					WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(2, "viewer"))
			},
			wantRole: models.RoleViewer,
		},
		{
			name: "duplicate username",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(insertOperatorSQL)).
					WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: operators.username (2067)"))
			},
			wantErr: ErrOperatorExists,
		},
		{
			name: "driver error",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(insertOperatorSQL)).
					WillReturnError(errors.New("disk I/O error"))
			},
			errText: "insert operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newOperatorRepo(t)
			tt.expect(mock)

			op, err := repo.Create(context.Background(), "ana", "hash")
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.errText != "":
				if err == nil || !strings.Contains(err.Error(), tt.errText) {
					t.Fatalf("err = %v, want it to mention %q", err, tt.errText)
				}
				if errors.Is(err, ErrOperatorExists) {
					t.Fatalf("driver error reported as duplicate: %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if op.Role != tt.wantRole || op.Username != "ana" || !op.CreatedAt.Equal(fixedNow) {
				t.Fatalf("unexpected operator: %+v", op)
			}
		})
	}
}

func TestOperatorSQLite_GetByUsername(t *testing.T) {
	cols := []string{"id", "username", "password_hash", "role", "created_at"}

	t.Run("found", func(t *testing.T) {
		repo, mock := newOperatorRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
			WithArgs("ana").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "ana", "hash", "admin", "2026-03-01T12:00:00Z"))

		op, err := repo.GetByUsername(context.Background(), "ana")
		if err != nil {
			t.Fatalf("GetByUsername: %v", err)
		}
		if op == nil || op.ID != 1 || op.Role != models.RoleAdmin || !op.CreatedAt.Equal(fixedNow) {
			t.Fatalf("unexpected operator: %+v", op)
		}
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newOperatorRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
			WithArgs("nobody").
			WillReturnError(sql.ErrNoRows)

		op, err := repo.GetByUsername(context.Background(), "nobody")
		if err != nil || op != nil {
			t.Fatalf("got (%+v, %v), want (nil, nil)", op, err)
		}
	})

	t.Run("unknown role in row", func(t *testing.T) {
		repo, mock := newOperatorRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
			WithArgs("ana").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "ana", "hash", "root", "2026-03-01 12:00:00"))

		if _, err := repo.GetByUsername(context.Background(), "ana"); err == nil {
			t.Fatal("expected an error for an unknown role")
		}
	})
}
