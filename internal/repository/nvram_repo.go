package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type NVRAMSQLite struct {
	db *sql.DB
}

func NewNVRAMSQLite(db *sql.DB) *NVRAMSQLite {
	return &NVRAMSQLite{db: db}
}

var _ NVRAM = (*NVRAMSQLite)(nil)

const (
	nvramRowID = 1

	upsertRegionSQL = `
		INSERT INTO nvram (id, data, committed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data=excluded.data,
			committed_at=excluded.committed_at
	`

	selectRegionSQL = `SELECT data FROM nvram WHERE id=?`
)

// Load reads the region. A missing row yields a zero-filled image; a stored
// blob of the wrong size is padded or cut to RegionSize.
func (r *NVRAMSQLite) Load(ctx context.Context) ([]byte, error) {
	image := make([]byte, RegionSize)

	var data []byte
	err := r.db.QueryRowContext(ctx, selectRegionSQL, nvramRowID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return image, nil
		}
		return nil, fmt.Errorf("load nvram: %w", err)
	}

	copy(image, data)
	return image, nil
}

// Commit writes the full image in one statement.
func (r *NVRAMSQLite) Commit(ctx context.Context, image []byte) error {
	if len(image) != RegionSize {
		return fmt.Errorf("commit nvram: image is %d bytes, want %d", len(image), RegionSize)
	}
	if _, err := r.db.ExecContext(ctx, upsertRegionSQL, nvramRowID, image, time.Now().UTC()); err != nil {
		return fmt.Errorf("commit nvram: %w", err)
	}
	return nil
}
