package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/dmitrijs2005/wipecert/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Add inserts one issuance row. Certificate IDs are expected to be unique;
// a duplicate insert is an error, not an upsert.
func (r *SQLiteRepository) Add(ctx context.Context, rec *Record) error {
	query := `INSERT INTO certificates
			(certificate_id, version, device_path, device_type, mode, verification_passed, issued_at, certificate_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.CertificateID, rec.Version, rec.DevicePath, rec.DeviceType, rec.Mode,
		rec.VerificationPassed, rec.IssuedAt.Unix(), rec.CertificatePath)
	if err != nil {
		return fmt.Errorf("failed to insert certificate record: %w", err)
	}
	return nil
}

// List returns the most recent issuances, newest first. limit <= 0 returns
// everything.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT certificate_id, version, device_path, device_type, mode, verification_passed, issued_at, certificate_path
			FROM certificates ORDER BY issued_at DESC, certificate_id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select certificate records: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns a single issuance row, or common.ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, certificateID string) (*Record, error) {
	query := `SELECT certificate_id, version, device_path, device_type, mode, verification_passed, issued_at, certificate_path
			FROM certificates WHERE certificate_id = ?`
	row := r.db.QueryRowContext(ctx, query, certificateID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: certificate %s", common.ErrNotFound, certificateID)
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var issuedAt int64
	if err := s.Scan(&rec.CertificateID, &rec.Version, &rec.DevicePath, &rec.DeviceType,
		&rec.Mode, &rec.VerificationPassed, &issuedAt, &rec.CertificatePath); err != nil {
		return nil, err
	}
	rec.IssuedAt = time.Unix(issuedAt, 0).UTC()
	return &rec, nil
}
