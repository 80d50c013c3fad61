package certificates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/dmitrijs2005/wipecert/internal/dbx"
	"github.com/dmitrijs2005/wipecert/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.CertificateRecord) (*models.CertificateRecord, error) {

	query :=
		`INSERT INTO certificates
		 (id, station_id, version, device_path, device_type, mode, verification_passed, issued_at, payload)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.StationID, rec.Version, rec.DevicePath, rec.DeviceType,
		rec.Mode, rec.VerificationPassed, rec.IssuedAt, rec.Payload).Scan(&rec.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.CertificateRecord, error) {
	query :=
		`SELECT id, station_id, version, device_path, device_type, mode,
		        verification_passed, issued_at, payload, storage_key, created_at
		 FROM certificates
		 WHERE id = $1
		 `

	rec := &models.CertificateRecord{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.StationID, &rec.Version, &rec.DevicePath, &rec.DeviceType,
		&rec.Mode, &rec.VerificationPassed, &rec.IssuedAt, &rec.Payload,
		&rec.StorageKey, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) ListByStation(ctx context.Context, stationID string, limit int) ([]*models.CertificateRecord, error) {
	query :=
		`SELECT id, station_id, version, device_path, device_type, mode,
		        verification_passed, issued_at, payload, storage_key, created_at
		 FROM certificates
		 WHERE station_id = $1
		 ORDER BY issued_at DESC, id DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var recs []*models.CertificateRecord
	for rows.Next() {
		rec := &models.CertificateRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.StationID, &rec.Version, &rec.DevicePath, &rec.DeviceType,
			&rec.Mode, &rec.VerificationPassed, &rec.IssuedAt, &rec.Payload,
			&rec.StorageKey, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return recs, nil
}

func (r *PostgresRepository) SetStorageKey(ctx context.Context, id string, key string) error {
	query :=
		`UPDATE certificates SET storage_key = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}
