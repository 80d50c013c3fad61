package stations

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

func (r *PostgresRepository) Create(ctx context.Context, station *models.Station) (*models.Station, error) {

	query :=
		`INSERT INTO stations (id, name, secret_hash, salt)
         VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		station.ID, station.Name, station.SecretHash, station.Salt).Scan(&station.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return station, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Station, error) {
	query :=
		`SELECT id, name, secret_hash, salt, created_at FROM stations
		 WHERE name = $1
		 `

	station := &models.Station{}
	err := r.db.QueryRowContext(ctx, query, name).
		Scan(&station.ID, &station.Name, &station.SecretHash, &station.Salt, &station.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return station, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Station, error) {
	query :=
		`SELECT id, name, secret_hash, salt, created_at FROM stations
		 WHERE id = $1
		 `

	station := &models.Station{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&station.ID, &station.Name, &station.SecretHash, &station.Salt, &station.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return station, nil
}
