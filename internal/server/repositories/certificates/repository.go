// Package certificates persists submitted erasure certificates.
package certificates

import (
	"context"

	"github.com/dmitrijs2005/wipecert/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, rec *models.CertificateRecord) (*models.CertificateRecord, error)
	GetByID(ctx context.Context, id string) (*models.CertificateRecord, error)
	ListByStation(ctx context.Context, stationID string, limit int) ([]*models.CertificateRecord, error)
	SetStorageKey(ctx context.Context, id string, key string) error
}
