// Package stations persists registered erasure workstations.
package stations

import (
	"context"

	"github.com/dmitrijs2005/wipecert/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, station *models.Station) (*models.Station, error)
	GetByName(ctx context.Context, name string) (*models.Station, error)
	GetByID(ctx context.Context, id string) (*models.Station, error)
}
