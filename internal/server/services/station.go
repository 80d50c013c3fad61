// Package services contains registry-side business logic. This file
// implements StationService, which handles workstation registration, login,
// and issuing JWT access tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/dmitrijs2005/wipecert/internal/server/auth"
	"github.com/dmitrijs2005/wipecert/internal/server/config"
	"github.com/dmitrijs2005/wipecert/internal/server/models"
	"github.com/dmitrijs2005/wipecert/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const saltSize = 16

// StationService provides authentication-related operations:
// - Register: create stations
// - Login: verify the shared secret and mint an access token
type StationService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewStationService constructs a StationService using repositories and server config.
func NewStationService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *StationService {
	return &StationService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new station with the given name. Only the argon2id hash
// of the shared secret is stored.
func (s *StationService) Register(ctx context.Context, name, secret string) (*models.Station, error) {
	salt := common.GenerateRandByteArray(saltSize)
	station := &models.Station{
		ID:         uuid.NewString(),
		Name:       name,
		SecretHash: auth.HashSecret([]byte(secret), salt),
		Salt:       salt,
	}

	repo := s.repomanager.Stations(s.db)
	st, err := repo.Create(ctx, station)
	if err != nil {
		return nil, fmt.Errorf("error creating station: %v", err)
	}
	return st, nil
}

// Login verifies the provided secret against the stored hash and, on success,
// returns a new access token.
func (s *StationService) Login(ctx context.Context, name, secret string) (string, error) {
	repo := s.repomanager.Stations(s.db)
	station, err := repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUnauthorized
		}
		return "", common.ErrInternal
	}
	if !auth.VerifySecret(station.SecretHash, []byte(secret), station.Salt) {
		return "", common.ErrUnauthorized
	}

	token, err := auth.GenerateToken(station.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrInternal
	}
	return token, nil
}
