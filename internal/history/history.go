// Package history keeps a local index of every certificate issued by this
// station, so operators can answer "was this device wiped here, and when"
// without trawling certificate files.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/history/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Record is one issuance index row. CertificatePath points at the persisted
// JSON artifact; the index never stores certificate content.
type Record struct {
	CertificateID      string
	Version            string
	DevicePath         string
	DeviceType         string
	Mode               string
	VerificationPassed bool
	IssuedAt           time.Time
	CertificatePath    string
}

// Repository is the issuance index storage contract.
type Repository interface {
	Add(ctx context.Context, r *Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	GetByID(ctx context.Context, certificateID string) (*Record, error)
}

// gooseUpContext is a seam for testing migration failures.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the index database at dsn and brings the
// schema up to date.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
