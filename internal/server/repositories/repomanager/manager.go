package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/wipecert/internal/dbx"
	"github.com/dmitrijs2005/wipecert/internal/server/repositories/certificates"
	"github.com/dmitrijs2005/wipecert/internal/server/repositories/stations"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Stations(db dbx.DBTX) stations.Repository
	Certificates(db dbx.DBTX) certificates.Repository
}
