// Package httpapi exposes the registry over HTTP/JSON: station registration
// and login, certificate submission and retrieval, and presigned archive URLs.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/logging"
	"github.com/dmitrijs2005/wipecert/internal/server/models"
)

// StationProvider is the station-facing slice of the service layer.
type StationProvider interface {
	Register(ctx context.Context, name, secret string) (*models.Station, error)
	Login(ctx context.Context, name, secret string) (string, error)
}

// CertificateProvider is the certificate-facing slice of the service layer.
type CertificateProvider interface {
	Submit(ctx context.Context, stationID string, payload []byte) (*models.CertificateRecord, error)
	List(ctx context.Context, stationID string, limit int) ([]*models.CertificateRecord, error)
	GetByID(ctx context.Context, id string) (*models.CertificateRecord, error)
	GetArchiveUploadURL(ctx context.Context, id string) (string, string, error)
	GetArchiveDownloadURL(ctx context.Context, id string) (string, error)
}

type Server struct {
	address      string
	logger       logging.Logger
	stations     StationProvider
	certificates CertificateProvider
	jwtSecret    []byte
}

func NewServer(a string, l logging.Logger, ss StationProvider, cs CertificateProvider, secretKey string) *Server {
	return &Server{
		address:      a,
		logger:       l.With("module", "http_server"),
		stations:     ss,
		certificates: cs,
		jwtSecret:    []byte(secretKey),
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/stations/register", s.handleRegister)
	mux.HandleFunc("POST /v1/stations/login", s.handleLogin)

	mux.Handle("POST /v1/certificates", s.withAuth(s.handleSubmit))
	mux.Handle("GET /v1/certificates", s.withAuth(s.handleList))
	mux.Handle("GET /v1/certificates/{id}", s.withAuth(s.handleGet))
	mux.Handle("POST /v1/certificates/{id}/archive-url", s.withAuth(s.handleArchiveUpload))
	mux.Handle("GET /v1/certificates/{id}/archive-url", s.withAuth(s.handleArchiveDownload))

	return mux
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
