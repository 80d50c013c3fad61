package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/cert"
	"github.com/dmitrijs2005/wipecert/internal/common"
	sc "github.com/dmitrijs2005/wipecert/internal/server/config"
	"github.com/dmitrijs2005/wipecert/internal/server/models"
	"github.com/dmitrijs2005/wipecert/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// certSummary picks the summary columns out of a submitted certificate.
// The field names are shared by both certificate schemas.
type certSummary struct {
	Version       string `json:"version"`
	CertificateID string `json:"certificate_id"`
	Timestamp     uint64 `json:"timestamp"`
	DeviceInfo    struct {
		Path       string `json:"path"`
		DeviceType string `json:"device_type"`
	} `json:"device_info"`
	WipeDetails struct {
		Mode               string `json:"mode"`
		VerificationPassed bool   `json:"verification_passed"`
	} `json:"wipe_details"`
}

// CertificateService accepts, stores and archives submitted certificates.
// Every submission is re-verified against the registry's configured public
// key before it is recorded.
type CertificateService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	verifier    *cert.Verifier
}

func NewCertificateService(db *sql.DB, m repomanager.RepositoryManager, config *sc.Config) *CertificateService {
	return &CertificateService{
		db:          db,
		repomanager: m,
		config:      config,
		verifier:    cert.NewVerifier(config.PublicKeyPath, nil),
	}
}

// Submit validates the signed certificate payload and records it for the
// submitting station. Payloads whose signature does not verify are rejected
// with common.ErrCertificateVerification.
func (s *CertificateService) Submit(ctx context.Context, stationID string, payload []byte) (*models.CertificateRecord, error) {
	res, err := s.verifier.Verify(ctx, payload)
	if err != nil {
		return nil, err
	}
	if !res.SignatureValid || !res.HashValid {
		return nil, fmt.Errorf("%w: signature rejected", common.ErrCertificateVerification)
	}

	var sum certSummary
	if err := json.Unmarshal(payload, &sum); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCertificateVerification, err)
	}

	rec := &models.CertificateRecord{
		ID:                 sum.CertificateID,
		StationID:          stationID,
		Version:            sum.Version,
		DevicePath:         sum.DeviceInfo.Path,
		DeviceType:         sum.DeviceInfo.DeviceType,
		Mode:               sum.WipeDetails.Mode,
		VerificationPassed: sum.WipeDetails.VerificationPassed,
		IssuedAt:           time.Unix(int64(sum.Timestamp), 0).UTC(),
		Payload:            payload,
	}

	repo := s.repomanager.Certificates(s.db)
	rec, err = repo.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("error creating certificate record: %v", err)
	}
	return rec, nil
}

// List returns the station's certificates, newest first.
func (s *CertificateService) List(ctx context.Context, stationID string, limit int) ([]*models.CertificateRecord, error) {
	repo := s.repomanager.Certificates(s.db)
	return repo.ListByStation(ctx, stationID, limit)
}

// GetByID returns a single certificate record.
func (s *CertificateService) GetByID(ctx context.Context, id string) (*models.CertificateRecord, error) {
	repo := s.repomanager.Certificates(s.db)
	return repo.GetByID(ctx, id)
}

// GetRandomStorageKey builds a date-partitioned object key for an archived
// certificate payload.
func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("certificates/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *CertificateService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// GetArchiveUploadURL presigns a PUT for the certificate's archive object and
// records the chosen storage key on the certificate row.
func (s *CertificateService) GetArchiveUploadURL(ctx context.Context, id string) (string, string, error) {
	repo := s.repomanager.Certificates(s.db)
	if _, err := repo.GetByID(ctx, id); err != nil {
		return "", "", err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))

	if err != nil {
		return "", "", err
	}

	if err := repo.SetStorageKey(ctx, id, key); err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// GetArchiveDownloadURL presigns a GET for the certificate's archived object.
// Certificates that were never archived yield common.ErrNotFound.
func (s *CertificateService) GetArchiveDownloadURL(ctx context.Context, id string) (string, error) {
	repo := s.repomanager.Certificates(s.db)
	rec, err := repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.StorageKey == nil {
		return "", fmt.Errorf("%w: certificate not archived", common.ErrNotFound)
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    rec.StorageKey,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
