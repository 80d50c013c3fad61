package models

import "time"

// CertificateRecord is a submitted erasure certificate as stored by the
// registry: a summary of the wipe plus the full signed JSON payload.
// StorageKey is set once the payload has been archived to object storage.
type CertificateRecord struct {
	ID                 string
	StationID          string
	Version            string
	DevicePath         string
	DeviceType         string
	Mode               string
	VerificationPassed bool
	IssuedAt           time.Time
	Payload            []byte
	StorageKey         *string
	CreatedAt          time.Time
}
