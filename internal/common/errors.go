// Package common defines shared constants and sentinel errors used across
// the wipe engine, certificate layer and registry server. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Device discovery / access errors.
	ErrDeviceNotFound      = errors.New("device not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrUnsupportedDevice   = errors.New("unsupported device type")
	ErrHiddenAreaAccess    = errors.New("hidden area access failed")

	// Wipe engine errors.
	ErrInvalidEraseMode        = errors.New("invalid erase mode")
	ErrSecureEraseNotSupported = errors.New("secure erase not supported on this device")
	ErrWipeFailed              = errors.New("wipe operation failed")
	ErrVerificationFailed      = errors.New("verification failed")

	// Certificate errors.
	ErrCertificateGeneration   = errors.New("certificate generation failed")
	ErrCertificateVerification = errors.New("certificate verification failed")
	ErrInvalidKey              = errors.New("invalid key material")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
