// Package cert implements certificate issuance and verification for completed
// erase operations. Certificates exist in two schema versions sharing one
// canonicalization rule: the JSON serialization of the structure with
// verification.hash and signature cleared is the exact byte input to both
// SHA-256 hashing and Ed25519 signing. Field names and their order are wire
// format and must not change.
package cert

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

const (
	VersionBasic    = "1.0"
	VersionEnhanced = "2.0"

	hashAlgorithm      = "SHA-256"
	verificationMethod = "Random Sector Sampling"
)

// Certificate is the basic (v1) schema.
type Certificate struct {
	Version       string           `json:"version"`
	CertificateID string           `json:"certificate_id"`
	Timestamp     uint64           `json:"timestamp"`
	DeviceInfo    DeviceInfo       `json:"device_info"`
	WipeDetails   WipeDetails      `json:"wipe_details"`
	Verification  VerificationInfo `json:"verification"`
	Signature     string           `json:"signature"`
}

type DeviceInfo struct {
	Path       string  `json:"path"`
	Name       string  `json:"name"`
	Size       uint64  `json:"size"`
	DeviceType string  `json:"device_type"`
	Model      *string `json:"model"`
	Serial     *string `json:"serial"`
}

type WipeDetails struct {
	Mode               string   `json:"mode"`
	StartTime          uint64   `json:"start_time"`
	EndTime            uint64   `json:"end_time"`
	DurationSeconds    uint64   `json:"duration_seconds"`
	BytesWritten       uint64   `json:"bytes_written"`
	VerificationPassed bool     `json:"verification_passed"`
	Errors             []string `json:"errors"`
}

type VerificationInfo struct {
	Hash                 string `json:"hash"`
	Algorithm            string `json:"algorithm"`
	PublicKeyFingerprint string `json:"public_key_fingerprint"`
}

// EnhancedCertificate is the enhanced (v2) schema. It extends the basic one
// with issuer identity, compliance, PKI pointers and tool metadata.
type EnhancedCertificate struct {
	Version       string                   `json:"version"`
	CertificateID string                   `json:"certificate_id"`
	Timestamp     uint64                   `json:"timestamp"`
	Issuer        IssuerInfo               `json:"issuer"`
	DeviceInfo    EnhancedDeviceInfo       `json:"device_info"`
	WipeDetails   EnhancedWipeDetails      `json:"wipe_details"`
	Verification  EnhancedVerificationInfo `json:"verification"`
	Compliance    ComplianceInfo           `json:"compliance"`
	PKI           PKIInfo                  `json:"pki"`
	Signature     string                   `json:"signature"`
	Metadata      Metadata                 `json:"metadata"`
}

type IssuerInfo struct {
	Name                 string  `json:"name"`
	Organization         string  `json:"organization"`
	Email                *string `json:"email"`
	PublicKeyFingerprint string  `json:"public_key_fingerprint"`
}

type EnhancedDeviceInfo struct {
	Path            string             `json:"path"`
	Name            string             `json:"name"`
	Size            uint64             `json:"size"`
	DeviceType      string             `json:"device_type"`
	Model           *string            `json:"model"`
	Serial          *string            `json:"serial"`
	FirmwareVersion *string            `json:"firmware_version"`
	InterfaceType   *string            `json:"interface_type"`
	HiddenAreas     []HiddenAreaInfo   `json:"hidden_areas"`
	Capabilities    DeviceCapabilities `json:"capabilities"`
}

type HiddenAreaInfo struct {
	AreaType    string `json:"area_type"`
	StartLBA    uint64 `json:"start_lba"`
	Size        uint64 `json:"size"`
	Description string `json:"description"`
	Wiped       bool   `json:"wiped"`
}

type DeviceCapabilities struct {
	SupportsSecureErase bool `json:"supports_secure_erase"`
	SupportsTrim        bool `json:"supports_trim"`
	SupportsCryptoErase bool `json:"supports_crypto_erase"`
	SupportsFormatUnit  bool `json:"supports_format_unit"`
}

type EnhancedWipeDetails struct {
	Mode               string             `json:"mode"`
	StartTime          uint64             `json:"start_time"`
	EndTime            uint64             `json:"end_time"`
	DurationSeconds    uint64             `json:"duration_seconds"`
	BytesWritten       uint64             `json:"bytes_written"`
	PassesCompleted    uint32             `json:"passes_completed"`
	VerificationPassed bool               `json:"verification_passed"`
	Errors             []string           `json:"errors"`
	Warnings           []string           `json:"warnings"`
	PerformanceMetrics PerformanceMetrics `json:"performance_metrics"`
}

type PerformanceMetrics struct {
	AverageSpeedMbps float64 `json:"average_speed_mbps"`
	PeakSpeedMbps    float64 `json:"peak_speed_mbps"`
	SectorsPerSecond uint64  `json:"sectors_per_second"`
	RetryCount       uint32  `json:"retry_count"`
}

type EnhancedVerificationInfo struct {
	Hash               string   `json:"hash"`
	Algorithm          string   `json:"algorithm"`
	VerificationMethod string   `json:"verification_method"`
	SampleCount        uint32   `json:"sample_count"`
	VerificationRatio  float64  `json:"verification_ratio"`
	ForensicToolsUsed  []string `json:"forensic_tools_used"`
}

type ComplianceInfo struct {
	Standards       []string     `json:"standards"`
	ComplianceLevel string       `json:"compliance_level"`
	AuditTrail      []AuditEntry `json:"audit_trail"`
}

type AuditEntry struct {
	Timestamp uint64  `json:"timestamp"`
	Action    string  `json:"action"`
	Result    string  `json:"result"`
	Details   *string `json:"details"`
}

type PKIInfo struct {
	OCSPURL    *string `json:"ocsp_url"`
	CRLURL     *string `json:"crl_url"`
	CAChainPEM *string `json:"ca_chain_pem"`
}

type Metadata struct {
	ToolVersion  string  `json:"tool_version"`
	Platform     string  `json:"platform"`
	Architecture string  `json:"architecture"`
	GeneratedBy  string  `json:"generated_by"`
	QRCodeData   *string `json:"qr_code_data"`
}

// canonicalBytes serializes a copy of the certificate with the hash and
// signature cleared. Every other field keeps its final value, so the
// signature covers the complete certificate content.
func (c Certificate) canonicalBytes() ([]byte, error) {
	c.Verification.Hash = ""
	c.Signature = ""
	return canonicalJSON(c)
}

func (c EnhancedCertificate) canonicalBytes() ([]byte, error) {
	c.Verification.Hash = ""
	c.Signature = ""
	return canonicalJSON(c)
}

// canonicalJSON is the single serialization used for hashing and signing.
// Field order follows struct declaration order and HTML escaping is off, so
// issuer and verifier compute identical bytes for the same structure.
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonicalize certificate: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func seal(canonical []byte, key ed25519.PrivateKey) (hash string, signature string) {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), hex.EncodeToString(ed25519.Sign(key, canonical))
}

// WriteJSON persists a certificate as indented JSON, the durable artifact
// handed to verifiers. Indentation does not affect canonical bytes: the
// verifier re-serializes the parsed structure before checking.
func WriteJSON(path string, c any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode certificate: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write certificate %s: %w", path, err)
	}
	return nil
}
