package cert

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/dmitrijs2005/wipecert/internal/keys"
	"github.com/dmitrijs2005/wipecert/internal/logging"
)

// RevocationStatus is the outcome of an OCSP or CRL lookup.
type RevocationStatus string

const (
	RevocationNotEvaluated RevocationStatus = "not_evaluated"
	RevocationGood         RevocationStatus = "good"
	RevocationRevoked      RevocationStatus = "revoked"
)

// RevocationChecker is the extension point for network revocation checks.
// The built-in default never performs a lookup and reports "not evaluated",
// so a certificate is never silently treated as revocation-checked.
type RevocationChecker interface {
	CheckOCSP(ctx context.Context, url string) RevocationStatus
	CheckCRL(ctx context.Context, url string) RevocationStatus
}

type noRevocationCheck struct{}

func (noRevocationCheck) CheckOCSP(context.Context, string) RevocationStatus {
	return RevocationNotEvaluated
}

func (noRevocationCheck) CheckCRL(context.Context, string) RevocationStatus {
	return RevocationNotEvaluated
}

// VerificationResult is the structured report for one certificate. It is
// always populated; only unreadable or unparsable input produces an error
// instead.
type VerificationResult struct {
	IsValid         bool
	SignatureValid  bool
	HashValid       bool
	ComplianceValid bool
	Warnings        []string
	Errors          []string
	Details         VerificationDetails
}

type VerificationDetails struct {
	CertificateAgeDays  uint64
	DeviceSizeGB        uint64
	WipeDurationSeconds uint64
	VerificationRatio   float64
	OCSPChecked         bool
	CRLChecked          bool
}

// Verifier validates persisted certificates against a public key.
type Verifier struct {
	keyPath    string
	loadKey    func(string) (ed25519.PublicKey, error)
	enableOCSP bool
	enableCRL  bool
	revocation RevocationChecker
	log        logging.Logger

	now func() time.Time
}

func NewVerifier(publicKeyPath string, log logging.Logger) *Verifier {
	if log == nil {
		log = logging.Nop()
	}
	return &Verifier{
		keyPath:    publicKeyPath,
		loadKey:    keys.LoadVerifyingKey,
		enableOCSP: true,
		enableCRL:  true,
		revocation: noRevocationCheck{},
		log:        log,
		now:        time.Now,
	}
}

func (v *Verifier) WithOCSP(enabled bool) *Verifier { v.enableOCSP = enabled; return v }
func (v *Verifier) WithCRL(enabled bool) *Verifier  { v.enableCRL = enabled; return v }

// WithRevocationChecker wires a real OCSP/CRL implementation.
func (v *Verifier) WithRevocationChecker(rc RevocationChecker) *Verifier {
	v.revocation = rc
	return v
}

// VerifyFile reads and verifies a certificate file.
func (v *Verifier) VerifyFile(ctx context.Context, path string) (*VerificationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate %s: %w", path, err)
	}
	return v.Verify(ctx, data)
}

// Verify dispatches on schema and runs the independent signature, hash,
// compliance and revocation checks. A failed check is recorded in the
// result; the returned error is reserved for input that cannot be parsed as
// either schema. A key that cannot be loaded yields an all-false result so
// batch verification can continue.
func (v *Verifier) Verify(ctx context.Context, data []byte) (*VerificationResult, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse certificate: %v", common.ErrCertificateVerification, err)
	}

	res := &VerificationResult{Warnings: []string{}, Errors: []string{}}

	key, err := v.loadKey(v.keyPath)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to load public key: %v", err))
		return res, nil
	}

	// Enhanced certificates carry sections the basic schema never has;
	// their presence is the dispatch signal, not the version string.
	if _, ok := probe["issuer"]; ok {
		var c EnhancedCertificate
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("%w: parse enhanced certificate: %v", common.ErrCertificateVerification, err)
		}
		v.verifyEnhanced(ctx, &c, key, res)
	} else {
		var c Certificate
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("%w: parse certificate: %v", common.ErrCertificateVerification, err)
		}
		v.verifyBasic(&c, key, res)
	}

	res.IsValid = res.SignatureValid && res.HashValid && res.ComplianceValid
	v.log.Info(ctx, "certificate verified",
		"valid", res.IsValid, "signature", res.SignatureValid, "hash", res.HashValid, "compliance", res.ComplianceValid)
	return res, nil
}

func (v *Verifier) verifyBasic(c *Certificate, key ed25519.PublicKey, res *VerificationResult) {
	canonical, err := c.canonicalBytes()
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Signature verification failed: %v", err))
		return
	}

	v.checkSeal(canonical, c.Signature, c.Verification.Hash, key, res)

	// The basic schema records no compliance data; the check is vacuous.
	res.ComplianceValid = true

	ratio := 0.0
	if c.WipeDetails.VerificationPassed {
		ratio = 1.0
	}
	res.Details = VerificationDetails{
		CertificateAgeDays:  v.ageDays(c.Timestamp),
		DeviceSizeGB:        c.DeviceInfo.Size / (1 << 30),
		WipeDurationSeconds: c.WipeDetails.DurationSeconds,
		VerificationRatio:   ratio,
	}
}

func (v *Verifier) verifyEnhanced(ctx context.Context, c *EnhancedCertificate, key ed25519.PublicKey, res *VerificationResult) {
	canonical, err := c.canonicalBytes()
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Signature verification failed: %v", err))
		return
	}

	v.checkSeal(canonical, c.Signature, c.Verification.Hash, key, res)

	res.ComplianceValid = c.WipeDetails.VerificationPassed &&
		len(c.WipeDetails.Errors) == 0 &&
		len(c.Compliance.Standards) > 0

	res.Details = VerificationDetails{
		CertificateAgeDays:  v.ageDays(c.Timestamp),
		DeviceSizeGB:        c.DeviceInfo.Size / (1 << 30),
		WipeDurationSeconds: c.WipeDetails.DurationSeconds,
		VerificationRatio:   c.Verification.VerificationRatio,
	}

	if v.enableOCSP && c.PKI.OCSPURL != nil {
		v.applyRevocation(res, "OCSP", v.revocation.CheckOCSP(ctx, *c.PKI.OCSPURL), &res.Details.OCSPChecked)
	}
	if v.enableCRL && c.PKI.CRLURL != nil {
		v.applyRevocation(res, "CRL", v.revocation.CheckCRL(ctx, *c.PKI.CRLURL), &res.Details.CRLChecked)
	}
}

// checkSeal runs the signature and hash checks over the same canonical bytes.
// An unverifiable signature is an error, a hash mismatch a warning.
func (v *Verifier) checkSeal(canonical []byte, sigHex, storedHash string, key ed25519.PublicKey, res *VerificationResult) {
	valid, err := verifySignature(canonical, sigHex, key)
	switch {
	case err != nil:
		res.Errors = append(res.Errors, fmt.Sprintf("Signature verification failed: %v", err))
	case !valid:
		res.Errors = append(res.Errors, "Invalid signature")
	default:
		res.SignatureValid = true
	}

	sum := sha256.Sum256(canonical)
	if hex.EncodeToString(sum[:]) == storedHash {
		res.HashValid = true
	} else {
		res.Warnings = append(res.Warnings, "Hash verification failed")
	}
}

func (v *Verifier) applyRevocation(res *VerificationResult, kind string, status RevocationStatus, checked *bool) {
	switch status {
	case RevocationNotEvaluated:
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s status not evaluated", kind))
	case RevocationRevoked:
		*checked = true
		res.Errors = append(res.Errors, fmt.Sprintf("Certificate reported revoked via %s", kind))
	default:
		*checked = true
	}
}

func (v *Verifier) ageDays(ts uint64) uint64 {
	now := uint64(v.now().Unix())
	if now <= ts {
		return 0
	}
	return (now - ts) / 86400
}

func verifySignature(canonical []byte, sigHex string, key ed25519.PublicKey) (bool, error) {
	raw, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, errors.New("invalid signature format")
	}
	if len(raw) != ed25519.SignatureSize {
		return false, errors.New("invalid signature length")
	}
	return ed25519.Verify(key, canonical, raw), nil
}
