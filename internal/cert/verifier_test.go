package cert

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVerifier(key ed25519.PublicKey) *Verifier {
	v := NewVerifier("unused.pem", nil)
	v.loadKey = func(string) (ed25519.PublicKey, error) { return key, nil }
	v.now = func() time.Time { return time.Unix(1700007200+3*86400, 0) }
	return v
}

func marshal(t *testing.T, c any) []byte {
	t.Helper()
	b, err := json.MarshalIndent(c, "", "  ")
	require.NoError(t, err)
	return b
}

func TestVerify_BasicRoundTrip(t *testing.T) {
	key := testKey(t)
	c, err := fixedIssuer(t, key).IssueBasic(sampleResult())
	require.NoError(t, err)

	res, err := testVerifier(key.Public().(ed25519.PublicKey)).Verify(context.Background(), marshal(t, c))
	require.NoError(t, err)

	assert.True(t, res.IsValid)
	assert.True(t, res.SignatureValid)
	assert.True(t, res.HashValid)
	assert.True(t, res.ComplianceValid, "basic schema has no compliance data to fail")
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, uint64(3), res.Details.CertificateAgeDays)
	assert.Equal(t, uint64(500), res.Details.DeviceSizeGB)
	assert.Equal(t, uint64(7200), res.Details.WipeDurationSeconds)
	assert.Equal(t, 1.0, res.Details.VerificationRatio)
}

func TestVerify_EnhancedRoundTrip(t *testing.T) {
	key := testKey(t)
	c, err := fixedIssuer(t, key).IssueEnhanced(sampleResult())
	require.NoError(t, err)

	res, err := testVerifier(key.Public().(ed25519.PublicKey)).Verify(context.Background(), marshal(t, c))
	require.NoError(t, err)

	assert.True(t, res.IsValid)
	assert.True(t, res.SignatureValid)
	assert.True(t, res.HashValid)
	assert.True(t, res.ComplianceValid)
	assert.Equal(t, 0.98, res.Details.VerificationRatio)
	assert.False(t, res.Details.OCSPChecked, "no PKI URLs present")
	assert.False(t, res.Details.CRLChecked)
}

func TestVerifyFile_PersistedArtifact(t *testing.T) {
	key := testKey(t)
	c, err := fixedIssuer(t, key).IssueEnhanced(sampleResult())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cert.json")
	require.NoError(t, WriteJSON(path, c))

	res, err := testVerifier(key.Public().(ed25519.PublicKey)).VerifyFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.IsValid, "indented persisted form must verify after reparse")
}

func TestVerify_TamperedContent(t *testing.T) {
	key := testKey(t)
	c, err := fixedIssuer(t, key).IssueEnhanced(sampleResult())
	require.NoError(t, err)

	c.WipeDetails.BytesWritten++ // tamper after sealing

	res, err := testVerifier(key.Public().(ed25519.PublicKey)).Verify(context.Background(), marshal(t, c))
	require.NoError(t, err)

	assert.False(t, res.IsValid)
	assert.False(t, res.SignatureValid)
	assert.False(t, res.HashValid)
	assert.Contains(t, res.Errors, "Invalid signature")
	assert.Contains(t, res.Warnings, "Hash verification failed")
}

func TestVerify_WrongKey(t *testing.T) {
	key := testKey(t)
	c, err := fixedIssuer(t, key).IssueBasic(sampleResult())
	require.NoError(t, err)

	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	res, err := testVerifier(otherPub).Verify(context.Background(), marshal(t, c))
	require.NoError(t, err)

	assert.False(t, res.IsValid)
	assert.False(t, res.SignatureValid)
	assert.True(t, res.HashValid, "hash does not depend on the key")
}

func TestVerify_MalformedSignatureHex(t *testing.T) {
	key := testKey(t)
	c, err := fixedIssuer(t, key).IssueBasic(sampleResult())
	require.NoError(t, err)

	c.Signature = "not-hex"

	res, err := testVerifier(key.Public().(ed25519.PublicKey)).Verify(context.Background(), marshal(t, c))
	require.NoError(t, err, "malformed signature is a finding, not a crash")
	assert.False(t, res.SignatureValid)
	assert.Contains(t, res.Errors, "Signature verification failed: invalid signature format")
}

func TestVerify_EnhancedComplianceFailures(t *testing.T) {
	key := testKey(t)
	pub := key.Public().(ed25519.PublicKey)

	t.Run("wipe errors present", func(t *testing.T) {
		res := sampleResult()
		res.Errors = []string{"Attempt 1 failed: io error"}
		c, err := fixedIssuer(t, key).IssueEnhanced(res)
		require.NoError(t, err)

		out, err := testVerifier(pub).Verify(context.Background(), marshal(t, c))
		require.NoError(t, err)
		assert.True(t, out.SignatureValid)
		assert.False(t, out.ComplianceValid)
		assert.False(t, out.IsValid)
	})

	t.Run("verification failed", func(t *testing.T) {
		res := sampleResult()
		res.VerificationPassed = false
		c, err := fixedIssuer(t, key).IssueEnhanced(res)
		require.NoError(t, err)

		out, err := testVerifier(pub).Verify(context.Background(), marshal(t, c))
		require.NoError(t, err)
		assert.False(t, out.ComplianceValid)
	})

	t.Run("no standards listed", func(t *testing.T) {
		c, err := fixedIssuer(t, key).IssueEnhanced(sampleResult())
		require.NoError(t, err)
		c.Compliance.Standards = []string{}

		out, err := testVerifier(pub).Verify(context.Background(), marshal(t, c))
		require.NoError(t, err)
		assert.False(t, out.ComplianceValid)
	})
}

func TestVerify_BasicComplianceIsVacuous(t *testing.T) {
	res := sampleResult()
	res.VerificationPassed = false
	res.Errors = []string{"Attempt 1 failed: io error"}

	key := testKey(t)
	c, err := fixedIssuer(t, key).IssueBasic(res)
	require.NoError(t, err)

	out, err := testVerifier(key.Public().(ed25519.PublicKey)).Verify(context.Background(), marshal(t, c))
	require.NoError(t, err)
	assert.True(t, out.ComplianceValid)
	assert.True(t, out.IsValid)
}

func TestVerify_KeyLoadFailure(t *testing.T) {
	key := testKey(t)
	c, err := fixedIssuer(t, key).IssueBasic(sampleResult())
	require.NoError(t, err)

	v := NewVerifier("missing.pem", nil)
	v.loadKey = func(string) (ed25519.PublicKey, error) { return nil, errors.New("no such file") }

	res, err := v.Verify(context.Background(), marshal(t, c))
	require.NoError(t, err, "batch verification must continue past a missing key")
	assert.False(t, res.IsValid)
	assert.False(t, res.SignatureValid)
	assert.False(t, res.HashValid)
	assert.False(t, res.ComplianceValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Failed to load public key")
}

func TestVerify_UnparsableInput(t *testing.T) {
	key := testKey(t)
	v := testVerifier(key.Public().(ed25519.PublicKey))

	_, err := v.Verify(context.Background(), []byte("not json at all"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCertificateVerification)
}

func TestVerifyFile_MissingFile(t *testing.T) {
	key := testKey(t)
	v := testVerifier(key.Public().(ed25519.PublicKey))

	_, err := v.VerifyFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Unwrap(err)))
}

type fakeRevocation struct {
	ocsp RevocationStatus
	crl  RevocationStatus
}

func (f fakeRevocation) CheckOCSP(context.Context, string) RevocationStatus { return f.ocsp }
func (f fakeRevocation) CheckCRL(context.Context, string) RevocationStatus  { return f.crl }

func TestVerify_RevocationExtensionPoint(t *testing.T) {
	key := testKey(t)
	pub := key.Public().(ed25519.PublicKey)

	issue := func(t *testing.T) []byte {
		i := fixedIssuer(t, key).
			WithOCSPURL("https://pki.example/ocsp").
			WithCRLURL("https://pki.example/crl")
		c, err := i.IssueEnhanced(sampleResult())
		require.NoError(t, err)
		return marshal(t, c)
	}

	t.Run("default checker reports not evaluated", func(t *testing.T) {
		res, err := testVerifier(pub).Verify(context.Background(), issue(t))
		require.NoError(t, err)
		assert.False(t, res.Details.OCSPChecked)
		assert.False(t, res.Details.CRLChecked)
		assert.Contains(t, res.Warnings, "OCSP status not evaluated")
		assert.Contains(t, res.Warnings, "CRL status not evaluated")
		assert.True(t, res.IsValid, "revocation never affects the validity formula")
	})

	t.Run("wired checker sets flags", func(t *testing.T) {
		v := testVerifier(pub).WithRevocationChecker(fakeRevocation{ocsp: RevocationGood, crl: RevocationGood})
		res, err := v.Verify(context.Background(), issue(t))
		require.NoError(t, err)
		assert.True(t, res.Details.OCSPChecked)
		assert.True(t, res.Details.CRLChecked)
		assert.Empty(t, res.Warnings)
	})

	t.Run("revoked is reported as an error", func(t *testing.T) {
		v := testVerifier(pub).WithRevocationChecker(fakeRevocation{ocsp: RevocationRevoked, crl: RevocationGood})
		res, err := v.Verify(context.Background(), issue(t))
		require.NoError(t, err)
		assert.True(t, res.Details.OCSPChecked)
		assert.Contains(t, res.Errors, "Certificate reported revoked via OCSP")
	})

	t.Run("checks can be disabled", func(t *testing.T) {
		v := testVerifier(pub).WithOCSP(false).WithCRL(false)
		res, err := v.Verify(context.Background(), issue(t))
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
		assert.False(t, res.Details.OCSPChecked)
	})
}

func TestVerify_SchemaDispatch(t *testing.T) {
	key := testKey(t)
	pub := key.Public().(ed25519.PublicKey)

	basic, err := fixedIssuer(t, key).IssueBasic(sampleResult())
	require.NoError(t, err)
	enhanced, err := fixedIssuer(t, key).IssueEnhanced(sampleResult())
	require.NoError(t, err)

	resB, err := testVerifier(pub).Verify(context.Background(), marshal(t, basic))
	require.NoError(t, err)
	resE, err := testVerifier(pub).Verify(context.Background(), marshal(t, enhanced))
	require.NoError(t, err)

	// the enhanced result carries the measured sampling ratio, the basic one
	// only the pass/fail projection
	assert.Equal(t, 1.0, resB.Details.VerificationRatio)
	assert.Equal(t, 0.98, resE.Details.VerificationRatio)
}
