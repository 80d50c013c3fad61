package cert

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"runtime"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/devices"
	"github.com/dmitrijs2005/wipecert/internal/keys"
	"github.com/dmitrijs2005/wipecert/internal/logging"
	"github.com/dmitrijs2005/wipecert/internal/wipe"
	"github.com/google/uuid"
)

// complianceStandards are the erasure standards an enhanced certificate
// attests against.
var complianceStandards = []string{
	"NIST SP 800-88 Rev. 1",
	"DoD 5220.22-M",
	"ISO/IEC 27040:2015",
}

const largeDeviceBytes = 2 << 40 // 2 TiB

// Identity names the party issuing enhanced certificates.
type Identity struct {
	Name         string
	Organization string
	Email        string
}

// Issuer builds signed certificates from wipe results. Configure optional
// fields with the With* methods before issuing.
type Issuer struct {
	key      ed25519.PrivateKey
	identity Identity
	log      logging.Logger

	toolVersion string
	ocspURL     string
	crlURL      string
	caChainPEM  string

	now   func() time.Time
	newID func() string
}

func NewIssuer(key ed25519.PrivateKey, identity Identity, log logging.Logger) *Issuer {
	if log == nil {
		log = logging.Nop()
	}
	return &Issuer{
		key:         key,
		identity:    identity,
		log:         log,
		toolVersion: "2.0.0",
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (i *Issuer) WithToolVersion(v string) *Issuer { i.toolVersion = v; return i }
func (i *Issuer) WithOCSPURL(u string) *Issuer     { i.ocspURL = u; return i }
func (i *Issuer) WithCRLURL(u string) *Issuer      { i.crlURL = u; return i }
func (i *Issuer) WithCAChainPEM(p string) *Issuer  { i.caChainPEM = p; return i }

// IssueBasic builds and signs a v1 certificate.
func (i *Issuer) IssueBasic(res *wipe.Result) (*Certificate, error) {
	ts := uint64(i.now().Unix())

	c := &Certificate{
		Version:       VersionBasic,
		CertificateID: fmt.Sprintf("WIPE_%016X", ts),
		Timestamp:     ts,
		DeviceInfo:    basicDeviceInfo(res.Device),
		WipeDetails: WipeDetails{
			Mode:               string(res.Mode),
			StartTime:          uint64(res.StartTime.Unix()),
			EndTime:            uint64(res.EndTime.Unix()),
			DurationSeconds:    res.DurationSeconds,
			BytesWritten:       res.BytesWritten,
			VerificationPassed: res.VerificationPassed,
			Errors:             nonNil(res.Errors),
		},
		Verification: VerificationInfo{
			Algorithm:            hashAlgorithm,
			PublicKeyFingerprint: keys.Fingerprint(i.key.Public().(ed25519.PublicKey)),
		},
	}

	canonical, err := c.canonicalBytes()
	if err != nil {
		return nil, err
	}
	c.Verification.Hash, c.Signature = seal(canonical, i.key)

	i.log.Info(context.Background(), "issued certificate", "id", c.CertificateID, "version", c.Version)
	return c, nil
}

// IssueEnhanced builds and signs a v2 certificate.
func (i *Issuer) IssueEnhanced(res *wipe.Result) (*EnhancedCertificate, error) {
	ts := uint64(i.now().Unix())
	fingerprint := keys.Fingerprint(i.key.Public().(ed25519.PublicKey))

	c := &EnhancedCertificate{
		Version:       VersionEnhanced,
		CertificateID: fmt.Sprintf("WIPE_%016X_%s", ts, i.newID()),
		Timestamp:     ts,
		Issuer: IssuerInfo{
			Name:                 i.identity.Name,
			Organization:         i.identity.Organization,
			Email:                strPtr(i.identity.Email),
			PublicKeyFingerprint: fingerprint,
		},
		DeviceInfo: enhancedDeviceInfo(res.Device),
		WipeDetails: EnhancedWipeDetails{
			Mode:               string(res.Mode),
			StartTime:          uint64(res.StartTime.Unix()),
			EndTime:            uint64(res.EndTime.Unix()),
			DurationSeconds:    res.DurationSeconds,
			BytesWritten:       res.BytesWritten,
			PassesCompleted:    passesCompleted(res.Mode),
			VerificationPassed: res.VerificationPassed,
			Errors:             nonNil(res.Errors),
			Warnings:           buildWarnings(res),
			PerformanceMetrics: buildMetrics(res),
		},
		Verification: EnhancedVerificationInfo{
			Algorithm:          hashAlgorithm,
			VerificationMethod: verificationMethod,
			SampleCount:        uint32(res.SampleCount),
			VerificationRatio:  res.VerificationRatio,
			ForensicToolsUsed:  []string{"Internal Verification"},
		},
		Compliance: ComplianceInfo{
			Standards:       complianceStandards,
			ComplianceLevel: complianceLevel(res.Mode),
			AuditTrail:      buildAuditTrail(res),
		},
		PKI: PKIInfo{
			OCSPURL:    strPtr(i.ocspURL),
			CRLURL:     strPtr(i.crlURL),
			CAChainPEM: strPtr(i.caChainPEM),
		},
		Metadata: Metadata{
			ToolVersion:  i.toolVersion,
			Platform:     runtime.GOOS,
			Architecture: runtime.GOARCH,
			GeneratedBy:  i.identity.Name,
		},
	}

	// The QR payload is part of the signed content, so it is built before
	// sealing and cannot carry the certificate hash.
	qr, err := qrPayload(c)
	if err != nil {
		return nil, err
	}
	c.Metadata.QRCodeData = &qr

	canonical, err := c.canonicalBytes()
	if err != nil {
		return nil, err
	}
	c.Verification.Hash, c.Signature = seal(canonical, i.key)

	i.log.Info(context.Background(), "issued certificate", "id", c.CertificateID, "version", c.Version)
	return c, nil
}

func basicDeviceInfo(d devices.StorageDevice) DeviceInfo {
	return DeviceInfo{
		Path:       d.Path,
		Name:       d.Name,
		Size:       d.Size,
		DeviceType: string(d.Type),
		Model:      strPtr(d.Model),
		Serial:     strPtr(d.Serial),
	}
}

func enhancedDeviceInfo(d devices.StorageDevice) EnhancedDeviceInfo {
	areas := make([]HiddenAreaInfo, 0, len(d.HiddenAreas))
	for _, a := range d.HiddenAreas {
		areas = append(areas, HiddenAreaInfo{
			AreaType:    string(a.Kind),
			StartLBA:    a.StartLBA,
			Size:        a.Size,
			Description: a.Description,
			Wiped:       true,
		})
	}
	unknown := "Unknown"
	return EnhancedDeviceInfo{
		Path:            d.Path,
		Name:            d.Name,
		Size:            d.Size,
		DeviceType:      string(d.Type),
		Model:           strPtr(d.Model),
		Serial:          strPtr(d.Serial),
		FirmwareVersion: &unknown,
		InterfaceType:   &unknown,
		HiddenAreas:     areas,
		Capabilities: DeviceCapabilities{
			SupportsSecureErase: d.SupportsSecureErase,
			SupportsTrim:        d.SupportsTrim,
			SupportsCryptoErase: d.Type == devices.TypeNVMe,
			SupportsFormatUnit:  true,
		},
	}
}

func passesCompleted(m devices.EraseMode) uint32 {
	switch m {
	case devices.ModeFull:
		return 3
	case devices.ModeAdvanced:
		return 7
	default:
		return 1
	}
}

func complianceLevel(m devices.EraseMode) string {
	switch m {
	case devices.ModeFull:
		return "Standard"
	case devices.ModeAdvanced:
		return "High"
	default:
		return "Basic"
	}
}

func buildWarnings(res *wipe.Result) []string {
	warnings := []string{}
	if !res.VerificationPassed {
		warnings = append(warnings, "Device verification failed - manual inspection recommended")
	}
	if len(res.Errors) > 0 {
		warnings = append(warnings, "Errors occurred during wipe operation")
	}
	if res.Device.Size > largeDeviceBytes {
		warnings = append(warnings, "Large device - extended verification recommended")
	}
	return warnings
}

// buildMetrics derives throughput figures from totals. The peak value is a
// synthetic estimate, 1.5x the average; per-chunk timing is not recorded.
func buildMetrics(res *wipe.Result) PerformanceMetrics {
	sizeGB := float64(res.BytesWritten) / (1 << 30)
	hours := float64(res.DurationSeconds) / 3600

	var avg float64
	if hours > 0 {
		avg = sizeGB * 1024 / hours
	}
	var sectors uint64
	if res.DurationSeconds > 0 {
		sectors = res.BytesWritten / 512 / res.DurationSeconds
	}
	return PerformanceMetrics{
		AverageSpeedMbps: avg,
		PeakSpeedMbps:    avg * 1.5,
		SectorsPerSecond: sectors,
		RetryCount:       uint32(len(res.Errors)),
	}
}

func buildAuditTrail(res *wipe.Result) []AuditEntry {
	start := uint64(res.StartTime.Unix())
	end := uint64(res.EndTime.Unix())

	completed := "Failed"
	verified := "Failed"
	if res.VerificationPassed {
		completed = "Success"
		verified = "Passed"
	}

	modeDetail := fmt.Sprintf("Mode: %s", res.Mode)
	bytesDetail := fmt.Sprintf("Bytes written: %d", res.BytesWritten)

	return []AuditEntry{
		{Timestamp: start, Action: "Wipe Operation Started", Result: "Success", Details: &modeDetail},
		{Timestamp: end, Action: "Wipe Operation Completed", Result: completed, Details: &bytesDetail},
		{Timestamp: end, Action: "Verification Performed", Result: verified, Details: nil},
	}
}

func qrPayload(c *EnhancedCertificate) (string, error) {
	payload := struct {
		ID        string  `json:"id"`
		Timestamp uint64  `json:"timestamp"`
		Device    string  `json:"device"`
		Mode      string  `json:"mode"`
		Verified  bool    `json:"verified"`
		OCSP      *string `json:"ocsp"`
	}{
		ID:        c.CertificateID,
		Timestamp: c.Timestamp,
		Device:    c.DeviceInfo.Name,
		Mode:      c.WipeDetails.Mode,
		Verified:  c.WipeDetails.VerificationPassed,
		OCSP:      c.PKI.OCSPURL,
	}
	b, err := canonicalJSON(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
