package cli

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/cert"
	"github.com/dmitrijs2005/wipecert/internal/devices"
	"github.com/dmitrijs2005/wipecert/internal/filex"
	"github.com/dmitrijs2005/wipecert/internal/history"
	"github.com/dmitrijs2005/wipecert/internal/wipe"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	flagDevice      = "device"
	flagMode        = "mode"
	flagCertificate = "certificate"
	flagEnhanced    = "enhanced"
	flagOutput      = "output"
	flagYes         = "yes"
	flagPrivateKey  = "private-key"
	flagIssuerName  = "issuer-name"
	flagIssuerOrg   = "issuer-org"
	flagHistoryDB   = "db"
	flagOCSPURL     = "ocsp-url"
	flagCRLURL      = "crl-url"
)

func (a *App) wipeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Securely erase a storage device",
		Long: `Securely erase a storage device using the strategy for its type and the
selected mode, then optionally issue a signed erasure certificate.

All data on the device is destroyed. The command asks for confirmation by
retyping the device path unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: a.runWipe,
	}

	cmd.Flags().String(flagDevice, "", "device path to erase (required)")
	cmd.Flags().String(flagMode, "quick", "erase mode: quick, full or advanced")
	cmd.Flags().Bool(flagYes, false, "skip the interactive confirmation")
	addCertificateFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired(flagDevice)

	return cmd
}

// addCertificateFlags registers the certificate-issuance flag group.
func addCertificateFlags(fs *pflag.FlagSet) {
	fs.Bool(flagCertificate, false, "issue a signed certificate after the wipe")
	fs.Bool(flagEnhanced, true, "issue the enhanced (v2) certificate schema")
	fs.String(flagOutput, ".", "directory for certificate files")
	fs.String(flagPrivateKey, defaultPrivateKey, "signing key for certificate issuance")
	fs.String(flagIssuerName, "wipecert", "issuer name recorded in enhanced certificates")
	fs.String(flagIssuerOrg, "", "issuer organization recorded in enhanced certificates")
	fs.String(flagHistoryDB, defaultHistoryDB, "path of the local issuance index database")
	fs.String(flagOCSPURL, "", "OCSP responder URL embedded in enhanced certificates")
	fs.String(flagCRLURL, "", "CRL distribution URL embedded in enhanced certificates")
}

func (a *App) runWipe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	devicePath, _ := flags.GetString(flagDevice)
	modeStr, _ := flags.GetString(flagMode)
	issueCert, _ := flags.GetBool(flagCertificate)
	enhanced, _ := flags.GetBool(flagEnhanced)
	outputDir, _ := flags.GetString(flagOutput)
	yes, _ := flags.GetBool(flagYes)

	mode, err := devices.ParseEraseMode(modeStr)
	if err != nil {
		return err
	}

	dev, err := devices.FindByPath(ctx, a.probe, devicePath)
	if err != nil {
		return err
	}

	if !yes {
		if err := a.confirmWipe(dev, mode); err != nil {
			return err
		}
	}

	a.log.Info(ctx, "starting wipe", "device", dev.Path, "mode", string(mode))
	res, err := a.eraser.Erase(ctx, *dev, mode)
	if err != nil {
		return err
	}
	a.printResult(res)

	if !issueCert {
		return nil
	}

	keyPath, _ := flags.GetString(flagPrivateKey)
	issuerName, _ := flags.GetString(flagIssuerName)
	issuerOrg, _ := flags.GetString(flagIssuerOrg)
	dbPath, _ := flags.GetString(flagHistoryDB)
	ocspURL, _ := flags.GetString(flagOCSPURL)
	crlURL, _ := flags.GetString(flagCRLURL)

	signer, err := a.loadSigner(keyPath)
	if err != nil {
		return err
	}

	issuer := cert.NewIssuer(signer, cert.Identity{Name: issuerName, Organization: issuerOrg}, a.log).
		WithToolVersion(a.version).
		WithOCSPURL(ocspURL).
		WithCRLURL(crlURL)

	outputDir, err = filex.EnsureDir(outputDir)
	if err != nil {
		return err
	}

	rec := history.Record{
		DevicePath:         dev.Path,
		DeviceType:         string(dev.Type),
		Mode:               string(mode),
		VerificationPassed: res.VerificationPassed,
		IssuedAt:           time.Now().UTC(),
	}

	if enhanced {
		c, err := issuer.IssueEnhanced(res)
		if err != nil {
			return err
		}
		rec.CertificateID = c.CertificateID
		rec.Version = c.Version
		rec.CertificatePath = filepath.Join(outputDir, c.CertificateID+".json")
		if err := cert.WriteJSON(rec.CertificatePath, c); err != nil {
			return err
		}
	} else {
		c, err := issuer.IssueBasic(res)
		if err != nil {
			return err
		}
		rec.CertificateID = c.CertificateID
		rec.Version = c.Version
		rec.CertificatePath = filepath.Join(outputDir, c.CertificateID+".json")
		if err := cert.WriteJSON(rec.CertificatePath, c); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "Certificate written to %s\n", rec.CertificatePath)

	db, err := a.openHistory(ctx, dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return history.NewSQLiteRepository(db).Add(ctx, &rec)
}

// confirmWipe requires the operator to retype the device path. Anything else
// aborts before a single byte is touched.
func (a *App) confirmWipe(dev *devices.StorageDevice, mode devices.EraseMode) error {
	fmt.Fprintf(a.out, "About to erase %s (%s, %s, %s mode). This destroys ALL data.\n",
		dev.Path, dev.Type, formatSize(dev.Size), mode)
	fmt.Fprintf(a.out, "Type the device path to confirm: ")

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read confirmation: %w", err)
	}
	if strings.TrimSpace(line) != dev.Path {
		return fmt.Errorf("confirmation did not match device path, aborting")
	}
	return nil
}

func (a *App) printResult(res *wipe.Result) {
	status := "PASSED"
	if !res.VerificationPassed {
		status = "FAILED"
	}
	fmt.Fprintf(a.out, "Wipe completed in %ds, %s written, verification %s (%.1f%% of %d samples)\n",
		res.DurationSeconds, formatSize(res.BytesWritten), status,
		res.VerificationRatio*100, res.SampleCount)
	for _, e := range res.Errors {
		fmt.Fprintf(a.out, "  recovered: %s\n", e)
	}
}
