package cli

import (
	"fmt"

	"github.com/dmitrijs2005/wipecert/internal/cert"
	"github.com/spf13/cobra"
)

const flagPublicKey = "public-key"

func (a *App) verifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a previously issued erasure certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			certPath, err := cmd.Flags().GetString(flagCertificate)
			if err != nil {
				return err
			}
			keyPath, err := cmd.Flags().GetString(flagPublicKey)
			if err != nil {
				return err
			}

			res, err := a.newVerifier(keyPath).VerifyFile(cmd.Context(), certPath)
			if err != nil {
				return err
			}
			a.printVerification(res)

			if !res.IsValid {
				return fmt.Errorf("certificate is INVALID")
			}
			return nil
		},
	}
	cmd.Flags().String(flagCertificate, "", "certificate file to verify (required)")
	cmd.Flags().String(flagPublicKey, defaultPublicKey, "public key used for signature verification")
	_ = cmd.MarkFlagRequired(flagCertificate)
	return cmd
}

func (a *App) printVerification(res *cert.VerificationResult) {
	verdict := "VALID"
	if !res.IsValid {
		verdict = "INVALID"
	}
	fmt.Fprintf(a.out, "Certificate is %s\n", verdict)
	fmt.Fprintf(a.out, "  Signature:  %s\n", validity(res.SignatureValid))
	fmt.Fprintf(a.out, "  Hash:       %s\n", validity(res.HashValid))
	fmt.Fprintf(a.out, "  Compliance: %s\n", validity(res.ComplianceValid))
	fmt.Fprintf(a.out, "  OCSP checked: %s, CRL checked: %s\n",
		yesNo(res.Details.OCSPChecked), yesNo(res.Details.CRLChecked))

	if len(res.Warnings) > 0 {
		fmt.Fprintln(a.out, "Warnings:")
		for _, w := range res.Warnings {
			fmt.Fprintf(a.out, "  - %s\n", w)
		}
	}
	if len(res.Errors) > 0 {
		fmt.Fprintln(a.out, "Errors:")
		for _, e := range res.Errors {
			fmt.Fprintf(a.out, "  - %s\n", e)
		}
	}

	fmt.Fprintf(a.out, "Age: %d days, device size: %d GB, wipe duration: %ds, verification ratio: %.1f%%\n",
		res.Details.CertificateAgeDays, res.Details.DeviceSizeGB,
		res.Details.WipeDurationSeconds, res.Details.VerificationRatio*100)
}

func validity(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}
