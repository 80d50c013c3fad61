package cli

import (
	"time"

	"github.com/dmitrijs2005/wipecert/internal/history"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const flagLimit = "limit"

func (a *App) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show certificates issued by this station",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath, err := cmd.Flags().GetString(flagHistoryDB)
			if err != nil {
				return err
			}
			limit, err := cmd.Flags().GetInt(flagLimit)
			if err != nil {
				return err
			}

			db, err := a.openHistory(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			recs, err := history.NewSQLiteRepository(db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			a.renderHistory(recs)
			return nil
		},
	}
	cmd.Flags().String(flagHistoryDB, defaultHistoryDB, "path of the local issuance index database")
	cmd.Flags().Int(flagLimit, 20, "maximum number of rows to show, 0 for all")
	return cmd
}

func (a *App) renderHistory(recs []history.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.AppendHeader(table.Row{"Issued", "Certificate ID", "Device", "Type", "Mode", "Verified", "File"})
	for _, r := range recs {
		t.AppendRow(table.Row{
			r.IssuedAt.Format(time.RFC3339),
			r.CertificateID, r.DevicePath, r.DeviceType, r.Mode,
			yesNo(r.VerificationPassed), r.CertificatePath,
		})
	}
	t.Render()
}
