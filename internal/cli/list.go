package cli

import (
	"fmt"

	"github.com/dmitrijs2005/wipecert/internal/devices"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const flagDetailed = "detailed"

func (a *App) listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List storage devices visible on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			detailed, err := cmd.Flags().GetBool(flagDetailed)
			if err != nil {
				return err
			}

			devs, err := a.probe.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("probe devices: %w", err)
			}
			a.renderDevices(devs, detailed)
			return nil
		},
	}
	cmd.Flags().Bool(flagDetailed, false, "include model, serial and capability columns")
	return cmd
}

func (a *App) renderDevices(devs []devices.StorageDevice, detailed bool) {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)

	if detailed {
		t.AppendHeader(table.Row{"Path", "Name", "Type", "Size", "Model", "Serial", "Secure Erase", "TRIM"})
		for _, d := range devs {
			t.AppendRow(table.Row{
				d.Path, d.Name, d.Type, formatSize(d.Size),
				orDash(d.Model), orDash(d.Serial),
				yesNo(d.SupportsSecureErase), yesNo(d.SupportsTrim),
			})
		}
	} else {
		t.AppendHeader(table.Row{"Path", "Name", "Type", "Size"})
		for _, d := range devs {
			t.AppendRow(table.Row{d.Path, d.Name, d.Type, formatSize(d.Size)})
		}
	}
	t.Render()
}

func formatSize(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
