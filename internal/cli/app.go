// Package cli implements the wipecert command-line interface on top of the
// wipe engine, certificate issuer/verifier and the local issuance index.
package cli

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"io"
	"os"

	"github.com/dmitrijs2005/wipecert/internal/cert"
	"github.com/dmitrijs2005/wipecert/internal/devices"
	"github.com/dmitrijs2005/wipecert/internal/history"
	"github.com/dmitrijs2005/wipecert/internal/keys"
	"github.com/dmitrijs2005/wipecert/internal/logging"
	"github.com/dmitrijs2005/wipecert/internal/wipe"
	"github.com/spf13/cobra"
)

const (
	defaultPrivateKey = keys.PrivateKeyFile
	defaultPublicKey  = keys.PublicKeyFile
	defaultHistoryDB  = "wipecert.db"
)

// Eraser is the wipe engine surface the CLI depends on.
type Eraser interface {
	Erase(ctx context.Context, d devices.StorageDevice, mode devices.EraseMode) (*wipe.Result, error)
}

// App wires the commands to their collaborators. The function fields exist so
// tests can substitute fakes without touching the filesystem or real devices.
type App struct {
	out io.Writer
	in  io.Reader
	log logging.Logger

	probe  devices.Probe
	eraser Eraser

	loadSigner  func(path string) (ed25519.PrivateKey, error)
	newVerifier func(publicKeyPath string) *cert.Verifier
	openHistory func(ctx context.Context, dsn string) (*sql.DB, error)

	version string
}

func NewApp(log logging.Logger) *App {
	if log == nil {
		log = logging.Nop()
	}
	return &App{
		out:        os.Stdout,
		in:         os.Stdin,
		log:        log,
		probe:      devices.NewExecProbe(),
		eraser:     wipe.NewEngine(wipe.DefaultConfig(), nil, log),
		loadSigner: keys.LoadSigningKey,
		newVerifier: func(publicKeyPath string) *cert.Verifier {
			return cert.NewVerifier(publicKeyPath, log)
		},
		openHistory: history.Open,
		version:     "2.0.0",
	}
}

// RootCommand builds the full command tree.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "wipecert",
		Short:         "Securely erase storage devices and issue signed erasure certificates",
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)

	root.AddCommand(
		a.listCommand(),
		a.wipeCommand(),
		a.verifyCommand(),
		a.generateKeysCommand(),
		a.historyCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	log := logging.NewJSON(os.Stderr)
	root := NewApp(log).RootCommand()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		return 1
	}
	return 0
}
