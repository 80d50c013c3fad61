package wipe

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/dmitrijs2005/wipecert/internal/devices"
)

// Target abstracts the low-level operations the engine performs against one
// device: chunked reads/writes for software overwrite and verification, and
// the hardware erase commands behind the capability flags.
type Target interface {
	Size() uint64
	WriteAt(p []byte, off int64) (int, error)
	ReadAt(p []byte, off int64) (int, error)
	Sync() error

	Trim(ctx context.Context) error
	SecureErase(ctx context.Context) error
	Format(ctx context.Context, secure bool) error
	CryptoErase(ctx context.Context) error

	Close() error
}

// OpenFunc opens a Target for a device snapshot. The engine opens one target
// per attempt and closes it when the attempt finishes.
type OpenFunc func(ctx context.Context, d devices.StorageDevice) (Target, error)

// FileTarget performs software passes directly against the device node and
// shells to platform tools (blkdiscard, hdparm, nvme) for hardware commands.
type FileTarget struct {
	path string
	size uint64
	f    *os.File
	run  runner
}

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// OpenFileTarget is the default OpenFunc.
func OpenFileTarget(ctx context.Context, d devices.StorageDevice) (Target, error) {
	f, err := os.OpenFile(d.Path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Path, err)
	}
	return &FileTarget{path: d.Path, size: d.Size, f: f, run: execRunner}, nil
}

func (t *FileTarget) Size() uint64 { return t.size }

func (t *FileTarget) WriteAt(p []byte, off int64) (int, error) { return t.f.WriteAt(p, off) }

func (t *FileTarget) ReadAt(p []byte, off int64) (int, error) { return t.f.ReadAt(p, off) }

func (t *FileTarget) Sync() error { return t.f.Sync() }

func (t *FileTarget) Close() error { return t.f.Close() }

func (t *FileTarget) Trim(ctx context.Context) error {
	if out, err := t.run(ctx, "blkdiscard", t.path); err != nil {
		return fmt.Errorf("blkdiscard %s: %w: %s", t.path, err, out)
	}
	return nil
}

func (t *FileTarget) SecureErase(ctx context.Context) error {
	// The drive must not be frozen and must have a temporary password set;
	// hdparm handles both when invoked with --security-erase.
	if out, err := t.run(ctx, "hdparm",
		"--user-master", "u", "--security-set-pass", "wipecert", t.path); err != nil {
		return fmt.Errorf("hdparm set-pass %s: %w: %s", t.path, err, out)
	}
	if out, err := t.run(ctx, "hdparm",
		"--user-master", "u", "--security-erase", "wipecert", t.path); err != nil {
		return fmt.Errorf("hdparm security-erase %s: %w: %s", t.path, err, out)
	}
	return nil
}

func (t *FileTarget) Format(ctx context.Context, secure bool) error {
	args := []string{"format", t.path, "--force"}
	if secure {
		args = append(args, "--ses=1") // user-data erase
	}
	if out, err := t.run(ctx, "nvme", args...); err != nil {
		return fmt.Errorf("nvme format %s: %w: %s", t.path, err, out)
	}
	return nil
}

func (t *FileTarget) CryptoErase(ctx context.Context) error {
	if out, err := t.run(ctx, "nvme", "format", t.path, "--force", "--ses=2"); err != nil {
		return fmt.Errorf("nvme crypto erase %s: %w: %s", t.path, err, out)
	}
	return nil
}
