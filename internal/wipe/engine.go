package wipe

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/dmitrijs2005/wipecert/internal/devices"
	"github.com/dmitrijs2005/wipecert/internal/logging"
	"github.com/sethvargo/go-retry"
)

const sectorSize = 512

// Config holds the engine knobs. Zero values are replaced by defaults so a
// partially filled struct is usable in tests.
type Config struct {
	// MaxRetries is the total number of attempts for the full procedure.
	MaxRetries int
	// RetryBackoff is the fixed delay between attempts (not applied after
	// the final one).
	RetryBackoff time.Duration
	// SampleCount is the number of pseudo-random sectors read back during
	// post-wipe verification.
	SampleCount int
	// VerificationThreshold is the minimum verified/sampled ratio
	// (inclusive) for the verification to pass.
	VerificationThreshold float64
	// ChunkSize is the write unit for software overwrite passes.
	ChunkSize int
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:            3,
		RetryBackoff:          5 * time.Second,
		SampleCount:           100,
		VerificationThreshold: 0.95,
		ChunkSize:             1 << 20,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxRetries < 1 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = def.RetryBackoff
	}
	if c.SampleCount <= 0 {
		c.SampleCount = def.SampleCount
	}
	if c.VerificationThreshold <= 0 {
		c.VerificationThreshold = def.VerificationThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	return c
}

// Engine executes erase procedures. It is safe to reuse across devices but
// must not be invoked concurrently for the same device path; the caller
// serializes per device.
type Engine struct {
	cfg  Config
	open OpenFunc
	log  logging.Logger
}

func NewEngine(cfg Config, open OpenFunc, log logging.Logger) *Engine {
	if open == nil {
		open = OpenFileTarget
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{
		cfg:  cfg.withDefaults(),
		open: open,
		log:  log,
	}
}

// Erase runs the full procedure for the device/mode combination, retrying on
// failure, and verifies the result by sampling. It fails only when every
// attempt is exhausted; a failed verification is recorded in the result, not
// returned as an error.
func (e *Engine) Erase(ctx context.Context, d devices.StorageDevice, mode devices.EraseMode) (*Result, error) {
	log := e.log.With("device", d.Path, "mode", string(mode))

	steps := resolve(PlanFor(d.Type, mode), d)
	start := time.Now()

	var (
		attemptErrs []string
		attempt     int
		tgt         Target
	)

	backoff := retry.WithMaxRetries(uint64(e.cfg.MaxRetries-1), retry.NewConstant(e.cfg.RetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		log.Info(ctx, "starting wipe attempt", "attempt", attempt, "max", e.cfg.MaxRetries)

		t, err := e.open(ctx, d)
		if err != nil {
			err = fmt.Errorf("open device: %w", err)
		} else {
			err = e.runSteps(ctx, t, steps, log)
		}
		if err != nil {
			if t != nil {
				_ = t.Close()
			}
			msg := fmt.Sprintf("Attempt %d failed: %v", attempt, err)
			log.Error(ctx, "wipe attempt failed", "attempt", attempt, "err", err)
			attemptErrs = append(attemptErrs, msg)
			if ctx.Err() != nil {
				return err // cancelled, do not retry
			}
			return retry.RetryableError(err)
		}
		tgt = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrWipeFailed, strings.Join(attemptErrs, "; "))
	}
	defer tgt.Close()

	verified, ratio := e.verifyTarget(ctx, tgt, log)
	end := time.Now()

	return &Result{
		Device:             d,
		Mode:               mode,
		StartTime:          start,
		EndTime:            end,
		DurationSeconds:    uint64(end.Sub(start).Seconds()),
		BytesWritten:       d.Size,
		VerificationPassed: verified,
		VerificationRatio:  ratio,
		SampleCount:        e.cfg.SampleCount,
		Errors:             attemptErrs,
	}, nil
}

func (e *Engine) runSteps(ctx context.Context, t Target, steps []Step, log logging.Logger) error {
	for _, s := range steps {
		switch s.Kind {
		case opOverwrite:
			if err := e.writePass(ctx, t, s.Pattern); err != nil {
				return err
			}
		case opMultiPass:
			patterns := passPatterns(s.Passes)
			for i, p := range patterns {
				log.Debug(ctx, "overwrite pass", "pass", i+1, "of", len(patterns), "pattern", fmt.Sprintf("%#02x", p))
				if err := e.writePass(ctx, t, p); err != nil {
					return fmt.Errorf("pass %d/%d: %w", i+1, len(patterns), err)
				}
			}
		case opTrim:
			if err := t.Trim(ctx); err != nil {
				return err
			}
		case opSecureErase:
			if err := t.SecureErase(ctx); err != nil {
				return err
			}
		case opNVMeFormat:
			if err := t.Format(ctx, true); err != nil {
				return err
			}
		case opCryptoErase:
			if err := t.CryptoErase(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// writePass writes one full pass of pattern over the target in ChunkSize
// units, checking for cancellation between chunks. Overwrite correctness
// depends on completing one full pass before the next starts, so passes are
// strictly sequential.
func (e *Engine) writePass(ctx context.Context, t Target, pattern byte) error {
	size := int64(t.Size())
	buf := bytes.Repeat([]byte{pattern}, e.cfg.ChunkSize)

	for off := int64(0); off < size; off += int64(e.cfg.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := buf
		if remaining := size - off; remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}
		if _, err := t.WriteAt(chunk, off); err != nil {
			return fmt.Errorf("write at %d: %w", off, err)
		}
	}
	return t.Sync()
}

// verifyTarget samples SampleCount pseudo-random sectors and checks that each
// reads as erased (uniformly 0x00, or uniformly 0xFF for pattern/TRIM paths
// that end on ones). Returns pass/fail against the inclusive threshold plus
// the measured ratio. Failure here never retriggers the erase.
func (e *Engine) verifyTarget(ctx context.Context, t Target, log logging.Logger) (bool, float64) {
	sectors := int64(t.Size() / sectorSize)
	if sectors == 0 {
		return false, 0
	}

	// per-call source; Erase may run concurrently for different devices
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	verified := 0
	buf := make([]byte, sectorSize)
	for i := 0; i < e.cfg.SampleCount; i++ {
		if ctx.Err() != nil {
			break
		}
		sector := rnd.Int63n(sectors)
		if _, err := t.ReadAt(buf, sector*sectorSize); err != nil {
			continue
		}
		if sectorErased(buf) {
			verified++
		}
	}

	ratio := float64(verified) / float64(e.cfg.SampleCount)
	passed := ratio >= e.cfg.VerificationThreshold
	log.Info(ctx, "post-wipe verification",
		"verified", verified, "sampled", e.cfg.SampleCount, "ratio", ratio, "passed", passed)
	return passed, ratio
}

func sectorErased(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	first := b[0]
	if first != 0x00 && first != 0xFF {
		return false
	}
	for _, c := range b[1:] {
		if c != first {
			return false
		}
	}
	return true
}
