package wipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/dmitrijs2005/wipecert/internal/devices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTarget simulates a device as an in-memory buffer. Hardware commands
// zero the buffer, as the real commands destroy all data.
type memTarget struct {
	data []byte

	syncs       int
	trims       int
	secureWipes int
	formats     int
	cryptoWipes int

	writeErr error
}

func newMemTarget(sectors int) *memTarget {
	data := make([]byte, sectors*sectorSize)
	for i := range data {
		data[i] = byte(i%251 + 1) // pre-wipe garbage, never uniform
	}
	return &memTarget{data: data}
}

func (m *memTarget) Size() uint64 { return uint64(len(m.data)) }

func (m *memTarget) WriteAt(p []byte, off int64) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return copy(m.data[off:], p), nil
}

func (m *memTarget) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m.data[off:]), nil
}

func (m *memTarget) Sync() error { m.syncs++; return nil }
func (m *memTarget) Close() error { return nil }

func (m *memTarget) wipeAll() {
	for i := range m.data {
		m.data[i] = 0
	}
}

func (m *memTarget) Trim(context.Context) error        { m.trims++; m.wipeAll(); return nil }
func (m *memTarget) SecureErase(context.Context) error { m.secureWipes++; m.wipeAll(); return nil }
func (m *memTarget) Format(context.Context, bool) error {
	m.formats++
	m.wipeAll()
	return nil
}
func (m *memTarget) CryptoErase(context.Context) error { m.cryptoWipes++; m.wipeAll(); return nil }

func staticOpen(t Target) OpenFunc {
	return func(context.Context, devices.StorageDevice) (Target, error) { return t, nil }
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	cfg.ChunkSize = 4 * sectorSize
	return cfg
}

func hdd(size uint64) devices.StorageDevice {
	return devices.StorageDevice{Path: "/dev/sda", Name: "sda", Size: size, Type: devices.TypeHDD}
}

func TestErase_QuickHDD_ZeroesEverything(t *testing.T) {
	tgt := newMemTarget(64)
	e := NewEngine(fastConfig(), staticOpen(tgt), nil)

	res, err := e.Erase(context.Background(), hdd(tgt.Size()), devices.ModeQuick)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(tgt.data, make([]byte, len(tgt.data))), "all bytes must be zero")
	assert.Equal(t, 1, tgt.syncs, "quick mode is a single pass")
	assert.True(t, res.VerificationPassed)
	assert.Equal(t, 1.0, res.VerificationRatio)
	assert.Empty(t, res.Errors)
	assert.Equal(t, tgt.Size(), res.BytesWritten)
	assert.Equal(t, devices.ModeQuick, res.Mode)
}

func TestErase_FullHDD_RunsFourPasses(t *testing.T) {
	tgt := newMemTarget(16)
	e := NewEngine(fastConfig(), staticOpen(tgt), nil)

	_, err := e.Erase(context.Background(), hdd(tgt.Size()), devices.ModeFull)
	require.NoError(t, err)

	// 3 cycle passes + mandatory final zero pass
	assert.Equal(t, 4, tgt.syncs)
	assert.True(t, bytes.Equal(tgt.data, make([]byte, len(tgt.data))))
}

func TestErase_SSDFull_WithoutTrimEndsOnFF(t *testing.T) {
	tgt := newMemTarget(16)
	e := NewEngine(fastConfig(), staticOpen(tgt), nil)
	dev := devices.StorageDevice{Path: "/dev/sdb", Size: tgt.Size(), Type: devices.TypeSSD}

	res, err := e.Erase(context.Background(), dev, devices.ModeFull)
	require.NoError(t, err)

	assert.Equal(t, 0, tgt.trims)
	assert.True(t, bytes.Equal(tgt.data, bytes.Repeat([]byte{0xFF}, len(tgt.data))))
	assert.True(t, res.VerificationPassed, "uniform 0xFF sectors count as erased")
}

func TestErase_HardwarePaths(t *testing.T) {
	tests := []struct {
		name  string
		dev   devices.StorageDevice
		mode  devices.EraseMode
		check func(t *testing.T, tgt *memTarget)
	}{
		{
			name: "ssd quick trims",
			dev:  devices.StorageDevice{Size: 64 * sectorSize, Type: devices.TypeSSD, SupportsTrim: true},
			mode: devices.ModeQuick,
			check: func(t *testing.T, tgt *memTarget) {
				assert.Equal(t, 1, tgt.trims)
				assert.Equal(t, 0, tgt.syncs)
			},
		},
		{
			name: "hdd advanced secure erase",
			dev:  devices.StorageDevice{Size: 64 * sectorSize, Type: devices.TypeHDD, SupportsSecureErase: true},
			mode: devices.ModeAdvanced,
			check: func(t *testing.T, tgt *memTarget) {
				assert.Equal(t, 1, tgt.secureWipes)
			},
		},
		{
			name: "nvme quick formats",
			dev:  devices.StorageDevice{Size: 64 * sectorSize, Type: devices.TypeNVMe},
			mode: devices.ModeQuick,
			check: func(t *testing.T, tgt *memTarget) {
				assert.Equal(t, 1, tgt.formats)
			},
		},
		{
			name: "nvme advanced crypto erase",
			dev:  devices.StorageDevice{Size: 64 * sectorSize, Type: devices.TypeNVMe},
			mode: devices.ModeAdvanced,
			check: func(t *testing.T, tgt *memTarget) {
				assert.Equal(t, 1, tgt.cryptoWipes)
				assert.Equal(t, 0, tgt.formats)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tgt := newMemTarget(64)
			e := NewEngine(fastConfig(), staticOpen(tgt), nil)
			_, err := e.Erase(context.Background(), tc.dev, tc.mode)
			require.NoError(t, err)
			tc.check(t, tgt)
		})
	}
}

func TestErase_RetriesThenSucceeds(t *testing.T) {
	tgt := newMemTarget(16)
	failures := 2
	open := func(ctx context.Context, d devices.StorageDevice) (Target, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("device busy")
		}
		return tgt, nil
	}

	e := NewEngine(fastConfig(), open, nil)
	res, err := e.Erase(context.Background(), hdd(tgt.Size()), devices.ModeQuick)
	require.NoError(t, err)

	require.Len(t, res.Errors, 2)
	assert.Equal(t, "Attempt 1 failed: open device: device busy", res.Errors[0])
	assert.Equal(t, "Attempt 2 failed: open device: device busy", res.Errors[1])
	assert.True(t, res.VerificationPassed)
}

func TestErase_RetryExhaustion(t *testing.T) {
	open := func(ctx context.Context, d devices.StorageDevice) (Target, error) {
		return nil, errors.New("io error")
	}

	e := NewEngine(fastConfig(), open, nil)
	res, err := e.Erase(context.Background(), hdd(1<<20), devices.ModeQuick)

	require.Nil(t, res, "no partial result on exhaustion")
	require.ErrorIs(t, err, common.ErrWipeFailed)
	for n := 1; n <= 3; n++ {
		assert.Contains(t, err.Error(), fmt.Sprintf("Attempt %d failed:", n))
	}
	assert.NotContains(t, err.Error(), "Attempt 4")
}

func TestErase_WriteFailureIsRetriedPerAttempt(t *testing.T) {
	tgt := newMemTarget(16)
	tgt.writeErr = errors.New("write: input/output error")

	cfg := fastConfig()
	e := NewEngine(cfg, staticOpen(tgt), nil)
	_, err := e.Erase(context.Background(), hdd(tgt.Size()), devices.ModeQuick)

	require.ErrorIs(t, err, common.ErrWipeFailed)
	assert.Equal(t, 3, strings.Count(err.Error(), "Attempt"))
}

func TestErase_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tgt := newMemTarget(16)
	e := NewEngine(fastConfig(), staticOpen(tgt), nil)
	res, err := e.Erase(ctx, hdd(tgt.Size()), devices.ModeQuick)

	require.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, 0, tgt.syncs, "no pass completes after cancellation")
}

func TestErase_ConcurrentReuseAcrossDevices(t *testing.T) {
	targets := map[string]*memTarget{
		"/dev/sda": newMemTarget(64),
		"/dev/sdb": newMemTarget(64),
	}
	open := func(_ context.Context, d devices.StorageDevice) (Target, error) {
		return targets[d.Path], nil
	}

	// one engine, two devices erased in parallel
	e := NewEngine(fastConfig(), open, nil)

	var wg sync.WaitGroup
	results := make(map[string]*eraseOutcome, len(targets))
	var mu sync.Mutex

	for path := range targets {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			dev := devices.StorageDevice{Path: path, Size: targets[path].Size(), Type: devices.TypeHDD}
			res, err := e.Erase(context.Background(), dev, devices.ModeQuick)
			mu.Lock()
			results[path] = &eraseOutcome{res: res, err: err}
			mu.Unlock()
		}(path)
	}
	wg.Wait()

	for path, tgt := range targets {
		r := results[path]
		require.NoError(t, r.err, path)
		assert.True(t, r.res.VerificationPassed, path)
		assert.True(t, bytes.Equal(tgt.data, make([]byte, len(tgt.data))), "%s: all bytes must be zero", path)
	}
}

type eraseOutcome struct {
	res *Result
	err error
}

// scriptedTarget answers read-back verification with a fixed erased/dirty
// script regardless of the sampled offset, making ratios deterministic.
type scriptedTarget struct {
	*memTarget
	erasedReads int
	reads       int
}

func (s *scriptedTarget) ReadAt(p []byte, off int64) (int, error) {
	s.reads++
	fill := byte(0x00)
	if s.reads > s.erasedReads {
		fill = 0x5A // dirty
	}
	for i := range p {
		p[i] = fill
	}
	return len(p), nil
}

func TestVerification_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name        string
		sampleCount int
		erased      int
		wantPassed  bool
		wantRatio   float64
	}{
		{"exactly 0.95 passes", 100, 95, true, 0.95},
		{"0.94 fails", 100, 94, false, 0.94},
		{"0.9499 fails", 10000, 9499, false, 0.9499},
		{"all erased", 100, 100, true, 1.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tgt := &scriptedTarget{memTarget: newMemTarget(1024), erasedReads: tc.erased}
			cfg := fastConfig()
			cfg.SampleCount = tc.sampleCount
			e := NewEngine(cfg, staticOpen(tgt), nil)

			res, err := e.Erase(context.Background(), hdd(tgt.Size()), devices.ModeQuick)
			require.NoError(t, err, "verification failure must not fail the erase")
			assert.Equal(t, tc.wantPassed, res.VerificationPassed)
			assert.InDelta(t, tc.wantRatio, res.VerificationRatio, 1e-9)
			assert.Equal(t, tc.sampleCount, res.SampleCount)
		})
	}
}
