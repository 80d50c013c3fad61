// Package wipe implements the erase strategy engine: a fixed strategy table
// mapping (device type, erase mode) to a procedure, retry orchestration with
// constant backoff, and statistical post-wipe verification.
package wipe

import (
	"github.com/dmitrijs2005/wipecert/internal/devices"
)

type stepKind int

const (
	opOverwrite stepKind = iota // one full pass of a fixed byte pattern
	opMultiPass                 // pattern cycle for Passes passes + final zero pass
	opTrim
	opSecureErase
	opNVMeFormat
	opCryptoErase
)

// Step is one unit of an erase procedure. Steps requiring a hardware
// capability the device lacks degrade to Fallback, or are skipped when
// Optional; the degradation is silent by design.
type Step struct {
	Kind     stepKind
	Pattern  byte
	Passes   int
	Optional bool
	Fallback []Step
}

// Plan is the ordered procedure for one (device type, mode) combination.
type Plan struct {
	Steps []Step
}

// patternCycle is the deterministic multi-pass sequence; every multi-pass
// procedure appends a final all-zero pass on top of it.
var patternCycle = [4]byte{0x00, 0xFF, 0xAA, 0x55}

type planKey struct {
	t devices.DeviceType
	m devices.EraseMode
}

var strategyTable = map[planKey]Plan{
	{devices.TypeHDD, devices.ModeQuick}:    {Steps: []Step{{Kind: opOverwrite, Pattern: 0x00}}},
	{devices.TypeHDD, devices.ModeFull}:     {Steps: []Step{{Kind: opMultiPass, Passes: 3}}},
	{devices.TypeHDD, devices.ModeAdvanced}: {Steps: []Step{{Kind: opSecureErase, Fallback: []Step{{Kind: opMultiPass, Passes: 7}}}}},

	{devices.TypeSSD, devices.ModeQuick}: {Steps: []Step{{Kind: opTrim, Fallback: []Step{{Kind: opOverwrite, Pattern: 0x00}}}}},
	{devices.TypeSSD, devices.ModeFull}:  {Steps: []Step{{Kind: opTrim, Optional: true}, {Kind: opOverwrite, Pattern: 0xFF}}},
	{devices.TypeSSD, devices.ModeAdvanced}: {Steps: []Step{{Kind: opSecureErase, Fallback: []Step{
		{Kind: opTrim, Optional: true},
		{Kind: opMultiPass, Passes: 3},
	}}}},

	{devices.TypeNVMe, devices.ModeQuick}:    {Steps: []Step{{Kind: opNVMeFormat}}},
	{devices.TypeNVMe, devices.ModeFull}:     {Steps: []Step{{Kind: opNVMeFormat}, {Kind: opOverwrite, Pattern: 0xFF}}},
	{devices.TypeNVMe, devices.ModeAdvanced}: {Steps: []Step{{Kind: opCryptoErase}}},

	{devices.TypeUSB, devices.ModeQuick}:    {Steps: []Step{{Kind: opOverwrite, Pattern: 0x00}}},
	{devices.TypeUSB, devices.ModeFull}:     {Steps: []Step{{Kind: opMultiPass, Passes: 3}}},
	{devices.TypeUSB, devices.ModeAdvanced}: {Steps: []Step{{Kind: opMultiPass, Passes: 7}}},

	{devices.TypeUnknown, devices.ModeQuick}:    {Steps: []Step{{Kind: opOverwrite, Pattern: 0x00}}},
	{devices.TypeUnknown, devices.ModeFull}:     {Steps: []Step{{Kind: opMultiPass, Passes: 3}}},
	{devices.TypeUnknown, devices.ModeAdvanced}: {Steps: []Step{{Kind: opMultiPass, Passes: 5}}},
}

// PlanFor returns the fixed procedure for the given device type and mode.
// Unknown device types use the conservative Unknown row.
func PlanFor(t devices.DeviceType, m devices.EraseMode) Plan {
	if p, ok := strategyTable[planKey{t, m}]; ok {
		return p
	}
	return strategyTable[planKey{devices.TypeUnknown, m}]
}

// resolve expands capability-gated steps against a concrete device:
// unsupported steps are replaced by their fallback or dropped when optional.
func resolve(p Plan, d devices.StorageDevice) []Step {
	var out []Step
	for _, s := range p.Steps {
		if supported(s, d) {
			out = append(out, s)
			continue
		}
		if len(s.Fallback) > 0 {
			out = append(out, resolve(Plan{Steps: s.Fallback}, d)...)
			continue
		}
		// optional step without a software equivalent: skip silently
	}
	return out
}

func supported(s Step, d devices.StorageDevice) bool {
	switch s.Kind {
	case opTrim:
		return d.SupportsTrim
	case opSecureErase:
		return d.SupportsSecureErase
	default:
		return true
	}
}

// passPatterns returns the concrete pattern sequence for an n-pass wipe:
// the cycle repeated over n passes, then the mandatory final zero pass.
func passPatterns(n int) []byte {
	out := make([]byte, 0, n+1)
	for i := 0; i < n; i++ {
		out = append(out, patternCycle[i%len(patternCycle)])
	}
	return append(out, 0x00)
}
