// Package devices defines the shared storage-device vocabulary: device
// snapshots, erase modes and hidden-area descriptors, plus the probe
// capability used to discover devices on the running platform.
package devices

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/wipecert/internal/common"
)

// DeviceType classifies the storage technology of a device. The string
// values are part of the certificate wire format and must not change.
type DeviceType string

const (
	TypeHDD     DeviceType = "HDD"
	TypeSSD     DeviceType = "SSD"
	TypeNVMe    DeviceType = "NVMe"
	TypeUSB     DeviceType = "USB"
	TypeUnknown DeviceType = "Unknown"
)

// EraseMode selects how thorough an erasure is. Ordered by thoroughness:
// Quick < Full < Advanced. The string values are part of the certificate
// wire format.
type EraseMode string

const (
	ModeQuick    EraseMode = "Quick"
	ModeFull     EraseMode = "Full"
	ModeAdvanced EraseMode = "Advanced"
)

// ParseEraseMode maps user input (case-insensitive "quick", "full",
// "advanced") to an EraseMode.
func ParseEraseMode(s string) (EraseMode, error) {
	switch strings.ToLower(s) {
	case "quick":
		return ModeQuick, nil
	case "full":
		return ModeFull, nil
	case "advanced":
		return ModeAdvanced, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrInvalidEraseMode, s)
	}
}

// HiddenAreaType classifies vendor-level hidden regions.
type HiddenAreaType string

const (
	HiddenHPA            HiddenAreaType = "HPA"
	HiddenDCO            HiddenAreaType = "DCO"
	HiddenSSDReserved    HiddenAreaType = "SSDReserved"
	HiddenVendorSpecific HiddenAreaType = "VendorSpecific"
)

// HiddenArea describes a region hidden from normal OS view (HPA/DCO and the
// like) that must be cleared for complete erasure.
type HiddenArea struct {
	Kind        HiddenAreaType `json:"kind"`
	StartLBA    uint64         `json:"start_lba"`
	Size        uint64         `json:"size"`
	Description string         `json:"description"`
}

// StorageDevice is an immutable snapshot of one storage device as supplied
// by a probe. Model and Serial may be empty when the platform does not
// expose them.
type StorageDevice struct {
	Path                string       `json:"path"`
	Name                string       `json:"name"`
	Size                uint64       `json:"size"`
	Type                DeviceType   `json:"device_type"`
	Model               string       `json:"model,omitempty"`
	Serial              string       `json:"serial,omitempty"`
	SupportsSecureErase bool         `json:"supports_secure_erase"`
	SupportsTrim        bool         `json:"supports_trim"`
	HiddenAreas         []HiddenArea `json:"hidden_areas,omitempty"`
}

// SizeGiB returns the device size in whole GiB.
func (d StorageDevice) SizeGiB() uint64 {
	return d.Size / (1 << 30)
}
