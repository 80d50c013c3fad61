package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/wipecert/internal/common"
)

// Probe discovers storage devices on the running platform. Implementations
// populate StorageDevice fields best-effort; model, serial and capability
// flags may be absent.
type Probe interface {
	List(ctx context.Context) ([]StorageDevice, error)
}

// FindByPath scans probe output for the device with the given path.
func FindByPath(ctx context.Context, p Probe, path string) (*StorageDevice, error) {
	devs, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devs {
		if devs[i].Path == path {
			return &devs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", common.ErrDeviceNotFound, path)
}

// runner is a seam for tests; production code shells out.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ExecProbe discovers devices by shelling to OS-native tools (lsblk on
// Linux). Platforms without a supported tool yield ErrUnsupportedPlatform.
type ExecProbe struct {
	run  runner
	goos string
}

func NewExecProbe() *ExecProbe {
	return &ExecProbe{run: execRunner, goos: runtime.GOOS}
}

func (p *ExecProbe) List(ctx context.Context) ([]StorageDevice, error) {
	switch p.goos {
	case "linux":
		return p.listLinux(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedPlatform, p.goos)
	}
}

// lsblk -J emits booleans or strings depending on version; flexString and
// flexBool tolerate both.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = flexString(value)
	case float64:
		*s = flexString(strconv.FormatFloat(value, 'f', -1, 64))
	case bool:
		*s = flexString(strconv.FormatBool(value))
	default:
		return fmt.Errorf("unexpected lsblk value %T", v)
	}
	return nil
}

func (s flexString) Bool() bool {
	return s == "true" || s == "1"
}

func (s flexString) Uint() uint64 {
	n, _ := strconv.ParseUint(string(s), 10, 64)
	return n
}

type lsblkDevice struct {
	Name     flexString `json:"name"`
	Type     flexString `json:"type"`
	Size     flexString `json:"size"`
	Model    flexString `json:"model"`
	Serial   flexString `json:"serial"`
	Rota     flexString `json:"rota"`
	Tran     flexString `json:"tran"`
	DiscGran flexString `json:"disc-gran"`
}

type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

func (p *ExecProbe) listLinux(ctx context.Context) ([]StorageDevice, error) {
	out, err := p.run(ctx, "lsblk",
		"-J", "-b", "-d", "-o", "NAME,TYPE,SIZE,MODEL,SERIAL,ROTA,TRAN,DISC-GRAN")
	if err != nil {
		return nil, fmt.Errorf("lsblk: %w", err)
	}

	var parsed lsblkOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse lsblk output: %w", err)
	}

	var devs []StorageDevice
	for _, bd := range parsed.BlockDevices {
		if bd.Type != "disk" {
			continue
		}
		d := StorageDevice{
			Path:         filepath.Join("/dev", string(bd.Name)),
			Name:         string(bd.Name),
			Size:         bd.Size.Uint(),
			Type:         classifyLinux(bd),
			Model:        strings.TrimSpace(string(bd.Model)),
			Serial:       strings.TrimSpace(string(bd.Serial)),
			SupportsTrim: bd.DiscGran.Uint() > 0,
		}
		// SATA devices advertise the ATA security feature set through
		// hdparm; treat non-removable SATA disks as candidates and let the
		// engine degrade when the command is rejected.
		d.SupportsSecureErase = bd.Tran == "sata" && d.Type != TypeUSB
		devs = append(devs, d)
	}
	return devs, nil
}

func classifyLinux(bd lsblkDevice) DeviceType {
	switch {
	case bd.Tran == "nvme" || strings.HasPrefix(string(bd.Name), "nvme"):
		return TypeNVMe
	case bd.Tran == "usb":
		return TypeUSB
	case bd.Rota.Bool():
		return TypeHDD
	case bd.Tran == "sata" || bd.Tran == "sas" || bd.Tran == "ata":
		return TypeSSD
	default:
		return TypeUnknown
	}
}
