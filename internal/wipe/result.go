package wipe

import (
	"time"

	"github.com/dmitrijs2005/wipecert/internal/devices"
)

// Result is the immutable outcome of one successful erase invocation and the
// sole input to certificate issuance. Errors holds per-attempt failure
// messages for attempts that preceded the successful one.
type Result struct {
	Device             devices.StorageDevice
	Mode               devices.EraseMode
	StartTime          time.Time
	EndTime            time.Time
	DurationSeconds    uint64
	BytesWritten       uint64
	VerificationPassed bool
	VerificationRatio  float64
	SampleCount        int
	Errors             []string
}
