// Package ink ingests stylus input from the Windows RealTimeStylus
// service.
//
// The service delivers packets through COM callbacks on a driver-owned
// thread; the backend buffers them into a lock-protected shared frame
// and Pump clones that frame into a caller-owned snapshot, so consumer
// reads never hold the lock. A panic on the callback thread poisons the
// backend instead of unwinding into foreign code. Importing the package
// registers it with pen under the name pen.BackendInk.
package ink

import (
	"strconv"
	"strings"

	"github.com/gogpu/pen"
)

func init() {
	pen.RegisterBackend(pen.BackendInk, New)
}

// New attaches to the RealTimeStylus for the window in cfg.WindowHandle.
// Returns pen.ErrUnsupported off Windows or when the stylus service is
// unavailable.
func New(cfg *pen.Config) (pen.Backend, error) {
	return newPlatform(cfg)
}

// parsePnPID extracts the USB identity from a plug-and-play device id
// such as `\\?\HID#VID_056A&PID_0357&MI_01#...`.
func parsePnPID(id string) (pen.USBID, bool) {
	upper := strings.ToUpper(id)
	vendor, okV := hexField(upper, "VID_")
	product, okP := hexField(upper, "PID_")
	if !okV || !okP {
		return pen.USBID{}, false
	}
	return pen.USBID{Vendor: vendor, Product: product}, true
}

func hexField(s, prefix string) (uint16, bool) {
	i := strings.Index(s, prefix)
	if i < 0 || i+len(prefix)+4 > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[i+len(prefix):i+len(prefix)+4], 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}
