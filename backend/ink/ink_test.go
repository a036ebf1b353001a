package ink

import "testing"

func TestParsePnPID(t *testing.T) {
	for _, tt := range []struct {
		id      string
		vendor  uint16
		product uint16
		ok      bool
	}{
		{`\\?\HID#VID_056A&PID_0357&MI_01#8&1a2b3c4d&0&0000#{guid}`, 0x056a, 0x0357, true},
		{`\\?\hid#vid_256c&pid_006d#7&deadbeef`, 0x256c, 0x006d, true},
		{`ACPI\WACF004\3&11583659&0`, 0, 0, false},
		{`VID_12`, 0, 0, false},
		{``, 0, 0, false},
	} {
		usb, ok := parsePnPID(tt.id)
		if ok != tt.ok {
			t.Errorf("parsePnPID(%q) ok = %v, want %v", tt.id, ok, tt.ok)
			continue
		}
		if ok && (usb.Vendor != tt.vendor || usb.Product != tt.product) {
			t.Errorf("parsePnPID(%q) = %04x:%04x, want %04x:%04x",
				tt.id, usb.Vendor, usb.Product, tt.vendor, tt.product)
		}
	}
}
