package pen

// USBID identifies a tablet model by its USB vendor and product pair.
type USBID struct {
	Vendor  uint16
	Product uint16
}

// Tablet is the logical device that provides the surface tools interact
// with. Buttons and other on-device hardware are reported by zero or
// more Pads; sensing capabilities belong to the individual Tools.
type Tablet struct {
	// ID is the connection-unique identity of this tablet. Opaque,
	// not stable across executions or re-plugs.
	ID ID

	// Name as reported by the platform, possibly empty.
	Name string

	// USB vendor/product pair. Valid when HasUSB.
	USB    USBID
	HasUSB bool
}
