package pen

import "fmt"

// idKind tags which backend minted an ID. IDs from different backends
// never compare equal, even if their payloads coincide.
type idKind uint8

const (
	idNone idKind = iota
	idWayland
	idXInput2
	idInkTablet
	idInkStylus
)

func (k idKind) String() string {
	switch k {
	case idWayland:
		return "wayland"
	case idXInput2:
		return "xinput2"
	case idInkTablet:
		return "ink-tablet"
	case idInkStylus:
		return "ink-stylus"
	default:
		return "none"
	}
}

// ID is an opaque identifier for a tool, tablet, pad, group, ring or
// strip. It is stable and unique for as long as the device connection
// exists, but not across executions: the same physical tablet may have a
// different ID on the next run, or even after being re-plugged.
//
// IDs are comparable with == and usable as map keys. The zero ID matches
// nothing.
type ID struct {
	kind idKind
	// Backend-defined payload. Wayland object id, XInput2 device id,
	// Ink tablet context id or stylus/cursor pair.
	value uint64
	// Device id generation. Bumped by backends that recycle their
	// numeric ids (XInput2), so an ID captured before a device rescan
	// never resolves against hardware enumerated after it.
	gen uint32
}

// WaylandID mints an ID from a Wayland protocol object id.
func WaylandID(object uint32) ID {
	return ID{kind: idWayland, value: uint64(object)}
}

// XInput2ID mints an ID from an XInput2 device id and the rescan
// generation it was observed in.
func XInput2ID(device uint16, gen uint32) ID {
	return ID{kind: idXInput2, value: uint64(device), gen: gen}
}

// XInput2Derived mints an ID for an entity the backend synthesizes
// around an X device: the tablet, pad group or ring built from the
// device's input classes. The entity tag keeps derived IDs distinct
// from the device's own ID.
func XInput2Derived(device uint16, entity uint8, gen uint32) ID {
	return ID{kind: idXInput2, value: uint64(entity)<<32 | uint64(device), gen: gen}
}

// InkTabletID mints an ID from a RealTimeStylus tablet context id.
func InkTabletID(tcid uint32) ID {
	return ID{kind: idInkTablet, value: uint64(tcid)}
}

// InkStylusID mints an ID from a RealTimeStylus stylus id and cursor id.
// The pair is needed because a single stylus id covers both the pen tip
// and the eraser, which are distinct tools.
func InkStylusID(sid, cursor uint32) ID {
	return ID{kind: idInkStylus, value: uint64(sid)<<32 | uint64(cursor)}
}

// IsZero reports whether the ID is the zero value, which identifies
// nothing.
func (id ID) IsZero() bool { return id.kind == idNone }

// String formats the ID for logs. The format is not stable.
func (id ID) String() string {
	if id.IsZero() {
		return "pen.ID(none)"
	}
	if id.gen != 0 {
		return fmt.Sprintf("pen.ID(%s:%d@%d)", id.kind, id.value, id.gen)
	}
	return fmt.Sprintf("pen.ID(%s:%d)", id.kind, id.value)
}
