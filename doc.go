// Package pen provides access to graphics tablets, styli and pads for Go.
//
// # Overview
//
// pen is a Pure Go tablet input library designed to integrate with the
// GoGPU ecosystem. It normalizes the pressure, tilt, button and pad
// hardware exposed by Wayland (tablet-unstable-v2), X11 (XInput2) and
// Windows Ink (RealTimeStylus) into one uniform, pull-based event model.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/pen"
//
//	    // Link the platform backends you want available.
//	    _ "github.com/gogpu/pen/backend/wayland"
//	    _ "github.com/gogpu/pen/backend/xinput2"
//	)
//
//	m, err := pen.NewManager()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	for { // once per frame of your event loop
//	    if err := m.Pump(); err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, ev := range m.Events() {
//	        switch ev := ev.(type) {
//	        case pen.ToolEvent:
//	            if ev.Kind == pen.ToolPose {
//	                draw(ev.Pose.Position, ev.Pose.Pressure.Or(1))
//	            }
//	        }
//	    }
//	}
//
// # Architecture
//
// The library is organized into:
//   - Public API: Manager, Tool, Tablet, Pad, Pose, Event
//   - Backends: backend/wayland, backend/xinput2, backend/ink
//   - Internal: construct (device announcement), frame (event grouping),
//     calib (axis calibration), quirks (per-platform heuristic tables)
//
// Backends register themselves on import; pen.NewManager picks the first
// one that reports itself usable on the running system.
//
// # Threading
//
// A Manager is single-threaded by design. Pump, Events and the hardware
// accessors must all be called from the goroutine that created the
// Manager. Backends that receive data on foreign threads (Windows Ink)
// hide that behind Pump.
//
// # Coordinate System
//
// Positions are in pixels from the top left of the associated window
// surface and may carry subpixel precision. Angles are in radians.
package pen

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
