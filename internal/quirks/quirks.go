// Package quirks holds the versioned heuristics tables the backends
// need for hardware the platform does not describe properly: the
// device naming scheme XWayland uses when forwarding tablets into X,
// and the packet property layout of the RealTimeStylus.
//
// The tables ship embedded but load from YAML, so they can be revised
// without touching backend code and overridden at runtime for devices
// we have not met yet.
package quirks

import (
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed xwayland.yaml
var xwaylandYAML []byte

//go:embed inkprops.yaml
var inkpropsYAML []byte

// DeviceClass is the role a heuristic assigns to a device.
type DeviceClass string

const (
	ClassStylus DeviceClass = "stylus"
	ClassEraser DeviceClass = "eraser"
	ClassCursor DeviceClass = "cursor"
	ClassPad    DeviceClass = "pad"
	ClassTouch  DeviceClass = "touch"
)

// XWaylandRule maps a device name suffix to a class.
type XWaylandRule struct {
	Suffix string      `yaml:"suffix"`
	Class  DeviceClass `yaml:"class"`
}

// XWaylandTable classifies the virtual devices XWayland creates for
// forwarded tablet hardware by name.
type XWaylandTable struct {
	Version       int            `yaml:"version"`
	Prefix        string         `yaml:"prefix"`
	SeatSeparator string         `yaml:"seat_separator"`
	Rules         []XWaylandRule `yaml:"rules"`
}

// Match classifies an X device name. Returns the class and the seat
// number parsed from the name, or ok false when the name does not
// follow the XWayland scheme.
func (t *XWaylandTable) Match(name string) (class DeviceClass, seat int, ok bool) {
	if !strings.HasPrefix(name, t.Prefix) {
		return "", 0, false
	}
	body := name
	if i := strings.LastIndex(name, t.SeatSeparator); i >= 0 {
		n, err := strconv.Atoi(name[i+len(t.SeatSeparator):])
		if err != nil {
			return "", 0, false
		}
		seat = n
		body = name[:i]
	}
	for _, r := range t.Rules {
		if strings.HasSuffix(body, r.Suffix) {
			return r.Class, seat, true
		}
	}
	return "", 0, false
}

// GUID wraps uuid.UUID for YAML decoding; yaml.v3 does not consult
// encoding.TextUnmarshaler on its own.
type GUID struct {
	uuid.UUID
}

func (g *GUID) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("quirks: bad guid %q: %w", s, err)
	}
	g.UUID = u
	return nil
}

// InkProperty is one requested packet property: its role and the GUID
// the RealTimeStylus knows it by.
type InkProperty struct {
	Name string `yaml:"name"`
	GUID GUID   `yaml:"guid"`
}

// InkStatusBits is the layout of the packet status word.
type InkStatusBits struct {
	Down     uint32 `yaml:"down"`
	Inverted uint32 `yaml:"inverted"`
	Barrel   uint32 `yaml:"barrel"`
}

// InkTable is the packet property layout requested from the
// RealTimeStylus. Property order here is the word order in packets.
type InkTable struct {
	Version    int           `yaml:"version"`
	Properties []InkProperty `yaml:"properties"`
	Status     InkStatusBits `yaml:"status"`
}

// Find returns the index and property with the given role name.
func (t *InkTable) Find(name string) (int, *InkProperty, bool) {
	for i := range t.Properties {
		if t.Properties[i].Name == name {
			return i, &t.Properties[i], true
		}
	}
	return 0, nil, false
}

var (
	xwOnce sync.Once
	xwTab  *XWaylandTable

	inkOnce sync.Once
	inkTab  *InkTable
)

// XWayland returns the embedded XWayland naming table. The table is
// shared; treat it as read-only.
func XWayland() *XWaylandTable {
	xwOnce.Do(func() {
		t, err := LoadXWayland(strings.NewReader(string(xwaylandYAML)))
		if err != nil {
			// Embedded tables are validated by tests; a parse
			// failure here is a build defect.
			panic(fmt.Sprintf("quirks: embedded xwayland table: %v", err))
		}
		xwTab = t
	})
	return xwTab
}

// Ink returns the embedded RealTimeStylus property table. The table is
// shared; treat it as read-only.
func Ink() *InkTable {
	inkOnce.Do(func() {
		t, err := LoadInk(strings.NewReader(string(inkpropsYAML)))
		if err != nil {
			panic(fmt.Sprintf("quirks: embedded ink table: %v", err))
		}
		inkTab = t
	})
	return inkTab
}

// LoadXWayland parses an XWayland naming table from YAML, for callers
// overriding the embedded one.
func LoadXWayland(r io.Reader) (*XWaylandTable, error) {
	var t XWaylandTable
	if err := decode(r, &t); err != nil {
		return nil, err
	}
	if t.Prefix == "" || len(t.Rules) == 0 {
		return nil, fmt.Errorf("quirks: xwayland table missing prefix or rules")
	}
	return &t, nil
}

// LoadInk parses a RealTimeStylus property table from YAML, for
// callers overriding the embedded one.
func LoadInk(r io.Reader) (*InkTable, error) {
	var t InkTable
	if err := decode(r, &t); err != nil {
		return nil, err
	}
	if len(t.Properties) == 0 {
		return nil, fmt.Errorf("quirks: ink table has no properties")
	}
	if t.Properties[len(t.Properties)-1].Name != "status" {
		return nil, fmt.Errorf("quirks: ink table must end with the status word")
	}
	return &t, nil
}

func decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec.Decode(v)
}
