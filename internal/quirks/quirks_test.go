package quirks

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTablesParse(t *testing.T) {
	xw := XWayland()
	require.Equal(t, 1, xw.Version)
	require.Equal(t, "xwayland-tablet", xw.Prefix)
	require.NotEmpty(t, xw.Rules)

	ink := Ink()
	require.Equal(t, 1, ink.Version)
	require.Equal(t, "status", ink.Properties[len(ink.Properties)-1].Name)
	require.Equal(t, uint32(1), ink.Status.Down)
	require.Equal(t, uint32(2), ink.Status.Inverted)
}

func TestXWaylandMatch(t *testing.T) {
	xw := XWayland()
	tests := []struct {
		name  string
		class DeviceClass
		seat  int
		ok    bool
	}{
		{"xwayland-tablet stylus:33", ClassStylus, 33, true},
		{"xwayland-tablet eraser:0", ClassEraser, 0, true},
		{"xwayland-tablet cursor:7", ClassCursor, 7, true},
		{"xwayland-tablet-pad:2", ClassPad, 2, true},
		{"Wacom Intuos Pro M Pen stylus", "", 0, false},
		{"xwayland-tablet frobnicator:1", "", 0, false},
		{"xwayland-tablet stylus:many", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, seat, ok := xw.Match(tt.name)
			require.Equal(t, tt.ok, ok)
			if ok {
				require.Equal(t, tt.class, class)
				require.Equal(t, tt.seat, seat)
			}
		})
	}
}

func TestInkFindWellKnownProperties(t *testing.T) {
	ink := Ink()

	ix, x, ok := ink.Find("x")
	require.True(t, ok)
	require.Equal(t, 0, ix)
	require.Equal(t, uuid.MustParse("598a6a8f-52c0-4ba0-93af-af357411a561"), x.GUID.UUID)

	_, p, ok := ink.Find("pressure")
	require.True(t, ok)
	require.Equal(t, uuid.MustParse("7307502d-f9f4-4e18-b3f2-2ce1b1a3610c"), p.GUID.UUID)

	_, _, ok = ink.Find("no-such-property")
	require.False(t, ok)
}

func TestLoadInkRejectsMisplacedStatus(t *testing.T) {
	const doc = `
version: 2
properties:
  - name: status
    guid: 6e0e07bf-afe7-4cf7-87d1-af6446208418
  - name: x
    guid: 598a6a8f-52c0-4ba0-93af-af357411a561
`
	_, err := LoadInk(strings.NewReader(doc))
	require.Error(t, err)
}

func TestLoadXWaylandOverride(t *testing.T) {
	const doc = `
version: 2
prefix: "xwayland-tablet"
seat_separator: ":"
rules:
  - suffix: " airbrush"
    class: stylus
`
	tab, err := LoadXWayland(strings.NewReader(doc))
	require.NoError(t, err)
	class, seat, ok := tab.Match("xwayland-tablet airbrush:4")
	require.True(t, ok)
	require.Equal(t, ClassStylus, class)
	require.Equal(t, 4, seat)
}
