package pen

import "sort"

// Pad is the collection of extra controls a tablet provides on its body:
// buttons, mode toggles, rings and strips. Typically zero or one per
// tablet, and pads may come and go while the tablet stays.
//
// A pad is divided into one or more Groups when several physical
// clusters of controls can switch modes independently.
type Pad struct {
	// ID is the connection-unique identity of this pad.
	ID ID

	// Buttons is the total number of buttons across all groups.
	Buttons uint32

	// Groups of controls. Always at least one on a valid pad.
	Groups []*Group
}

// Group is one mode-switchable cluster of pad controls.
type Group struct {
	// ID is the connection-unique identity of this group.
	ID ID

	// Buttons holds the pad-global indices of the buttons in this
	// group, sorted ascending. Buttons in no group belong to the pad
	// itself.
	Buttons []uint32

	// Rings owned by this group.
	Rings []*Ring

	// Strips owned by this group.
	Strips []*Strip

	// Modes is the number of modes the group cycles through, or zero
	// when the group has no mode switching.
	Modes uint32
}

// HasButton reports whether the pad-global button index belongs to this
// group.
func (g *Group) HasButton(idx uint32) bool {
	i := sort.Search(len(g.Buttons), func(i int) bool { return g.Buttons[i] >= idx })
	return i < len(g.Buttons) && g.Buttons[i] == idx
}

// Ring is a circular touch control on a pad, reporting an absolute angle
// in radians, clockwise from "logical north".
type Ring struct {
	// ID is the connection-unique identity of this ring.
	ID ID

	// Granularity of the reported angle, zero when unknown.
	Granularity Granularity
}

// Strip is a linear touch control on a pad, reporting an absolute
// position normalized 0..1.
type Strip struct {
	// ID is the connection-unique identity of this strip.
	ID ID

	// Granularity of the reported position, zero when unknown.
	Granularity Granularity
}

// GroupOf returns the group owning the pad-global button index, or nil
// when the button belongs to the pad itself.
func (p *Pad) GroupOf(idx uint32) *Group {
	for _, g := range p.Groups {
		if g.HasButton(idx) {
			return g
		}
	}
	return nil
}
