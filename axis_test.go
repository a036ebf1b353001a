package pen

import "testing"

func TestAxisSet(t *testing.T) {
	s := NewAxisSet(AxisPressure, AxisTilt, AxisSlider)
	for _, a := range []Axis{AxisPressure, AxisTilt, AxisSlider} {
		if !s.Has(a) {
			t.Errorf("set should contain %v", a)
		}
	}
	for _, a := range []Axis{AxisDistance, AxisRoll, AxisWheel, AxisButtonPressure, AxisContactSize} {
		if s.Has(a) {
			t.Errorf("set should not contain %v", a)
		}
	}
	got := s.Axes()
	want := []Axis{AxisPressure, AxisTilt, AxisSlider}
	if len(got) != len(want) {
		t.Fatalf("Axes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Axes() = %v, want %v", got, want)
		}
	}
}

func TestLimitsUnion(t *testing.T) {
	tests := []struct {
		name string
		a, b Limits
		want Limits
	}{
		{"disjoint", Limits{0, 1}, Limits{2, 3}, Limits{0, 3}},
		{"contained", Limits{-1, 1}, Limits{-0.5, 0.5}, Limits{-1, 1}},
		{"overlapping", Limits{-1, 0.5}, Limits{0, 2}, Limits{-1, 2}},
		{"identical", Limits{0, 1}, Limits{0, 1}, Limits{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Union(tt.b); got != tt.want {
				t.Errorf("Union = %+v, want %+v", got, tt.want)
			}
			if got := tt.b.Union(tt.a); got != tt.want {
				t.Errorf("Union (flipped) = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToolSetAxisUnionsLimits(t *testing.T) {
	tool := &Tool{ID: WaylandID(1)}
	tool.SetAxis(AxisTilt, AxisInfo{
		Unit: UnitRadians, Limits: Limits{-1, 0.5}, HasLimits: true,
	})
	tool.SetAxis(AxisTilt, AxisInfo{
		Unit: UnitRadians, Limits: Limits{-0.25, 1}, HasLimits: true,
	})
	info, ok := tool.Axis(AxisTilt)
	if !ok {
		t.Fatal("tilt should be available")
	}
	if info.Limits != (Limits{-1, 1}) {
		t.Errorf("limits = %+v, want {-1 1}", info.Limits)
	}
}

func TestToolAxisUnavailable(t *testing.T) {
	tool := &Tool{ID: WaylandID(1)}
	if _, ok := tool.Axis(AxisRoll); ok {
		t.Error("roll should not be available on an empty tool")
	}
}
