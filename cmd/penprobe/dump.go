package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/pen"
	"github.com/gogpu/pen/summary"
)

func newDumpCmd() *cobra.Command {
	var showSummary bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Pretty-print the live event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()
			fmt.Printf("backend: %s\n", m.Backend())
			if g, ok := m.TimestampGranularity(); ok {
				fmt.Printf("timestamps: %v granularity\n", g)
			} else {
				fmt.Println("timestamps: none")
			}

			var red summary.Reducer
			last := time.Now()
			return pumpLoop(m, func(events []pen.Event) error {
				for _, ev := range events {
					fmt.Println(describe(ev))
				}
				if !showSummary {
					return nil
				}
				red.Observe(events)
				if time.Since(last) >= time.Second {
					last = time.Now()
					printSummary(red.Take())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showSummary, "summary", false, "print a reduced state line every second")
	return cmd
}

func describe(ev pen.Event) string {
	switch e := ev.(type) {
	case pen.ToolEvent:
		var b strings.Builder
		fmt.Fprintf(&b, "tool %v %s", e.Tool.ID, e.Kind)
		switch e.Kind {
		case pen.ToolAdded:
			fmt.Fprintf(&b, " type=%s axes=%s", e.Tool.Type, e.Tool.Available)
		case pen.ToolIn, pen.ToolOut:
			fmt.Fprintf(&b, " tablet=%v", e.Tablet.ID)
		case pen.ToolButton:
			fmt.Fprintf(&b, " button=%d pressed=%v", e.Button, e.Pressed)
		case pen.ToolPose:
			fmt.Fprintf(&b, " pos=(%.2f,%.2f) pressure=%s",
				e.Pose.Position[0], e.Pose.Position[1], e.Pose.Pressure)
			if e.Pose.HasTilt {
				fmt.Fprintf(&b, " tilt=(%.3f,%.3f)", e.Pose.Tilt[0], e.Pose.Tilt[1])
			}
		case pen.ToolFrame:
			if e.HasTime {
				fmt.Fprintf(&b, " t=%v", time.Duration(e.Time))
			}
		}
		return b.String()
	case pen.TabletEvent:
		s := fmt.Sprintf("tablet %v %s", e.Tablet.ID, e.Kind)
		if e.Kind == pen.TabletAdded {
			s += fmt.Sprintf(" name=%q", e.Tablet.Name)
			if e.Tablet.HasUSB {
				s += fmt.Sprintf(" usb=%04x:%04x", e.Tablet.USB.Vendor, e.Tablet.USB.Product)
			}
		}
		return s
	case pen.PadEvent:
		var b strings.Builder
		fmt.Fprintf(&b, "pad %v %s", e.Pad.ID, e.Kind)
		switch e.Kind {
		case pen.PadButton:
			fmt.Fprintf(&b, " button=%d pressed=%v", e.Button, e.Pressed)
		case pen.PadGroupMode:
			fmt.Fprintf(&b, " group=%v mode=%d", e.Group.ID, e.Mode)
		case pen.PadRingPose:
			fmt.Fprintf(&b, " ring=%v angle=%.3f", e.Ring.ID, e.Position)
		case pen.PadStripPose:
			fmt.Fprintf(&b, " strip=%v pos=%.3f", e.Strip.ID, e.Position)
		case pen.PadEnter:
			fmt.Fprintf(&b, " tablet=%v", e.Tablet.ID)
		}
		return b.String()
	default:
		return fmt.Sprintf("%#v", ev)
	}
}

func printSummary(s summary.Summary) {
	var b strings.Builder
	b.WriteString("-- state:")
	if t := s.Tool; t != nil {
		fmt.Fprintf(&b, " tool=%v down=%v pos=(%.1f,%.1f) pressure=%s",
			t.Tool.ID, t.Down, t.Pose.Position[0], t.Pose.Position[1], t.Pose.Pressure)
		if len(t.PressedButtons) > 0 {
			fmt.Fprintf(&b, " buttons=%v", t.PressedButtons)
		}
	} else {
		b.WriteString(" no tool in range")
	}
	for _, p := range s.Pads {
		for _, g := range p.Groups {
			for _, r := range g.Rings {
				if d, ok := r.Delta.Get(); ok {
					fmt.Fprintf(&b, " ring-slide=%.3f", d)
				}
			}
		}
	}
	fmt.Println(b.String())
}
