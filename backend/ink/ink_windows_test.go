//go:build windows

package ink

import (
	"errors"
	"testing"

	"github.com/gogpu/pen"
)

func TestPoisonedBackendGoesDark(t *testing.T) {
	b := &Backend{}
	// Snapshots as a healthy pump would have left them.
	b.outTools = []*pen.Tool{{ID: pen.InkStylusID(1, 0)}}
	b.outTablets = []*pen.Tablet{{ID: pen.InkTabletID(1)}}
	b.events = []pen.RawEvent{{Kind: pen.RawToolAdded}}
	b.outTimer = true

	// A panic on the stylus thread flags the backend dead.
	func() {
		defer b.recoverPoison()
		panic("stylus thread fault")
	}()

	err := b.Pump()
	if !errors.Is(err, pen.ErrPoisoned) {
		t.Fatalf("Pump() = %v, want ErrPoisoned", err)
	}
	if got := b.Tools(); len(got) != 0 {
		t.Errorf("Tools() after poison = %d entries, want none", len(got))
	}
	if got := b.Tablets(); len(got) != 0 {
		t.Errorf("Tablets() after poison = %d entries, want none", len(got))
	}
	if got := b.RawEvents(); len(got) != 0 {
		t.Errorf("RawEvents() after poison = %d entries, want none", len(got))
	}
	if _, ok := b.TimestampGranularity(); ok {
		t.Error("TimestampGranularity() still known after poison")
	}
}
