package wayland

import (
	"bytes"
	"testing"
)

func TestRequestEncodesHeader(t *testing.T) {
	buf, err := newRequest(1, reqDisplayGetRegistry).Uint32(2).bytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 12 {
		t.Fatalf("len = %d, want 12", len(buf))
	}
	if got := order.Uint32(buf[0:]); got != 1 {
		t.Errorf("object = %d, want 1", got)
	}
	sizeOp := order.Uint32(buf[4:])
	if got := sizeOp >> 16; got != 12 {
		t.Errorf("size = %d, want 12", got)
	}
	if got := sizeOp & 0xffff; got != reqDisplayGetRegistry {
		t.Errorf("opcode = %d, want %d", got, reqDisplayGetRegistry)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	buf, err := newRequest(3, 7).
		Uint32(42).
		Int32(-1).
		String("zwp_tablet_manager_v2").
		bytes()
	if err != nil {
		t.Fatal(err)
	}
	m, err := readMessage(bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	if m.object != 3 || m.opcode != 7 {
		t.Fatalf("header = %d/%d, want 3/7", m.object, m.opcode)
	}
	args := m.args()
	if got := args.Uint32(); got != 42 {
		t.Errorf("uint32 = %d, want 42", got)
	}
	if got := args.Int32(); got != -1 {
		t.Errorf("int32 = %d, want -1", got)
	}
	if got := args.String(); got != "zwp_tablet_manager_v2" {
		t.Errorf("string = %q", got)
	}
	if err := args.Err(); err != nil {
		t.Errorf("args err = %v", err)
	}
}

func TestStringPadding(t *testing.T) {
	// "abc" plus NUL is exactly one word; "abcd" plus NUL needs two.
	for _, tt := range []struct {
		s    string
		want int
	}{
		{"abc", 8 + 4 + 4},
		{"abcd", 8 + 4 + 8},
		{"", 8 + 4 + 4},
	} {
		buf, err := newRequest(1, 0).String(tt.s).bytes()
		if err != nil {
			t.Fatal(err)
		}
		if len(buf) != tt.want {
			t.Errorf("String(%q) size = %d, want %d", tt.s, len(buf), tt.want)
		}
		m, err := readMessage(bytes.NewReader(buf))
		if err != nil {
			t.Fatal(err)
		}
		args := m.args()
		if got := args.String(); got != tt.s {
			t.Errorf("round trip = %q, want %q", got, tt.s)
		}
	}
}

func TestFixedDecoding(t *testing.T) {
	buf, _ := newRequest(1, 0).Int32(384).Int32(-256).bytes()
	m, _ := readMessage(bytes.NewReader(buf))
	args := m.args()
	if got := args.Fixed(); got != 1.5 {
		t.Errorf("Fixed = %v, want 1.5", got)
	}
	if got := args.Fixed(); got != -1 {
		t.Errorf("Fixed = %v, want -1", got)
	}
}

func TestTruncatedArgsPoisonReader(t *testing.T) {
	buf, _ := newRequest(1, 0).Uint32(5).bytes()
	m, _ := readMessage(bytes.NewReader(buf))
	args := m.args()
	args.Uint32()
	args.Uint32() // past the end
	if args.Err() == nil {
		t.Error("reading past the end should set Err")
	}
}

func TestBadMessageSizeRejected(t *testing.T) {
	var head [8]byte
	order.PutUint32(head[0:], 1)
	order.PutUint32(head[4:], 4<<16) // size below header size
	if _, err := readMessage(bytes.NewReader(head[:])); err == nil {
		t.Error("undersized message should be rejected")
	}
}
