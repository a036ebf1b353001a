package xinput2

import (
	"encoding/binary"
	"fmt"
	"io"
)

// The client announces little-endian in the setup request, so every
// message in both directions is little-endian.
var order = binary.LittleEndian

// Core messages are 32 bytes; replies and generic events carry an
// additional length counted in 4-byte units.
const (
	messageSize = 32
	maxExtra    = 1 << 22
)

// message is one server-to-client wire message, already length-complete.
type message struct {
	kind   byte
	detail byte
	seq    uint16
	// data holds the full message including the 32-byte head.
	data []byte
}

// readMessage reads the next server message, following the extended
// length of replies and generic events.
func readMessage(r io.Reader) (message, error) {
	var head [messageSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return message{}, err
	}
	m := message{
		kind:   head[0] &^ 0x80, // high bit flags a synthetic event
		detail: head[1],
		seq:    order.Uint16(head[2:]),
		data:   head[:],
	}
	if m.kind == msgReply || m.kind == msgGenericEvent {
		extra := order.Uint32(head[4:])
		if extra > maxExtra {
			return message{}, fmt.Errorf("xinput2: message length %d exceeds limit", extra)
		}
		if extra > 0 {
			data := make([]byte, messageSize+int(extra)*4)
			copy(data, head[:])
			if _, err := io.ReadFull(r, data[messageSize:]); err != nil {
				return message{}, err
			}
			m.data = data
		}
	}
	return m, nil
}

// args positions a cursor after the fixed reply head.
func (m *message) args(offset int) *cursor {
	return &cursor{data: m.data, pos: offset}
}

// cursor walks reply bytes, poisoning itself on overrun so callers can
// decode unconditionally and check once.
type cursor struct {
	data []byte
	pos  int
	err  error
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.pos+n > len(c.data) {
		c.err = fmt.Errorf("xinput2: message truncated at byte %d", c.pos)
		return nil
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) Uint8() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) Uint16() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return order.Uint16(b)
}

func (c *cursor) Uint32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return order.Uint32(b)
}

func (c *cursor) Int32() int32 { return int32(c.Uint32()) }

// FP3232 decodes the XI2 32.32 fixed-point format.
func (c *cursor) FP3232() float64 {
	integral := c.Int32()
	frac := c.Uint32()
	return float64(integral) + float64(frac)/(1<<32)
}

// FP1616 decodes the XI2 16.16 fixed-point format.
func (c *cursor) FP1616() float32 {
	return float32(c.Int32()) / (1 << 16)
}

func (c *cursor) Skip(n int) { c.take(n) }

func (c *cursor) String(n int) string {
	b := c.take(n)
	return string(b)
}

func (c *cursor) Err() error { return c.err }

// Pos returns the current byte offset.
func (c *cursor) Pos() int { return c.pos }

// Seek jumps to an absolute offset, poisoning on overrun. Used to skip
// to the declared end of variable-length substructures.
func (c *cursor) Seek(pos int) {
	if c.err != nil {
		return
	}
	if pos < 0 || pos > len(c.data) {
		c.err = fmt.Errorf("xinput2: seek to %d outside message of %d bytes", pos, len(c.data))
		return
	}
	c.pos = pos
}

func pad4(n int) int { return (n + 3) &^ 3 }

// request builds a core or extension request. The length field at
// offset 2 is patched when the bytes are taken.
type request struct {
	buf []byte
}

// newRequest starts a core request. The second byte is
// request-specific data for core requests.
func newRequest(opcode, data byte) *request {
	return &request{buf: []byte{opcode, data, 0, 0}}
}

// newExtRequest starts an extension request; the second byte selects
// the minor opcode.
func newExtRequest(major, minor byte) *request {
	return newRequest(major, minor)
}

func (r *request) Uint8(v uint8) *request {
	r.buf = append(r.buf, v)
	return r
}

func (r *request) Uint16(v uint16) *request {
	r.buf = order.AppendUint16(r.buf, v)
	return r
}

func (r *request) Uint32(v uint32) *request {
	r.buf = order.AppendUint32(r.buf, v)
	return r
}

// String appends raw bytes padded to the 4-byte boundary. Length
// prefixes are request-specific and written by the caller.
func (r *request) String(s string) *request {
	r.buf = append(r.buf, s...)
	for len(r.buf)%4 != 0 {
		r.buf = append(r.buf, 0)
	}
	return r
}

// Pad appends n zero bytes.
func (r *request) Pad(n int) *request {
	for i := 0; i < n; i++ {
		r.buf = append(r.buf, 0)
	}
	return r
}

func (r *request) bytes() ([]byte, error) {
	if len(r.buf)%4 != 0 {
		return nil, fmt.Errorf("xinput2: request size %d not a multiple of 4", len(r.buf))
	}
	if len(r.buf)/4 > 0xffff {
		return nil, fmt.Errorf("xinput2: request size %d exceeds core limit", len(r.buf))
	}
	order.PutUint16(r.buf[2:], uint16(len(r.buf)/4))
	return r.buf, nil
}

// setupRequest encodes the connection handshake with the given
// authorization protocol.
func setupRequest(authName string, authData []byte) []byte {
	r := &request{}
	r.buf = []byte{'l', 0}
	r.Uint16(11).Uint16(0) // protocol 11.0
	r.Uint16(uint16(len(authName)))
	r.Uint16(uint16(len(authData)))
	r.Uint16(0)
	r.String(authName)
	r.String(string(authData))
	return r.buf
}

// setupInfo is the slice of the connection setup the backend needs.
type setupInfo struct {
	root uint32
}

// readSetup consumes and validates the server's setup response,
// extracting the first screen's root window.
func readSetup(r io.Reader) (setupInfo, error) {
	var head [8]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return setupInfo{}, err
	}
	extra := int(order.Uint16(head[6:])) * 4
	body := make([]byte, extra)
	if _, err := io.ReadFull(r, body); err != nil {
		return setupInfo{}, err
	}
	switch head[0] {
	case 1:
		// success
	case 0:
		n := int(head[1])
		if n > len(body) {
			n = len(body)
		}
		return setupInfo{}, fmt.Errorf("xinput2: server refused connection: %s", body[:n])
	default:
		return setupInfo{}, fmt.Errorf("xinput2: server requires further authentication")
	}

	c := &cursor{data: body}
	c.Skip(4) // release number
	c.Skip(8) // resource id base and mask
	c.Skip(4) // motion buffer size
	vendorLen := int(c.Uint16())
	c.Skip(2) // maximum request length
	numScreens := c.Uint8()
	numFormats := c.Uint8()
	c.Skip(4) // image and bitmap format ordering
	c.Skip(2) // keycode range
	c.Skip(4) // unused
	c.Skip(pad4(vendorLen))
	c.Skip(int(numFormats) * 8)
	if numScreens == 0 {
		return setupInfo{}, fmt.Errorf("xinput2: server reports no screens")
	}
	root := c.Uint32()
	if err := c.Err(); err != nil {
		return setupInfo{}, err
	}
	return setupInfo{root: root}, nil
}
