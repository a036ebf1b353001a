package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Wire format: every message is a 32-bit object id, then a word packing
// the total byte size in the high half and the opcode in the low half,
// then the arguments. Arguments are 32-bit words except strings and
// arrays, which carry a length word and pad their payload to a word
// boundary. Byte order is the host's; this implementation assumes
// little-endian, which covers every platform Go targets that also runs
// a Wayland compositor.
var order = binary.LittleEndian

const headerSize = 8

// maxMessageSize bounds a single message. The size field is 16 bits,
// so nothing larger can be framed anyway; treat it as corruption.
const maxMessageSize = 1 << 16

var errTruncated = errors.New("wayland: truncated message")

// message is one decoded event from the compositor.
type message struct {
	object uint32
	opcode uint16
	data   []byte
}

// readMessage decodes the next message from r. The returned data slice
// is freshly allocated.
func readMessage(r io.Reader) (message, error) {
	var head [headerSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return message{}, err
	}
	object := order.Uint32(head[0:])
	sizeOp := order.Uint32(head[4:])
	size := int(sizeOp >> 16)
	opcode := uint16(sizeOp & 0xffff)
	if size < headerSize || size > maxMessageSize {
		return message{}, fmt.Errorf("wayland: bad message size %d", size)
	}
	data := make([]byte, size-headerSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return message{}, err
	}
	return message{object: object, opcode: opcode, data: data}, nil
}

// argReader walks the argument words of a message. Decoding past the
// end poisons the reader; check Err once after the last argument.
type argReader struct {
	data []byte
	err  error
}

func (m *message) args() argReader { return argReader{data: m.data} }

func (a *argReader) Err() error { return a.err }

func (a *argReader) take(n int) []byte {
	if a.err != nil {
		return nil
	}
	if len(a.data) < n {
		a.err = errTruncated
		return nil
	}
	out := a.data[:n]
	a.data = a.data[n:]
	return out
}

func (a *argReader) Uint32() uint32 {
	b := a.take(4)
	if b == nil {
		return 0
	}
	return order.Uint32(b)
}

func (a *argReader) Int32() int32 { return int32(a.Uint32()) }

// Fixed decodes a signed 24.8 fixed point argument as float32.
func (a *argReader) Fixed() float32 {
	return float32(a.Int32()) / 256
}

// String decodes a length-prefixed, NUL-terminated, padded string.
func (a *argReader) String() string {
	n := int(a.Uint32())
	if a.err != nil {
		return ""
	}
	if n == 0 {
		return ""
	}
	b := a.take(pad4(n))
	if b == nil {
		return ""
	}
	// Length includes the terminating NUL.
	return string(b[:n-1])
}

// Array decodes a length-prefixed, padded byte array.
func (a *argReader) Array() []byte {
	n := int(a.Uint32())
	if a.err != nil {
		return nil
	}
	b := a.take(pad4(n))
	if b == nil {
		return nil
	}
	return b[:n]
}

func pad4(n int) int { return (n + 3) &^ 3 }

// request builds an outgoing message.
type request struct {
	buf []byte
}

func newRequest(object uint32, opcode uint16) *request {
	r := &request{buf: make([]byte, headerSize, 32)}
	order.PutUint32(r.buf[0:], object)
	order.PutUint32(r.buf[4:], uint32(opcode)) // size patched in bytes()
	return r
}

func (r *request) Uint32(v uint32) *request {
	r.buf = order.AppendUint32(r.buf, v)
	return r
}

func (r *request) Int32(v int32) *request { return r.Uint32(uint32(v)) }

func (r *request) String(s string) *request {
	n := len(s) + 1
	r.Uint32(uint32(n))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, make([]byte, pad4(n)-len(s))...)
	return r
}

func (r *request) bytes() ([]byte, error) {
	if len(r.buf) > maxMessageSize {
		return nil, fmt.Errorf("wayland: request too large (%d bytes)", len(r.buf))
	}
	opcode := order.Uint32(r.buf[4:]) & 0xffff
	order.PutUint32(r.buf[4:], uint32(len(r.buf))<<16|opcode)
	return r.buf, nil
}
