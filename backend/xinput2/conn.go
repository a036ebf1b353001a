//go:build linux

package xinput2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// dial opens the display socket named by display (or $DISPLAY) and
// returns the connection together with the MIT-MAGIC-COOKIE-1
// credentials for it, when the authority file has any.
func dial(display string) (xconn, string, []byte, error) {
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	if display == "" {
		return nil, "", nil, errors.New("DISPLAY not set")
	}
	num, err := displayNumber(display)
	if err != nil {
		return nil, "", nil, err
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, "", nil, fmt.Errorf("socket: %w", err)
	}
	path := "/tmp/.X11-unix/X" + strconv.Itoa(num)
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, "", nil, fmt.Errorf("connect %s: %w", path, err)
	}

	name, data := authCookie(num)
	return &fdConn{fd: fd}, name, data, nil
}

// displayNumber extracts N from ":N" or ":N.S". Remote displays are
// not supported; tablet access needs a local server anyway.
func displayNumber(display string) (int, error) {
	i := strings.LastIndexByte(display, ':')
	if i < 0 {
		return 0, fmt.Errorf("malformed display %q", display)
	}
	if i > 0 {
		return 0, fmt.Errorf("remote display %q not supported", display)
	}
	num := display[i+1:]
	if j := strings.IndexByte(num, '.'); j >= 0 {
		num = num[:j]
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, fmt.Errorf("malformed display %q", display)
	}
	return n, nil
}

// authCookie scans the X authority file for a MIT-MAGIC-COOKIE-1 entry
// matching the display number. Absent or unreadable authority means an
// empty credential, which open local servers accept.
func authCookie(display int) (string, []byte) {
	path := os.Getenv("XAUTHORITY")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", nil
		}
		path = filepath.Join(home, ".Xauthority")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil
	}
	defer f.Close()

	want := strconv.Itoa(display)
	// Entries are family, address, display, name, data; counted fields
	// carry big-endian 16-bit lengths.
	field := func() ([]byte, error) {
		var n [2]byte
		if _, err := io.ReadFull(f, n[:]); err != nil {
			return nil, err
		}
		b := make([]byte, binary.BigEndian.Uint16(n[:]))
		if _, err := io.ReadFull(f, b); err != nil {
			return nil, err
		}
		return b, nil
	}
	for {
		var family [2]byte
		if _, err := io.ReadFull(f, family[:]); err != nil {
			return "", nil
		}
		addr, err := field()
		if err != nil {
			return "", nil
		}
		num, err := field()
		if err != nil {
			return "", nil
		}
		name, err := field()
		if err != nil {
			return "", nil
		}
		data, err := field()
		if err != nil {
			return "", nil
		}
		_ = addr
		if string(name) != "MIT-MAGIC-COOKIE-1" {
			continue
		}
		if len(num) != 0 && string(num) != want {
			continue
		}
		return string(name), data
	}
}

// fdConn adapts the raw socket fd and adds readiness polling so Pump
// can drain pending messages without blocking.
type fdConn struct {
	fd int
}

func (c *fdConn) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 && len(p) > 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

func (c *fdConn) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := unix.Write(c.fd, p[total:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (c *fdConn) Readable() (bool, error) {
	for {
		fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0, nil
	}
}

func (c *fdConn) Close() error { return unix.Close(c.fd) }
