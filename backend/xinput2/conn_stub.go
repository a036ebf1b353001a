//go:build !linux

package xinput2

import "errors"

// dial always fails off Linux; the input extension backend targets X
// servers on that platform only.
func dial(string) (xconn, string, []byte, error) {
	return nil, "", nil, errors.New("X11 displays are not available on this OS")
}
