//go:build !linux

package wayland

import "errors"

// dial always fails off Linux; compositors live there.
func dial(string) (wconn, error) {
	return nil, errors.New("wayland compositors are not available on this OS")
}
