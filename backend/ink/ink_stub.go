//go:build !windows

package ink

import (
	"fmt"

	"github.com/gogpu/pen"
)

func newPlatform(*pen.Config) (pen.Backend, error) {
	return nil, fmt.Errorf("%w: the RealTimeStylus exists only on Windows", pen.ErrUnsupported)
}
