//go:build !linux

package tunping

import (
	"errors"

	"github.com/songgao/water"

	"tunping/config"
)

var ErrUnsupportedPlatform = errors.New("virtual interfaces are only supported on linux")

func OpenInterface(_ config.Interface) (*water.Interface, error) {
	return nil, ErrUnsupportedPlatform
}
