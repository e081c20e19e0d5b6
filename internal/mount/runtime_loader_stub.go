//go:build windows

package mount

import (
	"errors"

	"github.com/haasonsaas/pluginhost/internal/abi"
)

// ErrUnsupportedPlatform is returned by LoadImage on platforms where Go's
// plugin package does not support opening shared libraries.
var ErrUnsupportedPlatform = errors.New("plugin loading is not supported on this platform")

// LoadImage always fails on windows: Go's plugin package only supports
// linux/darwin/freebsd, mirroring the teacher's runtime_loader_stub.go.
func LoadImage(path string) (abi.PluginImage, error) {
	return nil, ErrUnsupportedPlatform
}
