//go:build !windows

package mount

import (
	"fmt"
	"plugin"

	"github.com/haasonsaas/pluginhost/internal/abi"
)

const pluginMainSymbol = "PluginMain"

// nativeImage adapts a resolved PluginMain symbol to the abi.PluginImage
// interface.
type nativeImage struct {
	main func(abi.PluginID) (abi.PluginManifest, error)
}

func (n nativeImage) PluginMain(id abi.PluginID) (abi.PluginManifest, error) {
	return n.main(id)
}

// LoadImage opens a shared library and resolves its PluginMain entry
// point, grounded on the teacher's internal/plugins/runtime_loader.go
// (plugin.Open + Lookup, wrapped in path-traversal hardening).
func LoadImage(path string) (abi.PluginImage, error) {
	if path == "" {
		return nil, fmt.Errorf("plugin path is empty")
	}
	validated, err := ValidatePluginPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid plugin path: %w", err)
	}

	plug, err := plugin.Open(validated)
	if err != nil {
		return nil, fmt.Errorf("open plugin %s: %w", validated, err)
	}
	symbol, err := plug.Lookup(pluginMainSymbol)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", pluginMainSymbol, err)
	}

	switch fn := symbol.(type) {
	case func(abi.PluginID) (abi.PluginManifest, error):
		return nativeImage{main: fn}, nil
	case *func(abi.PluginID) (abi.PluginManifest, error):
		return nativeImage{main: *fn}, nil
	default:
		return nil, fmt.Errorf("plugin symbol %s has unexpected type %T", pluginMainSymbol, symbol)
	}
}
