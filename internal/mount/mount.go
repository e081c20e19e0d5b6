// Package mount is the Plugin Mount component: it turns a PluginImage into
// a registered Plugin and queues its init handler, step for step after the
// original core's loader.rs load_library.
package mount

import (
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/corenames"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

// Mount mints a fresh PluginID, calls the image's entry point, validates
// the returned manifest, and inserts the plugin plus its core:init handler
// into reg. The core:init event must already be registered (by
// internal/coreservices) before the first call to Mount.
func Mount(reg *registry.Registry, hostVersion abi.ApiVersion, image abi.PluginImage) (*registry.Plugin, error) {
	id := abi.NewPluginID()
	manifest, err := image.PluginMain(id)
	if err != nil {
		return nil, fmt.Errorf("call plugin_main: %w", err)
	}

	if err := validateManifest(manifest, hostVersion); err != nil {
		return nil, err
	}
	if _, exists := reg.PluginByName(manifest.Name); exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, manifest.Name)
	}

	plugin := &registry.Plugin{
		ID:           id,
		Name:         manifest.Name,
		Version:      manifest.Version,
		Dependencies: manifest.Dependencies,
		ApiVersion:   manifest.ApiVersion,
		Image:        image,
		InitHandler:  manifest.InitHandler,
		MountOrder:   reg.NextMountOrder(),
		MountedAt:    time.Now(),
	}
	if err := reg.AddPlugin(plugin); err != nil {
		return nil, fmt.Errorf("register plugin %q: %w", plugin.Name, err)
	}

	handlerID := abi.NewHandlerID()
	err = reg.AddHandler(corenames.EventInit, registry.HandlerRef{
		HandlerID:           handlerID,
		HandlerFP:           manifest.InitHandler,
		RegisteringPluginID: id,
	})
	if err != nil {
		return nil, fmt.Errorf("register %s handler for plugin %q: %w", corenames.EventInit, plugin.Name, err)
	}

	return plugin, nil
}

func validateManifest(manifest abi.PluginManifest, hostVersion abi.ApiVersion) error {
	if !manifest.ApiVersion.Compatible(hostVersion) {
		return fmt.Errorf("%w: plugin %s, host %s", ErrApiVersionMismatch, manifest.ApiVersion, hostVersion)
	}
	if manifest.Name == "" || strings.Contains(manifest.Name, ":") || manifest.Name == "core" {
		return fmt.Errorf("%w: %q", ErrInvalidName, manifest.Name)
	}
	if manifest.InitHandler == nil {
		return ErrNilInitHandler
	}
	return nil
}

// ValidateDependencies checks that every mounted plugin's declared
// dependencies resolve to some mounted plugin's name (its own name
// included; a self-dependency surfaces as a cycle at core:init). This is the
// spec's invited strengthening of mount-time validation: rather than
// deferring every dependency problem to core:init's topological sort, a
// missing dependency is caught right after the directory scan completes,
// with the cycle/ordering check still left to core:init time.
func ValidateDependencies(reg *registry.Registry) error {
	plugins := reg.ListPlugins()
	names := make(map[string]bool, len(plugins))
	for _, p := range plugins {
		names[p.Name] = true
	}
	for _, p := range plugins {
		for _, dep := range p.Dependencies {
			if !names[dep] {
				return fmt.Errorf("plugin %q declares dependency on unmounted plugin %q", p.Name, dep)
			}
		}
	}
	return nil
}
