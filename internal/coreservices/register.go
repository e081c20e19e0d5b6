package coreservices

import (
	"github.com/haasonsaas/pluginhost/internal/powerstate"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

// RegisterAll registers every built-in event and endpoint. It must run
// once, before Lifecycle scans the plugin directory, since Plugin Mount
// registers a core:init handler for every plugin it mounts.
func RegisterAll(reg *registry.Registry, power *powerstate.Atomic, store ConfigStore) error {
	if err := RegisterCoreEvents(reg); err != nil {
		return err
	}
	if err := RegisterCorePowerEndpoint(reg, power); err != nil {
		return err
	}
	if err := RegisterCoreConfigEndpoint(reg, store); err != nil {
		return err
	}
	return nil
}
