package coreservices

import (
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/pluginhost/internal/corenames"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

// RegisterCoreEvents registers the four built-in events owned by
// corenames.CoreID. Must run before the first internal/mount.Mount call,
// since Mount registers a core:init handler for every plugin it mounts.
func RegisterCoreEvents(reg *registry.Registry) error {
	events := []struct {
		name   string
		schema *jsonschema.Schema
	}{
		{corenames.EventInit, initSchema},
		{corenames.EventEvent, eventSchema},
		{corenames.EventEndpoint, endpointSchema},
		{corenames.EventPower, powerEventSchema},
	}
	for _, e := range events {
		if err := reg.RegisterEvent(e.name, corenames.CoreID, e.schema); err != nil {
			return err
		}
	}
	return nil
}
