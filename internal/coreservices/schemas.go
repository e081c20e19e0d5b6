// Package coreservices is the Core Services component: the built-in
// events and endpoints owned by corenames.CoreID. Schemas are embedded
// from .json files rather than constructed in Go, grounded on the
// original core's include_str!("../../event/*.json") pattern, keeping
// schema text reviewable independent of Go code.
package coreservices

import (
	"embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

func mustCompile(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic("coreservices: missing embedded schema " + name + ": " + err.Error())
	}
	schema, err := jsonschema.CompileString(name, string(data))
	if err != nil {
		panic("coreservices: invalid embedded schema " + name + ": " + err.Error())
	}
	return schema
}

var (
	initSchema          = mustCompile("core_init.schema.json")
	eventSchema         = mustCompile("core_event.schema.json")
	endpointSchema      = mustCompile("core_endpoint.schema.json")
	powerEventSchema    = mustCompile("core_power_event.schema.json")
	powerRequestSchema  = mustCompile("core_power_request.schema.json")
	powerResponseSchema = mustCompile("core_power_response.schema.json")
	configRequestSchema = mustCompile("core_config_request.schema.json")
)
