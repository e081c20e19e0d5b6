package governor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/corenames"
	"github.com/haasonsaas/pluginhost/internal/dispatcher"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

// coreEventPayload and coreEndpointPayload mirror the core:event/core:endpoint
// notification shapes in schemas/core_event.schema.json and
// core_endpoint.schema.json.
type coreEventPayload struct {
	EventName      string `json:"event_name"`
	ArgumentSchema any    `json:"argument_schema"`
}

type coreEndpointPayload struct {
	EndpointName   string `json:"endpoint_name"`
	ArgumentSchema any    `json:"argument_schema"`
	ResponseSchema any    `json:"response_schema"`
}

// services implements abi.Services on top of a Registry and Dispatcher. It
// is the one place that compiles a plugin-supplied JSON Schema string into a
// *jsonschema.Schema, and the one place that fires core:event/core:endpoint
// after a successful registration — coreservices never needs to know about
// either, since its endpoint handlers only ever see the abi.ApplicationContext
// this package builds around it.
type services struct {
	reg        *registry.Registry
	dispatcher *dispatcher.Dispatcher
}

func newServices(reg *registry.Registry, d *dispatcher.Dispatcher) *services {
	return &services{reg: reg, dispatcher: d}
}

func (s *services) RegisterHandler(fp abi.RawEventHandlerFunc, pluginID abi.PluginID, eventName string) (abi.HandlerID, error) {
	id := abi.NewHandlerID()
	err := s.reg.AddHandler(eventName, registry.HandlerRef{
		HandlerID:           id,
		HandlerFP:           fp,
		RegisteringPluginID: pluginID,
	})
	if err != nil {
		return abi.HandlerID{}, err
	}
	return id, nil
}

func (s *services) UnregisterHandler(handlerID abi.HandlerID, pluginID abi.PluginID, eventName string) error {
	return s.reg.RemoveHandler(eventName, pluginID, handlerID)
}

func (s *services) RegisterEvent(schema string, pluginID abi.PluginID, eventName string) error {
	fullName, err := s.qualifyName(pluginID, eventName)
	if err != nil {
		return err
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		return abi.NewServiceError(abi.InvalidAPI)
	}
	if err := s.reg.RegisterEvent(fullName, pluginID, compiled); err != nil {
		return err
	}
	payload, _ := marshalOrEmpty(coreEventPayload{EventName: fullName, ArgumentSchema: rawSchemaOrNil(schema)})
	_ = s.dispatcher.TriggerEvent(corenames.CoreID, corenames.EventEvent, payload)
	return nil
}

func (s *services) UnregisterEvent(pluginID abi.PluginID, eventName string) error {
	return s.reg.UnregisterEvent(eventName, pluginID)
}

func (s *services) TriggerEvent(pluginID abi.PluginID, eventName string, args string) error {
	return s.dispatcher.TriggerEvent(pluginID, eventName, args)
}

func (s *services) RegisterEndpoint(argsSchema, responseSchema string, pluginID abi.PluginID, endpointName string, handler abi.RawRequestHandlerFunc) error {
	fullName, err := s.qualifyName(pluginID, endpointName)
	if err != nil {
		return err
	}
	compiledArgs, err := compileSchema(argsSchema)
	if err != nil {
		return abi.NewServiceError(abi.InvalidAPI)
	}
	compiledResp, err := compileSchema(responseSchema)
	if err != nil {
		return abi.NewServiceError(abi.InvalidAPI)
	}
	if err := s.reg.RegisterEndpoint(fullName, pluginID, compiledArgs, compiledResp, handler); err != nil {
		return err
	}
	payload, _ := marshalOrEmpty(coreEndpointPayload{
		EndpointName:   fullName,
		ArgumentSchema: rawSchemaOrNil(argsSchema),
		ResponseSchema: rawSchemaOrNil(responseSchema),
	})
	_ = s.dispatcher.TriggerEvent(corenames.CoreID, corenames.EventEndpoint, payload)
	return nil
}

func (s *services) UnregisterEndpoint(pluginID abi.PluginID, endpointName string) error {
	return s.reg.UnregisterEndpoint(endpointName, pluginID)
}

func (s *services) Request(endpointName string, pluginID abi.PluginID, args string) (string, error) {
	return s.dispatcher.RequestEndpoint(endpointName, pluginID, args)
}

// qualifyName enforces spec.md's full_name invariant: a plugin registers an
// event or endpoint under a bare local name, never the qualified form, and
// the host — not the plugin — builds full_name as "<owner plugin
// name>:<local name>". A local name containing ':' is rejected outright,
// mirroring the original register()'s event_name.contains(':') check.
func (s *services) qualifyName(pluginID abi.PluginID, localName string) (string, error) {
	if strings.Contains(localName, ":") {
		return "", abi.NewServiceError(abi.InvalidString)
	}
	plugin, ok := s.reg.GetPlugin(pluginID)
	if !ok {
		return "", abi.NewServiceError(abi.NotFound)
	}
	return plugin.Name + ":" + localName, nil
}

// compileSchema accepts an empty string as "no schema" (nil, no error),
// matching the optional ArgumentSchema/ResponseSchema fields on
// registry.Event/Endpoint.
func compileSchema(schema string) (*jsonschema.Schema, error) {
	if schema == "" {
		return nil, nil
	}
	return jsonschema.CompileString("", schema)
}

func rawSchemaOrNil(schema string) any {
	if schema == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(schema), &decoded); err != nil {
		return nil
	}
	return decoded
}

func marshalOrEmpty(v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "{}", fmt.Errorf("marshal core notification: %w", err)
	}
	return string(body), nil
}
