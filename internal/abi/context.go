package abi

// This file is the raw adapter half of the ABI Bridge: the function-pointer
// shapes that actually cross the host/plugin boundary, plus the typed
// Context wrapper plugin authors write against. A host-side service
// implements a small Go interface; bridge.go turns that interface into one
// of the raw func types below, and Context turns the raw func types back
// into typed methods on the plugin side. Nothing here is real cgo — §1
// already treats the loader and its entry point as an opaque capability, so
// the "raw" shape is just the narrowest Go types that could stand in for a
// C-ABI function pointer: IDs, error codes, and ForeignString.

// RawEventHandlerFunc is the shape of both a plugin's core:init handler and
// any handler registered through handler_register.
type RawEventHandlerFunc func(ctx ApplicationContext, args ForeignString) ServiceErrorCode

// RawEndpointResponse is what a raw request handler returns: either a
// response body or an error code, never both.
type RawEndpointResponse struct {
	Body ForeignString
	Err  ServiceErrorCode
}

// RawRequestHandlerFunc is the shape of an endpoint's request handler.
type RawRequestHandlerFunc func(ctx ApplicationContext, args ForeignString) RawEndpointResponse

// RawContextSupplier hands a plugin its ApplicationContext lazily, since the
// context does not exist until the governor that owns it does.
type RawContextSupplier func() ApplicationContext

// RawHandlerRegisterResult is handler_register's return value: a minted
// HandlerID on success, an error code otherwise.
type RawHandlerRegisterResult struct {
	HandlerID RawID
	Err       ServiceErrorCode
}

type RawHandlerRegisterFunc func(fp RawEventHandlerFunc, pluginID RawID, eventName ForeignString) RawHandlerRegisterResult
type RawHandlerUnregisterFunc func(handlerID RawID, pluginID RawID, eventName ForeignString) ServiceErrorCode
type RawEventRegisterFunc func(schema ForeignString, pluginID RawID, eventName ForeignString) ServiceErrorCode
type RawEventUnregisterFunc func(pluginID RawID, eventName ForeignString) ServiceErrorCode
type RawEventTriggerFunc func(pluginID RawID, eventName ForeignString, args ForeignString) ServiceErrorCode
type RawEndpointRegisterFunc func(argsSchema, responseSchema ForeignString, pluginID RawID, endpointName ForeignString, handler RawRequestHandlerFunc) ServiceErrorCode
type RawEndpointUnregisterFunc func(pluginID RawID, endpointName ForeignString) ServiceErrorCode
type RawEndpointRequestFunc func(endpointName ForeignString, pluginID RawID, args ForeignString) ForeignString

// ApplicationContext is the eight-function-pointer capability bundle handed
// to every mounted plugin. A nil field is a null function pointer: calling
// through it is the NullFunctionPointer error, not a crash.
type ApplicationContext struct {
	HandlerRegister    RawHandlerRegisterFunc
	HandlerUnregister  RawHandlerUnregisterFunc
	EventRegister      RawEventRegisterFunc
	EventUnregister    RawEventUnregisterFunc
	EventTrigger       RawEventTriggerFunc
	EndpointRegister   RawEndpointRegisterFunc
	EndpointUnregister RawEndpointUnregisterFunc
	EndpointRequest    RawEndpointRequestFunc

	// RequesterName carries the calling plugin's name into an endpoint's
	// request handler. Set only for the duration of one endpoint request
	// (empty in the ambient context a plugin otherwise holds); the spec
	// forwards the requester's name but never its id, and the context
	// supplier is the only boundary-crossing value shaped to carry it.
	RequesterName string
}

// Context is the call-site wrapper: the typed, ergonomic surface plugin
// code is actually written against. It packs typed arguments into the raw
// wire shapes, calls through the ApplicationContext, and unpacks the result.
type Context struct {
	raw ApplicationContext
}

// NewContext adapts a raw ApplicationContext into its typed wrapper.
func NewContext(raw ApplicationContext) Context { return Context{raw: raw} }

// TypedEventHandler is the signature plugin authors implement; Context
// converts it to a RawEventHandlerFunc at registration time.
type TypedEventHandler func(ctx Context, args string) error

// TypedRequestHandler is the signature plugin authors implement for an
// endpoint's request handler.
type TypedRequestHandler func(ctx Context, args string) (string, error)

func (c Context) RegisterHandler(handler TypedEventHandler, pluginID PluginID, eventName string) (HandlerID, error) {
	if c.raw.HandlerRegister == nil {
		return HandlerID{}, NewServiceError(NullFunctionPointer)
	}
	result := c.raw.HandlerRegister(wrapTypedEventHandler(handler), pluginID.ToRaw(), NewForeignString(eventName))
	if result.Err != Success {
		return HandlerID{}, NewServiceError(result.Err)
	}
	return HandlerIDFromRaw(result.HandlerID), nil
}

func (c Context) UnregisterHandler(handlerID HandlerID, pluginID PluginID, eventName string) error {
	if c.raw.HandlerUnregister == nil {
		return NewServiceError(NullFunctionPointer)
	}
	return NewServiceError(c.raw.HandlerUnregister(handlerID.ToRaw(), pluginID.ToRaw(), NewForeignString(eventName)))
}

func (c Context) RegisterEvent(schema string, pluginID PluginID, eventName string) error {
	if c.raw.EventRegister == nil {
		return NewServiceError(NullFunctionPointer)
	}
	return NewServiceError(c.raw.EventRegister(NewForeignString(schema), pluginID.ToRaw(), NewForeignString(eventName)))
}

func (c Context) UnregisterEvent(pluginID PluginID, eventName string) error {
	if c.raw.EventUnregister == nil {
		return NewServiceError(NullFunctionPointer)
	}
	return NewServiceError(c.raw.EventUnregister(pluginID.ToRaw(), NewForeignString(eventName)))
}

func (c Context) TriggerEvent(pluginID PluginID, eventName string, args string) error {
	if c.raw.EventTrigger == nil {
		return NewServiceError(NullFunctionPointer)
	}
	return NewServiceError(c.raw.EventTrigger(pluginID.ToRaw(), NewForeignString(eventName), NewForeignString(args)))
}

func (c Context) RegisterEndpoint(argsSchema, responseSchema string, pluginID PluginID, endpointName string, handler TypedRequestHandler) error {
	if c.raw.EndpointRegister == nil {
		return NewServiceError(NullFunctionPointer)
	}
	return NewServiceError(c.raw.EndpointRegister(
		NewForeignString(argsSchema),
		NewForeignString(responseSchema),
		pluginID.ToRaw(),
		NewForeignString(endpointName),
		wrapTypedRequestHandler(handler),
	))
}

func (c Context) UnregisterEndpoint(pluginID PluginID, endpointName string) error {
	if c.raw.EndpointUnregister == nil {
		return NewServiceError(NullFunctionPointer)
	}
	return NewServiceError(c.raw.EndpointUnregister(pluginID.ToRaw(), NewForeignString(endpointName)))
}

// RequesterName returns the calling plugin's name when this Context was
// handed to an endpoint's request handler, empty otherwise.
func (c Context) RequesterName() string { return c.raw.RequesterName }

func (c Context) Request(endpointName string, pluginID PluginID, args string) (string, error) {
	if c.raw.EndpointRequest == nil {
		return "", NewServiceError(NullFunctionPointer)
	}
	result := c.raw.EndpointRequest(NewForeignString(endpointName), pluginID.ToRaw(), NewForeignString(args))
	return result.AsError()
}
