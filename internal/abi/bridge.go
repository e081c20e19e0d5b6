package abi

// bridge.go is where the three-artifact pattern meets in the middle: the
// host-side Services interface below is what internal/governor implements
// on top of internal/registry and internal/dispatcher; BuildApplicationContext turns an
// implementation into the raw ApplicationContext a plugin actually holds;
// wrapTypedEventHandler/wrapTypedRequestHandler do the same job in the
// other direction for plugin-authored handlers. Every raw body recovers
// from panics at the boundary rather than letting them unwind into the
// other side's stack.

// Services bundles the host-side implementations of the eight context
// functions. Each method works in typed Go values; BuildApplicationContext
// does the packing/unpacking and panic containment.
type Services interface {
	RegisterHandler(fp RawEventHandlerFunc, pluginID PluginID, eventName string) (HandlerID, error)
	UnregisterHandler(handlerID HandlerID, pluginID PluginID, eventName string) error
	RegisterEvent(schema string, pluginID PluginID, eventName string) error
	UnregisterEvent(pluginID PluginID, eventName string) error
	TriggerEvent(pluginID PluginID, eventName string, args string) error
	RegisterEndpoint(argsSchema, responseSchema string, pluginID PluginID, endpointName string, handler RawRequestHandlerFunc) error
	UnregisterEndpoint(pluginID PluginID, endpointName string) error
	Request(endpointName string, pluginID PluginID, args string) (string, error)
}

// BuildApplicationContext adapts a Services implementation into the raw
// ApplicationContext plugins are handed. A panic inside the host's own
// service code is a core bug, never the calling plugin's fault, so it is
// converted to CoreInternalError rather than PluginInternalError.
func BuildApplicationContext(svc Services) ApplicationContext {
	return ApplicationContext{
		HandlerRegister: func(fp RawEventHandlerFunc, pluginID RawID, eventName ForeignString) (result RawHandlerRegisterResult) {
			defer recoverHostCall(&result.Err)
			name, err := eventName.AsError()
			if err != nil {
				result.Err = AsServiceError(err)
				return
			}
			id, err := svc.RegisterHandler(fp, PluginIDFromRaw(pluginID), name)
			if err != nil {
				result.Err = AsServiceError(err)
				return
			}
			result.HandlerID = id.ToRaw()
			return
		},
		HandlerUnregister: func(handlerID RawID, pluginID RawID, eventName ForeignString) (code ServiceErrorCode) {
			defer recoverHostCall(&code)
			name, err := eventName.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			return AsServiceError(svc.UnregisterHandler(HandlerIDFromRaw(handlerID), PluginIDFromRaw(pluginID), name))
		},
		EventRegister: func(schema ForeignString, pluginID RawID, eventName ForeignString) (code ServiceErrorCode) {
			defer recoverHostCall(&code)
			schemaText, err := schema.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			name, err := eventName.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			return AsServiceError(svc.RegisterEvent(schemaText, PluginIDFromRaw(pluginID), name))
		},
		EventUnregister: func(pluginID RawID, eventName ForeignString) (code ServiceErrorCode) {
			defer recoverHostCall(&code)
			name, err := eventName.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			return AsServiceError(svc.UnregisterEvent(PluginIDFromRaw(pluginID), name))
		},
		EventTrigger: func(pluginID RawID, eventName ForeignString, args ForeignString) (code ServiceErrorCode) {
			defer recoverHostCall(&code)
			name, err := eventName.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			argText, err := args.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			return AsServiceError(svc.TriggerEvent(PluginIDFromRaw(pluginID), name, argText))
		},
		EndpointRegister: func(argsSchema, responseSchema ForeignString, pluginID RawID, endpointName ForeignString, handler RawRequestHandlerFunc) (code ServiceErrorCode) {
			defer recoverHostCall(&code)
			argsText, err := argsSchema.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			respText, err := responseSchema.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			name, err := endpointName.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			return AsServiceError(svc.RegisterEndpoint(argsText, respText, PluginIDFromRaw(pluginID), name, handler))
		},
		EndpointUnregister: func(pluginID RawID, endpointName ForeignString) (code ServiceErrorCode) {
			defer recoverHostCall(&code)
			name, err := endpointName.AsError()
			if err != nil {
				return AsServiceError(err)
			}
			return AsServiceError(svc.UnregisterEndpoint(PluginIDFromRaw(pluginID), name))
		},
		EndpointRequest: func(endpointName ForeignString, pluginID RawID, args ForeignString) (response ForeignString) {
			var code ServiceErrorCode
			defer func() {
				if code != Success {
					response = NewErrorString(code)
				}
			}()
			defer recoverHostCall(&code)
			name, err := endpointName.AsError()
			if err != nil {
				code = AsServiceError(err)
				return
			}
			argText, err := args.AsError()
			if err != nil {
				code = AsServiceError(err)
				return
			}
			responseText, err := svc.Request(name, PluginIDFromRaw(pluginID), argText)
			if err != nil {
				code = AsServiceError(err)
				return
			}
			response = NewForeignString(responseText)
			return
		},
	}
}

// wrapTypedEventHandler turns a plugin author's TypedEventHandler into the
// raw shape the host invokes. A panic here is the plugin's fault: the host
// is calling into plugin code, so it becomes PluginInternalError.
func wrapTypedEventHandler(handler TypedEventHandler) RawEventHandlerFunc {
	return func(ctx ApplicationContext, args ForeignString) (code ServiceErrorCode) {
		defer recoverPluginCall(&code)
		argText, err := args.AsError()
		if err != nil {
			return AsServiceError(err)
		}
		return AsServiceError(handler(NewContext(ctx), argText))
	}
}

// wrapTypedRequestHandler turns a plugin author's TypedRequestHandler into
// the raw shape an endpoint's request_handler function pointer must have.
func wrapTypedRequestHandler(handler TypedRequestHandler) RawRequestHandlerFunc {
	return func(ctx ApplicationContext, args ForeignString) (resp RawEndpointResponse) {
		defer recoverPluginCall(&resp.Err)
		argText, err := args.AsError()
		if err != nil {
			resp.Err = AsServiceError(err)
			return
		}
		body, err := handler(NewContext(ctx), argText)
		if err != nil {
			resp.Err = AsServiceError(err)
			return
		}
		resp.Body = NewForeignString(body)
		return
	}
}

// recoverHostCall converts a panic in host-implemented service code to
// CoreInternalError: the plugin making the call did nothing wrong.
func recoverHostCall(code *ServiceErrorCode) {
	if r := recover(); r != nil {
		*code = CoreInternalError
	}
}

// recoverPluginCall converts a panic in plugin-authored handler code to
// PluginInternalError: the host invoking the handler must survive it.
func recoverPluginCall(code *ServiceErrorCode) {
	if r := recover(); r != nil {
		*code = PluginInternalError
	}
}
