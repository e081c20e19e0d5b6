package abi

import "testing"

type fakeServices struct {
	registeredEvent    string
	registeredEndpoint string
	endpointHandler    RawRequestHandlerFunc
	requestReply       string
	requestErr         error
	panicOnRegister    bool
}

func (f *fakeServices) RegisterHandler(fp RawEventHandlerFunc, pluginID PluginID, eventName string) (HandlerID, error) {
	if f.panicOnRegister {
		panic("boom")
	}
	return NewHandlerID(), nil
}

func (f *fakeServices) UnregisterHandler(handlerID HandlerID, pluginID PluginID, eventName string) error {
	return nil
}

func (f *fakeServices) RegisterEvent(schema string, pluginID PluginID, eventName string) error {
	f.registeredEvent = eventName
	return nil
}

func (f *fakeServices) UnregisterEvent(pluginID PluginID, eventName string) error { return nil }

func (f *fakeServices) TriggerEvent(pluginID PluginID, eventName string, args string) error {
	return nil
}

func (f *fakeServices) RegisterEndpoint(argsSchema, responseSchema string, pluginID PluginID, endpointName string, handler RawRequestHandlerFunc) error {
	f.registeredEndpoint = endpointName
	f.endpointHandler = handler
	return nil
}

func (f *fakeServices) UnregisterEndpoint(pluginID PluginID, endpointName string) error { return nil }

func (f *fakeServices) Request(endpointName string, pluginID PluginID, args string) (string, error) {
	return f.requestReply, f.requestErr
}

func TestContextRegisterEventRoundTrip(t *testing.T) {
	svc := &fakeServices{}
	ctx := NewContext(BuildApplicationContext(svc))
	if err := ctx.RegisterEvent(`{"type":"object"}`, NewPluginID(), "my:event"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.registeredEvent != "my:event" {
		t.Fatalf("got %q, want %q", svc.registeredEvent, "my:event")
	}
}

func TestContextRegisterHandlerPropagatesHostPanicAsCoreInternalError(t *testing.T) {
	svc := &fakeServices{panicOnRegister: true}
	ctx := NewContext(BuildApplicationContext(svc))
	_, err := ctx.RegisterHandler(func(Context, string) error { return nil }, NewPluginID(), "my:event")
	if AsServiceError(err) != CoreInternalError {
		t.Fatalf("expected CoreInternalError, got %v", err)
	}
}

func TestTypedRequestHandlerPanicBecomesPluginInternalError(t *testing.T) {
	handler := wrapTypedRequestHandler(func(Context, string) (string, error) {
		panic("plugin exploded")
	})
	resp := handler(ApplicationContext{}, NewForeignString("{}"))
	if resp.Err != PluginInternalError {
		t.Fatalf("expected PluginInternalError, got %s", resp.Err)
	}
}

func TestTypedEventHandlerPanicBecomesPluginInternalError(t *testing.T) {
	handler := wrapTypedEventHandler(func(Context, string) error {
		panic("plugin exploded")
	})
	code := handler(ApplicationContext{}, NewForeignString("{}"))
	if code != PluginInternalError {
		t.Fatalf("expected PluginInternalError, got %s", code)
	}
}

func TestContextNullFunctionPointer(t *testing.T) {
	ctx := NewContext(ApplicationContext{})
	if _, err := ctx.RegisterHandler(nil, NewPluginID(), "x"); AsServiceError(err) != NullFunctionPointer {
		t.Fatalf("expected NullFunctionPointer, got %v", err)
	}
	if _, err := ctx.Request("x", NewPluginID(), "{}"); AsServiceError(err) != NullFunctionPointer {
		t.Fatalf("expected NullFunctionPointer, got %v", err)
	}
}

func TestContextRequestRoundTrip(t *testing.T) {
	svc := &fakeServices{requestReply: `{"ok":true}`}
	ctx := NewContext(BuildApplicationContext(svc))
	got, err := ctx.Request("core:power", NewPluginID(), "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("got %q", got)
	}
}

func TestContextEndpointHandlerInvokedThroughRawAdapter(t *testing.T) {
	svc := &fakeServices{}
	raw := BuildApplicationContext(svc)
	ctx := NewContext(raw)
	err := ctx.RegisterEndpoint("{}", "{}", NewPluginID(), "echo", func(c Context, args string) (string, error) {
		return "echo:" + args, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := svc.endpointHandler(raw, NewForeignString("hi"))
	body, err := resp.Body.AsError()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "echo:hi" {
		t.Fatalf("got %q", body)
	}
}
