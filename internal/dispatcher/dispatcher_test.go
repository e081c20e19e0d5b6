package dispatcher

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/powerstate"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

type fakePower struct{ state powerstate.State }

func (f *fakePower) Load() powerstate.State { return f.state }

func newTestDispatcher(t *testing.T, reg *registry.Registry, power *fakePower) *Dispatcher {
	t.Helper()
	d := New(Config{
		Registry:        reg,
		Power:           power,
		Context:         func() abi.ApplicationContext { return abi.ApplicationContext{} },
		WorkerPoolSize:  2,
		MetricsRegistry: prometheus.NewRegistry(),
	})
	t.Cleanup(d.Shutdown)
	return d
}

func compile(t *testing.T, schema string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.CompileString("test.json", schema)
	if err != nil {
		t.Fatalf("failed to compile schema: %v", err)
	}
	return s
}

func TestTriggerEventRefusesWhenShuttingDown(t *testing.T) {
	reg := registry.New()
	d := newTestDispatcher(t, reg, &fakePower{state: powerstate.Shutdown})
	err := d.TriggerEvent(abi.NewPluginID(), "demo:ping", "{}")
	if abi.AsServiceError(err) != abi.ShuttingDown {
		t.Fatalf("expected ShuttingDown, got %v", err)
	}
}

func TestTriggerEventInvalidJson(t *testing.T) {
	reg := registry.New()
	d := newTestDispatcher(t, reg, &fakePower{})
	err := d.TriggerEvent(abi.NewPluginID(), "demo:ping", "not json")
	if abi.AsServiceError(err) != abi.InvalidJSON {
		t.Fatalf("expected InvalidJson, got %v", err)
	}
}

func TestTriggerEventNotFound(t *testing.T) {
	reg := registry.New()
	d := newTestDispatcher(t, reg, &fakePower{})
	err := d.TriggerEvent(abi.NewPluginID(), "demo:ping", "{}")
	if abi.AsServiceError(err) != abi.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestTriggerEventUnauthorized(t *testing.T) {
	reg := registry.New()
	owner := abi.NewPluginID()
	other := abi.NewPluginID()
	if err := reg.RegisterEvent("demo:ping", owner, nil); err != nil {
		t.Fatal(err)
	}
	d := newTestDispatcher(t, reg, &fakePower{})
	err := d.TriggerEvent(other, "demo:ping", "{}")
	if abi.AsServiceError(err) != abi.Unauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestTriggerEventInvalidApi(t *testing.T) {
	reg := registry.New()
	owner := abi.NewPluginID()
	schema := compile(t, `{"type":"object","required":["x"],"properties":{"x":{"type":"integer"}}}`)
	if err := reg.RegisterEvent("demo:ping", owner, schema); err != nil {
		t.Fatal(err)
	}
	d := newTestDispatcher(t, reg, &fakePower{})
	err := d.TriggerEvent(owner, "demo:ping", `{"x":"not an integer"}`)
	if abi.AsServiceError(err) != abi.InvalidAPI {
		t.Fatalf("expected InvalidApi, got %v", err)
	}
}

func TestTriggerEventInvokesHandlersInOrder(t *testing.T) {
	reg := registry.New()
	owner := abi.NewPluginID()
	if err := reg.RegisterEvent("demo:ping", owner, nil); err != nil {
		t.Fatal(err)
	}

	var order []int
	done := make(chan struct{})
	record := func(i int, last bool) abi.RawEventHandlerFunc {
		return func(ctx abi.ApplicationContext, args abi.ForeignString) abi.ServiceErrorCode {
			order = append(order, i)
			if last {
				close(done)
			}
			return abi.Success
		}
	}
	_ = reg.AddHandler("demo:ping", registry.HandlerRef{HandlerID: abi.NewHandlerID(), RegisteringPluginID: owner, HandlerFP: record(0, false)})
	_ = reg.AddHandler("demo:ping", registry.HandlerRef{HandlerID: abi.NewHandlerID(), RegisteringPluginID: owner, HandlerFP: record(1, false)})
	_ = reg.AddHandler("demo:ping", registry.HandlerRef{HandlerID: abi.NewHandlerID(), RegisteringPluginID: owner, HandlerFP: record(2, true)})

	d := newTestDispatcher(t, reg, &fakePower{})
	if err := d.TriggerEvent(owner, "demo:ping", "{}"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handlers to run")
	}
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("expected handlers to run in registration order, got %v", order)
	}
}

func TestTriggerEventOneHandlerErrorDoesNotBlockPeers(t *testing.T) {
	reg := registry.New()
	owner := abi.NewPluginID()
	if err := reg.RegisterEvent("demo:ping", owner, nil); err != nil {
		t.Fatal(err)
	}
	ran := make(chan struct{}, 1)
	failing := func(ctx abi.ApplicationContext, args abi.ForeignString) abi.ServiceErrorCode {
		panic("handler exploded")
	}
	succeeding := func(ctx abi.ApplicationContext, args abi.ForeignString) abi.ServiceErrorCode {
		ran <- struct{}{}
		return abi.Success
	}
	_ = reg.AddHandler("demo:ping", registry.HandlerRef{HandlerID: abi.NewHandlerID(), RegisteringPluginID: owner, HandlerFP: failing})
	_ = reg.AddHandler("demo:ping", registry.HandlerRef{HandlerID: abi.NewHandlerID(), RegisteringPluginID: owner, HandlerFP: succeeding})

	d := newTestDispatcher(t, reg, &fakePower{})
	if err := d.TriggerEvent(owner, "demo:ping", "{}"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("peer handler never ran after a sibling panicked")
	}
}

func TestRequestEndpointNotFound(t *testing.T) {
	reg := registry.New()
	d := newTestDispatcher(t, reg, &fakePower{})
	_, err := d.RequestEndpoint("demo:sum", abi.NewPluginID(), "{}")
	if abi.AsServiceError(err) != abi.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRequestEndpointSuccessForwardsRequesterName(t *testing.T) {
	reg := registry.New()
	owner := abi.NewPluginID()
	requester := &registry.Plugin{ID: abi.NewPluginID(), Name: "caller-plugin"}
	if err := reg.AddPlugin(requester); err != nil {
		t.Fatal(err)
	}
	var seenName string
	handler := func(ctx abi.ApplicationContext, args abi.ForeignString) abi.RawEndpointResponse {
		seenName = ctx.RequesterName
		return abi.RawEndpointResponse{Body: abi.NewForeignString(`{"ok":true}`)}
	}
	if err := reg.RegisterEndpoint("demo:sum", owner, nil, nil, handler); err != nil {
		t.Fatal(err)
	}
	d := newTestDispatcher(t, reg, &fakePower{})
	resp, err := d.RequestEndpoint("demo:sum", requester.ID, "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != `{"ok":true}` {
		t.Fatalf("got %q", resp)
	}
	if seenName != "caller-plugin" {
		t.Fatalf("expected requester name forwarded, got %q", seenName)
	}
}

func TestRequestEndpointResponseSchemaViolation(t *testing.T) {
	reg := registry.New()
	owner := abi.NewPluginID()
	requester := &registry.Plugin{ID: abi.NewPluginID(), Name: "caller"}
	_ = reg.AddPlugin(requester)
	responseSchema := compile(t, `{"type":"object","required":["ok"],"properties":{"ok":{"type":"boolean"}}}`)
	handler := func(ctx abi.ApplicationContext, args abi.ForeignString) abi.RawEndpointResponse {
		return abi.RawEndpointResponse{Body: abi.NewForeignString(`{"ok":"not a bool"}`)}
	}
	if err := reg.RegisterEndpoint("demo:sum", owner, nil, responseSchema, handler); err != nil {
		t.Fatal(err)
	}
	d := newTestDispatcher(t, reg, &fakePower{})
	_, err := d.RequestEndpoint("demo:sum", requester.ID, "{}")
	if abi.AsServiceError(err) != abi.InvalidAPI {
		t.Fatalf("expected InvalidApi, got %v", err)
	}
}

func TestRequestEndpointHandlerPanicBecomesPluginInternalError(t *testing.T) {
	reg := registry.New()
	owner := abi.NewPluginID()
	requester := &registry.Plugin{ID: abi.NewPluginID(), Name: "caller"}
	_ = reg.AddPlugin(requester)
	handler := func(ctx abi.ApplicationContext, args abi.ForeignString) abi.RawEndpointResponse {
		panic("endpoint exploded")
	}
	if err := reg.RegisterEndpoint("demo:sum", owner, nil, nil, handler); err != nil {
		t.Fatal(err)
	}
	d := newTestDispatcher(t, reg, &fakePower{})
	_, err := d.RequestEndpoint("demo:sum", requester.ID, "{}")
	if abi.AsServiceError(err) != abi.PluginInternalError {
		t.Fatalf("expected PluginInternalError, got %v", err)
	}
}
