// Package dispatcher is the Dispatcher component: it executes handler
// calls on event triggers and endpoint requests against the Registry's
// current snapshot.
package dispatcher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/corenames"
	"github.com/haasonsaas/pluginhost/internal/powerstate"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

// PowerStateReader is the read-only view of the Lifecycle's PowerState the
// Dispatcher needs. Kept as an interface (rather than importing
// internal/lifecycle) so Lifecycle can depend on Dispatcher without a
// cycle.
type PowerStateReader interface {
	Load() powerstate.State
}

// ContextFactory supplies the ApplicationContext handed to every invoked
// handler. It is a function rather than a fixed value because, after a
// restart, a fresh Governor owns a fresh context.
type ContextFactory func() abi.ApplicationContext

// Dispatcher executes event triggers and endpoint requests.
type Dispatcher struct {
	registry   *registry.Registry
	power      PowerStateReader
	contextFor ContextFactory
	pool       *workerPool
	metrics    *Metrics
	logger     *slog.Logger
}

// Config configures a new Dispatcher.
type Config struct {
	Registry        *registry.Registry
	Power           PowerStateReader
	Context         ContextFactory
	WorkerPoolSize  int // 0 = hardware parallelism, min 1
	MetricsRegistry *prometheus.Registry
	Logger          *slog.Logger
}

// New constructs a Dispatcher and starts its worker pool.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := NewMetrics(cfg.MetricsRegistry)
	return &Dispatcher{
		registry:   cfg.Registry,
		power:      cfg.Power,
		contextFor: cfg.Context,
		pool:       newWorkerPool(cfg.WorkerPoolSize, logger, metrics),
		metrics:    metrics,
		logger:     logger,
	}
}

// Shutdown drains the worker pool, waiting for every in-flight and queued
// handler batch to finish.
func (d *Dispatcher) Shutdown() {
	d.pool.shutdown()
}

// TriggerEvent implements 4.C's event trigger algorithm.
func (d *Dispatcher) TriggerEvent(pluginID abi.PluginID, fullName string, argsJSON string) error {
	if state := d.power.Load(); state == powerstate.Shutdown || state == powerstate.Restart {
		return abi.NewServiceError(abi.ShuttingDown)
	}

	var parsed any
	if err := json.Unmarshal([]byte(argsJSON), &parsed); err != nil {
		return fmt.Errorf("trigger %q: %w", fullName, abi.NewServiceError(abi.InvalidJSON))
	}

	ev, ok := d.registry.GetEvent(fullName)
	if !ok {
		return abi.NewServiceError(abi.NotFound)
	}
	if ev.OwnerPluginID != pluginID {
		return abi.NewServiceError(abi.Unauthorized)
	}

	if ev.ArgumentSchema != nil {
		if err := ev.ArgumentSchema.Validate(parsed); err != nil {
			return fmt.Errorf("trigger %q: %w", fullName, abi.NewServiceError(abi.InvalidAPI))
		}
	}

	handlers, err := d.orderHandlers(fullName, ev)
	if err != nil {
		return err
	}

	d.metrics.observeEventTriggered()
	if len(handlers) == 0 {
		return nil
	}
	d.pool.submit(handlerBatch{
		eventFullName: fullName,
		ctx:           d.contextFor(),
		args:          argsJSON,
		handlers:      handlers,
	})
	return nil
}

// orderHandlers picks the handler order for fullName: topological-by-
// dependency for core:init, registration order otherwise.
func (d *Dispatcher) orderHandlers(fullName string, ev *registry.Event) ([]registry.HandlerRef, error) {
	if fullName != corenames.EventInit {
		return ev.OrderedHandlers(), nil
	}

	plugins, err := topoOrderPlugins(d.registry.ListPlugins())
	if err != nil {
		return nil, err
	}

	byPlugin := make(map[abi.PluginID][]registry.HandlerRef, len(plugins))
	for _, h := range ev.OrderedHandlers() {
		byPlugin[h.RegisteringPluginID] = append(byPlugin[h.RegisteringPluginID], h)
	}
	ordered := make([]registry.HandlerRef, 0, len(ev.Handlers))
	for _, p := range plugins {
		ordered = append(ordered, byPlugin[p.ID]...)
	}
	return ordered, nil
}

// RequestEndpoint implements 4.C's endpoint request algorithm. The
// requesting plugin's name (not id) is forwarded to the handler.
func (d *Dispatcher) RequestEndpoint(endpointName string, requestingPluginID abi.PluginID, argsJSON string) (string, error) {
	start := time.Now()
	defer func() {
		d.metrics.observeEndpointRequestDuration(time.Since(start).Seconds())
	}()

	var parsed any
	if err := json.Unmarshal([]byte(argsJSON), &parsed); err != nil {
		return "", fmt.Errorf("request %q: %w", endpointName, abi.NewServiceError(abi.InvalidJSON))
	}

	ep, ok := d.registry.GetEndpoint(endpointName)
	if !ok {
		return "", abi.NewServiceError(abi.NotFound)
	}

	if ep.ArgumentSchema != nil {
		if err := ep.ArgumentSchema.Validate(parsed); err != nil {
			return "", fmt.Errorf("request %q: %w", endpointName, abi.NewServiceError(abi.InvalidAPI))
		}
	}

	requester, ok := d.registry.GetPlugin(requestingPluginID)
	if !ok {
		return "", abi.NewServiceError(abi.NotFound)
	}

	d.metrics.observeEndpointRequest()
	ctx := d.contextFor()
	ctx.RequesterName = requester.Name
	resp := d.invokeEndpointHandler(ep.HandlerFP, ctx, argsJSON)
	if resp.Err != abi.Success {
		return "", abi.NewServiceError(resp.Err)
	}

	responseText, err := resp.Body.AsError()
	if err != nil {
		return "", err
	}

	if ep.ResponseSchema != nil {
		var parsedResponse any
		if err := json.Unmarshal([]byte(responseText), &parsedResponse); err != nil {
			return "", fmt.Errorf("request %q: %w", endpointName, abi.NewServiceError(abi.InvalidAPI))
		}
		if err := ep.ResponseSchema.Validate(parsedResponse); err != nil {
			return "", fmt.Errorf("request %q response: %w", endpointName, abi.NewServiceError(abi.InvalidAPI))
		}
	}
	return responseText, nil
}

// invokeEndpointHandler runs the endpoint's single handler synchronously on
// the caller's thread, recovering a plugin-side panic into
// PluginInternalError rather than taking the host down with it.
func (d *Dispatcher) invokeEndpointHandler(handler abi.RawRequestHandlerFunc, ctx abi.ApplicationContext, argsJSON string) (resp abi.RawEndpointResponse) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.observeHandlerError()
			d.logger.Error("endpoint handler panicked", "panic", r)
			resp = abi.RawEndpointResponse{Err: abi.PluginInternalError}
		}
	}()
	return handler(ctx, abi.NewForeignString(argsJSON))
}
