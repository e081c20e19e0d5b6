// Package governor is the Governor component: the process-wide anchor
// every other component is reached from. A Governor bundles the Registry,
// Dispatcher, PowerState, ConfigStore, and the host's own core_id, and is
// published behind a single atomic pointer so a restart can swap in a
// fresh instance without disturbing handlers still running against the old
// one.
package governor

import (
	"log/slog"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/corenames"
	"github.com/haasonsaas/pluginhost/internal/coreservices"
	"github.com/haasonsaas/pluginhost/internal/dispatcher"
	"github.com/haasonsaas/pluginhost/internal/powerstate"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

// Governor is the root handle: Registry, Dispatcher, PowerState, ConfigStore
// and the well-known core id, all reachable from one place. Get returns the
// current *Governor as a snapshot, and Go's GC
// keeps that snapshot (and everything it reaches) alive for as long as any
// goroutine — including a worker-pool closure captured before a restart —
// still references it. That ordinary pointer-liveness guarantee is what
// satisfies the reference-counted-handle requirement; there is no manual
// refcount to get wrong.
type Governor struct {
	CoreID     abi.PluginID
	Registry   *registry.Registry
	Dispatcher *dispatcher.Dispatcher
	Power      *powerstate.Atomic
	Config     coreservices.ConfigStore
	Logger     *slog.Logger

	// ConfigRoot is the one piece of state a restart carries forward into
	// the fresh Governor it builds, per the park loop's restart sequence.
	ConfigRoot string
}

// Config configures a new Governor.
type Config struct {
	ConfigRoot      string
	ConfigStore     coreservices.ConfigStore
	WorkerPoolSize  int
	MetricsRegistry *prometheus.Registry
	Logger          *slog.Logger
}

// New constructs a Governor with an empty Registry, a fresh Dispatcher
// wired to it, and the four built-in core:* events and core:power/
// core:config endpoints already registered. It does not mount any
// plugins; that is internal/lifecycle's job.
func New(cfg Config) (*Governor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New()
	power := powerstate.NewAtomic(powerstate.Running)

	g := &Governor{
		CoreID:     corenames.CoreID,
		Registry:   reg,
		Power:      power,
		Config:     cfg.ConfigStore,
		Logger:     logger,
		ConfigRoot: cfg.ConfigRoot,
	}

	svc := newServices(reg, nil)
	d := dispatcher.New(dispatcher.Config{
		Registry:        reg,
		Power:           power,
		Context:         func() abi.ApplicationContext { return abi.BuildApplicationContext(svc) },
		WorkerPoolSize:  cfg.WorkerPoolSize,
		MetricsRegistry: cfg.MetricsRegistry,
		Logger:          logger,
	})
	svc.dispatcher = d
	g.Dispatcher = d

	if err := coreservices.RegisterAll(reg, power, cfg.ConfigStore); err != nil {
		return nil, err
	}
	return g, nil
}

// Shutdown drains the Dispatcher's worker pool, waiting for every in-flight
// handler to finish. internal/lifecycle calls it on shutdown, before a
// restart builds the next Governor, and when a Start fails after mounting.
func (g *Governor) Shutdown() {
	g.Dispatcher.Shutdown()
}

var current atomic.Pointer[Governor]

// Publish installs g as the process-wide Governor, replacing whatever was
// there before. The previous *Governor is not torn down here: any goroutine
// still holding it (an in-flight handler's captured context) keeps it alive
// until that goroutine returns, per ordinary Go pointer semantics.
func Publish(g *Governor) {
	current.Store(g)
}

// Get returns the current process-wide Governor. Safe to call from any
// goroutine at any time; a concurrent Publish during a restart is invisible
// to a caller that already loaded its own snapshot.
func Get() *Governor {
	return current.Load()
}
