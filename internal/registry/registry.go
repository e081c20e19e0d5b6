// Package registry is the Registry component: concurrent, copy-on-write
// storage for plugins, events, and endpoints. Every container lives behind
// an atomic pointer to an immutable persistent map; writers clone, mutate,
// and compare-and-swap the root, retrying under contention, matching the
// teacher's own clone-on-write style in runtime_registry.go's ensureEntry.
package registry

import (
	"sync/atomic"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/pluginhost/internal/abi"
)

// Plugin is the Registry's record for a mounted plugin. Immutable after
// creation; Registry is its exclusive owner.
type Plugin struct {
	ID           abi.PluginID
	Name         string
	Version      string
	Dependencies []string
	ApiVersion   abi.ApiVersion
	Image        abi.PluginImage
	InitHandler  abi.RawEventHandlerFunc
	MountOrder   int64
	MountedAt    time.Time
}

// handlerKey is a HandlerRef's identity: (registering_plugin_id, handler_id).
type handlerKey struct {
	plugin  abi.PluginID
	handler abi.HandlerID
}

// HandlerRef is a registered event handler. Equality/identity is the
// (RegisteringPluginID, HandlerID) pair, never HandlerID alone.
type HandlerRef struct {
	HandlerID           abi.HandlerID
	HandlerFP           abi.RawEventHandlerFunc
	RegisteringPluginID abi.PluginID

	// Seq is a monotonic registration sequence number, stamped by the
	// Registry on AddHandler. The spec leaves non-core:init ordering
	// unspecified; Seq gives dispatch a stable, deterministic choice
	// (registration order) instead of relying on Go's unordered maps.
	Seq int64
}

func (h HandlerRef) key() handlerKey {
	return handlerKey{plugin: h.RegisteringPluginID, handler: h.HandlerID}
}

// Event is the Registry's record for a registered event. Only OwnerPluginID
// may trigger it.
type Event struct {
	FullName       string
	ArgumentSchema *jsonschema.Schema
	OwnerPluginID  abi.PluginID
	Handlers       map[handlerKey]HandlerRef
}

// OrderedHandlers returns this Event's handlers sorted by registration
// sequence number. Callers that need topological control (core:init)
// discard this order in favor of their own sort.
func (e *Event) OrderedHandlers() []HandlerRef {
	out := make([]HandlerRef, 0, len(e.Handlers))
	for _, h := range e.Handlers {
		out = append(out, h)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Seq < out[j-1].Seq; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// clone returns a deep-enough copy of the Event for RCU mutation: a new
// Handlers map so the original snapshot is untouched.
func (e *Event) clone() *Event {
	clone := &Event{
		FullName:       e.FullName,
		ArgumentSchema: e.ArgumentSchema,
		OwnerPluginID:  e.OwnerPluginID,
		Handlers:       make(map[handlerKey]HandlerRef, len(e.Handlers)+1),
	}
	for k, v := range e.Handlers {
		clone.Handlers[k] = v
	}
	return clone
}

// Endpoint is the Registry's record for a registered endpoint. Exactly one
// handler per endpoint.
type Endpoint struct {
	FullName       string
	ArgumentSchema *jsonschema.Schema
	ResponseSchema *jsonschema.Schema
	OwnerPluginID  abi.PluginID
	HandlerFP      abi.RawRequestHandlerFunc
}

type pluginMap = map[abi.PluginID]*Plugin
type eventMap = map[string]*Event
type endpointMap = map[string]*Endpoint

// Registry is the process's single concurrent store of mounted plugins,
// registered events, and registered endpoints.
type Registry struct {
	plugins   atomic.Pointer[pluginMap]
	events    atomic.Pointer[eventMap]
	endpoints atomic.Pointer[endpointMap]

	mountSeq   atomic.Int64
	handlerSeq atomic.Int64
}

// New returns an empty Registry, ready for Plugin Mount and Core Services
// to populate.
func New() *Registry {
	r := &Registry{}
	emptyPlugins := pluginMap{}
	emptyEvents := eventMap{}
	emptyEndpoints := endpointMap{}
	r.plugins.Store(&emptyPlugins)
	r.events.Store(&emptyEvents)
	r.endpoints.Store(&emptyEndpoints)
	return r
}

// rcuInsert clones the map behind p, lets mutate add/modify entries, and
// CASes the root until it succeeds. mutate returning a non-nil error aborts
// without retrying or publishing anything.
func rcuInsert[M ~map[K]V, K comparable, V any](p *atomic.Pointer[M], mutate func(clone M) error) error {
	for {
		old := p.Load()
		clone := make(M, len(*old)+1)
		for k, v := range *old {
			clone[k] = v
		}
		if err := mutate(clone); err != nil {
			return err
		}
		if p.CompareAndSwap(old, &clone) {
			return nil
		}
	}
}

// NextMountOrder mints the next plugin mount sequence number, used by
// ListPlugins for ordering and as the tie-break in core:init's
// topological handler order.
func (r *Registry) NextMountOrder() int64 { return r.mountSeq.Add(1) - 1 }

// AddPlugin inserts a newly mounted plugin. Mount has already validated
// name legality and uniqueness; a PluginID collision here is a host bug.
func (r *Registry) AddPlugin(p *Plugin) error {
	return rcuInsert(&r.plugins, func(clone pluginMap) error {
		if _, exists := clone[p.ID]; exists {
			return abi.NewServiceError(abi.Duplicate)
		}
		clone[p.ID] = p
		return nil
	})
}

// GetPlugin returns a snapshot of the plugin record for id.
func (r *Registry) GetPlugin(id abi.PluginID) (*Plugin, bool) {
	snapshot := *r.plugins.Load()
	p, ok := snapshot[id]
	return p, ok
}

// PluginByName scans the current snapshot for an exact, case-sensitive name
// match. Rare relative to dispatch, so a linear scan over the snapshot is
// acceptable.
func (r *Registry) PluginByName(name string) (*Plugin, bool) {
	snapshot := *r.plugins.Load()
	for _, p := range snapshot {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// ListPlugins returns every currently mounted plugin, in mount order.
func (r *Registry) ListPlugins() []*Plugin {
	snapshot := *r.plugins.Load()
	out := make([]*Plugin, 0, len(snapshot))
	for _, p := range snapshot {
		out = append(out, p)
	}
	sortPluginsByMountOrder(out)
	return out
}

func sortPluginsByMountOrder(plugins []*Plugin) {
	for i := 1; i < len(plugins); i++ {
		for j := i; j > 0 && plugins[j].MountOrder < plugins[j-1].MountOrder; j-- {
			plugins[j], plugins[j-1] = plugins[j-1], plugins[j]
		}
	}
}

// RemovePlugin drops a plugin record, used on unmount/restart.
func (r *Registry) RemovePlugin(id abi.PluginID) error {
	return rcuInsert(&r.plugins, func(clone pluginMap) error {
		if _, exists := clone[id]; !exists {
			return abi.NewServiceError(abi.NotFound)
		}
		delete(clone, id)
		return nil
	})
}

// RegisterEvent creates a new Event owned by ownerPluginID. Duplicate if
// fullName is already registered.
func (r *Registry) RegisterEvent(fullName string, ownerPluginID abi.PluginID, schema *jsonschema.Schema) error {
	return rcuInsert(&r.events, func(clone eventMap) error {
		if _, exists := clone[fullName]; exists {
			return abi.NewServiceError(abi.Duplicate)
		}
		clone[fullName] = &Event{
			FullName:       fullName,
			ArgumentSchema: schema,
			OwnerPluginID:  ownerPluginID,
			Handlers:       make(map[handlerKey]HandlerRef),
		}
		return nil
	})
}

// UnregisterEvent removes fullName's Event. NotFound if absent, Unauthorized
// if requestingPluginID does not own it.
func (r *Registry) UnregisterEvent(fullName string, requestingPluginID abi.PluginID) error {
	return rcuInsert(&r.events, func(clone eventMap) error {
		ev, exists := clone[fullName]
		if !exists {
			return abi.NewServiceError(abi.NotFound)
		}
		if ev.OwnerPluginID != requestingPluginID {
			return abi.NewServiceError(abi.Unauthorized)
		}
		delete(clone, fullName)
		return nil
	})
}

// GetEvent returns a snapshot of the Event (including its current handler
// set) for fullName.
func (r *Registry) GetEvent(fullName string) (*Event, bool) {
	snapshot := *r.events.Load()
	ev, ok := snapshot[fullName]
	return ev, ok
}

// AddHandler performs a keyed RCU update: clone the events map, clone and
// mutate the target Event, CAS the root. NotFound if fullName is absent.
func (r *Registry) AddHandler(fullName string, handler HandlerRef) error {
	return rcuInsert(&r.events, func(clone eventMap) error {
		ev, exists := clone[fullName]
		if !exists {
			return abi.NewServiceError(abi.NotFound)
		}
		next := ev.clone()
		if _, dup := next.Handlers[handler.key()]; dup {
			return abi.NewServiceError(abi.Duplicate)
		}
		handler.Seq = r.handlerSeq.Add(1) - 1
		next.Handlers[handler.key()] = handler
		clone[fullName] = next
		return nil
	})
}

// RemoveHandler removes a single handler from fullName's Event.
func (r *Registry) RemoveHandler(fullName string, registeringPluginID abi.PluginID, handlerID abi.HandlerID) error {
	return rcuInsert(&r.events, func(clone eventMap) error {
		ev, exists := clone[fullName]
		if !exists {
			return abi.NewServiceError(abi.NotFound)
		}
		key := handlerKey{plugin: registeringPluginID, handler: handlerID}
		if _, exists := ev.Handlers[key]; !exists {
			return abi.NewServiceError(abi.NotFound)
		}
		next := ev.clone()
		delete(next.Handlers, key)
		clone[fullName] = next
		return nil
	})
}

// RemovePluginHandlers drops every handler registered by pluginID across
// every event, used when that plugin unmounts. Events it owns are not
// touched here; callers remove owned events/endpoints separately.
func (r *Registry) RemovePluginHandlers(pluginID abi.PluginID) error {
	return rcuInsert(&r.events, func(clone eventMap) error {
		for name, ev := range clone {
			changed := false
			next := ev.clone()
			for key := range next.Handlers {
				if key.plugin == pluginID {
					delete(next.Handlers, key)
					changed = true
				}
			}
			if changed {
				clone[name] = next
			}
		}
		return nil
	})
}

// RegisterEndpoint creates a new Endpoint owned by ownerPluginID. Duplicate
// if fullName is already registered.
func (r *Registry) RegisterEndpoint(fullName string, ownerPluginID abi.PluginID, argSchema, respSchema *jsonschema.Schema, handler abi.RawRequestHandlerFunc) error {
	return rcuInsert(&r.endpoints, func(clone endpointMap) error {
		if _, exists := clone[fullName]; exists {
			return abi.NewServiceError(abi.Duplicate)
		}
		clone[fullName] = &Endpoint{
			FullName:       fullName,
			ArgumentSchema: argSchema,
			ResponseSchema: respSchema,
			OwnerPluginID:  ownerPluginID,
			HandlerFP:      handler,
		}
		return nil
	})
}

// UnregisterEndpoint removes fullName's Endpoint. NotFound if absent,
// Unauthorized if requestingPluginID does not own it.
func (r *Registry) UnregisterEndpoint(fullName string, requestingPluginID abi.PluginID) error {
	return rcuInsert(&r.endpoints, func(clone endpointMap) error {
		ep, exists := clone[fullName]
		if !exists {
			return abi.NewServiceError(abi.NotFound)
		}
		if ep.OwnerPluginID != requestingPluginID {
			return abi.NewServiceError(abi.Unauthorized)
		}
		delete(clone, fullName)
		return nil
	})
}

// GetEndpoint returns a snapshot of the Endpoint for fullName.
func (r *Registry) GetEndpoint(fullName string) (*Endpoint, bool) {
	snapshot := *r.endpoints.Load()
	ep, ok := snapshot[fullName]
	return ep, ok
}

// ListEndpointsOwnedBy returns the full names of every endpoint owned by
// pluginID, used to tear down registrations on unmount.
func (r *Registry) ListEndpointsOwnedBy(pluginID abi.PluginID) []string {
	snapshot := *r.endpoints.Load()
	var out []string
	for name, ep := range snapshot {
		if ep.OwnerPluginID == pluginID {
			out = append(out, name)
		}
	}
	return out
}

// ListEventsOwnedBy returns the full names of every event owned by
// pluginID, used to tear down registrations on unmount.
func (r *Registry) ListEventsOwnedBy(pluginID abi.PluginID) []string {
	snapshot := *r.events.Load()
	var out []string
	for name, ev := range snapshot {
		if ev.OwnerPluginID == pluginID {
			out = append(out, name)
		}
	}
	return out
}
