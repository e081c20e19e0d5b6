// Package corenames holds the well-known names of the built-in events and
// endpoints owned by core_id, shared by internal/dispatcher (which needs to
// special-case core:init's ordering) and internal/coreservices (which
// registers and serves them) without creating an import cycle between the
// two.
package corenames

import "github.com/haasonsaas/pluginhost/internal/abi"

// CoreID is the well-known owner PluginID of every built-in event and
// endpoint: the zero-value PluginID, since the host itself never goes
// through Plugin Mount and so never receives a minted id.
var CoreID abi.PluginID

const (
	EventInit     = "core:init"
	EventEvent    = "core:event"
	EventEndpoint = "core:endpoint"
	EventPower    = "core:power"

	EndpointPower  = "core:power"
	EndpointConfig = "core:config"
)
