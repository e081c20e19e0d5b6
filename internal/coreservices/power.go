package coreservices

import (
	"encoding/json"
	"time"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/corenames"
	"github.com/haasonsaas/pluginhost/internal/powerstate"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

type powerRequest struct {
	Command string `json:"command"`
	Delay   *int   `json:"delay,omitempty"`
}

type powerEventPayload struct {
	Command   string `json:"command"`
	Timestamp string `json:"timestamp"`
	Delay     *int   `json:"delay,omitempty"`
}

type powerResponse struct {
	Canceled bool `json:"canceled"`
}

var commandToState = map[string]powerstate.State{
	"shutdown": powerstate.Shutdown,
	"restart":  powerstate.Restart,
	"cancel":   powerstate.Cancel,
}

// RegisterCorePowerEndpoint registers core:power, the endpoint through
// which any plugin issues or vetoes a power transition. The sleep between
// firing core:power and committing the transition gives plugins a window
// to observe the event and call this endpoint again with command=cancel.
func RegisterCorePowerEndpoint(reg *registry.Registry, power *powerstate.Atomic) error {
	return reg.RegisterEndpoint(
		corenames.EndpointPower,
		corenames.CoreID,
		powerRequestSchema,
		powerResponseSchema,
		newPowerEndpointHandler(power),
	)
}

func newPowerEndpointHandler(power *powerstate.Atomic) abi.RawRequestHandlerFunc {
	return func(rawCtx abi.ApplicationContext, args abi.ForeignString) abi.RawEndpointResponse {
		if state := power.Load(); state == powerstate.Shutdown || state == powerstate.Restart {
			return abi.RawEndpointResponse{Err: abi.ShuttingDown}
		}

		argJSON, err := args.AsError()
		if err != nil {
			return abi.RawEndpointResponse{Err: abi.AsServiceError(err)}
		}
		var req powerRequest
		if err := json.Unmarshal([]byte(argJSON), &req); err != nil {
			return abi.RawEndpointResponse{Err: abi.InvalidJSON}
		}
		target, ok := commandToState[req.Command]
		if !ok {
			return abi.RawEndpointResponse{Err: abi.InvalidAPI}
		}

		ctx := abi.NewContext(rawCtx)
		eventPayload, _ := json.Marshal(powerEventPayload{
			Command:   req.Command,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Delay:     req.Delay,
		})
		// A failure to fire the notification event must not block the
		// power transition itself; it is best-effort observability.
		_ = ctx.TriggerEvent(corenames.CoreID, corenames.EventPower, string(eventPayload))

		if req.Delay != nil && *req.Delay > 0 {
			time.Sleep(time.Duration(*req.Delay) * time.Millisecond)
		}

		if power.ReadAndReset() == powerstate.Cancel {
			body, _ := json.Marshal(powerResponse{Canceled: true})
			return abi.RawEndpointResponse{Body: abi.NewForeignString(string(body))}
		}
		power.Store(target)
		return abi.RawEndpointResponse{Body: abi.NewForeignString("{}")}
	}
}
