package coreservices

import (
	"encoding/json"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/corenames"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

type configRequest struct {
	Action string `json:"action"`
	Key    string `json:"key,omitempty"`
	Value  any    `json:"value,omitempty"`
}

// RegisterCoreConfigEndpoint registers core:config, through which a plugin
// loads, saves, or triggers a reload of its own configuration. There is no
// response schema: the shape of a loaded value is whatever the plugin's
// own config happens to hold.
func RegisterCoreConfigEndpoint(reg *registry.Registry, store ConfigStore) error {
	return reg.RegisterEndpoint(
		corenames.EndpointConfig,
		corenames.CoreID,
		configRequestSchema,
		nil,
		newConfigEndpointHandler(store),
	)
}

func newConfigEndpointHandler(store ConfigStore) abi.RawRequestHandlerFunc {
	return func(rawCtx abi.ApplicationContext, args abi.ForeignString) abi.RawEndpointResponse {
		argJSON, err := args.AsError()
		if err != nil {
			return abi.RawEndpointResponse{Err: abi.AsServiceError(err)}
		}
		var req configRequest
		if err := json.Unmarshal([]byte(argJSON), &req); err != nil {
			return abi.RawEndpointResponse{Err: abi.InvalidJSON}
		}

		requesterName := abi.NewContext(rawCtx).RequesterName()

		switch req.Action {
		case "load":
			table, err := store.Load(requesterName)
			if err != nil {
				return abi.RawEndpointResponse{Err: abi.NotFound}
			}
			if req.Key == "" {
				body, _ := json.Marshal(table)
				return abi.RawEndpointResponse{Body: abi.NewForeignString(string(body))}
			}
			value, ok := table[req.Key]
			if !ok {
				return abi.RawEndpointResponse{Err: abi.NotFound}
			}
			body, _ := json.Marshal(value)
			return abi.RawEndpointResponse{Body: abi.NewForeignString(string(body))}
		case "save":
			if req.Key == "" {
				return abi.RawEndpointResponse{Err: abi.InvalidAPI}
			}
			if err := store.Save(requesterName, req.Key, req.Value); err != nil {
				return abi.RawEndpointResponse{Err: abi.CoreInternalError}
			}
			return abi.RawEndpointResponse{Body: abi.NewForeignString("{}")}
		case "reload":
			if err := store.Reload(); err != nil {
				return abi.RawEndpointResponse{Err: abi.CoreInternalError}
			}
			return abi.RawEndpointResponse{Body: abi.NewForeignString("{}")}
		default:
			return abi.RawEndpointResponse{Err: abi.InvalidAPI}
		}
	}
}
