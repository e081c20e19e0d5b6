package coreservices

import (
	"errors"
	"testing"

	"github.com/haasonsaas/pluginhost/internal/abi"
)

type fakeConfigStore struct {
	tables map[string]map[string]any
	saved  []struct {
		plugin, key string
		value       any
	}
	reloadCalled bool
	reloadErr    error
}

func (s *fakeConfigStore) Load(pluginName string) (map[string]any, error) {
	table, ok := s.tables[pluginName]
	if !ok {
		return nil, errors.New("no such plugin config")
	}
	return table, nil
}

func (s *fakeConfigStore) Save(pluginName, key string, value any) error {
	s.saved = append(s.saved, struct {
		plugin, key string
		value       any
	}{pluginName, key, value})
	return nil
}

func (s *fakeConfigStore) Reload() error {
	s.reloadCalled = true
	return s.reloadErr
}

func ctxFor(requester string) abi.ApplicationContext {
	ctx := abi.ApplicationContext{}
	ctx.RequesterName = requester
	return ctx
}

func TestConfigEndpointLoadFullTable(t *testing.T) {
	store := &fakeConfigStore{tables: map[string]map[string]any{
		"echo": {"greeting": "hi"},
	}}
	handler := newConfigEndpointHandler(store)
	resp := handler(ctxFor("echo"), abi.NewForeignString(`{"action":"load"}`))
	if resp.Err != abi.Success {
		t.Fatalf("unexpected error: %s", resp.Err)
	}
	body, _ := resp.Body.AsError()
	if body == "" {
		t.Fatal("expected non-empty body")
	}
}

func TestConfigEndpointLoadByKeyNotFound(t *testing.T) {
	store := &fakeConfigStore{tables: map[string]map[string]any{
		"echo": {"greeting": "hi"},
	}}
	handler := newConfigEndpointHandler(store)
	resp := handler(ctxFor("echo"), abi.NewForeignString(`{"action":"load","key":"missing"}`))
	if resp.Err != abi.NotFound {
		t.Fatalf("expected NotFound, got %s", resp.Err)
	}
}

func TestConfigEndpointLoadUnknownPlugin(t *testing.T) {
	store := &fakeConfigStore{tables: map[string]map[string]any{}}
	handler := newConfigEndpointHandler(store)
	resp := handler(ctxFor("ghost"), abi.NewForeignString(`{"action":"load"}`))
	if resp.Err != abi.NotFound {
		t.Fatalf("expected NotFound, got %s", resp.Err)
	}
}

func TestConfigEndpointSaveRequiresKey(t *testing.T) {
	store := &fakeConfigStore{}
	handler := newConfigEndpointHandler(store)
	resp := handler(ctxFor("echo"), abi.NewForeignString(`{"action":"save","value":1}`))
	if resp.Err != abi.InvalidAPI {
		t.Fatalf("expected InvalidAPI, got %s", resp.Err)
	}
}

func TestConfigEndpointSaveScopedToRequester(t *testing.T) {
	store := &fakeConfigStore{}
	handler := newConfigEndpointHandler(store)
	resp := handler(ctxFor("echo"), abi.NewForeignString(`{"action":"save","key":"greeting","value":"hi"}`))
	if resp.Err != abi.Success {
		t.Fatalf("unexpected error: %s", resp.Err)
	}
	if len(store.saved) != 1 || store.saved[0].plugin != "echo" || store.saved[0].key != "greeting" {
		t.Fatalf("unexpected save record: %+v", store.saved)
	}
}

func TestConfigEndpointReload(t *testing.T) {
	store := &fakeConfigStore{}
	handler := newConfigEndpointHandler(store)
	resp := handler(ctxFor("echo"), abi.NewForeignString(`{"action":"reload"}`))
	if resp.Err != abi.Success {
		t.Fatalf("unexpected error: %s", resp.Err)
	}
	if !store.reloadCalled {
		t.Fatal("expected Reload to be called")
	}
}

func TestConfigEndpointReloadFailure(t *testing.T) {
	store := &fakeConfigStore{reloadErr: errors.New("disk error")}
	handler := newConfigEndpointHandler(store)
	resp := handler(ctxFor("echo"), abi.NewForeignString(`{"action":"reload"}`))
	if resp.Err != abi.CoreInternalError {
		t.Fatalf("expected CoreInternalError, got %s", resp.Err)
	}
}

func TestConfigEndpointUnknownAction(t *testing.T) {
	store := &fakeConfigStore{}
	handler := newConfigEndpointHandler(store)
	resp := handler(ctxFor("echo"), abi.NewForeignString(`{"action":"frobnicate"}`))
	if resp.Err != abi.InvalidAPI {
		t.Fatalf("expected InvalidAPI, got %s", resp.Err)
	}
}

func TestConfigEndpointInvalidJSON(t *testing.T) {
	store := &fakeConfigStore{}
	handler := newConfigEndpointHandler(store)
	resp := handler(ctxFor("echo"), abi.NewForeignString(`not json`))
	if resp.Err != abi.InvalidJSON {
		t.Fatalf("expected InvalidJSON, got %s", resp.Err)
	}
}
