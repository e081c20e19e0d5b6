package dispatcher

import (
	"testing"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/registry"
)

func plugin(name string, mountOrder int64, deps ...string) *registry.Plugin {
	return &registry.Plugin{
		ID:           abi.NewPluginID(),
		Name:         name,
		Dependencies: deps,
		MountOrder:   mountOrder,
	}
}

func TestTopoOrderPluginsRespectsDependencies(t *testing.T) {
	a := plugin("a", 0)
	b := plugin("b", 1, "a")
	c := plugin("c", 2, "b")
	ordered, err := topoOrderPlugins([]*registry.Plugin{c, b, a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ordered) != 3 || ordered[0].Name != "a" || ordered[1].Name != "b" || ordered[2].Name != "c" {
		t.Fatalf("unexpected order: %v", names(ordered))
	}
}

func TestTopoOrderPluginsBreaksTiesByMountOrder(t *testing.T) {
	a := plugin("a", 5)
	b := plugin("b", 1)
	ordered, err := topoOrderPlugins([]*registry.Plugin{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ordered[0].Name != "b" || ordered[1].Name != "a" {
		t.Fatalf("expected mount-order tiebreak, got %v", names(ordered))
	}
}

func TestTopoOrderPluginsMissingDependencyIsCoreInternalError(t *testing.T) {
	a := plugin("a", 0, "ghost")
	_, err := topoOrderPlugins([]*registry.Plugin{a})
	if abi.AsServiceError(err) != abi.CoreInternalError {
		t.Fatalf("expected CoreInternalError, got %v", err)
	}
}

func TestTopoOrderPluginsCycleIsCoreInternalError(t *testing.T) {
	a := plugin("a", 0, "b")
	b := plugin("b", 1, "a")
	_, err := topoOrderPlugins([]*registry.Plugin{a, b})
	if abi.AsServiceError(err) != abi.CoreInternalError {
		t.Fatalf("expected CoreInternalError, got %v", err)
	}
}

func names(plugins []*registry.Plugin) []string {
	out := make([]string, len(plugins))
	for i, p := range plugins {
		out[i] = p.Name
	}
	return out
}
