package dispatcher

import "github.com/haasonsaas/pluginhost/internal/registry"

// topoOrderPlugins orders plugins so that every plugin appears after all
// plugins named in its Dependencies, breaking ties by mount order. This is
// a direct reimplementation of the original Rust core's Kahn's-algorithm
// sort_handlers over the dependency-name graph; no topo-sort library in
// the example pack served this narrowly enough to be worth pulling in for
// a handful of integer arithmetic, so it is hand-written (documented as
// the justified stdlib exception).
//
// Returns an error if a dependency name does not resolve to a mounted
// plugin, or if the graph has a cycle.
func topoOrderPlugins(plugins []*registry.Plugin) ([]*registry.Plugin, error) {
	byName := make(map[string]*registry.Plugin, len(plugins))
	for _, p := range plugins {
		byName[p.Name] = p
	}

	indegree := make(map[string]int, len(plugins))
	dependents := make(map[string][]string, len(plugins))
	for _, p := range plugins {
		if _, ok := indegree[p.Name]; !ok {
			indegree[p.Name] = 0
		}
		for _, dep := range p.Dependencies {
			if _, ok := byName[dep]; !ok {
				return nil, errMissingDependency(p.Name, dep)
			}
			indegree[p.Name]++
			dependents[dep] = append(dependents[dep], p.Name)
		}
	}

	// Seed the ready queue with zero-indegree plugins, ordered by mount
	// order so ties resolve deterministically.
	ready := make([]*registry.Plugin, 0, len(plugins))
	for _, p := range plugins {
		if indegree[p.Name] == 0 {
			ready = append(ready, p)
		}
	}
	sortByMountOrder(ready)

	ordered := make([]*registry.Plugin, 0, len(plugins))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)

		var newlyReady []*registry.Plugin
		for _, depName := range dependents[next.Name] {
			indegree[depName]--
			if indegree[depName] == 0 {
				newlyReady = append(newlyReady, byName[depName])
			}
		}
		sortByMountOrder(newlyReady)
		ready = append(ready, newlyReady...)
		sortByMountOrder(ready)
	}

	if len(ordered) != len(plugins) {
		return nil, errDependencyCycle()
	}
	return ordered, nil
}

func sortByMountOrder(plugins []*registry.Plugin) {
	for i := 1; i < len(plugins); i++ {
		for j := i; j > 0 && plugins[j].MountOrder < plugins[j-1].MountOrder; j-- {
			plugins[j], plugins[j-1] = plugins[j-1], plugins[j]
		}
	}
}
