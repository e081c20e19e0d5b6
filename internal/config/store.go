// Package config is internal/coreservices's concrete ConfigStore
// collaborator: per-plugin TOML files under <config-root>/config/, overlaid
// by environment variables, overlaid in turn by CLI --plugin arguments,
// exactly the "files, then env, then CLI — last wins per key" precedence
// 4.D's start sequence specifies.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml"
)

// Store implements coreservices.ConfigStore.
type Store struct {
	configRoot string

	mu       sync.Mutex
	trees    map[string]*toml.Tree      // pluginName -> parsed file, lazily loaded
	overlays map[string]map[string]any // pluginName -> key -> overriding value, fixed at NewStore
}

// NewStore builds a Store rooted at configRoot. cliArgs is the repeated
// --plugin <name>:<key>=<value> flag values; environment variables prefixed
// per envPrefix(configRoot) are folded in first, so a CLI argument for the
// same (plugin, key) pair always wins.
func NewStore(configRoot string, cliArgs []string) (*Store, error) {
	s := &Store{
		configRoot: configRoot,
		trees:      make(map[string]*toml.Tree),
		overlays:   make(map[string]map[string]any),
	}

	prefix := envPrefix(configRoot) + "_"
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := s.applyOverlay(value); err != nil {
			return nil, fmt.Errorf("environment overlay %s: %w", name, err)
		}
	}
	for _, arg := range cliArgs {
		if err := s.applyOverlay(arg); err != nil {
			return nil, fmt.Errorf("--plugin %s: %w", arg, err)
		}
	}
	return s, nil
}

func (s *Store) applyOverlay(arg string) error {
	plugin, key, value, err := parseOverlay(arg)
	if err != nil {
		return err
	}
	table, ok := s.overlays[plugin]
	if !ok {
		table = make(map[string]any)
		s.overlays[plugin] = table
	}
	table[key] = value
	return nil
}

func (s *Store) pluginFilePath(pluginName string) string {
	return filepath.Join(s.configRoot, "config", pluginName+".toml")
}

// loadTree returns the cached parsed file for pluginName, reading it from
// disk on first access. A missing file is an empty table, not an error:
// a plugin with no config file may still receive overlay-only values.
func (s *Store) loadTree(pluginName string) (*toml.Tree, error) {
	if tree, ok := s.trees[pluginName]; ok {
		return tree, nil
	}
	data, err := os.ReadFile(s.pluginFilePath(pluginName))
	if err != nil {
		if os.IsNotExist(err) {
			tree, _ := toml.Load("")
			s.trees[pluginName] = tree
			return tree, nil
		}
		return nil, fmt.Errorf("read config for %q: %w", pluginName, err)
	}
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse config for %q: %w", pluginName, err)
	}
	s.trees[pluginName] = tree
	return tree, nil
}

// Load returns pluginName's full config table: file contents overlaid by
// any matching environment/CLI overrides.
func (s *Store) Load(pluginName string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadTree(pluginName)
	if err != nil {
		return nil, err
	}
	merged := tree.ToMap()
	if merged == nil {
		merged = make(map[string]any)
	}
	for k, v := range s.overlays[pluginName] {
		merged[k] = v
	}
	return merged, nil
}

// Save writes a single key into pluginName's file on disk, creating the
// config directory and file if necessary. Overlay values are not touched:
// an overlay for the same key still wins on the next Load, matching the
// spec's "last wins per key" precedence.
func (s *Store) Save(pluginName, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadTree(pluginName)
	if err != nil {
		return err
	}
	tree.Set(key, value)

	path := s.pluginFilePath(pluginName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory for %q: %w", pluginName, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open config file for %q: %w", pluginName, err)
	}
	defer f.Close()
	if _, err := tree.WriteTo(f); err != nil {
		return fmt.Errorf("write config file for %q: %w", pluginName, err)
	}
	return nil
}

// Reload drops every cached file tree so the next Load re-reads from disk.
// Overlay values (environment, CLI) are fixed for the process lifetime and
// are not re-scanned.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trees = make(map[string]*toml.Tree)
	return nil
}
