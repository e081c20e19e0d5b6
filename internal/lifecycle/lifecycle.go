// Package lifecycle is the Lifecycle component: the main park/wake loop
// that drives start, restart, and shutdown, plus the plugin directory scan
// that feeds internal/mount. It is the only package that imports both
// internal/governor and internal/mount, since it is the one place the two
// meet.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/haasonsaas/pluginhost/internal/abi"
	"github.com/haasonsaas/pluginhost/internal/corenames"
	"github.com/haasonsaas/pluginhost/internal/governor"
	"github.com/haasonsaas/pluginhost/internal/mount"
	"github.com/haasonsaas/pluginhost/internal/powerstate"
)

// pluginLibrarySuffix is the extension Plugin Mount's directory scan looks
// for: the host loads plugins through Go's native plugin package, so a
// mountable plugin is a built Go shared object, not a manifest file.
const pluginLibrarySuffix = ".so"

// Lifecycle owns the park/wake loop described in 4.D. It is constructed
// once per process and run from main; a Restart tears down and rebuilds
// the Governor it wraps, in place.
type Lifecycle struct {
	pluginDir   string
	hostVersion abi.ApiVersion
	buildConfig func(configRoot string) governor.Config
	logger      *slog.Logger
}

// New constructs a Lifecycle. buildConfig mints a fresh governor.Config for
// a given config root; it is called once at start and again on every
// restart, since the Governor it feeds is rebuilt from scratch each time.
func New(pluginDir string, hostVersion abi.ApiVersion, buildConfig func(configRoot string) governor.Config, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		pluginDir:   pluginDir,
		hostVersion: hostVersion,
		buildConfig: buildConfig,
		logger:      logger,
	}
}

// Start runs 4.D's start sequence against configRoot: parse configuration,
// scan and mount every plugin found under l.pluginDir, then fire core:init.
// It installs the fresh Governor as the process-wide singleton before
// returning.
func (l *Lifecycle) Start(configRoot string) error {
	cfg := l.buildConfig(configRoot)
	g, err := governor.New(cfg)
	if err != nil {
		return fmt.Errorf("build governor: %w", err)
	}

	plugins, err := l.scanAndMount(g)
	if err != nil {
		g.Shutdown()
		return err
	}

	governor.Publish(g)

	initArgs, err := coreInitArgs(l.hostVersion, plugins)
	if err != nil {
		return fmt.Errorf("build core:init args: %w", err)
	}
	if err := g.Dispatcher.TriggerEvent(g.CoreID, corenames.EventInit, initArgs); err != nil {
		return fmt.Errorf("fire core:init: %w", err)
	}
	return nil
}

// scanAndMount walks l.pluginDir for *.so files, loads and mounts each one,
// then runs the strengthened mount-time dependency check over the whole
// batch.
func (l *Lifecycle) scanAndMount(g *governor.Governor) ([]*pluginRecord, error) {
	var records []*pluginRecord
	if l.pluginDir == "" {
		return records, nil
	}

	info, statErr := os.Stat(l.pluginDir)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return records, nil
		}
		return nil, fmt.Errorf("stat plugin directory: %w", statErr)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("plugin path %q is not a directory", l.pluginDir)
	}

	err := filepath.WalkDir(l.pluginDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), pluginLibrarySuffix) {
			return nil
		}
		image, err := mount.LoadImage(path)
		if err != nil {
			return fmt.Errorf("load plugin %s: %w", path, err)
		}
		p, err := mount.Mount(g.Registry, l.hostVersion, image)
		if err != nil {
			return fmt.Errorf("mount plugin %s: %w", path, err)
		}
		l.logger.Info("mounted plugin", "name", p.Name, "version", p.Version, "path", path)
		records = append(records, &pluginRecord{Name: p.Name, Version: p.Version})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := mount.ValidateDependencies(g.Registry); err != nil {
		return nil, err
	}
	return records, nil
}

type pluginRecord struct {
	Name    string
	Version string
}

func coreInitArgs(hostVersion abi.ApiVersion, plugins []*pluginRecord) (string, error) {
	type pluginEntry struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	payload := struct {
		CoreVersion string        `json:"core_version"`
		Plugins     []pluginEntry `json:"plugins"`
	}{
		CoreVersion: hostVersion.String(),
		Plugins:     make([]pluginEntry, 0, len(plugins)),
	}
	for _, p := range plugins {
		payload.Plugins = append(payload.Plugins, pluginEntry{Name: p.Name, Version: p.Version})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Run installs the SIGINT/SIGTERM handler and blocks in the park/wake loop
// until Shutdown is requested, then tears the Governor down and returns.
// Each iteration parks on the *current* Governor's PowerState.Woken, so a
// Restart that swaps in a fresh Governor (and so a fresh PowerState) is
// picked up on the next loop iteration automatically. Callers must call
// Start at least once, publishing the first Governor, before calling Run.
func (l *Lifecycle) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if g := governor.Get(); g != nil {
			g.Power.Store(powerstate.Shutdown)
		}
	}()

	for {
		g := governor.Get()
		if g == nil {
			return fmt.Errorf("lifecycle run: no governor published")
		}
		<-g.Power.Woken()
		switch g.Power.ReadAndReset() {
		case powerstate.Shutdown:
			g.Shutdown()
			return nil
		case powerstate.Restart:
			g.Shutdown()
			l.logger.Info("restarting", "config_root", g.ConfigRoot)
			if err := l.Start(g.ConfigRoot); err != nil {
				return fmt.Errorf("restart: %w", err)
			}
		default:
			// Cancel or a stray wake: keep parking.
		}
	}
}
