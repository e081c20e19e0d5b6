package abi

import "fmt"

// ApiVersion is the plugin/host compatibility version. Two versions are
// compatible iff Major and Feature are equal; Patch is ignored.
type ApiVersion struct {
	Major   uint16
	Feature uint8
	Patch   uint8
}

func (v ApiVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Feature, v.Patch)
}

// Compatible implements the mount-time API version gate.
func (v ApiVersion) Compatible(other ApiVersion) bool {
	return v.Major == other.Major && v.Feature == other.Feature
}

// HostApiVersion is the API version this host build implements. Bumping
// Major or Feature is a breaking change for every mounted plugin.
var HostApiVersion = ApiVersion{Major: 1, Feature: 0, Patch: 0}

// PluginManifest is what a plugin's entry point returns to the host.
type PluginManifest struct {
	Name         string
	Version      string
	Dependencies []string
	ApiVersion   ApiVersion
	InitHandler  RawEventHandlerFunc
}

// PluginImage is the opaque, already-loaded-code capability the Lifecycle
// hands to Plugin Mount. Locating a file and resolving its entry symbol is
// out of scope for the core; a PluginImage is whatever already did that.
type PluginImage interface {
	// PluginMain is the single entry point: plugin_main(plugin_id) -> manifest.
	PluginMain(id PluginID) (PluginManifest, error)
}
