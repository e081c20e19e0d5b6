// Package abi is the ABI Bridge: the bidirectional adapter layer between
// safe, idiomatic host calls and the raw wire shape plugins are allowed to
// cross the host/plugin boundary with.
package abi

import (
	"fmt"

	"github.com/google/uuid"
)

// PluginID uniquely identifies a mounted plugin. Minted by the host at
// mount time; never by a plugin.
type PluginID uuid.UUID

// HandlerID uniquely identifies a registered event handler within its
// registering plugin. Minted by the host at registration time.
type HandlerID uuid.UUID

// NewPluginID mints a fresh, random PluginID.
func NewPluginID() PluginID {
	return PluginID(uuid.New())
}

// NewHandlerID mints a fresh, random HandlerID.
func NewHandlerID() HandlerID {
	return HandlerID(uuid.New())
}

func (id PluginID) String() string  { return uuid.UUID(id).String() }
func (id HandlerID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the ID was never minted.
func (id PluginID) IsZero() bool { return id == PluginID{} }

// RawID is the lossless u64×u64 transport for a 128-bit identifier,
// matching the spec's "Foreign unique-identifier values are 128-bit pairs
// convertible to/from the host's native identifier type" contract.
type RawID struct {
	Hi uint64
	Lo uint64
}

// ToRaw packs a PluginID into its wire transport.
func (id PluginID) ToRaw() RawID { return rawFromUUID(uuid.UUID(id)) }

// PluginIDFromRaw unpacks a PluginID from its wire transport.
func PluginIDFromRaw(raw RawID) PluginID { return PluginID(uuidFromRaw(raw)) }

// ToRaw packs a HandlerID into its wire transport.
func (id HandlerID) ToRaw() RawID { return rawFromUUID(uuid.UUID(id)) }

// HandlerIDFromRaw unpacks a HandlerID from its wire transport.
func HandlerIDFromRaw(raw RawID) HandlerID { return HandlerID(uuidFromRaw(raw)) }

func rawFromUUID(id uuid.UUID) RawID {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(id[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(id[i])
	}
	return RawID{Hi: hi, Lo: lo}
}

func uuidFromRaw(raw RawID) uuid.UUID {
	var id uuid.UUID
	for i := 7; i >= 0; i-- {
		id[i] = byte(raw.Hi)
		raw.Hi >>= 8
	}
	for i := 15; i >= 8; i-- {
		id[i] = byte(raw.Lo)
		raw.Lo >>= 8
	}
	return id
}

// String implements fmt.Stringer for debugging raw IDs without exposing
// the packing scheme.
func (r RawID) String() string {
	return fmt.Sprintf("%016x%016x", r.Hi, r.Lo)
}
