package vehicle

import (
	"maps"
	"slices"
)

// ReservedKeys are the event arguments set by the vehicle itself. Metadata
// under these keys never reaches an event.
var ReservedKeys = []string{"trip_id", "stop", "position", "origin", "destination", "traveled_distance"}

// IsReservedKey reports whether k is owned by the vehicle.
func IsReservedKey(k string) bool {
	return slices.Contains(ReservedKeys, k)
}

// Context is the transient payload carried by a vehicle across a move/stop
// cycle. It is stored when a move begins and cleared when the vehicle returns
// to idling. Vehicles keep their own copy.
type Context struct {
	TripID   string
	Metadata map[string]any
}

// IsEmpty reports whether the context carries no data.
func (c Context) IsEmpty() bool {
	return c.TripID == "" && len(c.Metadata) == 0
}

// Clone returns a deep-enough copy: the metadata map is duplicated, its values are shared.
func (c Context) Clone() Context {
	return Context{
		TripID:   c.TripID,
		Metadata: maps.Clone(c.Metadata),
	}
}

// kwargs flattens the context into transition event arguments.
func (c Context) kwargs() map[string]any {
	out := make(map[string]any, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		if !IsReservedKey(k) {
			out[k] = v
		}
	}
	if c.TripID != "" {
		out["trip_id"] = c.TripID
	}
	return out
}
