// Package registry holds the snapshot of LMS players known by name.
//
// The registry is populated once at startup from one or more sources (the
// Castbridge plugin preferences, a YAML device list, inline configuration)
// and is read-only afterwards, so lookups need no locking.
package registry

import (
	"log/slog"
	"sort"

	"github.com/nadzzz/jukebox/internal/message"
)

// Registry maps player display names to LMS player ids.
type Registry struct {
	byName  map[string]string
	devices []message.Device
}

// New builds a registry from devices. When two devices share a name the
// later one wins.
func New(devices ...message.Device) *Registry {
	byName := make(map[string]string, len(devices))
	for _, d := range devices {
		if d.Name == "" || d.ID == "" {
			continue
		}
		if prev, ok := byName[d.Name]; ok && prev != d.ID {
			slog.Warn("duplicate player name, keeping last", "name", d.Name, "previous", prev, "id", d.ID)
		}
		byName[d.Name] = d.ID
	}

	list := make([]message.Device, 0, len(byName))
	for name, id := range byName {
		list = append(list, message.Device{Name: name, ID: id})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	return &Registry{byName: byName, devices: list}
}

// Resolve returns the id registered for name. The match is exact and
// case-sensitive; a miss is not an error.
func (r *Registry) Resolve(name string) (string, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Devices returns the registered players sorted by name.
func (r *Registry) Devices() []message.Device {
	out := make([]message.Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Len returns the number of registered players.
func (r *Registry) Len() int { return len(r.byName) }

// DefaultID returns the id of the player called name if it is registered,
// otherwise fallback.
func (r *Registry) DefaultID(name, fallback string) string {
	if name != "" {
		if id, ok := r.byName[name]; ok {
			return id
		}
	}
	return fallback
}
