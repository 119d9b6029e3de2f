// Package flags switches optional surfaces of the web server on and off.
// Flags are read-only after initialization; unknown flags are off.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/pagetypes/internal/log"
)

// Flag names.
const (
	// FlagWebAPI exposes the automation API below /api.
	FlagWebAPI = "web-api"
	// FlagLogStream exposes the log as server-sent events.
	FlagLogStream = "log-stream"
	// FlagMetrics exposes the Prometheus endpoint.
	FlagMetrics = "metrics"
)

// Defaults are the values of flags missing from the configuration.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagWebAPI:    true,
		FlagLogStream: false,
		FlagMetrics:   true,
	}
}

// Registry holds the flag values.
type Registry struct {
	flags map[string]bool
}

// New merges the configured values over Defaults. Configured names that
// are not known are kept and logged.
func New(configured map[string]bool) *Registry {
	flags := Defaults()
	for name, v := range configured {
		if _, known := flags[name]; !known {
			log.Warn(log.CatConfig, "Unknown feature flag", "flag", name)
		}
		flags[name] = v
	}
	r := &Registry{flags: flags}
	log.Debug(log.CatConfig, "Feature flags initialized", "flags", r.All())
	return r
}

// Enabled reports whether the named flag is on. A nil registry has
// every flag off.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of all flags.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return map[string]bool{}
	}
	return maps.Clone(r.flags)
}

// Names lists the flag names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.flags))
}
