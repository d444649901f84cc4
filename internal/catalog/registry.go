package catalog

import (
	"sort"
	"time"
)

// Config holds job catalog configuration
type Config struct {
	MaxPingCount   int
	PingTimeout    time.Duration
	PingPriceOctas int64
}

// Entry describes one registered job type
type Entry struct {
	Name       string
	PriceOctas int64
	New        Factory
}

// Registry maps job type names to their entries
type Registry struct {
	entries map[string]Entry
}

// NewRegistry builds the registry with the built-in job types
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		entries: make(map[string]Entry),
	}

	r.register(Entry{
		Name:       "ping",
		PriceOctas: cfg.PingPriceOctas,
		New: func(jobID string, params map[string]any) Job {
			return newPingJob(jobID, params, cfg.MaxPingCount, cfg.PingTimeout)
		},
	})

	return r
}

func (r *Registry) register(e Entry) {
	r.entries[e.Name] = e
}

// Resolve looks up a job type by name
func (r *Registry) Resolve(name string) (Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, ErrUnknownJobType
	}
	return e, nil
}

// List returns all registered entries sorted by name
func (r *Registry) List() []Entry {
	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries
}
