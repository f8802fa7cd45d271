package tools

import (
	"log"
	"sort"

	"github.com/mohammad-safakhou/taskpilot/config"
)

// Registry is the fixed mapping from tool identifier to capability.
// It is built once at startup and read-only afterwards.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds the registry with the two capabilities this system
// ships: GitHub repository search and OpenWeatherMap weather lookup.
func NewRegistry(cfg config.ToolsConfig, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(log.Writer(), "[TOOLS] ", log.LstdFlags)
	}
	httpc := NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.Retries, cfg.HTTP.Backoff)

	reg := &Registry{tools: make(map[string]Tool)}
	reg.register(NewGitHubSearch(cfg.GitHub, httpc, logger))
	reg.register(NewWeatherLookup(cfg.Weather, httpc, logger))
	return reg
}

// NewRegistryWith builds a registry from explicit tools; used by tests and
// anywhere the stock capabilities are not wanted.
func NewRegistryWith(ts ...Tool) *Registry {
	reg := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		reg.register(t)
	}
	return reg
}

func (r *Registry) register(t Tool) {
	r.tools[t.Name()] = t
}

// Resolve returns the capability registered under the given identifier.
func (r *Registry) Resolve(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool identifiers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registered capabilities sorted by identifier.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}
