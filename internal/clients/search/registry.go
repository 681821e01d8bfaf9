package search

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const requestTimeout = 20 * time.Second

// Registry holds one Searcher per configured indexer site and resolves
// the "default" engine name.
type Registry struct {
	engines     map[string]Searcher
	defaultName string
	log         *logrus.Logger
}

// NewRegistry builds every site engine, applying per-site mirror
// overrides from the config file. An unknown default falls back to the
// first declarative site.
func NewRegistry(mirrors map[string]string, defaultEngine string, logger *logrus.Logger) *Registry {
	r := &Registry{
		engines: make(map[string]Searcher, len(siteConfigs)+1),
		log:     logger,
	}

	for _, cfg := range siteConfigs {
		if m, ok := mirrors[cfg.Name]; ok && m != "" {
			cfg.Mirror = m
		}
		r.engines[cfg.Name] = NewEngine(cfg, requestTimeout, logger)
	}
	r.engines["showrss"] = NewShowRSSEngine(mirrors["showrss"], requestTimeout, logger)

	if _, ok := r.engines[defaultEngine]; !ok {
		if defaultEngine != "" {
			logger.WithField("engine", defaultEngine).Warn("Unknown default engine, falling back")
		}
		defaultEngine = siteConfigs[0].Name
	}
	r.defaultName = defaultEngine
	return r
}

// Get resolves an engine by name. Empty or "default" yields the
// configured default engine.
func (r *Registry) Get(name string) (Searcher, error) {
	if name == "" || name == "default" {
		name = r.defaultName
	}
	s, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown search engine %q", name)
	}
	return s, nil
}

func (r *Registry) Default() Searcher {
	return r.engines[r.defaultName]
}

// Names lists the registered engine names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	return names
}
