// Package provider wires webhook adapters and the outbound billing client.
package provider

import (
	"strings"

	"github.com/agiletools/billingsync/internal/provider/domain"
)

// Registry maps provider path segments to their webhook adapters.
type Registry struct {
	adapters map[string]domain.Adapter
}

func NewRegistry(adapters ...domain.Adapter) *Registry {
	registry := &Registry{adapters: map[string]domain.Adapter{}}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(adapter.Provider()))
		if name == "" {
			continue
		}
		registry.adapters[name] = adapter
	}
	return registry
}

func (r *Registry) Adapter(provider string) (domain.Adapter, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return adapter, nil
}
