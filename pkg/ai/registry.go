package ai

import (
	"fmt"
	"sort"
	"sync"

	"biochat/pkg/config"
)

// BackendType names a generation backend.
type BackendType string

const (
	BackendOpenAI     BackendType = config.BackendOpenAI
	BackendOpenRouter BackendType = config.BackendOpenRouter
	BackendGoogle     BackendType = config.BackendGoogle
	BackendDryRun     BackendType = config.BackendDryRun
)

// BackendConfig holds configuration for creating a generator.
type BackendConfig struct {
	Type   BackendType
	Config config.Config
}

// BackendFactory is a function that creates a Generator from config.
type BackendFactory func(cfg BackendConfig) (Generator, error)

// BackendInfo describes a registered backend.
type BackendInfo struct {
	Type        BackendType
	Name        string
	Description string
	RequiresKey bool
}

// Registry manages backend factories and instantiation.
type Registry struct {
	mu        sync.RWMutex
	factories map[BackendType]BackendFactory
	info      map[BackendType]BackendInfo
}

// NewRegistry creates a new backend registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[BackendType]BackendFactory),
		info:      make(map[BackendType]BackendInfo),
	}
}

// Register adds a backend factory to the registry.
func (r *Registry) Register(info BackendInfo, factory BackendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[info.Type] = factory
	r.info[info.Type] = info
}

// GetGenerator creates a generator instance by type.
func (r *Registry) GetGenerator(cfg BackendConfig) (Generator, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}

	return factory(cfg)
}

// ListBackends returns information about all registered backends, sorted by type.
func (r *Registry) ListBackends() []BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backends := make([]BackendInfo, 0, len(r.info))
	for _, info := range r.info {
		backends = append(backends, info)
	}
	sort.Slice(backends, func(i, j int) bool { return backends[i].Type < backends[j].Type })
	return backends
}

// GetBackendInfo returns information about a specific backend.
func (r *Registry) GetBackendInfo(backendType BackendType) (BackendInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.info[backendType]
	return info, ok
}

// IsRegistered checks if a backend type is registered.
func (r *Registry) IsRegistered(backendType BackendType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[backendType]
	return ok
}

// DefaultRegistry is the global backend registry.
var DefaultRegistry = NewRegistry()

// RegisterBackend registers a backend with the default registry.
func RegisterBackend(info BackendInfo, factory BackendFactory) {
	DefaultRegistry.Register(info, factory)
}

// ListBackends returns all backends from the default registry.
func ListBackends() []BackendInfo {
	return DefaultRegistry.ListBackends()
}

// ValidateBackendType checks if a backend type string is one the config accepts.
func ValidateBackendType(s string) (BackendType, bool) {
	for _, supported := range config.SupportedBackends() {
		if s == supported {
			return BackendType(s), true
		}
	}
	return "", false
}

// NewCapabilityFromConfig builds the chat template and generator described by
// cfg using the default registry. DryRun forces the offline backend.
func NewCapabilityFromConfig(cfg config.Config) (Capability, error) {
	return DefaultRegistry.NewCapability(cfg)
}

// NewCapability builds a capability from cfg using this registry.
func (r *Registry) NewCapability(cfg config.Config) (Capability, error) {
	backendType, ok := ValidateBackendType(cfg.Backend)
	if !ok {
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
	if cfg.DryRun {
		backendType = BackendDryRun
	}

	tmpl, err := ResolveTemplate(cfg.ChatTemplate, cfg.Model)
	if err != nil {
		return nil, err
	}

	gen, err := r.GetGenerator(BackendConfig{Type: backendType, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", backendType, err)
	}

	return NewCapability(cfg.Model, tmpl, gen), nil
}
