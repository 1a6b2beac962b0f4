// Package plugin holds the startup-time registry of pluggable components.
package plugin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/marketscope/predictd/pkg/models"
)

// Capability tags the role a registered instance plays. Only feeder and
// predictor are invoked by the pipeline; the rest exist for transport and
// lifecycle wiring.
type Capability string

const (
	CapabilityFeeder    Capability = "feeder"
	CapabilityPredictor Capability = "predictor"
	CapabilityPipeline  Capability = "pipeline"
	CapabilityCore      Capability = "core"
	CapabilityEndpoints Capability = "endpoints"
)

var (
	ErrDuplicate = errors.New("plugin already registered")
	ErrNotFound  = errors.New("plugin not found")
)

type key struct {
	capability Capability
	name       string
}

// Registry indexes plugin instances by (capability, name). Registration
// happens once at process startup; the registry is read-only thereafter.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]any
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]any)}
}

// Register stores instance under (capability, name). Fails with ErrDuplicate
// if the pair is already taken.
func (r *Registry) Register(capability Capability, name string, instance any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{capability: capability, name: name}
	if _, exists := r.entries[k]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, capability, name)
	}
	r.entries[k] = instance
	return nil
}

// Get returns the instance registered under (capability, name), or ErrNotFound.
func (r *Registry) Get(capability Capability, name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.entries[key{capability: capability, name: name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, capability, name)
	}
	return instance, nil
}

// Feeder resolves a registered feeder by name.
func (r *Registry) Feeder(name string) (models.Feeder, error) {
	instance, err := r.Get(CapabilityFeeder, name)
	if err != nil {
		return nil, err
	}
	feeder, ok := instance.(models.Feeder)
	if !ok {
		return nil, fmt.Errorf("plugin %s/%s does not implement Feeder", CapabilityFeeder, name)
	}
	return feeder, nil
}

// Predictor resolves a registered predictor by name.
func (r *Registry) Predictor(name string) (models.Predictor, error) {
	instance, err := r.Get(CapabilityPredictor, name)
	if err != nil {
		return nil, err
	}
	predictor, ok := instance.(models.Predictor)
	if !ok {
		return nil, fmt.Errorf("plugin %s/%s does not implement Predictor", CapabilityPredictor, name)
	}
	return predictor, nil
}
