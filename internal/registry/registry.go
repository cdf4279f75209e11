// Package registry maps module type names from pipeline configuration to
// their constructors.
//
// Built-in modules (file, sqlite and sample inputs; condition and script
// filters; console and file outputs) register themselves in init(). A new
// module type only needs to implement the input, filter or output Module
// interface and register a constructor:
//
//	func init() {
//	    registry.RegisterInput("csv", func(cfg rental.ModuleConfig) (input.Module, error) {
//	        return NewCSVModule(cfg.Config)
//	    })
//	}
//
// Unknown types are a configuration error; there is no fallback module.
package registry

import (
	"slices"
	"sync"

	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/filter"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/input"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/output"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// InputConstructor creates an input module from its configuration.
type InputConstructor func(cfg rental.ModuleConfig) (input.Module, error)

// FilterConstructor creates a selection filter from its configuration and
// its index in the pipeline's filter list.
type FilterConstructor func(cfg rental.ModuleConfig, index int) (filter.Module, error)

// OutputConstructor creates an output module from its configuration.
type OutputConstructor func(cfg rental.ModuleConfig) (output.Module, error)

// table is a concurrency-safe constructor map for one module kind.
type table[C any] struct {
	mu           sync.RWMutex
	constructors map[string]C
}

func newTable[C any]() *table[C] {
	return &table[C]{constructors: make(map[string]C)}
}

func (t *table[C]) register(moduleType string, constructor C) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.constructors[moduleType] = constructor
}

func (t *table[C]) get(moduleType string) (C, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.constructors[moduleType]
	return c, ok
}

func (t *table[C]) types() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.constructors))
	for name := range t.constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (t *table[C]) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.constructors = make(map[string]C)
}

var (
	inputs  = newTable[InputConstructor]()
	filters = newTable[FilterConstructor]()
	outputs = newTable[OutputConstructor]()
)

// RegisterInput registers an input module constructor by type string.
// Registering an existing type replaces its constructor.
func RegisterInput(moduleType string, constructor InputConstructor) {
	inputs.register(moduleType, constructor)
}

// RegisterFilter registers a filter module constructor by type string.
// Registering an existing type replaces its constructor.
func RegisterFilter(moduleType string, constructor FilterConstructor) {
	filters.register(moduleType, constructor)
}

// RegisterOutput registers an output module constructor by type string.
// Registering an existing type replaces its constructor.
func RegisterOutput(moduleType string, constructor OutputConstructor) {
	outputs.register(moduleType, constructor)
}

// GetInputConstructor returns the constructor for an input type, or nil.
func GetInputConstructor(moduleType string) InputConstructor {
	c, _ := inputs.get(moduleType)
	return c
}

// GetFilterConstructor returns the constructor for a filter type, or nil.
func GetFilterConstructor(moduleType string) FilterConstructor {
	c, _ := filters.get(moduleType)
	return c
}

// GetOutputConstructor returns the constructor for an output type, or nil.
func GetOutputConstructor(moduleType string) OutputConstructor {
	c, _ := outputs.get(moduleType)
	return c
}

// ListInputTypes returns the registered input types in sorted order.
func ListInputTypes() []string {
	return inputs.types()
}

// ListFilterTypes returns the registered filter types in sorted order.
func ListFilterTypes() []string {
	return filters.types()
}

// ListOutputTypes returns the registered output types in sorted order.
func ListOutputTypes() []string {
	return outputs.types()
}

// ClearRegistries removes all registered constructors, built-ins included.
// This is intended for testing purposes only.
func ClearRegistries() {
	inputs.clear()
	filters.clear()
	outputs.clear()
}
