// Package factory instantiates the input, filter and output modules of a
// pipeline from their configuration, looking constructors up in the
// registry.
//
// To add a module type, register its constructor in internal/registry;
// this package does not need to change.
package factory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antoniop-zartis/ap-cartrawler/internal/errhandling"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/filter"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/input"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/output"
	"github.com/antoniop-zartis/ap-cartrawler/internal/registry"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// ErrUnknownModuleType is returned for a type with no registered constructor.
var ErrUnknownModuleType = errors.New("unknown module type")

// Modules are the instantiated modules of one pipeline.
type Modules struct {
	Input   input.Module
	Filters []filter.Module
	Outputs []output.Module
}

// Close closes the input and output modules. Errors are joined.
func (m *Modules) Close() error {
	var errs []error
	if m.Input != nil {
		errs = append(errs, m.Input.Close())
	}
	for _, o := range m.Outputs {
		errs = append(errs, o.Close())
	}
	return errors.Join(errs...)
}

// Build creates every module of pipeline. Any module already created is
// closed when a later one fails. All errors are configuration errors.
func Build(pipeline *rental.Pipeline) (*Modules, error) {
	if pipeline == nil {
		return nil, errhandling.NewConfigError("pipeline is nil", nil)
	}

	in, err := CreateInputModule(pipeline.Input)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errhandling.NewConfigError("pipeline has no input module", nil)
	}
	modules := &Modules{Input: in}

	if modules.Filters, err = CreateFilterModules(pipeline.Filters); err != nil {
		_ = modules.Close()
		return nil, err
	}
	if modules.Outputs, err = CreateOutputModules(pipeline.Outputs); err != nil {
		_ = modules.Close()
		return nil, err
	}
	return modules, nil
}

// CreateInputModule creates an input module from configuration.
// A nil configuration returns a nil module.
func CreateInputModule(cfg *rental.ModuleConfig) (input.Module, error) {
	if cfg == nil {
		return nil, nil
	}

	constructor := registry.GetInputConstructor(cfg.Type)
	if constructor == nil {
		return nil, unknownType("input", cfg.Type, registry.ListInputTypes())
	}
	module, err := constructor(*cfg)
	if err != nil {
		return nil, errhandling.NewConfigError(fmt.Sprintf("invalid %s input config", cfg.Type), err)
	}
	return module, nil
}

// CreateFilterModules creates the selection filters in pipeline order.
func CreateFilterModules(cfgs []rental.ModuleConfig) ([]filter.Module, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	modules := make([]filter.Module, 0, len(cfgs))
	for i, cfg := range cfgs {
		constructor := registry.GetFilterConstructor(cfg.Type)
		if constructor == nil {
			return nil, unknownType(fmt.Sprintf("filter at index %d", i), cfg.Type, registry.ListFilterTypes())
		}
		module, err := constructor(cfg, i)
		if err != nil {
			return nil, errhandling.NewConfigError(err.Error(), err)
		}
		modules = append(modules, module)
	}
	return modules, nil
}

// CreateOutputModules creates the output modules in pipeline order.
// Modules already created are closed if a later one fails.
func CreateOutputModules(cfgs []rental.ModuleConfig) ([]output.Module, error) {
	modules := make([]output.Module, 0, len(cfgs))
	closeAll := func() {
		for _, m := range modules {
			_ = m.Close()
		}
	}

	for i, cfg := range cfgs {
		constructor := registry.GetOutputConstructor(cfg.Type)
		if constructor == nil {
			closeAll()
			return nil, unknownType(fmt.Sprintf("output at index %d", i), cfg.Type, registry.ListOutputTypes())
		}
		module, err := constructor(cfg)
		if err != nil {
			closeAll()
			return nil, errhandling.NewConfigError(fmt.Sprintf("invalid %s output config at index %d", cfg.Type, i), err)
		}
		modules = append(modules, module)
	}
	return modules, nil
}

func unknownType(kind, moduleType string, known []string) error {
	err := fmt.Errorf("%w %q for %s (known: %s)", ErrUnknownModuleType, moduleType, kind, strings.Join(known, ", "))
	return errhandling.NewConfigError(err.Error(), err)
}
