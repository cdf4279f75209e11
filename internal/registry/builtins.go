package registry

import (
	"fmt"

	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/filter"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/input"
	"github.com/antoniop-zartis/ap-cartrawler/internal/modules/output"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

func init() {
	registerBuiltins()
}

func registerBuiltins() {
	registerBuiltinInputModules()
	registerBuiltinFilterModules()
	registerBuiltinOutputModules()
}

func registerBuiltinInputModules() {
	// file - JSON or YAML offer file
	RegisterInput("file", func(cfg rental.ModuleConfig) (input.Module, error) {
		fileConfig, err := input.ParseFileConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return input.NewFileFromConfig(fileConfig)
	})

	// sqlite - offers table or query in a SQLite database
	RegisterInput("sqlite", func(cfg rental.ModuleConfig) (input.Module, error) {
		sqliteConfig, err := input.ParseSQLiteConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return input.NewSQLiteFromConfig(sqliteConfig)
	})

	// sample - embedded demonstration dataset
	RegisterInput("sample", func(rental.ModuleConfig) (input.Module, error) {
		return input.NewSample(), nil
	})
}

func registerBuiltinFilterModules() {
	// condition - expr-lang boolean expression over the offer
	RegisterFilter("condition", func(cfg rental.ModuleConfig, index int) (filter.Module, error) {
		condConfig, err := filter.ParseConditionConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid condition config at index %d: %w", index, err)
		}
		module, err := filter.NewConditionFromConfig(condConfig)
		if err != nil {
			return nil, fmt.Errorf("invalid condition config at index %d: %w", index, err)
		}
		return module, nil
	})

	// script - JavaScript keep(offer) predicate run by goja
	RegisterFilter("script", func(cfg rental.ModuleConfig, index int) (filter.Module, error) {
		scriptConfig, err := filter.ParseScriptConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid script config at index %d: %w", index, err)
		}
		module, err := filter.NewScriptFromConfig(scriptConfig)
		if err != nil {
			return nil, fmt.Errorf("invalid script config at index %d: %w", index, err)
		}
		return module, nil
	})
}

func registerBuiltinOutputModules() {
	// console - lipgloss table on stdout
	RegisterOutput("console", func(cfg rental.ModuleConfig) (output.Module, error) {
		consoleConfig, err := output.ParseConsoleConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return output.NewConsoleFromConfig(consoleConfig), nil
	})

	// file - one JSON or YAML document per stage
	RegisterOutput("file", func(cfg rental.ModuleConfig) (output.Module, error) {
		fileConfig, err := output.ParseFileConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return output.NewFileFromConfig(fileConfig)
	})
}
