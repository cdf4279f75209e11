package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// ErrInvalidConfig is returned by Load when the file fails parsing or
// validation. The Result carries every individual error.
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// Load parses, validates and converts a pipeline file.
// The Result is always returned so callers can report every error.
func Load(path string) (*rental.Pipeline, *Result, error) {
	result := ParseConfig(path)
	if !result.IsValid() {
		errs := result.AllErrors()
		return nil, result, fmt.Errorf("%w: %w (%d error(s))", ErrInvalidConfig, errs[0], len(errs))
	}

	pipeline, err := ConvertToPipeline(result.Data)
	if err != nil {
		return nil, result, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return pipeline, result, nil
}

// ConvertToPipeline converts validated configuration data to a Pipeline.
//
// The configuration is expected to have this structure:
//
//	{
//	  "schemaVersion": "1.0.0",
//	  "pipeline": {
//	    "name": "...",
//	    "version": "...",
//	    "input": {"type": "...", "config": {...}},
//	    "filters": [...],
//	    "outputs": [...],
//	    "metrics": {"textfile": "..."}
//	  }
//	}
func ConvertToPipeline(data map[string]interface{}) (*rental.Pipeline, error) {
	if data == nil {
		return nil, fmt.Errorf("configuration data is nil")
	}

	section, ok := data["pipeline"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'pipeline' section")
	}

	pipeline := &rental.Pipeline{}
	if pipeline.Name, ok = section["name"].(string); !ok || pipeline.Name == "" {
		return nil, fmt.Errorf("missing required field 'pipeline.name'")
	}
	if pipeline.Version, ok = section["version"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'pipeline.version'")
	}
	pipeline.Description, _ = section["description"].(string)

	pipeline.ID = idFromName(pipeline.Name)
	if id, okID := section["id"].(string); okID && id != "" {
		pipeline.ID = id
	}

	inputData, ok := section["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'pipeline.input' section")
	}
	input, err := convertModuleConfig(inputData)
	if err != nil {
		return nil, fmt.Errorf("invalid input config: %w", err)
	}
	pipeline.Input = &input

	if pipeline.Filters, err = convertModuleList(section["filters"], "filter"); err != nil {
		return nil, err
	}
	if pipeline.Outputs, err = convertModuleList(section["outputs"], "output"); err != nil {
		return nil, err
	}

	if metricsData, okMetrics := section["metrics"].(map[string]interface{}); okMetrics {
		textfile, _ := metricsData["textfile"].(string)
		pipeline.Metrics = &rental.MetricsConfig{Textfile: textfile}
	}

	return pipeline, nil
}

func convertModuleList(raw interface{}, kind string) ([]rental.ModuleConfig, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid %ss: expected array, got %T", kind, raw)
	}

	modules := make([]rental.ModuleConfig, 0, len(items))
	for i, item := range items {
		itemMap, isMap := item.(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("invalid %s at index %d", kind, i)
		}
		module, err := convertModuleConfig(itemMap)
		if err != nil {
			return nil, fmt.Errorf("invalid %s at index %d: %w", kind, i, err)
		}
		modules = append(modules, module)
	}
	return modules, nil
}

// convertModuleConfig converts a raw {type, config} map to a ModuleConfig.
func convertModuleConfig(data map[string]interface{}) (rental.ModuleConfig, error) {
	module := rental.ModuleConfig{Config: make(map[string]interface{})}

	moduleType, ok := data["type"].(string)
	if !ok || moduleType == "" {
		return module, fmt.Errorf("missing required field 'type'")
	}
	module.Type = moduleType

	if raw, present := data["config"]; present && raw != nil {
		cfg, isMap := raw.(map[string]interface{})
		if !isMap {
			return module, fmt.Errorf("module %q: 'config' must be an object, got %T", moduleType, raw)
		}
		for key, value := range cfg {
			module.Config[key] = value
		}
	}
	return module, nil
}

// idFromName derives a pipeline ID from its name: lower case, with runs of
// characters outside [a-z0-9] collapsed into a single dash.
func idFromName(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
