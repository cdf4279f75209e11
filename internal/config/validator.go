package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/pipeline-schema.json
var embeddedSchema []byte

const schemaURL = "https://offerline.dev/schemas/pipeline/v1.0.0/pipeline-schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaInitErr  error
)

// GetEmbeddedSchema returns the embedded pipeline schema.
func GetEmbeddedSchema() []byte {
	return embeddedSchema
}

// getCompiledSchema compiles the embedded schema once.
func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var schemaDoc interface{}
		if err := json.Unmarshal(embeddedSchema, &schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		compiledSchema, schemaInitErr = compiler.Compile(schemaURL)
		if schemaInitErr != nil {
			schemaInitErr = fmt.Errorf("failed to compile schema: %w", schemaInitErr)
		}
	})
	return compiledSchema, schemaInitErr
}

// ValidateConfig validates parsed configuration data against the pipeline
// schema. It returns nil when data is valid.
func ValidateConfig(data map[string]interface{}) []ValidationError {
	if len(data) == 0 {
		return []ValidationError{{Path: "/", Type: "required", Message: "configuration is empty"}}
	}

	schema, err := getCompiledSchema()
	if err != nil {
		return []ValidationError{{Path: "/", Type: "schema", Message: err.Error()}}
	}

	if err := schema.Validate(data); err != nil {
		detailed, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return []ValidationError{{Path: "/", Type: "validation", Message: err.Error()}}
		}
		printer := message.NewPrinter(language.English)
		return collectLeafErrors(detailed, printer, nil)
	}
	return nil
}

// collectLeafErrors flattens the validation error tree. Only leaves carry
// an actionable message; inner nodes (allOf, $ref) just group them.
func collectLeafErrors(err *jsonschema.ValidationError, p *message.Printer, acc []ValidationError) []ValidationError {
	if len(err.Causes) > 0 {
		for _, cause := range err.Causes {
			acc = collectLeafErrors(cause, p, acc)
		}
		return acc
	}
	if err.ErrorKind == nil {
		return acc
	}
	return append(acc, ValidationError{
		Path:    formatInstanceLocation(err.InstanceLocation),
		Type:    keyword(err.ErrorKind),
		Message: err.ErrorKind.LocalizedString(p),
	})
}

// formatInstanceLocation formats the instance location as a JSON pointer.
func formatInstanceLocation(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

func keyword(kind jsonschema.ErrorKind) string {
	path := kind.KeywordPath()
	if len(path) == 0 {
		return "validation"
	}
	return path[len(path)-1]
}
