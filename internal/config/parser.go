package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseConfig reads, parses and validates a configuration file.
// The format is taken from the file extension, or detected from the
// content when the extension is unknown.
func ParseConfig(path string) *Result {
	result := &Result{FilePath: path}

	content, err := os.ReadFile(path)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	format := DetectFormat(path)
	if format == "" {
		format = DetectContentFormat(string(content))
	}
	parseInto(result, string(content), format)
	for i := range result.ParseErrors {
		if result.ParseErrors[i].Path == "" {
			result.ParseErrors[i].Path = path
		}
	}
	return result
}

// ParseConfigString parses and validates configuration content.
// If format is empty it is detected from the content.
func ParseConfigString(content, format string) *Result {
	result := &Result{}
	if format == "" {
		format = DetectContentFormat(content)
	}
	parseInto(result, content, format)
	return result
}

func parseInto(result *Result, content, format string) {
	result.Format = format

	var (
		data     map[string]interface{}
		parseErr *ParseError
	)
	switch format {
	case FormatJSON:
		data, parseErr = parseJSON(content)
	case FormatYAML:
		data, parseErr = parseYAML(content)
	default:
		parseErr = &ParseError{
			Message: "unable to detect configuration format: not valid JSON or YAML",
			Type:    ErrorTypeFormat,
		}
	}
	if parseErr != nil {
		result.ParseErrors = append(result.ParseErrors, *parseErr)
		return
	}

	result.Data = data
	result.ValidationErrors = ValidateConfig(data)
}

// DetectFormat detects the configuration format from the file extension.
// Returns "json", "yaml", or empty string if the extension is unknown.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// DetectContentFormat guesses the format of content. JSON documents start
// with '{'; anything else that parses as YAML is YAML.
func DetectContentFormat(content string) string {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return ""
	case strings.HasPrefix(trimmed, "{"):
		return FormatJSON
	}
	var probe interface{}
	if err := yaml.Unmarshal([]byte(trimmed), &probe); err != nil || probe == nil {
		return ""
	}
	return FormatYAML
}

func parseJSON(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected JSON object", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil, jsonParseError(err, content)
	}
	return asObject(data, "JSON object")
}

func jsonParseError(err error, content string) *ParseError {
	parseErr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		parseErr.Line, parseErr.Column = offsetToLineColumn(content, syntaxErr.Offset)
		parseErr.Message = fmt.Sprintf("JSON syntax error: %s", syntaxErr.Error())
	}
	return parseErr
}

// offsetToLineColumn converts a byte offset to 1-based line and column.
func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

func parseYAML(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected YAML document", Type: ErrorTypeSyntax}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, yamlParseError(err)
	}

	var data interface{}
	if err := doc.Decode(&data); err != nil {
		return nil, yamlParseError(err)
	}

	// Round-trip through JSON so YAML and JSON files validate and convert
	// with the same value types (float64 numbers, string keys).
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, &ParseError{
			Message: fmt.Sprintf("invalid configuration: %v", err),
			Type:    ErrorTypeFormat,
		}
	}
	var normalized interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if err := decoder.Decode(&normalized); err != nil {
		return nil, &ParseError{Message: err.Error(), Type: ErrorTypeFormat}
	}

	obj, parseErr := asObject(normalized, "YAML mapping")
	if parseErr != nil && len(doc.Content) > 0 {
		parseErr.Line, parseErr.Column = doc.Content[0].Line, doc.Content[0].Column
	}
	return obj, parseErr
}

func yamlParseError(err error) *ParseError {
	parseErr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		parseErr.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
	}

	// yaml.v3 reports the position as "yaml: line N: ..."
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		parseErr.Line = line
	}
	return parseErr
}

func asObject(data interface{}, want string) (map[string]interface{}, *ParseError) {
	obj, ok := data.(map[string]interface{})
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("invalid configuration: expected %s, got %s", want, describe(data)),
			Type:    ErrorTypeFormat,
		}
	}
	return obj, nil
}

func describe(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
