package input

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Supported file formats
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FileConfig configures the file input module.
type FileConfig struct {
	// Path is the offer file to read (required)
	Path string `json:"path"`
	// Format is "json", "yaml" or "auto" (default: detect from extension, then content)
	Format string `json:"format,omitempty"`
}

// FileModule reads offers from a JSON or YAML file. The document is either
// a list of offers or an object holding the list under "offers".
type FileModule struct {
	path   string
	format string
}

var _ Module = (*FileModule)(nil)

// offerDocument is the object form of an offer file.
type offerDocument struct {
	Offers []rental.Offer `json:"offers" yaml:"offers"`
}

// ParseFileConfig parses a file configuration from a raw module config.
func ParseFileConfig(cfg map[string]interface{}) (FileConfig, error) {
	config := FileConfig{}
	path, ok := cfg["path"].(string)
	if !ok || strings.TrimSpace(path) == "" {
		return config, fmt.Errorf("file input: %w", ErrMissingPath)
	}
	config.Path = path
	if format, ok := cfg["format"].(string); ok {
		config.Format = format
	}
	return config, nil
}

// NewFileFromConfig creates a file input module.
func NewFileFromConfig(config FileConfig) (*FileModule, error) {
	if strings.TrimSpace(config.Path) == "" {
		return nil, fmt.Errorf("file input: %w", ErrMissingPath)
	}
	format := strings.ToLower(config.Format)
	switch format {
	case "":
		format = FormatAuto
	case FormatAuto, FormatJSON, FormatYAML:
	case "yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("file input: unsupported format %q", config.Format)
	}
	return &FileModule{path: config.Path, format: format}, nil
}

// Fetch reads and decodes the offer file.
func (m *FileModule) Fetch(ctx context.Context) ([]rental.Offer, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	startTime := time.Now()

	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("reading offer file: %w", err)
	}

	format := m.format
	if format == FormatAuto {
		format = detectFormat(m.path, data)
	}

	offers, err := decodeOffers(data, format)
	if err != nil {
		return nil, fmt.Errorf("decoding %s offer file %s: %w", format, m.path, err)
	}
	if err := ValidateOffers(offers); err != nil {
		return nil, fmt.Errorf("offer file %s: %w", m.path, err)
	}

	logger.Info("offer file loaded",
		slog.String("module_type", "file"),
		slog.String("path", m.path),
		slog.String("format", format),
		slog.Int("record_count", len(offers)),
		slog.Duration("duration", time.Since(startTime)),
	)
	return offers, nil
}

// Close releases resources (none for files).
func (m *FileModule) Close() error {
	return nil
}

func detectFormat(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatYAML
}

func decodeOffers(data []byte, format string) ([]rental.Offer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []rental.Offer{}, nil
	}

	if format == FormatJSON {
		if trimmed[0] == '{' {
			var doc offerDocument
			if err := json.Unmarshal(trimmed, &doc); err != nil {
				return nil, err
			}
			return doc.Offers, nil
		}
		var offers []rental.Offer
		if err := json.Unmarshal(trimmed, &offers); err != nil {
			return nil, err
		}
		return offers, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(trimmed, &node); err != nil {
		return nil, err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
		var doc offerDocument
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		return doc.Offers, nil
	}
	var offers []rental.Offer
	if err := node.Decode(&offers); err != nil {
		return nil, err
	}
	return offers, nil
}
