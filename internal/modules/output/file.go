package output

import (
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

// Supported document formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FileConfig configures the file output module.
type FileConfig struct {
	// Dir is the directory receiving one document per stage (required)
	Dir string `json:"dir"`
	// Format is "json" (default) or "yaml"
	Format string `json:"format,omitempty"`
	// Prefix is prepended to the file names, e.g. "dublin-" gives dublin-arranged.json
	Prefix string `json:"prefix,omitempty"`
	// Stages limits the stages written (default: all)
	Stages []string `json:"stages,omitempty"`
}

// FileModule writes each stage to <dir>/<prefix><stage>.<format>.
type FileModule struct {
	dir    string
	format string
	prefix string
	stages map[string]bool
	now    func() time.Time
}

var _ Module = (*FileModule)(nil)

// StageDocument is the document written for one stage.
type StageDocument struct {
	Stage       string         `json:"stage" yaml:"stage"`
	GeneratedAt time.Time      `json:"generatedAt" yaml:"generatedAt"`
	Count       int            `json:"count" yaml:"count"`
	Offers      []rental.Offer `json:"offers" yaml:"offers"`
}

// ParseFileConfig parses a file configuration from a raw module config.
func ParseFileConfig(cfg map[string]interface{}) (FileConfig, error) {
	config := FileConfig{}
	dir, ok := cfg["dir"].(string)
	if !ok || strings.TrimSpace(dir) == "" {
		return config, fmt.Errorf("file output: 'dir' is required")
	}
	config.Dir = dir
	if format, ok := cfg["format"].(string); ok {
		config.Format = format
	}
	if prefix, ok := cfg["prefix"].(string); ok {
		config.Prefix = prefix
	}
	stages, err := parseStages(cfg["stages"])
	if err != nil {
		return config, fmt.Errorf("file output: %w", err)
	}
	config.Stages = stages
	return config, nil
}

// NewFileFromConfig creates a file output module.
func NewFileFromConfig(config FileConfig) (*FileModule, error) {
	if strings.TrimSpace(config.Dir) == "" {
		return nil, fmt.Errorf("file output: 'dir' is required")
	}
	format := strings.ToLower(config.Format)
	switch format {
	case "":
		format = FormatJSON
	case "yml":
		format = FormatYAML
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("file output: unsupported format %q", config.Format)
	}
	if strings.ContainsAny(config.Prefix, `/\`) {
		return nil, fmt.Errorf("file output: prefix %q must not contain path separators", config.Prefix)
	}
	return &FileModule{
		dir:    config.Dir,
		format: format,
		prefix: config.Prefix,
		stages: stageSet(config.Stages),
		now:    time.Now,
	}, nil
}

// Path returns the file written for stage.
func (m *FileModule) Path(stage string) string {
	return filepath.Join(m.dir, m.prefix+stage+"."+m.format)
}

// Send writes the stage document, replacing any previous file atomically.
func (m *FileModule) Send(ctx context.Context, stage string, offers []rental.Offer) (int, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	if !wantsStage(m.stages, stage) {
		return 0, nil
	}

	if offers == nil {
		offers = []rental.Offer{}
	}
	doc := StageDocument{
		Stage:       stage,
		GeneratedAt: m.now().UTC(),
		Count:       len(offers),
		Offers:      offers,
	}

	data, err := m.encode(doc)
	if err != nil {
		return 0, fmt.Errorf("encoding %s document: %w", stage, err)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}
	path := m.Path(stage)
	if err := writeFileAtomic(path, data); err != nil {
		return 0, err
	}

	logger.Info("offers written",
		slog.String("module_type", "file"),
		slog.String("stage", stage),
		slog.String("path", path),
		slog.Int("record_count", len(offers)),
	)
	return len(offers), nil
}

func (m *FileModule) encode(doc StageDocument) ([]byte, error) {
	if m.format == FormatYAML {
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeFileAtomic writes to a temporary file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".offerline-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// Close releases resources (none).
func (m *FileModule) Close() error {
	return nil
}
