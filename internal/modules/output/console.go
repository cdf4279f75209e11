package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/antoniop-zartis/ap-cartrawler/internal/classify"
	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// ConsoleConfig configures the console output module.
type ConsoleConfig struct {
	// Title prefixes each table caption, e.g. the pick-up location
	Title string `json:"title,omitempty"`
	// Stages limits the stages printed (default: all)
	Stages []string `json:"stages,omitempty"`
}

// ConsoleModule prints each stage as a table.
type ConsoleModule struct {
	out    io.Writer
	title  string
	stages map[string]bool
}

var _ Module = (*ConsoleModule)(nil)

var (
	captionStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	costStyle    = cellStyle.Align(lipgloss.Right)
)

const costColumn = 5

// ParseConsoleConfig parses a console configuration from a raw module config.
func ParseConsoleConfig(cfg map[string]interface{}) (ConsoleConfig, error) {
	config := ConsoleConfig{}
	if title, ok := cfg["title"].(string); ok {
		config.Title = title
	}
	stages, err := parseStages(cfg["stages"])
	if err != nil {
		return config, fmt.Errorf("console output: %w", err)
	}
	config.Stages = stages
	return config, nil
}

// NewConsoleFromConfig creates a console module writing to stdout.
func NewConsoleFromConfig(config ConsoleConfig) *ConsoleModule {
	return NewConsole(os.Stdout, config)
}

// NewConsole creates a console module writing to w.
func NewConsole(w io.Writer, config ConsoleConfig) *ConsoleModule {
	return &ConsoleModule{out: w, title: config.Title, stages: stageSet(config.Stages)}
}

// Send renders the offers as a table.
func (m *ConsoleModule) Send(ctx context.Context, stage string, offers []rental.Offer) (int, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	if !wantsStage(m.stages, stage) {
		return 0, nil
	}

	if _, err := fmt.Fprintln(m.out, captionStyle.Render(m.caption(stage, len(offers)))); err != nil {
		return 0, fmt.Errorf("writing console output: %w", err)
	}
	if _, err := fmt.Fprintln(m.out, RenderTable(offers)); err != nil {
		return 0, fmt.Errorf("writing console output: %w", err)
	}

	logger.Debug("offers printed",
		slog.String("module_type", "console"),
		slog.String("stage", stage),
		slog.Int("record_count", len(offers)),
	)
	return len(offers), nil
}

func (m *ConsoleModule) caption(stage string, n int) string {
	if m.title == "" {
		return fmt.Sprintf("%s offers (%d)", stage, n)
	}
	return fmt.Sprintf("%s: %s offers (%d)", m.title, stage, n)
}

// RenderTable renders offers as a bordered table with one row per offer.
func RenderTable(offers []rental.Offer) string {
	rows := make([][]string, 0, len(offers))
	for i, o := range offers {
		corporate := ""
		if classify.Corporate(o) {
			corporate = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			o.SupplierName,
			o.Description,
			o.RateCode,
			classify.Category(o).Label(),
			strconv.FormatFloat(o.RentalCost, 'f', 2, 64),
			o.FuelPolicy.String(),
			corporate,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Supplier", "Description", "Rate code", "Category", "Cost", "Fuel policy", "Corporate").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == costColumn:
				return costStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// Close releases resources (none).
func (m *ConsoleModule) Close() error {
	return nil
}

func parseStages(raw interface{}) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field 'stages' must be a list")
	}
	stages := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok || (s != rental.StageArranged && s != rental.StageFiltered) {
			return nil, fmt.Errorf("unknown stage %v (want %q or %q)", v, rental.StageArranged, rental.StageFiltered)
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func stageSet(stages []string) map[string]bool {
	if len(stages) == 0 {
		return nil
	}
	set := make(map[string]bool, len(stages))
	for _, s := range stages {
		set[s] = true
	}
	return set
}

// wantsStage reports whether stage is enabled; a nil set enables every stage.
func wantsStage(set map[string]bool, stage string) bool {
	return set == nil || set[stage]
}
