package input

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/antoniop-zartis/ap-cartrawler/internal/logger"
	"github.com/antoniop-zartis/ap-cartrawler/pkg/rental"
)

// Default configuration values for the sqlite input
const (
	defaultSQLiteTable   = "offers"
	defaultSQLiteTimeout = 30 * time.Second
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteConfig configures the sqlite input module.
type SQLiteConfig struct {
	// Path is the database file (required)
	Path string `json:"path"`
	// Table is read with SELECT * when Query is empty (default "offers")
	Table string `json:"table,omitempty"`
	// Query is a custom SELECT whose columns name the offer fields
	Query string `json:"query,omitempty"`
	// TimeoutMs bounds the query duration
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

// SQLiteModule loads offers from a SQLite database. Columns are matched to
// offer fields by name (supplier_name or supplierName, rental_cost, ...).
type SQLiteModule struct {
	db      *sql.DB
	path    string
	query   string
	timeout time.Duration
}

var _ Module = (*SQLiteModule)(nil)

// ParseSQLiteConfig parses a sqlite configuration from a raw module config.
func ParseSQLiteConfig(cfg map[string]interface{}) (SQLiteConfig, error) {
	config := SQLiteConfig{}
	path, ok := cfg["path"].(string)
	if !ok || strings.TrimSpace(path) == "" {
		return config, fmt.Errorf("sqlite input: %w", ErrMissingPath)
	}
	config.Path = path
	if table, ok := cfg["table"].(string); ok {
		config.Table = table
	}
	if query, ok := cfg["query"].(string); ok {
		config.Query = query
	}
	switch v := cfg["timeoutMs"].(type) {
	case float64:
		config.TimeoutMs = int(v)
	case int:
		config.TimeoutMs = v
	}
	return config, nil
}

// NewSQLiteFromConfig opens the database and prepares the query.
func NewSQLiteFromConfig(config SQLiteConfig) (*SQLiteModule, error) {
	if strings.TrimSpace(config.Path) == "" {
		return nil, fmt.Errorf("sqlite input: %w", ErrMissingPath)
	}

	query := strings.TrimSpace(config.Query)
	if query == "" {
		table := config.Table
		if table == "" {
			table = defaultSQLiteTable
		}
		if !tableNamePattern.MatchString(table) {
			return nil, fmt.Errorf("sqlite input: invalid table name %q", table)
		}
		query = "SELECT * FROM " + table
	}

	timeout := defaultSQLiteTimeout
	if config.TimeoutMs > 0 {
		timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", config.Path, err)
	}
	db.SetMaxOpenConns(1)

	logger.Debug("sqlite input module created",
		slog.String("path", config.Path),
		slog.Duration("timeout", timeout),
	)

	return &SQLiteModule{db: db, path: config.Path, query: query, timeout: timeout}, nil
}

// Fetch runs the query and converts every row into an offer.
func (m *SQLiteModule) Fetch(ctx context.Context) ([]rental.Offer, error) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	rows, err := m.db.QueryContext(ctx, m.query)
	if err != nil {
		return nil, fmt.Errorf("querying offers: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records, err := rowsToRecords(rows)
	if err != nil {
		return nil, err
	}

	offers := make([]rental.Offer, 0, len(records))
	for i, record := range records {
		o, err := offerFromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%w at row %d: %v", ErrInvalidOffer, i, err)
		}
		offers = append(offers, o)
	}
	if err := ValidateOffers(offers); err != nil {
		return nil, err
	}

	logger.Info("sqlite offers loaded",
		slog.String("module_type", "sqlite"),
		slog.String("path", m.path),
		slog.Int("record_count", len(offers)),
		slog.Duration("duration", time.Since(startTime)),
	)
	return offers, nil
}

// rowsToRecords converts sql.Rows to a slice of column-name keyed records.
func rowsToRecords(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("getting column names: %w", err)
	}

	var records []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			record[col] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return records, nil
}

// Close closes the database.
func (m *SQLiteModule) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
