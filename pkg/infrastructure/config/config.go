package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

// RunConfig describes one alignment run: where the estimate events come
// from, which strategy anchors the zero quarter, the simulation grid, and
// the requested output columns.
type RunConfig struct {
	Strategy string         `yaml:"strategy"`
	Source   SourceConfig   `yaml:"source"`
	Grid     GridConfig     `yaml:"grid"`
	Columns  []ColumnConfig `yaml:"columns"`
	Assets   []int64        `yaml:"assets"`
}

// SourceConfig selects the estimate source. Exactly one of CSVPath or
// DatabaseURL must be set; DatabaseURL may name an environment variable via
// the usual ${VAR} form.
type SourceConfig struct {
	CSVPath     string `yaml:"csv_path"`
	DatabaseURL string `yaml:"database_url"`
}

// GridConfig is the inclusive daily simulation calendar.
type GridConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// ColumnConfig is one requested output column. NumQuarters stays a pointer
// so a descriptor that omitted the attribute is detectable downstream.
type ColumnConfig struct {
	Name        string `yaml:"name"`
	Source      string `yaml:"source"`
	Type        string `yaml:"type"`
	NumQuarters *int   `yaml:"num_quarters"`
}

// Load reads and validates a run configuration file.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg RunConfig
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Source.DatabaseURL = os.ExpandEnv(cfg.Source.DatabaseURL)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *RunConfig) validate() error {
	if c.Strategy != "next" && c.Strategy != "previous" {
		return fmt.Errorf("strategy must be \"next\" or \"previous\", got %q", c.Strategy)
	}
	if (c.Source.CSVPath == "") == (c.Source.DatabaseURL == "") {
		return fmt.Errorf("exactly one of source.csv_path and source.database_url must be set")
	}
	if _, err := c.GridDates(); err != nil {
		return err
	}
	if len(c.Columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	for i, col := range c.Columns {
		if col.Name == "" {
			return fmt.Errorf("columns[%d]: name is required", i)
		}
		if col.Source == "" {
			return fmt.Errorf("columns[%d] (%s): source is required", i, col.Name)
		}
		if _, err := parseColumnType(col.Type); err != nil {
			return fmt.Errorf("columns[%d] (%s): %w", i, col.Name, err)
		}
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("at least one asset is required")
	}
	return nil
}

// GridDates expands the configured range into the daily simulation grid.
func (c *RunConfig) GridDates() ([]time.Time, error) {
	start, err := time.Parse("2006-01-02", c.Grid.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid grid.start %q: %w", c.Grid.Start, err)
	}
	end, err := time.Parse("2006-01-02", c.Grid.End)
	if err != nil {
		return nil, fmt.Errorf("invalid grid.end %q: %w", c.Grid.End, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("grid.end %s is before grid.start %s", c.Grid.End, c.Grid.Start)
	}
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}

// ColumnSpecs converts the configured columns into engine descriptors.
func (c *RunConfig) ColumnSpecs() ([]entities.ColumnSpec, error) {
	specs := make([]entities.ColumnSpec, 0, len(c.Columns))
	for _, col := range c.Columns {
		ctype, err := parseColumnType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		specs = append(specs, entities.ColumnSpec{
			Name:        col.Name,
			Type:        ctype,
			NumQuarters: col.NumQuarters,
		})
	}
	return specs, nil
}

// NameMap returns the internal-name to table-column mapping.
func (c *RunConfig) NameMap() map[string]string {
	nameMap := make(map[string]string, len(c.Columns))
	for _, col := range c.Columns {
		nameMap[col.Name] = col.Source
	}
	return nameMap
}

// Schema returns the metric schema keyed by table column name.
func (c *RunConfig) Schema() (map[string]entities.ColumnType, error) {
	schema := make(map[string]entities.ColumnType, len(c.Columns))
	for _, col := range c.Columns {
		ctype, err := parseColumnType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		schema[col.Source] = ctype
	}
	return schema, nil
}

// AssetIDs returns the configured universe in output column order.
func (c *RunConfig) AssetIDs() []entities.AssetID {
	assets := make([]entities.AssetID, len(c.Assets))
	for i, id := range c.Assets {
		assets[i] = entities.AssetID(id)
	}
	return assets
}

func parseColumnType(name string) (entities.ColumnType, error) {
	switch name {
	case "", "float64":
		return entities.Float64Column, nil
	case "datetime":
		return entities.DatetimeColumn, nil
	default:
		return 0, fmt.Errorf("type must be \"float64\" or \"datetime\", got %q", name)
	}
}
