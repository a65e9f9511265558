package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

// Loader handles loading estimate events from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// The fixed, leading columns of an estimate CSV; any further columns are
// metric columns and must be declared in the schema passed to LoadEvents.
var fixedHeader = []string{"asset_id", "event_date", "knowledge_ts", "fiscal_year", "fiscal_quarter"}

// LoadEvents loads an estimate table from a CSV file. schema declares the
// type of every metric column the file may carry; the returned table's
// schema covers exactly the metric columns present in the header. Empty
// metric cells are missing values; rows with an empty event date or fiscal
// period are kept here and dropped by the loader, matching the ingestion
// contract.
func (l *Loader) LoadEvents(filename string, schema map[string]entities.ColumnType) (*entities.EstimateTable, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open estimates file %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read estimates CSV: %w", err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("estimates CSV must have a header row")
	}

	header := records[0]
	metricCols, err := validateHeader(header, schema)
	if err != nil {
		return nil, err
	}

	tableSchema := make(map[string]entities.ColumnType, len(metricCols))
	for _, name := range metricCols {
		tableSchema[name] = schema[name]
	}

	var events []entities.EstimateEvent
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("estimates CSV row %d: expected %d columns, got %d", i+2, len(header), len(record))
		}
		ev, err := parseEvent(record, metricCols, tableSchema)
		if err != nil {
			return nil, fmt.Errorf("estimates CSV row %d: %w", i+2, err)
		}
		events = append(events, ev)
	}

	return &entities.EstimateTable{
		Schema: tableSchema,
		Events: events,
	}, nil
}

// validateHeader checks the fixed prefix and resolves the metric columns.
func validateHeader(header []string, schema map[string]entities.ColumnType) ([]string, error) {
	if len(header) < len(fixedHeader) {
		return nil, fmt.Errorf("estimates CSV header too short. Expected prefix: %v, Got: %v", fixedHeader, header)
	}
	for i, want := range fixedHeader {
		if header[i] != want {
			return nil, fmt.Errorf("estimates CSV header mismatch at column %d. Expected: %q, Got: %q", i+1, want, header[i])
		}
	}
	metricCols := header[len(fixedHeader):]
	for _, name := range metricCols {
		if _, ok := schema[name]; !ok {
			return nil, fmt.Errorf("estimates CSV has undeclared metric column %q", name)
		}
	}
	return metricCols, nil
}

func parseEvent(record []string, metricCols []string, schema map[string]entities.ColumnType) (entities.EstimateEvent, error) {
	assetID, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return entities.EstimateEvent{}, fmt.Errorf("invalid asset_id %q: %w", record[0], err)
	}

	eventDate, err := parseOptionalDate(record[1])
	if err != nil {
		return entities.EstimateEvent{}, fmt.Errorf("invalid event_date %q: %w", record[1], err)
	}

	knowledge, err := parseOptionalDate(record[2])
	if err != nil {
		return entities.EstimateEvent{}, fmt.Errorf("invalid knowledge_ts %q: %w", record[2], err)
	}

	fiscalYear, err := parseOptionalInt(record[3])
	if err != nil {
		return entities.EstimateEvent{}, fmt.Errorf("invalid fiscal_year %q: %w", record[3], err)
	}

	fiscalQuarter, err := parseOptionalInt(record[4])
	if err != nil {
		return entities.EstimateEvent{}, fmt.Errorf("invalid fiscal_quarter %q: %w", record[4], err)
	}
	if fiscalQuarter < 0 || fiscalQuarter > 4 {
		return entities.EstimateEvent{}, fmt.Errorf("fiscal_quarter must be 1-4, got %d", fiscalQuarter)
	}

	values := make(map[string]entities.MetricValue, len(metricCols))
	for n, name := range metricCols {
		cell := record[len(fixedHeader)+n]
		if cell == "" {
			continue
		}
		switch schema[name] {
		case entities.DatetimeColumn:
			t, err := parseOptionalDate(cell)
			if err != nil {
				return entities.EstimateEvent{}, fmt.Errorf("invalid %s %q: %w", name, cell, err)
			}
			values[name] = entities.TimeValue(t)
		default:
			d, err := decimal.NewFromString(cell)
			if err != nil {
				return entities.EstimateEvent{}, fmt.Errorf("invalid %s %q: %w", name, cell, err)
			}
			values[name] = entities.FloatValue(d.InexactFloat64())
		}
	}

	return entities.EstimateEvent{
		Asset:         entities.AssetID(assetID),
		EventDate:     eventDate,
		Knowledge:     knowledge,
		FiscalYear:    fiscalYear,
		FiscalQuarter: fiscalQuarter,
		Values:        values,
	}, nil
}

// parseOptionalDate accepts an empty cell (missing), a date, or an RFC 3339
// timestamp.
func parseOptionalDate(cell string) (time.Time, error) {
	if cell == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", cell); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, cell)
}

func parseOptionalInt(cell string) (int, error) {
	if cell == "" {
		return 0, nil
	}
	return strconv.Atoi(cell)
}
