package estimates

import (
	"time"

	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

// Helpers shared by the estimates engine tests.

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailyGrid returns the inclusive daily calendar from start through end.
func dailyGrid(start, end time.Time) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func quarters(n int) *int {
	return &n
}

// floatEstimate builds a complete revision row carrying one numeric metric
// named "estimate".
func floatEstimate(asset entities.AssetID, eventDate, knowledge time.Time, fy, fq int, value float64) entities.EstimateEvent {
	return entities.EstimateEvent{
		Asset:         asset,
		EventDate:     eventDate,
		Knowledge:     knowledge,
		FiscalYear:    fy,
		FiscalQuarter: fq,
		Values: map[string]entities.MetricValue{
			"estimate": entities.FloatValue(value),
		},
	}
}

// estimateTable wraps rows with the single-metric schema used across the
// engine tests.
func estimateTable(events ...entities.EstimateEvent) *entities.EstimateTable {
	return &entities.EstimateTable{
		Schema: map[string]entities.ColumnType{
			"estimate": entities.Float64Column,
		},
		Events: events,
	}
}

// estimateColumn is the canonical requested column for the test metric.
func estimateColumn(numQuarters int) entities.ColumnSpec {
	return entities.ColumnSpec{
		Name:        "estimate",
		Type:        entities.Float64Column,
		NumQuarters: quarters(numQuarters),
	}
}

var estimateNameMap = map[string]string{"estimate": "estimate"}
