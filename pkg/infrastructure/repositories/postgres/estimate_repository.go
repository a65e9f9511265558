package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/mbeaufort/estalign/pkg/domain/entities"
	"github.com/mbeaufort/estalign/pkg/domain/repositories"
)

// EstimateRepository reads estimate events from Postgres.
//
// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS estimate_events (
//	  id             BIGSERIAL PRIMARY KEY,
//	  asset_id       BIGINT NOT NULL,
//	  event_date     DATE,
//	  knowledge_ts   TIMESTAMPTZ NOT NULL,
//	  fiscal_year    INT,
//	  fiscal_quarter INT,
//	  metrics        JSONB NOT NULL DEFAULT '{}'::jsonb
//	);
//
// Rows are returned in (knowledge_ts, id) order so the engine's "later row
// wins" tie-break matches insertion order.
type EstimateRepository struct {
	pool   *pgxpool.Pool
	schema map[string]entities.ColumnType
}

// NewEstimateRepository creates a repository over an existing pool. schema
// declares the metric keys to extract from the JSONB metrics column and
// their types.
func NewEstimateRepository(pool *pgxpool.Pool, schema map[string]entities.ColumnType) *EstimateRepository {
	return &EstimateRepository{pool: pool, schema: schema}
}

// Verify interface compliance
var _ repositories.EstimateRepository = (*EstimateRepository)(nil)

// Connect opens a pool from a database URL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// Table loads the full estimate table.
func (r *EstimateRepository) Table(ctx context.Context) (*entities.EstimateTable, error) {
	query := `
		SELECT asset_id, event_date, knowledge_ts, fiscal_year, fiscal_quarter, metrics
		FROM estimate_events
		ORDER BY knowledge_ts, id;
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimate events: %w", err)
	}
	defer rows.Close()

	var events []entities.EstimateEvent
	for rows.Next() {
		var (
			assetID       int64
			eventDate     *time.Time
			knowledge     time.Time
			fiscalYear    *int
			fiscalQuarter *int
			metricsJSON   []byte
		)
		if err := rows.Scan(&assetID, &eventDate, &knowledge, &fiscalYear, &fiscalQuarter, &metricsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan estimate event: %w", err)
		}
		ev := entities.EstimateEvent{
			Asset:     entities.AssetID(assetID),
			Knowledge: knowledge,
		}
		if eventDate != nil {
			ev.EventDate = *eventDate
		}
		if fiscalYear != nil {
			ev.FiscalYear = *fiscalYear
		}
		if fiscalQuarter != nil {
			ev.FiscalQuarter = *fiscalQuarter
		}
		values, err := r.decodeMetrics(metricsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode metrics for asset %d: %w", assetID, err)
		}
		ev.Values = values
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read estimate events: %w", err)
	}

	log.Debug().Int("events", len(events)).Msg("loaded estimate events from postgres")

	return &entities.EstimateTable{
		Schema: r.schema,
		Events: events,
	}, nil
}

// decodeMetrics extracts the declared metric keys from one JSONB blob.
// Numeric metrics are JSON numbers; datetime metrics are RFC 3339 strings.
// Undeclared keys are ignored.
func (r *EstimateRepository) decodeMetrics(metricsJSON []byte) (map[string]entities.MetricValue, error) {
	if len(metricsJSON) == 0 {
		return nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(metricsJSON, &raw); err != nil {
		return nil, fmt.Errorf("invalid metrics JSON: %w", err)
	}
	values := make(map[string]entities.MetricValue, len(raw))
	for name, ctype := range r.schema {
		cell, ok := raw[name]
		if !ok || string(cell) == "null" {
			continue
		}
		switch ctype {
		case entities.DatetimeColumn:
			var s string
			if err := json.Unmarshal(cell, &s); err != nil {
				return nil, fmt.Errorf("metric %q: %w", name, err)
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("metric %q: %w", name, err)
			}
			values[name] = entities.TimeValue(t)
		default:
			var f float64
			if err := json.Unmarshal(cell, &f); err != nil {
				return nil, fmt.Errorf("metric %q: %w", name, err)
			}
			values[name] = entities.FloatValue(f)
		}
	}
	return values, nil
}
