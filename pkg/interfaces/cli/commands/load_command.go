package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbeaufort/estalign/pkg/application/dto"
	"github.com/mbeaufort/estalign/pkg/application/services/estimates"
	"github.com/mbeaufort/estalign/pkg/domain/entities"
	"github.com/mbeaufort/estalign/pkg/infrastructure/config"
	"github.com/mbeaufort/estalign/pkg/infrastructure/events"
	"github.com/mbeaufort/estalign/pkg/infrastructure/repositories/csv"
	"github.com/mbeaufort/estalign/pkg/infrastructure/repositories/postgres"
)

// Config holds configuration for the load command
type Config struct {
	ConfigPath string
}

// Result is what one alignment run hands back to the output layer.
type Result struct {
	RunID    string
	Strategy estimates.Strategy
	Columns  map[string]*dto.AdjustedColumn
	Dates    int
	Assets   int
	Duration time.Duration
	Events   []events.Event
}

// LoadCommand runs one batch alignment over a configured estimate source
type LoadCommand struct {
	config Config
	logger zerolog.Logger
	store  events.EventStore
}

// NewLoadCommand creates a load command with the given configuration
func NewLoadCommand(cfg Config, logger zerolog.Logger) *LoadCommand {
	store := events.NewInMemoryEventStore()
	_ = store.Subscribe([]string{
		events.LoadStartedEvent,
		events.ColumnAssembledEvent,
		events.LoadCompletedEvent,
		events.LoadFailedEvent,
	}, &eventLogHandler{logger: logger})
	return &LoadCommand{
		config: cfg,
		logger: logger,
		store:  store,
	}
}

// Execute runs the load command
func (c *LoadCommand) Execute(ctx context.Context) (*Result, error) {
	runCfg, err := config.Load(c.config.ConfigPath)
	if err != nil {
		return nil, err
	}

	table, err := c.loadTable(ctx, runCfg)
	if err != nil {
		return nil, fmt.Errorf("error loading estimates: %w", err)
	}

	strategy, _ := estimates.ParseStrategy(runCfg.Strategy)
	loader, err := c.buildLoader(strategy, table, runCfg.NameMap())
	if err != nil {
		return nil, fmt.Errorf("error building loader: %w", err)
	}

	columns, err := runCfg.ColumnSpecs()
	if err != nil {
		return nil, err
	}
	dates, err := runCfg.GridDates()
	if err != nil {
		return nil, err
	}
	assets := runCfg.AssetIDs()

	runID := events.NewRunID()
	c.publish(runID, events.LoadStartedEvent, events.LoadStarted{
		Strategy: strategy.String(),
		Columns:  len(columns),
		Dates:    len(dates),
		Assets:   len(assets),
	})

	start := time.Now()
	out, err := loader.LoadAdjustedArray(ctx, columns, dates, assets, nil)
	if err != nil {
		c.publish(runID, events.LoadFailedEvent, events.LoadFailed{Reason: err.Error()})
		return nil, err
	}
	for name, col := range out {
		c.publish(runID, events.ColumnAssembledEvent, events.ColumnAssembled{
			Column:      name,
			Adjustments: col.NumAdjustments(),
		})
	}
	duration := time.Since(start)
	c.publish(runID, events.LoadCompletedEvent, events.LoadCompleted{
		Columns:  len(out),
		Duration: duration,
	})

	audit, _ := c.store.ReadEvents(runID)
	return &Result{
		RunID:    runID,
		Strategy: strategy,
		Columns:  out,
		Dates:    len(dates),
		Assets:   len(assets),
		Duration: duration,
		Events:   audit,
	}, nil
}

func (c *LoadCommand) loadTable(ctx context.Context, runCfg *config.RunConfig) (*entities.EstimateTable, error) {
	schema, err := runCfg.Schema()
	if err != nil {
		return nil, err
	}
	if runCfg.Source.CSVPath != "" {
		c.logger.Info().Str("path", runCfg.Source.CSVPath).Msg("loading estimates from CSV")
		return csv.NewLoader().LoadEvents(runCfg.Source.CSVPath, schema)
	}

	c.logger.Info().Msg("loading estimates from postgres")
	pool, err := postgres.Connect(ctx, runCfg.Source.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer pool.Close()
	return postgres.NewEstimateRepository(pool, schema).Table(ctx)
}

func (c *LoadCommand) buildLoader(strategy estimates.Strategy, table *entities.EstimateTable, nameMap map[string]string) (*estimates.Loader, error) {
	if strategy == estimates.PreviousQuarters {
		return estimates.NewPreviousQuartersLoader(table, nameMap)
	}
	return estimates.NewNextQuartersLoader(table, nameMap)
}

func (c *LoadCommand) publish(runID, eventType string, data interface{}) {
	_ = c.store.AppendEvent(runID, events.NewEvent(eventType, runID, data))
}

// eventLogHandler mirrors the audit stream into the structured log.
type eventLogHandler struct {
	logger zerolog.Logger
}

func (h *eventLogHandler) CanHandle(eventType string) bool {
	return true
}

func (h *eventLogHandler) Handle(event events.Event) error {
	h.logger.Debug().
		Str("event", event.Type()).
		Str("run", event.StreamID()).
		Interface("data", event.Data()).
		Msg("audit event")
	return nil
}
