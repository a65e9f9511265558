package memory

import (
	"context"

	"github.com/mbeaufort/estalign/pkg/domain/entities"
	"github.com/mbeaufort/estalign/pkg/domain/repositories"
)

// EstimateRepository provides in-memory estimate storage. Rows keep their
// insertion order, which is the tie-break order the alignment engine relies
// on.
type EstimateRepository struct {
	schema map[string]entities.ColumnType
	events []entities.EstimateEvent
}

// NewEstimateRepository creates an in-memory repository for the given
// metric schema.
func NewEstimateRepository(schema map[string]entities.ColumnType, expectedEvents int) *EstimateRepository {
	return &EstimateRepository{
		schema: schema,
		events: make([]entities.EstimateEvent, 0, expectedEvents),
	}
}

// Verify interface compliance
var _ repositories.EstimateRepository = (*EstimateRepository)(nil)

// AddEvent appends one revision row.
func (r *EstimateRepository) AddEvent(ev entities.EstimateEvent) {
	r.events = append(r.events, ev)
}

// LoadEvents appends a batch of revision rows.
func (r *EstimateRepository) LoadEvents(events []entities.EstimateEvent) {
	r.events = append(r.events, events...)
}

// Table returns the estimate table over everything loaded so far.
func (r *EstimateRepository) Table(ctx context.Context) (*entities.EstimateTable, error) {
	events := make([]entities.EstimateEvent, len(r.events))
	copy(events, r.events)
	return &entities.EstimateTable{
		Schema: r.schema,
		Events: events,
	}, nil
}
