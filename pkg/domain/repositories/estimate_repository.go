package repositories

import (
	"context"

	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

// EstimateRepository provides access to the validated estimate-event table.
type EstimateRepository interface {
	// Table returns the full immutable estimate table for one loader
	// construction.
	Table(ctx context.Context) (*entities.EstimateTable, error)
}
