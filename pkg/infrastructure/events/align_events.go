package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	LoadStartedEvent     = "load.started"
	ColumnAssembledEvent = "load.column.assembled"
	LoadCompletedEvent   = "load.completed"
	LoadFailedEvent      = "load.failed"
)

// NewRunID mints the stream identifier for one alignment run.
func NewRunID() string {
	return uuid.NewString()
}

type LoadStarted struct {
	Strategy string `json:"strategy"`
	Columns  int    `json:"columns"`
	Dates    int    `json:"dates"`
	Assets   int    `json:"assets"`
}

type ColumnAssembled struct {
	Column      string `json:"column"`
	Adjustments int    `json:"adjustments"`
}

type LoadCompleted struct {
	Columns  int           `json:"columns"`
	Duration time.Duration `json:"duration"`
}

type LoadFailed struct {
	Reason string `json:"reason"`
}
