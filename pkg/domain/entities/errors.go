package entities

import (
	"fmt"
	"strings"
)

// SchemaError reports an estimate table that cannot serve the requested
// columns. It is raised at loader construction, before any computation.
type SchemaError struct {
	Missing  []string
	Expected []string
	Received []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf(
		"estimate table missing required columns [%s]; got columns [%s], expected columns [%s]",
		strings.Join(e.Missing, ", "),
		strings.Join(e.Received, ", "),
		strings.Join(e.Expected, ", "),
	)
}

// ValidationError reports an invalid requested-column attribute, raised
// before any computation touches the event table.
type ValidationError struct {
	Column string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("invalid column request: %s", e.Reason)
	}
	return fmt.Sprintf("invalid column request for %q: %s", e.Column, e.Reason)
}

// ConfigurationError reports a column descriptor that cannot be resolved
// against the loader's configuration (missing quarter-offset attribute or
// absent from the name mapping).
type ConfigurationError struct {
	Column string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("column %q misconfigured: %s", e.Column, e.Reason)
}
