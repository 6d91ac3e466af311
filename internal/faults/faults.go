// Package faults defines the error taxonomy shared by the quoting pipeline.
//
// ConfigurationError and ValidationError are caller problems and should be
// reported back with the offending field. LookupError is a data-integrity
// problem in the pricing reference tables and must abort the request.
package faults

import "fmt"

// ConfigurationError reports an unrecognized facility type or a required
// answer that is missing and has no documented default.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ValidationError reports a provided value that is outside its physically
// valid range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// LookupError reports a malformed or missing pricing reference table.
type LookupError struct {
	Category string
	Reason   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("pricing lookup error: %s: %s", e.Category, e.Reason)
}
