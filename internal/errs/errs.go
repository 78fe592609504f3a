// Package errs defines the error taxonomy shared by every conversion stage.
//
// Each type carries the context needed to report where a conversion failed:
// the file, the record, and the violated condition. Use errors.As to
// recover the concrete type from a wrapped error.
package errs

import (
	"fmt"

	"go.uber.org/multierr"
)

// NoRecord marks a FormatError that is not tied to a specific data record.
const NoRecord = -1

// FormatError reports malformed, truncated or inconsistent source data.
type FormatError struct {
	Path   string
	Record int // Frame index, or NoRecord
	Err    error
}

func (e *FormatError) Error() string {
	if e.Record == NoRecord {
		return fmt.Sprintf("format error in %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("format error in %s (record %d): %v", e.Path, e.Record, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// UnsupportedRateError reports a source whose timing basis is unusable.
type UnsupportedRateError struct {
	Path string
	Rate float64
}

func (e *UnsupportedRateError) Error() string {
	return fmt.Sprintf("unsupported frame rate %g in %s: must be > 0", e.Rate, e.Path)
}

// PackingError reports an internal invariant violation while building buffers.
// It indicates a defect, not bad input.
type PackingError struct {
	Track string
	Err   error
}

func (e *PackingError) Error() string {
	return fmt.Sprintf("packing track %q: %v", e.Track, e.Err)
}

func (e *PackingError) Unwrap() error { return e.Err }

// SchemaViolation reports an assembled document that fails validation.
// Err may combine several violations; use Violations to list them.
type SchemaViolation struct {
	Err error
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("schema violation: %v", e.Err)
}

func (e *SchemaViolation) Unwrap() error { return e.Err }

// Violations returns each individual violation.
func (e *SchemaViolation) Violations() []error {
	return multierr.Errors(e.Err)
}

// IOError reports a filesystem failure.
type IOError struct {
	Op   string // "read", "write", "create", "rename", ...
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
