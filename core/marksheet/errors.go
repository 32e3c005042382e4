package marksheet

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrIncompleteSelection = errors.New("class, subject and exam type must be selected")
	ErrStaleSelection      = errors.New("selection changed while the request was in flight")
	ErrNotReady            = errors.New("marksheet is not ready")
	ErrUnknownStudent      = errors.New("student is not on the roster")
	ErrUnknownField        = errors.New("unknown field")
)

// TransportError reports a failed call to the backend.
// Status is the HTTP status when a response was received.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Cause() error { return e.Err }

// asTransportError keeps an existing TransportError, or wraps err in one.
func asTransportError(op string, err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Op: op, Err: err}
}

// RowError is the failure of one row in a bulk submission.
type RowError struct {
	StudentID string
	Err       error
}

// BulkError reports that some rows of a bulk submission failed.
// Rows that succeeded stay saved.
type BulkError struct {
	Attempted int
	Failed    []RowError
}

func (e *BulkError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.StudentID)
	}
	return fmt.Sprintf("%d of %d marks failed to save (%s)", len(e.Failed), e.Attempted, strings.Join(ids, ", "))
}
