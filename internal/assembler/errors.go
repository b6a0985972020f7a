package assembler

import (
	"github.com/pkg/errors"
)

// Input validation failures. These are returned before any segment is built
// and before any control number is issued.
var (
	ErrNoInput        = errors.New("nothing to assemble")
	ErrMultipleGroups = errors.New("enrollees span more than one group")
	ErrNoServices     = errors.New("claim has no service lines")
)

// ErrLedgerSave matches any *LedgerSaveError with errors.Is.
var ErrLedgerSave = errors.New("control numbers could not be saved")

// LedgerSaveError reports that the document was built but the control
// numbers it used could not be made durable. The document is not returned
// and the increments are discarded.
type LedgerSaveError struct {
	Transaction string
	Err         error
}

func (e *LedgerSaveError) Error() string {
	return e.Transaction + ": " + ErrLedgerSave.Error() + ": " + e.Err.Error()
}

func (e *LedgerSaveError) Unwrap() error { return e.Err }

// Is reports ErrLedgerSave as a match.
func (e *LedgerSaveError) Is(target error) bool { return target == ErrLedgerSave }
