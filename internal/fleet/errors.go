package fleet

import (
	"errors"
	"fmt"

	"github.com/Shahid-khan015/FarmTrack/internal/db"
)

// Error kinds. Handlers map these to HTTP statuses.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

// Error is a domain failure with a message safe to show to clients.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

func notFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalid, Message: fmt.Sprintf(format, args...)}
}

// storeError translates store sentinels into domain errors. what names the
// record for the not-found message. Unknown errors pass through as internal.
func storeError(err error, what string) error {
	var kind error
	var msg string
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		kind, msg = ErrNotFound, what+" not found"
	case errors.Is(err, db.ErrInvalidReference):
		kind, msg = ErrNotFound, "referenced record not found"
	case errors.Is(err, db.ErrActiveOperation):
		kind, msg = ErrConflict, "an active operation already exists for this tractor"
	case errors.Is(err, db.ErrOperationNotActive):
		kind, msg = ErrConflict, "operation is not active"
	case errors.Is(err, db.ErrReferenced):
		kind, msg = ErrConflict, what+" is referenced by other records"
	case errors.Is(err, db.ErrDuplicate):
		kind, msg = ErrConflict, what+" already exists"
	default:
		return err
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}
