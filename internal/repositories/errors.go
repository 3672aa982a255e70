package repositories

import "fmt"

type errorKind int

const (
	kindNotFound errorKind = iota
	kindConflict
	kindUnavailable
)

// Error is the concrete RepositoryError implementation shared by the
// repository backends.
type Error struct {
	kind errorKind
	msg  string
	err  error
}

// NewNotFound builds a not-found repository error.
func NewNotFound(msg string, err error) *Error {
	return &Error{kind: kindNotFound, msg: msg, err: err}
}

// NewConflict builds a conflict repository error.
func NewConflict(msg string, err error) *Error {
	return &Error{kind: kindConflict, msg: msg, err: err}
}

// NewUnavailable builds an unavailability repository error.
func NewUnavailable(msg string, err error) *Error {
	return &Error{kind: kindUnavailable, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool    { return e.kind == kindNotFound }
func (e *Error) IsConflict() bool    { return e.kind == kindConflict }
func (e *Error) IsUnavailable() bool { return e.kind == kindUnavailable }
