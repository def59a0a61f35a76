package pipeline

import "errors"

// Failure categories. Handlers map these to response codes; callers test
// them with errors.Is against the wrapped pipeline error.
var (
	ErrValidation          = errors.New("invalid request")
	ErrAuthentication      = errors.New("authentication failed")
	ErrModel               = errors.New("model unavailable")
	ErrDestinationNotFound = errors.New("destination not found")
	ErrProvider            = errors.New("storage provider failed")
)

// Error tags an underlying failure with its category.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func fail(kind, err error) error {
	return &Error{Kind: kind, Err: err}
}
