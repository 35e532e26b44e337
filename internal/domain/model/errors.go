package model

import "errors"

// Error is a classified pipeline failure. Message is the human-readable cause
// that ends up after "Migration failed: "; Err is the underlying error, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrMissingConfiguration = &Error{Kind: KindMissingConfiguration}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrSecretFetch          = &Error{Kind: KindSecretFetch}
	ErrMalformedSecret      = &Error{Kind: KindMalformedSecret}
	ErrConnection           = &Error{Kind: KindConnection}
	ErrMigrationEngine      = &Error{Kind: KindMigrationEngine}
)

// NewError builds a classified error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Kind)
	case e.Message == "":
		return e.Err.Error()
	case e.Err == nil:
		return e.Message
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when err is not classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
