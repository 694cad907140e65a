package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors used to mark classified failures. Callers should match
// with the Is* predicates rather than direct equality.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrDatabase      = errors.New("database error")
	ErrHTTPClient    = errors.New("http client error")
	ErrInternal      = errors.New("internal error")
	ErrSystem        = errors.New("system error")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}
