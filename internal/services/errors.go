package services

import (
	"errors"
	"fmt"
)

// Handlers map these with errors.Is; repository.ErrNotFound is the fifth
// member of the taxonomy.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream service failed")
	ErrForbidden    = errors.New("forbidden")
)

func validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
