package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrStorageFailure = errors.New("storage failure")
)

// NonFieldErrors is the key for messages that do not belong to one field.
const NonFieldErrors = "__all__"

const (
	msgRequired      = "Este campo es obligatorio."
	msgInvalidChoice = "Seleccione una opción válida. Esa opción no está entre las disponibles."
	msgSelectShift   = "Seleccione un turno."
)

// ValidationError carries field-level messages collected before any write.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError(field, msg string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, msg)
	return e
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Merge copies the fields of err into e when err is a *ValidationError.
// It reports whether err was merged.
func (e *ValidationError) Merge(err error) bool {
	var other *ValidationError
	if !errors.As(err, &other) {
		return false
	}
	for field, msgs := range other.Fields {
		for _, m := range msgs {
			e.Add(field, m)
		}
	}
	return true
}

func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns e as an error, or nil when it holds no messages.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Fields[f], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func storageFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}
