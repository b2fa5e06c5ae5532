package amm

import (
	"errors"
	"fmt"
)

// ErrQuoteUnavailable is returned instead of a priced result when the inputs
// cannot produce a meaningful quote. Callers render a placeholder.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// InputError names the input that made a quote unavailable.
type InputError struct {
	Field string
	Value any
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: invalid %s %v", ErrQuoteUnavailable, e.Field, e.Value)
}

func (e *InputError) Unwrap() error { return ErrQuoteUnavailable }

func unavailable(field string, v any) error {
	return &InputError{Field: field, Value: v}
}
