package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound      = errors.New("resource not found")
	ErrRunNotFound   = fmt.Errorf("%w: run", ErrNotFound)
	ErrStudyNotFound = fmt.Errorf("%w: study", ErrNotFound)

	// Table structure errors
	ErrStructuralMismatch = errors.New("row length does not match column count")
	ErrColumnMissing      = errors.New("column not present in dataset")
	ErrDuplicateColumn    = errors.New("duplicate column name")

	// Rule definition errors
	ErrInvalidValueSet = errors.New("value set cannot be normalized")
	ErrUnknownRuleKind = errors.New("unrecognized rule kind")
	ErrInvalidRule     = errors.New("malformed rule definition")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewStructuralMismatchError(rowIndex, rowLen, columnCount int) error {
	return fmt.Errorf("%w: row %d has %d cells, dataset has %d columns",
		ErrStructuralMismatch, rowIndex, rowLen, columnCount)
}

func NewColumnMissingError(name string) error {
	return fmt.Errorf("%w: %q", ErrColumnMissing, name)
}

func NewValueSetError(input interface{}) error {
	return fmt.Errorf("%w: got %T", ErrInvalidValueSet, input)
}

func NewUnknownRuleKindError(kind string) error {
	return fmt.Errorf("%w: %q", ErrUnknownRuleKind, kind)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStructuralError(err error) bool {
	return errors.Is(err, ErrStructuralMismatch) ||
		errors.Is(err, ErrDuplicateColumn)
}

func IsRuleDefinitionError(err error) bool {
	return errors.Is(err, ErrInvalidValueSet) ||
		errors.Is(err, ErrUnknownRuleKind) ||
		errors.Is(err, ErrInvalidRule)
}
