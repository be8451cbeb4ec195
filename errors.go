package flatconf

import (
	"errors"
	"fmt"
)

// MaxValueSize limits individual raw values accepted from external sources.
const MaxValueSize = 64 * 1024

var (
	// ErrUndefinedKey is returned by Get/Set when the key is not declared in the schema.
	ErrUndefinedKey = errors.New("undefined configuration key")

	// ErrInvalidKeyType is returned at construction when a raw mapping key
	// cannot be stringified.
	ErrInvalidKeyType = errors.New("invalid configuration key type")

	// ErrCoercion wraps failures to convert a raw value to an attribute's
	// declared type. Attribute implementations outside this package may return
	// their own error types; the core propagates them unchanged either way.
	ErrCoercion = errors.New("cannot coerce value")

	// ErrConfigNotFound is returned by FromFile when the file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrValueSize is returned when an external source supplies a value
	// exceeding MaxValueSize.
	ErrValueSize = errors.New("value exceeds maximum allowed size")

	// ErrCLIParse wraps command-line argument parsing failures.
	ErrCLIParse = errors.New("failed to parse command-line arguments")
)

func undefinedKeyError(key string, ctx Path) error {
	return fmt.Errorf("%w: %q (%s)", ErrUndefinedKey, key, ctx)
}

func invalidKeyError(key any) error {
	return fmt.Errorf("%w: %v (%T)", ErrInvalidKeyType, key, key)
}
