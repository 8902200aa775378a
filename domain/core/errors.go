package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors abort the whole tabulation at call entry.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrColumnNotFound       = fmt.Errorf("%w: column not found", ErrInvalidConfiguration)
	ErrArmLevels            = fmt.Errorf("%w: arm level count", ErrInvalidConfiguration)
	ErrMissingStatistic     = fmt.Errorf("%w: mandatory statistic missing", ErrInvalidConfiguration)

	// Method errors: unrecognized test or ties method names.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// Mode errors: estimation modes that cannot be combined.
	ErrIncompatibleMode = errors.New("incompatible mode")
)

// Error constructors with context

func NewColumnNotFoundError(role, column string) error {
	return fmt.Errorf("%w: role %q references column %q", ErrColumnNotFound, role, column)
}

func NewArmLevelsError(column string, want, got int) error {
	return fmt.Errorf("%w: arm column %q must have %d levels, has %d", ErrArmLevels, column, want, got)
}

func NewMissingStatisticError(requested []string, mandatory string) error {
	return fmt.Errorf("%w: %q not in requested statistics %v", ErrMissingStatistic, mandatory, requested)
}

func NewUnsupportedMethodError(kind, name string) error {
	return fmt.Errorf("%w: unknown %s %q", ErrUnsupportedMethod, kind, name)
}

func NewIncompatibleModeError(reason string) error {
	return fmt.Errorf("%w: %s", ErrIncompatibleMode, reason)
}

// Error checking helpers

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

func IsUnsupportedMethodError(err error) bool {
	return errors.Is(err, ErrUnsupportedMethod)
}

func IsIncompatibleModeError(err error) bool {
	return errors.Is(err, ErrIncompatibleMode)
}
