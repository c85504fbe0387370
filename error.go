package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is matched by every error returned while the
	// graph is assembled.
	ErrConfiguration = errors.New("configuration error")
	// ErrChannelMismatch is returned when a coupler is bound to an
	// input that expects a different number of channels.
	ErrChannelMismatch = errors.New("channel count mismatch")
	// ErrCapacity is returned when a buffer or a block size is out of
	// the supported range.
	ErrCapacity = errors.New("invalid capacity")
	// ErrMissingOutput is returned when a component has no output with
	// requested name.
	ErrMissingOutput = errors.New("missing output")
	// ErrNoInputs is returned when a combinator is created without
	// inputs.
	ErrNoInputs = errors.New("no inputs")

	// ErrRange is returned when a tap is requested outside of the
	// buffer's valid window.
	ErrRange = errors.New("delay out of range")
	// ErrBlockTooLarge is returned by Graph.Process when the block
	// length is outside of [1, maxBlock].
	ErrBlockTooLarge = errors.New("block length out of range")
	// ErrImmutable is returned by Graph.Push for a mutation that is not
	// bound to a mutable context.
	ErrImmutable = errors.New("immutable mutation")
)

// ConfigurationError is returned if the graph cannot be assembled.
type ConfigurationError struct {
	Op  string
	Err error
}

// NewConfigurationError wraps err with the operation that failed.
func NewConfigurationError(op string, err error) *ConfigurationError {
	return &ConfigurationError{Op: op, Err: err}
}

// Configurationf returns a configuration error with formatted cause.
func Configurationf(op string, cause error, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Op:  op,
		Err: fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...)),
	}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// configErrors wraps errors that occur when multiple bindings are
// failing.
type configErrors []error

func (e configErrors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Is checks if any of errors match provided sentinel error.
func (e configErrors) Is(target error) bool {
	for _, se := range e {
		if errors.Is(se, target) {
			return true
		}
	}
	return false
}

// ret returns untyped nil if error list is empty.
func (e configErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
