// Package errs implements the error kinds shared by the Forward-Forward packages.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch reports feature or label dimensions that do not line up.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidConfig reports a configuration that cannot be run.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNumericDivergence reports a loss that became NaN or infinite during training.
	ErrNumericDivergence = errors.New("numeric divergence")

	// ErrCanceled reports training stopped between epochs by its context.
	ErrCanceled = errors.New("training canceled")
)

// Shape wraps ErrShapeMismatch with a formatted message.
func Shape(format string, args ...interface{}) error {
	return errors.Wrapf(ErrShapeMismatch, format, args...)
}

// Config wraps ErrInvalidConfig with a formatted message.
func Config(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}

// Canceled wraps ErrCanceled with the context error that caused it.
func Canceled(layer, epoch int, cause error) error {
	return &CanceledError{Layer: layer, Epoch: epoch, Cause: cause}
}

// DivergenceError is returned when a layer's loss stops being finite.
// Layer is -1 until the network fills in the position of the layer.
type DivergenceError struct {
	Layer int
	Epoch int
	Loss  float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("%v: layer %d epoch %d loss %v", ErrNumericDivergence, e.Layer, e.Epoch, e.Loss)
}

// Unwrap makes errors.Is(err, ErrNumericDivergence) hold.
func (e *DivergenceError) Unwrap() error {
	return ErrNumericDivergence
}

// CanceledError records where training stopped.
type CanceledError struct {
	Layer int
	Epoch int
	Cause error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("%v: layer %d before epoch %d: %v", ErrCanceled, e.Layer, e.Epoch, e.Cause)
}

// Is matches ErrCanceled; the context error is reached through Unwrap.
func (e *CanceledError) Is(target error) bool {
	return target == ErrCanceled
}

// Unwrap returns the context error.
func (e *CanceledError) Unwrap() error {
	return e.Cause
}

// WithLayer stamps the layer index onto divergence and cancellation errors.
// Other errors are returned unchanged.
func WithLayer(err error, layer int) error {
	var div *DivergenceError
	if errors.As(err, &div) {
		div.Layer = layer
		return div
	}
	var can *CanceledError
	if errors.As(err, &can) {
		can.Layer = layer
		return can
	}
	return err
}
