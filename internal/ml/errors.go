package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotFound means no artifact exists at the configured path.
	ErrModelNotFound = errors.New("model artifact not found")
	// ErrPredictorClosed is returned by predictions after Close.
	ErrPredictorClosed = errors.New("predictor is closed")
)

// InferenceError wraps any failure while turning a table into predictions.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

func inferenceErr(format string, args ...interface{}) error {
	return &InferenceError{Err: fmt.Errorf(format, args...)}
}
