package training

import (
	"errors"
	"fmt"

	"formazing-backend/internal/model"
)

// ErrPrecondition matches every PreconditionError.
var ErrPrecondition = errors.New("training precondition failed")

// PreconditionError reports a workflow invoked on a record in the wrong state.
// It is terminal: retrying without changing the record yields the same error.
type PreconditionError struct {
	TrainingID string
	Expected   model.Status
	Actual     model.Status
	Reason     string
}

func (e *PreconditionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("training %s: %s", e.TrainingID, e.Reason)
	}
	return fmt.Sprintf("training %s is %s, expected %s", e.TrainingID, e.Actual, e.Expected)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// GatewayError wraps a failure of an external dependency.
type GatewayError struct {
	Service string
	Op      string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func gatewayErr(service, op string, err error) error {
	return &GatewayError{Service: service, Op: op, Err: err}
}
