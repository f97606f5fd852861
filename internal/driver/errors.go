package driver

import (
	"errors"
	"fmt"

	"github.com/roach88/kgc/internal/ir"
)

// StepsExceededError is returned by Run when the workflow has not quiesced
// within the step limit.
type StepsExceededError struct {
	Steps int
	Limit int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("workflow did not quiesce: %d steps exceeds limit %d", e.Steps, e.Limit)
}

// IsStepsExceeded reports whether err is a StepsExceededError.
func IsStepsExceeded(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsRejection reports whether err is a kernel rejection, as opposed to an
// infrastructure failure. Rejections come with an uncommitted receipt.
func IsRejection(err error) bool {
	return ir.CodeOf(err) != ""
}

// rejectionReason renders the receipt Reason for a rejection.
func rejectionReason(err error) string {
	var ke *ir.KernelError
	if !errors.As(err, &ke) {
		return err.Error()
	}
	reason := fmt.Sprintf("%s: %s", ke.Code, ke.Message)
	for _, d := range ke.Details {
		reason += "; " + d
	}
	return reason
}
