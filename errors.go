package pipecheck

import (
	"errors"
	"fmt"
)

var (
	// ErrDriverUsed is returned when Run is invoked on a driver that has
	// already reached a terminal state. Drivers are single use.
	ErrDriverUsed = errors.New("pipecheck: driver already ran")

	// ErrWaitTimeout is returned by WaitUntil when the predicate is not
	// satisfied within the timeout.
	ErrWaitTimeout = errors.New("pipecheck: condition not met within timeout")

	// ErrJoinTimeout is returned when a background actor does not terminate
	// within the join timeout.
	ErrJoinTimeout = errors.New("pipecheck: actor join timed out")
)

// TimeoutError reports that the completion predicate was not met in time. It
// carries the expected and observed counts so the caller can see how far the
// pipeline got.
type TimeoutError struct {
	Expected        ExpectedCounts
	InputsObserved  int
	OutputsObserved int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pipecheck: timed out: consumed %d/%d input records and %d/%d output records",
		e.InputsObserved, e.Expected.Inputs, e.OutputsObserved, e.Expected.Outputs)
}

func (e *TimeoutError) Unwrap() error { return ErrWaitTimeout }
