package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	regress "github.com/hwverif/gen-regress"
	"github.com/hwverif/gen-regress/exitcodes"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "success", err: nil, expected: exitcodes.Success},
		{name: "job failure", err: regress.NewJobFailureError("jobs 1/2 completed"), expected: exitcodes.JobFailure},
		{name: "runtime error", err: regress.NewRuntimeError(errors.New("bad simulator file")), expected: exitcodes.RuntimeErr},
		{name: "wrapped runtime error", err: fmt.Errorf("start: %w", regress.NewRuntimeError(context.Canceled)), expected: exitcodes.RuntimeErr},
		{name: "timeout", err: &regress.TimeoutError{Completed: 1, Total: 2, Cycles: 60}, expected: exitcodes.RuntimeErr},
		{name: "unspecified", err: errors.New("something else"), expected: exitcodes.JobFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitCode(tt.err))
		})
	}
}
