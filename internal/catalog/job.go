// Package catalog holds the registry of purchasable job types. Each type is
// registered as an explicit name→factory mapping built at startup; a job
// instance is constructed per request, validates its own parameters and, once
// paid for, streams its output.
package catalog

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownJobType is returned when a job type is not registered
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrInvalidParams is returned when job parameters fail validation
	ErrInvalidParams = errors.New("invalid job parameters")
)

// Job is a single executable unit bound to a job id and its parameters.
type Job interface {
	// JobID returns the identifier this instance was constructed for.
	JobID() string

	// Validate checks the job's parameters. A wrapped ErrInvalidParams is
	// returned on failure.
	Validate() error

	// Run executes the job, sending output chunks to out in production
	// order. Run must not close out; the caller owns the channel. The
	// returned error describes the job's own runtime fault, if any.
	Run(ctx context.Context, out chan<- string) error
}

// Factory constructs a job instance for one request
type Factory func(jobID string, params map[string]any) Job

func invalidParams(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
