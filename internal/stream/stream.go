// Package stream relays a job's output to the client as a server-sent event
// stream: one start event, an output event per chunk in production order,
// then exactly one terminal complete or error event.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/x402dev/paygate/internal/catalog"
)

// Event names emitted on the stream
const (
	EventStart    = "start"
	EventOutput   = "output"
	EventComplete = "complete"
	EventError    = "error"
)

// Relay executes job and writes its event stream to the gin context. It
// blocks until the job finishes or the client disconnects. A job runtime
// fault becomes the terminal error event; it is never propagated as a
// process-level failure.
func Relay(c *gin.Context, job catalog.Job, logger *slog.Logger) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	runCtx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := make(chan string)
	done := make(chan error, 1)

	go func() {
		err := job.Run(runCtx, out)
		done <- err
		close(out)
	}()

	c.SSEvent(EventStart, fmt.Sprintf("Job %s started", job.JobID()))
	c.Writer.Flush()

	for chunk := range out {
		c.SSEvent(EventOutput, chunk)
		c.Writer.Flush()
	}

	err := <-done
	switch {
	case err == nil:
		c.SSEvent(EventComplete, fmt.Sprintf("Job %s completed", job.JobID()))

	case errors.Is(err, context.Canceled):
		// Client went away; nobody is listening for a terminal event.
		logger.Info("Job stream canceled by client",
			slog.String("job_id", job.JobID()),
		)
		return

	default:
		logger.Warn("Job execution failed",
			slog.String("job_id", job.JobID()),
			slog.Any("error", err),
		)
		c.SSEvent(EventError, err.Error())
	}

	c.Writer.Flush()

	logger.Info("Job stream finished",
		slog.String("job_id", job.JobID()),
	)
}
