package catalog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// hostPattern accepts hostnames and IPv4 addresses: alphanumeric labels with
// dots and hyphens, no leading or trailing separator.
var hostPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-\.]*[a-zA-Z0-9])?$`)

const maxHostLength = 253

// pingJob shells out to the system ping command and streams its output line
// by line.
type pingJob struct {
	jobID    string
	params   map[string]any
	maxCount int
	timeout  time.Duration
}

func newPingJob(jobID string, params map[string]any, maxCount int, timeout time.Duration) *pingJob {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &pingJob{
		jobID:    jobID,
		params:   params,
		maxCount: maxCount,
		timeout:  timeout,
	}
}

func (j *pingJob) JobID() string {
	return j.jobID
}

func (j *pingJob) Validate() error {
	host, count, err := j.args()
	if err != nil {
		return err
	}

	if !hostPattern.MatchString(host) || len(host) > maxHostLength {
		return invalidParams("invalid host: %s", host)
	}

	if count < 1 || count > j.maxCount {
		return invalidParams("count must be between 1 and %d", j.maxCount)
	}

	return nil
}

func (j *pingJob) Run(ctx context.Context, out chan<- string) error {
	host, count, err := j.args()
	if err != nil {
		return err
	}

	if err := emit(ctx, out, fmt.Sprintf("Starting ping to %s (%d packets)...\n", host, count)); err != nil {
		return err
	}

	timeoutSecs := int(j.timeout / time.Second)
	if timeoutSecs < 1 {
		timeoutSecs = 1
	}

	cmd := exec.CommandContext(ctx, "ping",
		"-c", strconv.Itoa(count),
		"-W", strconv.Itoa(timeoutSecs),
		host,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ping: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if err := emit(ctx, out, scanner.Text()+"\n"); err != nil {
			_ = cmd.Wait()
			return err
		}
	}

	if err := cmd.Wait(); err != nil {
		if msg := stderr.String(); msg != "" {
			return fmt.Errorf("ping failed: %s", msg)
		}
		return fmt.Errorf("ping failed: %w", err)
	}

	return emit(ctx, out, "\nPing completed successfully!\n")
}

// args extracts host and count from the params payload. count defaults to 4
// and accepts the JSON number representations gin decodes into.
func (j *pingJob) args() (string, int, error) {
	host, _ := j.params["host"].(string)
	if host == "" {
		return "", 0, invalidParams("missing 'host' parameter")
	}

	count := 4
	if raw, ok := j.params["count"]; ok {
		switch v := raw.(type) {
		case int:
			count = v
		case float64:
			if v != math.Trunc(v) {
				return "", 0, invalidParams("count must be an integer")
			}
			count = int(v)
		default:
			return "", 0, invalidParams("count must be an integer")
		}
	}

	return host, count, nil
}

func emit(ctx context.Context, out chan<- string, chunk string) error {
	select {
	case out <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
