// Package lifecycle orchestrates the job lifecycle state machine: request →
// awaiting payment → paid → executing, with expiry eviction at every edge.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/x402dev/paygate/internal/archive"
	"github.com/x402dev/paygate/internal/catalog"
	"github.com/x402dev/paygate/internal/events"
	"github.com/x402dev/paygate/internal/metrics"
	"github.com/x402dev/paygate/internal/payment"
	"github.com/x402dev/paygate/internal/pending"
)

var (
	// ErrProofMismatch is returned when an inline proof's declared job id
	// or amount disagrees with the request
	ErrProofMismatch = errors.New("payment proof mismatch")

	// ErrPaymentPending is the retryable "payment not yet confirmed"
	// outcome. It is not a hard failure: the caller resubmits later.
	ErrPaymentPending = errors.New("payment not yet confirmed")
)

// Job status values reported by Status
const (
	StatusNotFound = "not_found"
	StatusExpired  = "expired"
	StatusPending  = "pending"
	StatusPaid     = "paid"
)

// Confirmation statuses
const (
	ConfirmVerified    = "verified"
	ConfirmAlreadyPaid = "already_paid"
)

// Config holds coordinator configuration
type Config struct {
	Registry *catalog.Registry
	Store    *pending.Store
	Verifier *payment.Verifier
	Events   events.Publisher
	Archive  archive.Recorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	RecipientAddress    string
	ChainID             int
	TokenDecimals       int
	PaymentWindow       time.Duration
	InlineVerifyBudget  time.Duration
	ConfirmVerifyBudget time.Duration
	CleanupDelay        time.Duration
}

// Coordinator drives job lifecycle transitions. All shared state lives in
// the injected store; the coordinator itself is stateless and safe for
// concurrent use.
type Coordinator struct {
	registry *catalog.Registry
	store    *pending.Store
	verifier *payment.Verifier
	events   events.Publisher
	archive  archive.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger

	recipient           string
	chainID             int
	tokenDecimals       int
	paymentWindow       time.Duration
	inlineVerifyBudget  time.Duration
	confirmVerifyBudget time.Duration
	cleanupDelay        time.Duration

	now func() time.Time
}

// NewCoordinator creates a new lifecycle coordinator
func NewCoordinator(cfg *Config) *Coordinator {
	return &Coordinator{
		registry:            cfg.Registry,
		store:               cfg.Store,
		verifier:            cfg.Verifier,
		events:              cfg.Events,
		archive:             cfg.Archive,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger,
		recipient:           cfg.RecipientAddress,
		chainID:             cfg.ChainID,
		tokenDecimals:       cfg.TokenDecimals,
		paymentWindow:       cfg.PaymentWindow,
		inlineVerifyBudget:  cfg.InlineVerifyBudget,
		confirmVerifyBudget: cfg.ConfirmVerifyBudget,
		cleanupDelay:        cfg.CleanupDelay,
		now:                 time.Now,
	}
}

// RequestInput is one job request
type RequestInput struct {
	JobType       string
	Params        map[string]any
	WalletAddress string
	JobID         string // optional, client-supplied
	ProofToken    string // optional inline payment proof
}

// Challenge is the payment-required response for the slow path
type Challenge struct {
	JobID          string
	PriceOctas     int64
	PriceDisplay   string
	Recipient      string
	ChainID        int
	ExpiresAt      time.Time
	TimeoutSeconds int
}

// Authorization is the fast-path response when an inline proof verifies
type Authorization struct {
	JobID  string
	Signer string
	TxHash string
}

// Request validates a job request and either authorizes it through an inline
// payment proof or records it as awaiting payment and returns a challenge.
// No record is inserted before validation passes.
func (c *Coordinator) Request(ctx context.Context, in RequestInput) (*Authorization, *Challenge, error) {
	entry, err := c.registry.Resolve(in.JobType)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", catalog.ErrUnknownJobType, in.JobType)
	}

	jobID := in.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	job := entry.New(jobID, in.Params)
	if err := job.Validate(); err != nil {
		return nil, nil, err
	}

	price := entry.PriceOctas
	expiry := c.now().Add(c.paymentWindow)

	if in.ProofToken != "" {
		auth, err := c.authorizeInline(ctx, in.ProofToken, jobID, in.JobType, in.Params, price, expiry, job)
		if err != nil {
			return nil, nil, err
		}
		return auth, nil, nil
	}

	c.store.Put(pending.Record{
		JobID:   jobID,
		JobType: in.JobType,
		Params:  in.Params,
		Payer:   payment.NormalizeAddress(in.WalletAddress),
		Price:   price,
		Expiry:  expiry,
		Job:     job,
	})

	c.metrics.JobsRequested.Inc()
	c.logger.Info("Job awaiting payment",
		slog.String("job_id", jobID),
		slog.String("job_type", in.JobType),
		slog.Int64("price_octas", price),
	)

	return nil, &Challenge{
		JobID:          jobID,
		PriceOctas:     price,
		PriceDisplay:   payment.FormatOctas(price, c.tokenDecimals),
		Recipient:      c.recipient,
		ChainID:        c.chainID,
		ExpiresAt:      expiry,
		TimeoutSeconds: int(c.paymentWindow / time.Second),
	}, nil
}

// authorizeInline verifies an inline proof synchronously and inserts the
// record directly in the paid state on success.
func (c *Coordinator) authorizeInline(ctx context.Context, token, jobID, jobType string, params map[string]any, price int64, expiry time.Time, job catalog.Job) (*Authorization, error) {
	proof, err := payment.ParseProof(token)
	if err != nil {
		return nil, err
	}

	if proof.JobID != "" && proof.JobID != jobID {
		return nil, fmt.Errorf("%w: proof is for job %s", ErrProofMismatch, proof.JobID)
	}

	if proof.Amount != price {
		return nil, fmt.Errorf("%w: proof declares %d octas, expected %d", ErrProofMismatch, proof.Amount, price)
	}

	confirmedHash, err := c.verifier.Verify(ctx, proof.Sender, price, proof.TxHash, c.inlineVerifyBudget)
	if err != nil {
		c.metrics.PaymentsPending.Inc()
		c.logger.Info("Inline payment not confirmed yet",
			slog.String("job_id", jobID),
			slog.String("tx_hash", proof.TxHash),
			slog.Any("reason", err),
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentPending, err)
	}

	// The proof's sender is the resolved signer; it replaces whatever
	// wallet the request claimed.
	c.store.Put(pending.Record{
		JobID:   jobID,
		JobType: jobType,
		Params:  params,
		Payer:   proof.Sender,
		Price:   price,
		Expiry:  expiry,
		Paid:    true,
		TxHash:  confirmedHash,
		Job:     job,
	})

	c.metrics.JobsRequested.Inc()
	c.metrics.JobsAuthorized.Inc()
	c.logger.Info("Job authorized via inline proof",
		slog.String("job_id", jobID),
		slog.String("signer", proof.Sender),
		slog.String("tx_hash", confirmedHash),
	)

	c.events.Publish(ctx, events.JobEvent{
		Kind:       events.KindAuthorized,
		JobID:      jobID,
		JobType:    jobType,
		Payer:      proof.Sender,
		PriceOctas: price,
		TxHash:     confirmedHash,
		At:         c.now().UTC(),
	})
	c.archive.Record(ctx, &archive.Receipt{
		JobID:      jobID,
		JobType:    jobType,
		Payer:      proof.Sender,
		PriceOctas: price,
		TxHash:     confirmedHash,
		Outcome:    archive.OutcomeAuthorized,
	})

	return &Authorization{
		JobID:  jobID,
		Signer: proof.Sender,
		TxHash: confirmedHash,
	}, nil
}

// Confirmation is the outcome of a successful ConfirmPayment call
type Confirmation struct {
	Status string
	TxHash string
}

// ConfirmPayment verifies a payment for a record awaiting it. Already-paid
// records answer idempotently without re-invoking the verifier. Verification
// failure is the retryable ErrPaymentPending, not a hard error.
func (c *Coordinator) ConfirmPayment(ctx context.Context, jobID, txHash string) (*Confirmation, error) {
	rec, err := c.store.View(jobID, c.now())
	if err != nil {
		return nil, c.noteEviction(ctx, jobID, err)
	}

	if rec.Paid {
		return &Confirmation{Status: ConfirmAlreadyPaid, TxHash: rec.TxHash}, nil
	}

	// The poll loop holds no store lock; the record is re-checked on exit.
	confirmedHash, err := c.verifier.Verify(ctx, rec.Payer, rec.Price, txHash, c.confirmVerifyBudget)
	if err != nil {
		c.metrics.PaymentsPending.Inc()
		return nil, fmt.Errorf("%w: %v", ErrPaymentPending, err)
	}

	rec, err = c.store.MarkPaid(jobID, confirmedHash, c.now())
	if err != nil {
		if errors.Is(err, pending.ErrAlreadyPaid) {
			return &Confirmation{Status: ConfirmAlreadyPaid, TxHash: rec.TxHash}, nil
		}
		return nil, c.noteEviction(ctx, jobID, err)
	}

	c.metrics.PaymentsVerified.Inc()
	c.logger.Info("Payment verified",
		slog.String("job_id", jobID),
		slog.String("tx_hash", confirmedHash),
	)

	c.events.Publish(ctx, events.JobEvent{
		Kind:       events.KindVerified,
		JobID:      jobID,
		JobType:    rec.JobType,
		Payer:      rec.Payer,
		PriceOctas: rec.Price,
		TxHash:     confirmedHash,
		At:         c.now().UTC(),
	})
	c.archive.Record(ctx, &archive.Receipt{
		JobID:      jobID,
		JobType:    rec.JobType,
		Payer:      rec.Payer,
		PriceOctas: rec.Price,
		TxHash:     confirmedHash,
		Outcome:    archive.OutcomeVerified,
	})

	return &Confirmation{Status: ConfirmVerified, TxHash: confirmedHash}, nil
}

// BeginExecution claims a paid record for its single execution and returns
// the job handle for streaming. The record is removed after a fixed grace
// period regardless of how the execution turns out; an in-flight stream is
// not interrupted by that bookkeeping.
func (c *Coordinator) BeginExecution(ctx context.Context, jobID string) (catalog.Job, error) {
	rec, err := c.store.ClaimExecution(jobID, c.now())
	if err != nil {
		return nil, c.noteEviction(ctx, jobID, err)
	}

	time.AfterFunc(c.cleanupDelay, func() {
		c.store.Remove(jobID)
	})

	c.metrics.JobsExecuted.Inc()
	c.logger.Info("Job execution started",
		slog.String("job_id", jobID),
		slog.String("job_type", rec.JobType),
	)

	c.events.Publish(ctx, events.JobEvent{
		Kind:       events.KindExecuted,
		JobID:      jobID,
		JobType:    rec.JobType,
		Payer:      rec.Payer,
		PriceOctas: rec.Price,
		TxHash:     rec.TxHash,
		At:         c.now().UTC(),
	})
	c.archive.Record(ctx, &archive.Receipt{
		JobID:      jobID,
		JobType:    rec.JobType,
		Payer:      rec.Payer,
		PriceOctas: rec.Price,
		TxHash:     rec.TxHash,
		Outcome:    archive.OutcomeExecuted,
	})

	return rec.Job, nil
}

// StatusInfo is the read-only view of a record's lifecycle state
type StatusInfo struct {
	Status       string
	Paid         bool
	ExpiresAt    time.Time
	PriceOctas   int64
	PriceDisplay string
}

// Status reports a record's state without mutating it
func (c *Coordinator) Status(jobID string) StatusInfo {
	rec, err := c.store.Peek(jobID, c.now())
	switch {
	case errors.Is(err, pending.ErrNotFound):
		return StatusInfo{Status: StatusNotFound}
	case errors.Is(err, pending.ErrExpired):
		return StatusInfo{Status: StatusExpired}
	}

	status := StatusPending
	if rec.Paid {
		status = StatusPaid
	}

	return StatusInfo{
		Status:       status,
		Paid:         rec.Paid,
		ExpiresAt:    rec.Expiry,
		PriceOctas:   rec.Price,
		PriceDisplay: payment.FormatOctas(rec.Price, c.tokenDecimals),
	}
}

// noteEviction publishes the expiry event when a read path lazily evicted
// the record, then passes the error through unchanged.
func (c *Coordinator) noteEviction(ctx context.Context, jobID string, err error) error {
	if errors.Is(err, pending.ErrExpired) {
		c.metrics.JobsExpired.Inc()
		c.events.Publish(ctx, events.JobEvent{
			Kind:  events.KindExpired,
			JobID: jobID,
			At:    c.now().UTC(),
		})
	}
	return err
}
