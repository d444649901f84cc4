// Package archive persists settlement receipts to PostgreSQL. The pending
// store is in-memory and records are evicted after execution; the archive is
// the durable audit trail of what was paid for and run.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/x402dev/paygate/shared/postgresql"
)

// Receipt outcomes
const (
	OutcomeAuthorized = "AUTHORIZED"
	OutcomeVerified   = "VERIFIED"
	OutcomeExecuted   = "EXECUTED"
)

// Receipt is one archived settlement or execution record
type Receipt struct {
	JobID      string    `db:"job_id"`
	JobType    string    `db:"job_type"`
	Payer      string    `db:"payer"`
	PriceOctas int64     `db:"price_octas"`
	TxHash     string    `db:"tx_hash"`
	Outcome    string    `db:"outcome"`
	CreatedAt  time.Time `db:"created_at"`
}

// Recorder records receipts
type Recorder interface {
	Record(ctx context.Context, r *Receipt)
}

// Postgres is the sqlx-backed recorder
type Postgres struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgres creates a recorder on top of the shared PostgreSQL client
func NewPostgres(client *postgresql.Client, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:     client.GetDB(),
		logger: logger,
	}
}

// Record inserts a receipt. Failures are logged, not propagated: the archive
// must never fail a client-facing request.
func (p *Postgres) Record(ctx context.Context, r *Receipt) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO receipts (
			job_id, job_type, payer, price_octas, tx_hash, outcome, created_at
		) VALUES (
			:job_id, :job_type, :payer, :price_octas, :tx_hash, :outcome, :created_at
		)
	`

	if _, err := p.db.NamedExecContext(ctx, query, r); err != nil {
		p.logger.Error("Failed to archive receipt",
			slog.String("job_id", r.JobID),
			slog.String("outcome", r.Outcome),
			slog.Any("error", err),
		)
		return
	}

	p.logger.Debug("Receipt archived",
		slog.String("job_id", r.JobID),
		slog.String("outcome", r.Outcome),
	)
}

// Nop discards all receipts. Used when no archive database is configured.
type Nop struct{}

// Record implements Recorder
func (Nop) Record(context.Context, *Receipt) {}

// EnsureSchema creates the receipts table when it does not exist
func EnsureSchema(ctx context.Context, client *postgresql.Client) error {
	schema := `
		CREATE TABLE IF NOT EXISTS receipts (
			id          BIGSERIAL PRIMARY KEY,
			job_id      TEXT        NOT NULL,
			job_type    TEXT        NOT NULL,
			payer       TEXT        NOT NULL,
			price_octas BIGINT      NOT NULL,
			tx_hash     TEXT        NOT NULL DEFAULT '',
			outcome     TEXT        NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)
	`

	if _, err := client.GetDB().ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure receipts schema: %w", err)
	}

	return nil
}
