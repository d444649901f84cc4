package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/x402dev/paygate/shared/aptos"
)

var (
	// ErrNotVerified is returned when the polling budget is exhausted
	// without a terminal decision. The payment may still confirm later.
	ErrNotVerified = errors.New("payment not verified within budget")

	// ErrTransactionFailed is returned when the ledger reports the
	// transaction as unsuccessful. Terminal: a failed transaction never
	// becomes successful.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	// ErrSenderMismatch is returned when the on-chain sender is not the
	// expected payer. Terminal: a mismatched sender never self-corrects.
	ErrSenderMismatch = errors.New("transaction sender mismatch")

	// ErrWrongTransactionType is returned for non-user transactions
	ErrWrongTransactionType = errors.New("not a user transaction")

	// ErrNotATransfer is returned when the transaction payload is not a
	// recognized coin transfer
	ErrNotATransfer = errors.New("transaction is not a coin transfer")

	// ErrRecipientMismatch is returned when the transfer pays someone else
	ErrRecipientMismatch = errors.New("transfer recipient mismatch")

	// ErrAmountMismatch is returned when the transferred amount does not
	// equal the expected price
	ErrAmountMismatch = errors.New("transfer amount mismatch")
)

// transferFunctions are the entry functions accepted as a direct payment.
// All of them take [recipient, amount] arguments.
var transferFunctions = map[string]bool{
	"0x1::aptos_account::transfer":       true,
	"0x1::aptos_account::transfer_coins": true,
	"0x1::coin::transfer":                true,
}

// Ledger answers "fetch transaction by hash" for the verifier. Satisfied by
// *aptos.Client.
type Ledger interface {
	TransactionByHash(ctx context.Context, txHash string) (*aptos.Transaction, error)
}

// Verifier confirms that a transaction moved the expected amount from a
// given sender to the configured recipient, polling the ledger within a
// caller-supplied budget.
type Verifier struct {
	ledger       Ledger
	recipient    string
	pollInterval time.Duration
	logger       *slog.Logger
}

// Config holds verifier configuration
type Config struct {
	Ledger           Ledger
	RecipientAddress string
	PollInterval     time.Duration
	Logger           *slog.Logger
}

// NewVerifier creates a new payment verifier
func NewVerifier(cfg *Config) *Verifier {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &Verifier{
		ledger:       cfg.Ledger,
		recipient:    NormalizeAddress(cfg.RecipientAddress),
		pollInterval: pollInterval,
		logger:       cfg.Logger,
	}
}

// Verify polls the ledger for txHash until it reaches a terminal decision or
// the budget elapses. On success it returns the confirmed hash. Transient
// fetch errors and not-yet-on-chain lookups are retried with a fixed
// backoff; failed transactions, sender mismatches and wrong transfers fail
// immediately because they can never become valid.
func (v *Verifier) Verify(ctx context.Context, payer string, amountOctas int64, txHash string, budget time.Duration) (string, error) {
	payer = NormalizeAddress(payer)
	txHash = NormalizeHash(txHash)

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	for {
		tx, err := v.ledger.TransactionByHash(ctx, txHash)
		switch {
		case err == nil:
			decided, verr := v.inspect(tx, payer, amountOctas, txHash)
			if decided {
				return txHash, verr
			}
			// Still pending on chain, keep polling.

		case errors.Is(err, aptos.ErrTransactionNotFound):
			v.logger.Debug("Transaction not on chain yet",
				slog.String("tx_hash", txHash),
			)

		default:
			// Transport errors are absorbed into the retry loop.
			v.logger.Warn("Transaction fetch failed, retrying",
				slog.String("tx_hash", txHash),
				slog.Any("error", err),
			)
		}

		select {
		case <-time.After(v.pollInterval):
		case <-ctx.Done():
			v.logger.Info("Payment verification budget exhausted",
				slog.String("tx_hash", txHash),
				slog.Duration("budget", budget),
			)
			return "", ErrNotVerified
		}
	}
}

// inspect decides whether a fetched transaction settles the payment.
// decided=false means the transaction has not committed yet.
func (v *Verifier) inspect(tx *aptos.Transaction, payer string, amountOctas int64, txHash string) (decided bool, err error) {
	if tx.Type == "pending_transaction" {
		return false, nil
	}

	if !tx.Success {
		v.logger.Warn("Transaction failed on chain",
			slog.String("tx_hash", txHash),
		)
		return true, ErrTransactionFailed
	}

	if sender := NormalizeAddress(tx.Sender); sender != payer {
		v.logger.Warn("Transaction sender mismatch",
			slog.String("tx_hash", txHash),
			slog.String("expected", payer),
			slog.String("got", sender),
		)
		return true, ErrSenderMismatch
	}

	if tx.Type != aptos.TypeUserTransaction {
		return true, fmt.Errorf("%w: %s", ErrWrongTransactionType, tx.Type)
	}

	if err := v.checkTransfer(tx.Payload, amountOctas); err != nil {
		return true, err
	}

	v.logger.Info("Payment verified",
		slog.String("tx_hash", txHash),
		slog.Int64("amount_octas", amountOctas),
	)
	return true, nil
}

// checkTransfer enforces that the payload is a recognized transfer paying
// the configured recipient exactly the expected amount.
func (v *Verifier) checkTransfer(payload *aptos.Payload, amountOctas int64) error {
	if payload == nil || !transferFunctions[payload.Function] {
		function := ""
		if payload != nil {
			function = payload.Function
		}
		return fmt.Errorf("%w: function %q", ErrNotATransfer, function)
	}

	if len(payload.Arguments) < 2 {
		return fmt.Errorf("%w: transfer arguments missing", ErrNotATransfer)
	}

	recipient, ok := payload.Arguments[0].(string)
	if !ok || NormalizeAddress(recipient) != v.recipient {
		return ErrRecipientMismatch
	}

	amount, err := argumentAmount(payload.Arguments[1])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotATransfer, err)
	}

	if amount != amountOctas {
		return fmt.Errorf("%w: expected %d octas, got %d", ErrAmountMismatch, amountOctas, amount)
	}

	return nil
}

// argumentAmount decodes a u64 entry-function argument. The fullnode encodes
// u64 values as JSON strings.
func argumentAmount(arg any) (int64, error) {
	switch v := arg.(type) {
	case string:
		return strconv.ParseInt(v, 10, 64)
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unsupported amount argument type %T", arg)
	}
}
