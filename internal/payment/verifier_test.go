package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402dev/paygate/shared/aptos"
)

const (
	testRecipient = "0x2fa75e20e3bd0e3a1c00cea95cba53ab5b956358d762e0e7a2a7629b2c63ac50"
	testPayer     = "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"
	testPrice     = int64(100000)
)

var verifierTxHash = "0x" + strings.Repeat("cd", 32)

// scriptedLedger returns its responses in order, repeating the last one
type scriptedLedger struct {
	mu        sync.Mutex
	responses []ledgerResponse
	calls     int
}

type ledgerResponse struct {
	tx  *aptos.Transaction
	err error
}

func (l *scriptedLedger) TransactionByHash(ctx context.Context, txHash string) (*aptos.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.calls
	if idx >= len(l.responses) {
		idx = len(l.responses) - 1
	}
	l.calls++

	resp := l.responses[idx]
	return resp.tx, resp.err
}

func (l *scriptedLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func transferTx(sender, recipient string, amount int64) *aptos.Transaction {
	return &aptos.Transaction{
		Type:    aptos.TypeUserTransaction,
		Hash:    verifierTxHash,
		Sender:  sender,
		Success: true,
		Payload: &aptos.Payload{
			Type:      "entry_function_payload",
			Function:  "0x1::aptos_account::transfer",
			Arguments: []any{recipient, "100000"},
		},
	}
}

func newTestVerifier(ledger Ledger) *Verifier {
	return NewVerifier(&Config{
		Ledger:           ledger,
		RecipientAddress: testRecipient,
		PollInterval:     time.Millisecond,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestVerifier_Verify(t *testing.T) {
	tests := []struct {
		name      string
		responses []ledgerResponse
		wantErr   error
	}{
		{
			name: "confirmed transfer",
			responses: []ledgerResponse{
				{tx: transferTx(testPayer, testRecipient, testPrice)},
			},
		},
		{
			name: "not on chain then confirmed",
			responses: []ledgerResponse{
				{err: aptos.ErrTransactionNotFound},
				{err: aptos.ErrTransactionNotFound},
				{tx: transferTx(testPayer, testRecipient, testPrice)},
			},
		},
		{
			name: "pending then confirmed",
			responses: []ledgerResponse{
				{tx: &aptos.Transaction{Type: "pending_transaction", Hash: verifierTxHash, Sender: testPayer}},
				{tx: transferTx(testPayer, testRecipient, testPrice)},
			},
		},
		{
			name: "transport error then confirmed",
			responses: []ledgerResponse{
				{err: errors.New("connection refused")},
				{tx: transferTx(testPayer, testRecipient, testPrice)},
			},
		},
		{
			name: "failed transaction is terminal",
			responses: []ledgerResponse{
				{tx: &aptos.Transaction{Type: aptos.TypeUserTransaction, Hash: verifierTxHash, Sender: testPayer, Success: false}},
			},
			wantErr: ErrTransactionFailed,
		},
		{
			name: "sender mismatch is terminal",
			responses: []ledgerResponse{
				{tx: transferTx("0xsomeoneelse", testRecipient, testPrice)},
			},
			wantErr: ErrSenderMismatch,
		},
		{
			name: "wrong transaction type",
			responses: []ledgerResponse{
				{tx: &aptos.Transaction{Type: "block_metadata_transaction", Hash: verifierTxHash, Sender: testPayer, Success: true}},
			},
			wantErr: ErrWrongTransactionType,
		},
		{
			name: "not a transfer payload",
			responses: []ledgerResponse{
				{tx: &aptos.Transaction{
					Type:    aptos.TypeUserTransaction,
					Hash:    verifierTxHash,
					Sender:  testPayer,
					Success: true,
					Payload: &aptos.Payload{
						Function:  "0x1::code::publish_package_txn",
						Arguments: []any{"a", "b"},
					},
				}},
			},
			wantErr: ErrNotATransfer,
		},
		{
			name: "recipient mismatch",
			responses: []ledgerResponse{
				{tx: transferTx(testPayer, "0xwrongrecipient", testPrice)},
			},
			wantErr: ErrRecipientMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &scriptedLedger{responses: tt.responses}
			verifier := newTestVerifier(ledger)

			hash, err := verifier.Verify(context.Background(), testPayer, testPrice, verifierTxHash, time.Second)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, verifierTxHash, hash)
				assert.Equal(t, len(tt.responses), ledger.callCount())
			}
		})
	}
}

func TestVerifier_VerifyAmountMismatch(t *testing.T) {
	tx := transferTx(testPayer, testRecipient, testPrice)
	tx.Payload.Arguments[1] = "999"

	ledger := &scriptedLedger{responses: []ledgerResponse{{tx: tx}}}
	verifier := newTestVerifier(ledger)

	_, err := verifier.Verify(context.Background(), testPayer, testPrice, verifierTxHash, time.Second)
	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestVerifier_VerifyBudgetExhausted(t *testing.T) {
	ledger := &scriptedLedger{responses: []ledgerResponse{{err: aptos.ErrTransactionNotFound}}}
	verifier := newTestVerifier(ledger)

	start := time.Now()
	_, err := verifier.Verify(context.Background(), testPayer, testPrice, verifierTxHash, 20*time.Millisecond)

	assert.ErrorIs(t, err, ErrNotVerified)
	assert.Less(t, time.Since(start), time.Second)
	assert.Greater(t, ledger.callCount(), 1)
}

func TestVerifier_VerifyContextCancelled(t *testing.T) {
	ledger := &scriptedLedger{responses: []ledgerResponse{{err: aptos.ErrTransactionNotFound}}}
	verifier := newTestVerifier(ledger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := verifier.Verify(ctx, testPayer, testPrice, verifierTxHash, time.Minute)
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestVerifier_VerifyNormalizesInputs(t *testing.T) {
	// Payer with prefix/case variance; on-chain sender without prefix
	tx := transferTx(strings.ToUpper(testPayer[2:]), testRecipient, testPrice)

	ledger := &scriptedLedger{responses: []ledgerResponse{{tx: tx}}}
	verifier := newTestVerifier(ledger)

	hash, err := verifier.Verify(context.Background(), strings.ToUpper(testPayer), testPrice, strings.TrimPrefix(verifierTxHash, "0x"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, verifierTxHash, hash)
}

func TestVerifier_AcceptedTransferFunctions(t *testing.T) {
	for fn := range transferFunctions {
		t.Run(fn, func(t *testing.T) {
			tx := transferTx(testPayer, testRecipient, testPrice)
			tx.Payload.Function = fn

			ledger := &scriptedLedger{responses: []ledgerResponse{{tx: tx}}}
			verifier := newTestVerifier(ledger)

			_, err := verifier.Verify(context.Background(), testPayer, testPrice, verifierTxHash, time.Second)
			assert.NoError(t, err)
		})
	}
}
