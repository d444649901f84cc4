package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedProof is returned when an inline payment proof cannot be
// parsed or is missing required fields.
var ErrMalformedProof = errors.New("malformed payment proof")

// Proof is the inline payment evidence a client submits with a job request
// to skip the separate confirmation round-trip. JobID is optional; when
// present it must match the request's job id.
type Proof struct {
	TxHash string
	Sender string
	Amount int64
	JobID  string
}

type rawProof struct {
	TxHash string          `json:"tx_hash"`
	Sender string          `json:"sender"`
	Amount json.RawMessage `json:"amount"`
	JobID  string          `json:"job_id"`
}

// ParseProof decodes a proof token: the JSON carried in the X-Payment header
// or the payment_proof body field, {tx_hash, sender, amount, optional job_id}.
// Amount accepts both a JSON number and a decimal string of octas.
func ParseProof(token string) (*Proof, error) {
	var raw rawProof
	if err := json.Unmarshal([]byte(token), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}

	if raw.TxHash == "" {
		return nil, fmt.Errorf("%w: missing tx_hash", ErrMalformedProof)
	}
	if raw.Sender == "" {
		return nil, fmt.Errorf("%w: missing sender", ErrMalformedProof)
	}
	if len(raw.Amount) == 0 {
		return nil, fmt.Errorf("%w: missing amount", ErrMalformedProof)
	}

	txHash := NormalizeHash(raw.TxHash)
	if !IsCanonicalHash(txHash) {
		return nil, fmt.Errorf("%w: tx_hash is not a canonical transaction hash", ErrMalformedProof)
	}

	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return nil, err
	}

	return &Proof{
		TxHash: txHash,
		Sender: NormalizeAddress(raw.Sender),
		Amount: amount,
		JobID:  raw.JobID,
	}, nil
}

func parseAmount(raw json.RawMessage) (int64, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)

	amount, err := strconv.ParseInt(text, 10, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrMalformedProof, text)
	}

	return amount, nil
}
