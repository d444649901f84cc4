package dto

// RequestJobRequest is the POST /api/jobs/request body. PaymentProof is the
// optional inline proof token; it may equally arrive in the X-Payment
// header.
type RequestJobRequest struct {
	JobType       string         `json:"job_type" binding:"required"`
	Params        map[string]any `json:"params"`
	WalletAddress string         `json:"wallet_address" binding:"required"`
	JobID         string         `json:"job_id"`
	PaymentProof  string         `json:"payment_proof"`
}

// VerifyPaymentRequest is the POST /api/jobs/verify-payment body
type VerifyPaymentRequest struct {
	JobID  string `json:"job_id" binding:"required"`
	TxHash string `json:"tx_hash" binding:"required"`
}

// PaymentDetails describes how to settle a challenge
type PaymentDetails struct {
	AmountOctas      int64  `json:"amount_octas"`
	Amount           string `json:"amount"`
	RecipientAddress string `json:"recipient_address"`
	ChainID          int    `json:"chain_id"`
	Network          string `json:"network"`
}

// ChallengeResponse is the 402 payment-required body
type ChallengeResponse struct {
	JobID          string         `json:"job_id"`
	Message        string         `json:"message"`
	Payment        PaymentDetails `json:"payment"`
	ExpiresAt      string         `json:"expires_at"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

// AuthorizedResponse is returned when an inline proof verifies
type AuthorizedResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
	Signer  string `json:"signer"`
	TxHash  string `json:"tx_hash"`
}

// VerifyPaymentResponse is returned when a payment confirms (or already had)
type VerifyPaymentResponse struct {
	Status       string `json:"status"`
	TxHash       string `json:"tx_hash,omitempty"`
	ExecutionURL string `json:"execution_url"`
}

// JobStatusResponse is the read-only status view
type JobStatusResponse struct {
	Status     string `json:"status"`
	Paid       bool   `json:"paid,omitempty"`
	ExpiresAt  string `json:"expires_at,omitempty"`
	Price      string `json:"price,omitempty"`
	PriceOctas int64  `json:"price_octas,omitempty"`
}

// JobListing is one catalog entry
type JobListing struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	PriceOctas int64  `json:"price_octas"`
}

// CatalogResponse is the GET /api/jobs body
type CatalogResponse struct {
	Jobs             map[string]JobListing `json:"jobs"`
	RecipientAddress string                `json:"recipient_address"`
	Network          string                `json:"network"`
	ChainID          int                   `json:"chain_id"`
}
