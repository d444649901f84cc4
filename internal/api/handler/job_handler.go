package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/x402dev/paygate/internal/api/dto"
	"github.com/x402dev/paygate/internal/catalog"
	"github.com/x402dev/paygate/internal/lifecycle"
	"github.com/x402dev/paygate/internal/payment"
	"github.com/x402dev/paygate/internal/pending"
	"github.com/x402dev/paygate/internal/stream"
)

// Health handles GET /
// Reports service identity and fullnode connectivity
func (h *JobHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   h.serviceName,
		"status":    "running",
		"network":   h.network,
		"chain_id":  h.chainID,
		"connected": h.chain.Connected(c.Request.Context()),
	})
}

// ListJobs handles GET /api/jobs
// Lists all purchasable job types with their prices
func (h *JobHandler) ListJobs(c *gin.Context) {
	entries := h.registry.List()

	jobs := make(map[string]dto.JobListing, len(entries))
	for _, e := range entries {
		jobs[e.Name] = dto.JobListing{
			Name:       e.Name,
			Price:      payment.FormatOctas(e.PriceOctas, h.tokenDecimals),
			PriceOctas: e.PriceOctas,
		}
	}

	c.JSON(http.StatusOK, dto.CatalogResponse{
		Jobs:             jobs,
		RecipientAddress: h.recipient,
		Network:          h.network,
		ChainID:          h.chainID,
	})
}

// RequestJob handles POST /api/jobs/request
// With an inline payment proof the job is verified and authorized
// immediately; without one the response is a 402 payment challenge.
func (h *JobHandler) RequestJob(c *gin.Context) {
	var req dto.RequestJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	proof := req.PaymentProof
	if proof == "" {
		proof = c.GetHeader("X-Payment")
	}

	auth, challenge, err := h.coordinator.Request(c.Request.Context(), lifecycle.RequestInput{
		JobType:       req.JobType,
		Params:        req.Params,
		WalletAddress: req.WalletAddress,
		JobID:         req.JobID,
		ProofToken:    proof,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	if auth != nil {
		c.JSON(http.StatusOK, dto.AuthorizedResponse{
			Status:  "authorized",
			JobID:   auth.JobID,
			Message: "Payment verified and authorized",
			Signer:  auth.Signer,
			TxHash:  auth.TxHash,
		})
		return
	}

	c.JSON(http.StatusPaymentRequired, dto.ChallengeResponse{
		JobID:   challenge.JobID,
		Message: "Payment Required",
		Payment: dto.PaymentDetails{
			AmountOctas:      challenge.PriceOctas,
			Amount:           challenge.PriceDisplay,
			RecipientAddress: challenge.Recipient,
			ChainID:          challenge.ChainID,
			Network:          h.network,
		},
		ExpiresAt:      challenge.ExpiresAt.UTC().Format(time.RFC3339),
		TimeoutSeconds: challenge.TimeoutSeconds,
	})
}

// VerifyPayment handles POST /api/jobs/verify-payment
// Confirms a payment for a job awaiting it and returns the execution URL
func (h *JobHandler) VerifyPayment(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	confirmation, err := h.coordinator.ConfirmPayment(c.Request.Context(), req.JobID, req.TxHash)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyPaymentResponse{
		Status:       confirmation.Status,
		TxHash:       confirmation.TxHash,
		ExecutionURL: "/api/jobs/execute/" + req.JobID,
	})
}

// ExecuteJob handles GET /api/jobs/execute/:job_id
// Claims a paid job for its single execution and streams its output as SSE
func (h *JobHandler) ExecuteJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.coordinator.BeginExecution(c.Request.Context(), jobID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	stream.Relay(c, job, h.logger)
}

// JobStatus handles GET /api/jobs/status/:job_id
// Reports a job's lifecycle state without mutating it
func (h *JobHandler) JobStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	info := h.coordinator.Status(jobID)

	resp := dto.JobStatusResponse{Status: info.Status}
	if info.Status == lifecycle.StatusPending || info.Status == lifecycle.StatusPaid {
		resp.Paid = info.Paid
		resp.ExpiresAt = info.ExpiresAt.UTC().Format(time.RFC3339)
		resp.Price = info.PriceDisplay
		resp.PriceOctas = info.PriceOctas
	}

	c.JSON(http.StatusOK, resp)
}

// writeError maps lifecycle errors onto the HTTP contract
func (h *JobHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownJobType),
		errors.Is(err, catalog.ErrInvalidParams),
		errors.Is(err, payment.ErrMalformedProof),
		errors.Is(err, lifecycle.ErrProofMismatch):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})

	case errors.Is(err, lifecycle.ErrPaymentPending):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"status":  "payment_not_found",
			"message": "Payment not yet detected on blockchain",
		})

	case errors.Is(err, pending.ErrPaymentRequired):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "Payment required",
		})

	case errors.Is(err, pending.ErrAlreadyExecuted):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "Job already executed",
		})

	case errors.Is(err, pending.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})

	case errors.Is(err, pending.ErrExpired):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"error": "Payment window expired",
		})

	default:
		h.logger.Error("Unhandled lifecycle error", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
