package handler

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/x402dev/paygate/internal/catalog"
	"github.com/x402dev/paygate/internal/lifecycle"
	"github.com/x402dev/paygate/shared/aptos"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	Coordinator   *lifecycle.Coordinator
	Registry      *catalog.Registry
	Chain         *aptos.Client
	Gatherer      prometheus.Gatherer
	ServiceName   string
	Network       string
	ChainID       int
	Recipient     string
	TokenDecimals int
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger        *slog.Logger
	coordinator   *lifecycle.Coordinator
	registry      *catalog.Registry
	chain         *aptos.Client
	serviceName   string
	network       string
	chainID       int
	recipient     string
	tokenDecimals int
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:        deps.Logger,
		coordinator:   deps.Coordinator,
		registry:      deps.Registry,
		chain:         deps.Chain,
		serviceName:   deps.ServiceName,
		network:       deps.Network,
		chainID:       deps.ChainID,
		recipient:     deps.Recipient,
		tokenDecimals: deps.TokenDecimals,
	}
}
