package orchestrator

import (
	"time"

	"github.com/m-mizutani/claimpilot/pkg/model"
)

// Message is one inbound user request
type Message struct {
	Text string
	// ClaimID is an explicitly supplied claim reference
	ClaimID model.ClaimID
	// Attachment is an uploaded claim document
	Attachment *model.Document
	Context    map[string]string
}

// Response is what every handler produces. Failures are reported with Success false, never as errors.
type Response struct {
	Message         string                   `json:"message"`
	Success         bool                     `json:"success"`
	Intent          Intent                   `json:"intent"`
	AgentUsed       model.AgentName          `json:"agent_used,omitempty"`
	Claim           *model.Claim             `json:"claim,omitempty"`
	Estimate        *model.Estimate          `json:"financial_estimate,omitempty"`
	Recommendations *model.RecommendationSet `json:"shop_recommendations,omitempty"`
	Analysis        *model.Analysis          `json:"analysis,omitempty"`
	Error           string                   `json:"error,omitempty"`
	Timestamp       time.Time                `json:"timestamp"`
}

// FullClaimResult extends Response with everything the full workflow produced
type FullClaimResult struct {
	*Response
	AgentStatus model.AgentStatusMap    `json:"agent_status,omitempty"`
	Compliance  *model.ComplianceResult `json:"compliance,omitempty"`
	Draft       *model.Draft            `json:"draft,omitempty"`
	Steps       []StepResult            `json:"steps"`
}

// StepResult records the outcome of one full workflow step
type StepResult struct {
	Agent   model.AgentName `json:"agent"`
	Success bool            `json:"success"`
	Detail  string          `json:"detail"`
}
