package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type AgentName string

const (
	AgentClaimPilot      AgentName = "ClaimPilot"
	AgentFinTrack        AgentName = "FinTrack"
	AgentShopFinder      AgentName = "ShopFinder"
	AgentClaimDrafting   AgentName = "ClaimDrafting"
	AgentComplianceCheck AgentName = "ComplianceCheck"

	// AgentAll labels responses produced by the full workflow
	AgentAll AgentName = "All Agents"
)

// Agents lists the five collaborators in workflow order
var Agents = []AgentName{
	AgentClaimPilot,
	AgentFinTrack,
	AgentShopFinder,
	AgentClaimDrafting,
	AgentComplianceCheck,
}

// Validate checks the name is one of the five collaborators
func (a AgentName) Validate() error {
	for _, n := range Agents {
		if a == n {
			return nil
		}
	}
	return goerr.Wrap(ErrValidation, "unknown agent", goerr.V("agent", a))
}

type AgentState string

const (
	AgentPending    AgentState = "Pending"
	AgentInProgress AgentState = "In Progress"
	AgentComplete   AgentState = "Complete"
	AgentError      AgentState = "Error"
)

// Validate checks the state is one of the known values
func (s AgentState) Validate() error {
	switch s {
	case AgentPending, AgentInProgress, AgentComplete, AgentError:
		return nil
	default:
		return goerr.Wrap(ErrValidation, "invalid agent state", goerr.V("state", s))
	}
}

type AgentStatusMap map[AgentName]AgentState

// NewAgentStatusMap returns a map with every agent Pending
func NewAgentStatusMap() AgentStatusMap {
	m := make(AgentStatusMap, len(Agents))
	for _, a := range Agents {
		m[a] = AgentPending
	}
	return m
}

// Clone returns an independent copy
func (m AgentStatusMap) Clone() AgentStatusMap {
	c := make(AgentStatusMap, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation history
type Turn struct {
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
