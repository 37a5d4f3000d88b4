package orchestrator

import (
	"context"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
)

// The methods below act on one stored claim and are used by the HTTP, MCP and CLI surfaces.
// They share the timeouts and agent status tracking of the chat handlers but return errors.

func (o *Orchestrator) lookup(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	return o.resolve(ctx, o.strict, &Message{ClaimID: id})
}

// Estimate runs the financial estimate of a stored claim
func (o *Orchestrator) Estimate(ctx context.Context, id model.ClaimID, opts interfaces.EstimateOptions) (*model.Estimate, error) {
	claim, err := o.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.estimate(ctx, claim, opts)
}

// FindProviders recommends providers for a stored claim
func (o *Orchestrator) FindProviders(ctx context.Context, id model.ClaimID, opts interfaces.LocateOptions) (*model.RecommendationSet, error) {
	claim, err := o.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.locate(ctx, claim, opts)
}

// Draft renders the claim document, including a fresh estimate when one can be computed
func (o *Orchestrator) Draft(ctx context.Context, id model.ClaimID) (*model.Draft, error) {
	claim, err := o.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	est, err := o.estimate(ctx, claim, interfaces.EstimateOptions{})
	if err != nil {
		logging.From(ctx).Warn("drafting without estimate", "error", err, "claim_id", id)
	}
	return o.draft(ctx, claim, est)
}

// Email drafts the cover email to the insurer, including a fresh estimate when one can be computed
func (o *Orchestrator) Email(ctx context.Context, id model.ClaimID) (*model.Email, error) {
	claim, err := o.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	est, err := o.estimate(ctx, claim, interfaces.EstimateOptions{})
	if err != nil {
		logging.From(ctx).Warn("drafting email without estimate", "error", err, "claim_id", id)
	}
	return invoke(ctx, o.timeout, model.AgentClaimDrafting, func(ctx context.Context) (*model.Email, error) {
		return o.drafter.Email(ctx, claim, est)
	})
}

// CheckCompliance validates a stored claim. draft may be nil.
func (o *Orchestrator) CheckCompliance(ctx context.Context, id model.ClaimID, draft *model.Draft) (*model.ComplianceResult, error) {
	claim, err := o.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.checkCompliance(ctx, claim, draft)
}

// Analyze grades a stored claim
func (o *Orchestrator) Analyze(ctx context.Context, id model.ClaimID) (*model.Analysis, error) {
	if _, err := o.lookup(ctx, id); err != nil {
		return nil, err
	}
	return invoke(ctx, o.timeout, model.AgentClaimPilot, func(ctx context.Context) (*model.Analysis, error) {
		return o.claims.Analyze(ctx, id)
	})
}
