package orchestrator

import (
	"context"
	"fmt"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// ProcessFullClaim runs every agent over one document. It does not touch the conversation history.
func (o *Orchestrator) ProcessFullClaim(ctx context.Context, msg *Message) *FullClaimResult {
	res := o.runFullWorkflow(ctx, msg)
	res.Intent = IntentFullWorkflow
	return res
}

// runFullWorkflow processes the document, then estimates and locates concurrently, then drafts and
// checks compliance. Only a document processing failure stops the run.
func (o *Orchestrator) runFullWorkflow(ctx context.Context, msg *Message) *FullClaimResult {
	logger := logging.From(ctx)

	claim, err := o.processDocument(ctx, msg)
	if err != nil {
		logger.Warn("full workflow aborted", "error", err)
		return &FullClaimResult{
			Response: o.fail(model.AgentAll, fmt.Sprintf("I couldn't process the document: %s", err.Error()), err),
			Steps:    []StepResult{{Agent: model.AgentClaimPilot, Detail: "Document processing failed: " + err.Error()}},
		}
	}
	o.mark(ctx, claim.ID, model.AgentClaimPilot, model.AgentComplete)

	res := &FullClaimResult{
		Response: o.respond(model.AgentAll, ""),
		Steps:    []StepResult{{Agent: model.AgentClaimPilot, Success: true, Detail: "Claim processed: " + string(claim.ID)}},
	}
	res.Claim = claim

	var (
		est            *model.Estimate
		set            *model.RecommendationSet
		estErr, setErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		est, estErr = o.estimate(ctx, claim, interfaces.EstimateOptions{})
		return nil
	})
	g.Go(func() error {
		set, setErr = o.locate(ctx, claim, interfaces.LocateOptions{})
		return nil
	})
	_ = g.Wait()

	if estErr != nil {
		logger.Warn("estimation step failed", "error", estErr, "claim_id", claim.ID)
		res.Steps = append(res.Steps, StepResult{Agent: model.AgentFinTrack, Detail: "Damage estimation failed: " + estErr.Error()})
	} else {
		res.Estimate = est
		res.Steps = append(res.Steps, StepResult{Agent: model.AgentFinTrack, Success: true,
			Detail: "Damage estimated: " + model.FormatAmount(est.TotalEstimatedDamage)})
	}

	if setErr != nil {
		logger.Warn("provider step failed", "error", setErr, "claim_id", claim.ID)
		res.Steps = append(res.Steps, StepResult{Agent: model.AgentShopFinder, Detail: "Repair shop search failed: " + setErr.Error()})
	} else {
		res.Recommendations = set
		res.Steps = append(res.Steps, StepResult{Agent: model.AgentShopFinder, Success: true,
			Detail: fmt.Sprintf("Found %d repair shops", len(set.Providers))})
	}

	draft, err := o.draft(ctx, claim, est)
	if err != nil {
		logger.Warn("drafting step failed", "error", err, "claim_id", claim.ID)
		res.Steps = append(res.Steps, StepResult{Agent: model.AgentClaimDrafting, Detail: "Claim drafting failed: " + err.Error()})
	} else {
		res.Draft = draft
		res.Steps = append(res.Steps, StepResult{Agent: model.AgentClaimDrafting, Success: true, Detail: "Claim draft generated"})
	}

	compliance, err := o.checkCompliance(ctx, claim, draft)
	if err != nil {
		logger.Warn("compliance step failed", "error", err, "claim_id", claim.ID)
		res.Steps = append(res.Steps, StepResult{Agent: model.AgentComplianceCheck, Detail: "Compliance check failed: " + err.Error()})
	} else {
		res.Compliance = compliance
		detail := "Compliance check complete: ready for submission"
		if !compliance.SubmissionReady {
			detail = "Compliance check complete: issues found"
		}
		res.Steps = append(res.Steps, StepResult{Agent: model.AgentComplianceCheck, Success: true, Detail: detail})
	}

	res.AgentStatus = o.status.Get(claim.ID)
	res.Message = formatFullWorkflow(res)
	return res
}

func (o *Orchestrator) draft(ctx context.Context, claim *model.Claim, est *model.Estimate) (*model.Draft, error) {
	o.mark(ctx, claim.ID, model.AgentClaimDrafting, model.AgentInProgress)
	draft, err := invoke(ctx, o.timeout, model.AgentClaimDrafting, func(ctx context.Context) (*model.Draft, error) {
		return o.drafter.Render(ctx, claim, est)
	})
	if err != nil {
		o.mark(ctx, claim.ID, model.AgentClaimDrafting, model.AgentError)
		return nil, err
	}
	o.mark(ctx, claim.ID, model.AgentClaimDrafting, model.AgentComplete)
	return draft, nil
}

func (o *Orchestrator) checkCompliance(ctx context.Context, claim *model.Claim, draft *model.Draft) (*model.ComplianceResult, error) {
	o.mark(ctx, claim.ID, model.AgentComplianceCheck, model.AgentInProgress)
	result, err := invoke(ctx, o.timeout, model.AgentComplianceCheck, func(ctx context.Context) (*model.ComplianceResult, error) {
		return o.compliance.Validate(ctx, claim, draft)
	})
	if err != nil {
		o.mark(ctx, claim.ID, model.AgentComplianceCheck, model.AgentError)
		return nil, err
	}
	o.mark(ctx, claim.ID, model.AgentComplianceCheck, model.AgentComplete)
	return result, nil
}
