package orchestrator

import (
	"context"
	"fmt"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
)

// maxChatProviders caps the recommendations listed in a chat response
const maxChatProviders = 3

func (o *Orchestrator) dispatch(ctx context.Context, intent Intent, msg *Message) *Response {
	switch intent {
	case IntentProcessDocument:
		return o.handleProcessDocument(ctx, msg)
	case IntentEstimateDamage:
		return o.handleEstimateDamage(ctx, msg)
	case IntentFindProviders:
		return o.handleFindProviders(ctx, msg)
	case IntentFullWorkflow:
		return o.runFullWorkflow(ctx, msg).Response
	case IntentGetStatus:
		return o.handleGetStatus(ctx, msg)
	case IntentAnalyzeClaim:
		return o.handleAnalyzeClaim(ctx, msg)
	default:
		return o.handleGeneralQuery(ctx, msg)
	}
}

func (o *Orchestrator) respond(agent model.AgentName, text string) *Response {
	return &Response{
		Message:   text,
		Success:   true,
		AgentUsed: agent,
		Timestamp: o.now(),
	}
}

func (o *Orchestrator) fail(agent model.AgentName, text string, err error) *Response {
	resp := &Response{
		Message:   text,
		AgentUsed: agent,
		Timestamp: o.now(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func document(msg *Message) *model.Document {
	if msg.Attachment != nil {
		return msg.Attachment
	}
	return model.NewTextDocument(msg.Text)
}

func (o *Orchestrator) processDocument(ctx context.Context, msg *Message) (*model.Claim, error) {
	return invoke(ctx, o.timeout, model.AgentClaimPilot, func(ctx context.Context) (*model.Claim, error) {
		return o.claims.Process(ctx, document(msg))
	})
}

func (o *Orchestrator) handleProcessDocument(ctx context.Context, msg *Message) *Response {
	claim, err := o.processDocument(ctx, msg)
	if err != nil {
		logging.From(ctx).Warn("document processing failed", "error", err)
		return o.fail(model.AgentClaimPilot, fmt.Sprintf("I couldn't process the document: %s", err.Error()), err)
	}
	o.mark(ctx, claim.ID, model.AgentClaimPilot, model.AgentComplete)

	resp := o.respond(model.AgentClaimPilot, formatProcessed(claim))
	resp.Claim = claim
	return resp
}

func (o *Orchestrator) resolve(ctx context.Context, r *Resolver, msg *Message) (*model.Claim, error) {
	return invoke(ctx, o.timeout, model.AgentClaimPilot, func(ctx context.Context) (*model.Claim, error) {
		return r.Resolve(ctx, o.claims, msg)
	})
}

func (o *Orchestrator) estimate(ctx context.Context, claim *model.Claim, opts interfaces.EstimateOptions) (*model.Estimate, error) {
	o.mark(ctx, claim.ID, model.AgentFinTrack, model.AgentInProgress)
	est, err := invoke(ctx, o.timeout, model.AgentFinTrack, func(ctx context.Context) (*model.Estimate, error) {
		return o.estimator.Estimate(ctx, claim, opts)
	})
	if err != nil {
		o.mark(ctx, claim.ID, model.AgentFinTrack, model.AgentError)
		return nil, err
	}
	o.mark(ctx, claim.ID, model.AgentFinTrack, model.AgentComplete)
	return est, nil
}

func (o *Orchestrator) handleEstimateDamage(ctx context.Context, msg *Message) *Response {
	claim, err := o.resolve(ctx, o.resolver, msg)
	if err != nil {
		return o.fail(model.AgentFinTrack, resolutionFailure(msg, err, "estimate damage"), err)
	}

	est, err := o.estimate(ctx, claim, interfaces.EstimateOptions{})
	if err != nil {
		logging.From(ctx).Warn("estimation failed", "error", err, "claim_id", claim.ID)
		resp := o.fail(model.AgentFinTrack, fmt.Sprintf("I couldn't estimate the damage: %s", err.Error()), err)
		resp.Claim = claim
		return resp
	}

	resp := o.respond(model.AgentFinTrack, formatEstimate(est))
	resp.Claim = claim
	resp.Estimate = est
	return resp
}

func (o *Orchestrator) locate(ctx context.Context, claim *model.Claim, opts interfaces.LocateOptions) (*model.RecommendationSet, error) {
	o.mark(ctx, claim.ID, model.AgentShopFinder, model.AgentInProgress)
	set, err := invoke(ctx, o.timeout, model.AgentShopFinder, func(ctx context.Context) (*model.RecommendationSet, error) {
		return o.locator.Find(ctx, claim, opts)
	})
	if err != nil {
		o.mark(ctx, claim.ID, model.AgentShopFinder, model.AgentError)
		return nil, err
	}
	o.mark(ctx, claim.ID, model.AgentShopFinder, model.AgentComplete)
	return set, nil
}

func (o *Orchestrator) handleFindProviders(ctx context.Context, msg *Message) *Response {
	claim, err := o.resolve(ctx, o.resolver, msg)
	if err != nil {
		return o.fail(model.AgentShopFinder, resolutionFailure(msg, err, "find repair shops"), err)
	}

	set, err := o.locate(ctx, claim, interfaces.LocateOptions{MaxResults: maxChatProviders})
	if err != nil {
		logging.From(ctx).Warn("provider lookup failed", "error", err, "claim_id", claim.ID)
		resp := o.fail(model.AgentShopFinder, fmt.Sprintf("I couldn't find repair shops: %s", err.Error()), err)
		resp.Claim = claim
		return resp
	}

	resp := o.respond(model.AgentShopFinder, formatProviders(set))
	resp.Claim = claim
	resp.Recommendations = set
	return resp
}

func (o *Orchestrator) handleGetStatus(ctx context.Context, msg *Message) *Response {
	claim, err := o.resolve(ctx, o.strict, msg)
	if err != nil {
		return o.fail(model.AgentClaimPilot, resolutionFailure(msg, err, "check a status"), err)
	}

	resp := o.respond(model.AgentClaimPilot, formatStatus(claim))
	resp.Claim = claim
	return resp
}

func (o *Orchestrator) handleAnalyzeClaim(ctx context.Context, msg *Message) *Response {
	claim, err := o.resolve(ctx, o.strict, msg)
	if err != nil {
		return o.fail(model.AgentClaimPilot, resolutionFailure(msg, err, "analyze"), err)
	}

	analysis, err := invoke(ctx, o.timeout, model.AgentClaimPilot, func(ctx context.Context) (*model.Analysis, error) {
		return o.claims.Analyze(ctx, claim.ID)
	})
	if err != nil {
		resp := o.fail(model.AgentClaimPilot, fmt.Sprintf("I couldn't analyze claim %s: %s", claim.ID, err.Error()), err)
		resp.Claim = claim
		return resp
	}

	resp := o.respond(model.AgentClaimPilot, formatAnalysis(analysis))
	resp.Claim = claim
	resp.Analysis = analysis
	return resp
}

func (o *Orchestrator) handleGeneralQuery(ctx context.Context, msg *Message) *Response {
	return o.respond("", generalHelp)
}
