package orchestrator

import (
	"context"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// ClaimLookup is the read side of the intake agent used for claim resolution
type ClaimLookup interface {
	Get(ctx context.Context, id model.ClaimID) (*model.Claim, error)
	Latest(ctx context.Context) (*model.Claim, error)
}

// Strategy resolves the claim a message refers to. It returns nil, nil when it does not apply.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, claims ClaimLookup, msg *Message) (*model.Claim, error)
}

// ExplicitID uses Message.ClaimID
type ExplicitID struct{}

func (ExplicitID) Name() string { return "explicit_id" }

func (ExplicitID) Resolve(ctx context.Context, claims ClaimLookup, msg *Message) (*model.Claim, error) {
	if msg.ClaimID == "" {
		return nil, nil
	}
	return claims.Get(ctx, msg.ClaimID)
}

// EmbeddedID finds an identifier-shaped token in the message text
type EmbeddedID struct{}

func (EmbeddedID) Name() string { return "embedded_id" }

func (EmbeddedID) Resolve(ctx context.Context, claims ClaimLookup, msg *Message) (*model.Claim, error) {
	id := model.FindClaimID(msg.Text)
	if id == "" {
		return nil, nil
	}
	return claims.Get(ctx, id)
}

// MostRecent falls back to the newest claim in the repository
type MostRecent struct{}

func (MostRecent) Name() string { return "most_recent" }

func (MostRecent) Resolve(ctx context.Context, claims ClaimLookup, msg *Message) (*model.Claim, error) {
	return claims.Latest(ctx)
}

// Resolver tries strategies in order. The first strategy that applies decides the outcome.
type Resolver struct {
	strategies []Strategy
}

func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// DefaultResolver is explicit id, then embedded id, then most recent claim
func DefaultResolver() *Resolver {
	return NewResolver(ExplicitID{}, EmbeddedID{}, MostRecent{})
}

// StrictResolver only honors an explicit id
func StrictResolver() *Resolver {
	return NewResolver(ExplicitID{})
}

// Resolve fails with model.ErrInputMissing when no strategy applies
func (r *Resolver) Resolve(ctx context.Context, claims ClaimLookup, msg *Message) (*model.Claim, error) {
	for _, s := range r.strategies {
		claim, err := s.Resolve(ctx, claims, msg)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve claim", goerr.V("strategy", s.Name()))
		}
		if claim != nil {
			return claim, nil
		}
	}
	return nil, goerr.Wrap(model.ErrInputMissing, "no claim could be resolved")
}
