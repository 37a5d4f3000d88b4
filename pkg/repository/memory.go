package repository

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory is a process-local claim store
type Memory struct {
	claims map[model.ClaimID]*model.Claim
	mu     sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		claims: make(map[model.ClaimID]*model.Claim),
	}
}

func (r *Memory) SaveClaim(ctx context.Context, claim *model.Claim) error {
	if claim == nil || claim.ID == "" {
		return goerr.Wrap(model.ErrInputMissing, "claim ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "claim not saved", goerr.V("claim_id", claim.ID))
	}
	r.claims[claim.ID] = claim.Clone()
	return nil
}

func (r *Memory) GetClaim(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.claims[id].Clone(), nil
}

func (r *Memory) ListClaims(ctx context.Context, opts interfaces.ListOptions) ([]*model.Claim, error) {
	r.mu.RLock()
	all := make([]*model.Claim, 0, len(r.claims))
	for _, c := range r.claims {
		all = append(all, c.Clone())
	}
	r.mu.RUnlock()

	return filterClaims(all, opts), nil
}

func (r *Memory) UpdateClaimStatus(ctx context.Context, id model.ClaimID, status model.ClaimStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "claim status not updated", goerr.V("claim_id", id))
	}

	c, ok := r.claims[id]
	if !ok {
		return goerr.Wrap(model.ErrClaimNotFound, "claim not found", goerr.V("claim_id", id))
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}
