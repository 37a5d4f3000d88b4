package claim

import (
	"context"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Get retrieves a claim. It fails with model.ErrClaimNotFound when absent.
func (u *UseCase) Get(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrInputMissing, "claim ID is required")
	}

	claim, err := u.repo.GetClaim(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get claim", goerr.V("claim_id", id))
	}
	if claim == nil {
		return nil, goerr.Wrap(model.ErrClaimNotFound, "claim not found", goerr.V("claim_id", id))
	}

	return claim, nil
}
