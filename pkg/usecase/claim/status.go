package claim

import (
	"context"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// UpdateStatus changes the lifecycle status and returns the updated claim
func (u *UseCase) UpdateStatus(ctx context.Context, id model.ClaimID, status model.ClaimStatus) (*model.Claim, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}

	if err := u.repo.UpdateClaimStatus(ctx, id, status); err != nil {
		return nil, goerr.Wrap(err, "failed to update claim status", goerr.V("claim_id", id), goerr.V("status", status))
	}

	logging.From(ctx).Info("claim status updated", "claim_id", id, "status", status)

	return u.Get(ctx, id)
}
