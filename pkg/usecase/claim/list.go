package claim

import (
	"context"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// List retrieves claims newest first
func (u *UseCase) List(ctx context.Context, opts interfaces.ListOptions) ([]*model.Claim, error) {
	if opts.Status != "" {
		if err := opts.Status.Validate(); err != nil {
			return nil, err
		}
	}

	claims, err := u.repo.ListClaims(ctx, opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list claims")
	}
	return claims, nil
}

// Latest returns the most recently created claim, or nil when there is none
func (u *UseCase) Latest(ctx context.Context) (*model.Claim, error) {
	claims, err := u.List(ctx, interfaces.ListOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return nil, nil
	}
	return claims[0], nil
}
