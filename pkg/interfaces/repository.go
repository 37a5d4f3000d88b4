package interfaces

import (
	"context"

	"github.com/m-mizutani/claimpilot/pkg/model"
)

// ListOptions narrows ListClaims results
type ListOptions struct {
	// Status filters by claim status when not empty
	Status model.ClaimStatus
	// Limit caps the number of claims returned. 0 means no limit.
	Limit int
}

// ClaimRepository defines the interface for claim persistence
type ClaimRepository interface {
	// SaveClaim creates or replaces a claim
	SaveClaim(ctx context.Context, claim *model.Claim) error

	// GetClaim retrieves a claim by ID. It returns nil without error when absent.
	GetClaim(ctx context.Context, id model.ClaimID) (*model.Claim, error)

	// ListClaims retrieves claims ordered by CreatedAt descending
	ListClaims(ctx context.Context, opts ListOptions) ([]*model.Claim, error)

	// UpdateClaimStatus sets the status. It fails with model.ErrClaimNotFound when absent.
	UpdateClaimStatus(ctx context.Context, id model.ClaimID, status model.ClaimStatus) error
}
