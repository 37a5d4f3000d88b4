package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collectionClaims = "claims"

// Firestore implements ClaimRepository on Cloud Firestore
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID),
		)
	}
	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) SaveClaim(ctx context.Context, claim *model.Claim) error {
	if claim == nil || claim.ID == "" {
		return goerr.Wrap(model.ErrInputMissing, "claim ID is required")
	}

	if _, err := r.client.Collection(collectionClaims).Doc(string(claim.ID)).Set(ctx, claim); err != nil {
		return goerr.Wrap(err, "failed to save claim", goerr.V("claim_id", claim.ID))
	}
	return nil
}

func (r *Firestore) GetClaim(ctx context.Context, id model.ClaimID) (*model.Claim, error) {
	doc, err := r.client.Collection(collectionClaims).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get claim", goerr.V("claim_id", id))
	}

	var claim model.Claim
	if err := doc.DataTo(&claim); err != nil {
		return nil, goerr.Wrap(err, "failed to decode claim", goerr.V("claim_id", id))
	}
	return &claim, nil
}

func (r *Firestore) ListClaims(ctx context.Context, opts interfaces.ListOptions) ([]*model.Claim, error) {
	q := r.client.Collection(collectionClaims).Query
	if opts.Status != "" {
		q = q.Where("Status", "==", string(opts.Status))
	}
	q = q.OrderBy("CreatedAt", firestore.Desc)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var claims []*model.Claim
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate claims")
		}

		var claim model.Claim
		if err := doc.DataTo(&claim); err != nil {
			return nil, goerr.Wrap(err, "failed to decode claim", goerr.V("doc_id", doc.Ref.ID))
		}
		claims = append(claims, &claim)
	}
	return claims, nil
}

func (r *Firestore) UpdateClaimStatus(ctx context.Context, id model.ClaimID, st model.ClaimStatus) error {
	_, err := r.client.Collection(collectionClaims).Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "Status", Value: string(st)},
		{Path: "UpdatedAt", Value: time.Now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrClaimNotFound, "claim not found", goerr.V("claim_id", id))
		}
		return goerr.Wrap(err, "failed to update claim status", goerr.V("claim_id", id))
	}
	return nil
}
