package claim

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// minSummarizeLength is the raw text length above which the LLM summarizer is consulted
const minSummarizeLength = 50

// Process extracts a new claim from doc, summarizes it and persists it with status Processing
func (u *UseCase) Process(ctx context.Context, doc *model.Document) (*model.Claim, error) {
	if doc == nil {
		return nil, goerr.Wrap(model.ErrInputMissing, "document is required")
	}

	extraction, err := u.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	now := u.now()
	claim := &model.Claim{
		ID:                 model.NewClaimID(now),
		IncidentType:       extraction.IncidentType,
		Date:               extraction.Date,
		Location:           extraction.Location,
		Parties:            extraction.Parties,
		DamagesDescription: extraction.DamagesDescription,
		Confidence:         extraction.Confidence,
		Status:             model.ClaimStatusProcessing,
		RawText:            extraction.RawText,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if amount, ok := extraction.HighestAmount(); ok {
		claim.EstimatedDamage = model.FormatAmount(amount)
	}

	claim.Summary = u.summarize(ctx, claim)

	// The caller may have given up while the summarizer ran; do not leave an orphan claim behind.
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "claim processing canceled", goerr.V("claim_id", claim.ID))
	}

	if err := u.repo.SaveClaim(ctx, claim); err != nil {
		return nil, goerr.Wrap(err, "failed to save claim", goerr.V("claim_id", claim.ID))
	}

	logging.From(ctx).Info("claim created",
		"claim_id", claim.ID,
		"incident_type", claim.IncidentType,
		"confidence", claim.Confidence,
	)

	return claim, nil
}

func (u *UseCase) summarize(ctx context.Context, claim *model.Claim) string {
	if u.summarizer == nil || len(claim.RawText) <= minSummarizeLength {
		return TemplateSummary(claim)
	}

	text, err := u.summarizer.Summarize(ctx, claim)
	if err != nil {
		logging.From(ctx).Warn("summarizer failed, using template summary", "error", err, "claim_id", claim.ID)
		return TemplateSummary(claim)
	}

	return text + "\n\n" + assignment(claim)
}

// TemplateSummary renders the deterministic claim summary
func TemplateSummary(claim *model.Claim) string {
	parts := []string{
		fmt.Sprintf("A %s occurred on %s at %s.", strings.ToLower(string(claim.IncidentType)), claim.Date, claim.Location),
	}

	names := make([]string, 0, len(claim.Parties))
	for _, p := range claim.Parties {
		names = append(names, p.Name)
	}
	switch len(names) {
	case 0:
	case 1:
		parts = append(parts, fmt.Sprintf("The incident involved %s.", names[0]))
	default:
		parts = append(parts, fmt.Sprintf("The incident involved %s and %s.",
			strings.Join(names[:len(names)-1], ", "), names[len(names)-1]))
	}

	if claim.DamagesDescription != "" {
		parts = append(parts, claim.DamagesDescription)
	}
	if claim.EstimatedDamage != "" {
		parts = append(parts, fmt.Sprintf("Estimated damage is %s.", claim.EstimatedDamage))
	}
	parts = append(parts, assignment(claim))

	return strings.Join(parts, " ")
}

func assignment(claim *model.Claim) string {
	return fmt.Sprintf("This claim has been assigned ID %s and is currently in %s status.", claim.ID, claim.Status)
}
