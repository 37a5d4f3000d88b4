package claim

import (
	"context"
	"fmt"

	"github.com/m-mizutani/claimpilot/pkg/model"
)

// Analyze grades severity and lists next actions and missing information for a stored claim
func (u *UseCase) Analyze(ctx context.Context, id model.ClaimID) (*model.Analysis, error) {
	claim, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return AnalyzeClaim(claim), nil
}

// AnalyzeClaim is the pure part of Analyze
func AnalyzeClaim(claim *model.Claim) *model.Analysis {
	return &model.Analysis{
		ClaimID:            claim.ID,
		Severity:           severityTier(claim),
		Completeness:       fmt.Sprintf("%.0f%%", claim.Confidence*100),
		RecommendedActions: recommendActions(claim),
		MissingInformation: missingInformation(claim),
		Status:             claim.Status,
	}
}

func severityTier(claim *model.Claim) model.SeverityTier {
	if amount, ok := claim.EstimatedAmount(); ok {
		switch {
		case amount > 10000:
			return model.SeverityTierHigh
		case amount > 3000:
			return model.SeverityTierMedium
		default:
			return model.SeverityTierLow
		}
	}

	switch claim.IncidentType {
	case model.IncidentCarAccident, model.IncidentMedical, model.IncidentHomeDamage:
		return model.SeverityTierMedium
	}
	return model.SeverityTierLow
}

func recommendActions(claim *model.Claim) []string {
	actions := []string{}
	if claim.Confidence < 0.6 {
		actions = append(actions, "Review and verify claim information")
	}
	if claim.EstimatedDamage == "" {
		actions = append(actions, "Request financial estimation from FinTrack agent")
	}
	if claim.Status == model.ClaimStatusProcessing {
		actions = append(actions, "Continue claim processing")
	}
	if claim.IncidentType == model.IncidentCarAccident {
		actions = append(actions, "Request repair shop recommendations")
	}
	return actions
}

func missingInformation(claim *model.Claim) []string {
	missing := []string{}
	if len(claim.Parties) == 0 {
		missing = append(missing, "Parties involved")
	}
	if claim.EstimatedDamage == "" {
		missing = append(missing, "Estimated damage amount")
	}
	if claim.Confidence < 0.7 {
		missing = append(missing, "Additional documentation may be needed")
	}
	return missing
}
