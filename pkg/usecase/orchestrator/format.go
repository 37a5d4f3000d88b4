package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/service/estimation"
	"github.com/m-mizutani/claimpilot/pkg/service/locator"
)

const generalHelp = "Hi! I'm ClaimPilot AI, your insurance claim assistant.\n\n" +
	"I can help you with:\n" +
	"1. Process claim documents (upload a PDF or text file)\n" +
	"2. Estimate damage costs and insurance payouts\n" +
	"3. Find recommended repair shops nearby\n" +
	"4. Analyze and track your claims\n\n" +
	"Just upload a document or ask me a question to get started!"

func formatProcessed(claim *model.Claim) string {
	return fmt.Sprintf("I've successfully processed your %s claim!\n\n%s\n\n"+
		"Would you like me to:\n"+
		"1. Estimate your damage costs and insurance payout?\n"+
		"2. Find recommended repair shops nearby?\n"+
		"3. Both?",
		strings.ToLower(string(claim.IncidentType)), claim.Summary)
}

func formatEstimate(est *model.Estimate) string {
	var b strings.Builder
	b.WriteString("Here's your financial breakdown:\n\n")
	b.WriteString(estimation.Summary(est))
	b.WriteString("\n\nCost Breakdown:\n")
	for _, item := range est.Breakdown {
		fmt.Fprintf(&b, "  - %s: %s\n", categoryLabel(item.Category), model.FormatAmount(item.Amount))
	}
	b.WriteString("\nWould you like me to find repair shops for you?")
	return b.String()
}

// categoryLabel turns "towing_storage" into "Towing Storage"
func categoryLabel(category string) string {
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatProviders(set *model.RecommendationSet) string {
	var b strings.Builder
	b.WriteString(locator.Summary(set))
	b.WriteString("\n\nRecommended Shops:\n\n")
	for i, p := range set.Providers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Name)
		fmt.Fprintf(&b, "   Rating: %.1f/5.0\n", p.Rating)
		fmt.Fprintf(&b, "   Price: %s\n", p.PriceRange)
		fmt.Fprintf(&b, "   Distance: %.1f mi\n", p.Distance)
		if p.Phone != "" {
			fmt.Fprintf(&b, "   Phone: %s\n", p.Phone)
		}
		if p.WaitTime != "" {
			fmt.Fprintf(&b, "   Wait time: %s\n", p.WaitTime)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatStatus(claim *model.Claim) string {
	return fmt.Sprintf("**Claim Status: %s**\n\nStatus: %s\nType: %s\nDate: %s\nLocation: %s\n\n%s",
		claim.ID, claim.Status, claim.IncidentType, claim.Date, claim.Location, claim.Summary)
}

func formatAnalysis(a *model.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Claim Analysis: %s**\n\nSeverity: %s\nData Completeness: %s\n\n", a.ClaimID, a.Severity, a.Completeness)
	if len(a.RecommendedActions) > 0 {
		b.WriteString("**Recommended Actions:**\n")
		for _, action := range a.RecommendedActions {
			fmt.Fprintf(&b, "  - %s\n", action)
		}
		b.WriteString("\n")
	}
	if len(a.MissingInformation) > 0 {
		b.WriteString("**Missing Information:**\n")
		for _, info := range a.MissingInformation {
			fmt.Fprintf(&b, "  - %s\n", info)
		}
	}
	return b.String()
}

func formatFullWorkflow(res *FullClaimResult) string {
	var b strings.Builder
	b.WriteString("I've completed a full analysis of your claim!\n\n")
	for _, step := range res.Steps {
		mark := "[x]"
		if !step.Success {
			mark = "[!]"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, step.Detail)
	}
	fmt.Fprintf(&b, "\n**Claim Summary**\n%s\n\n", res.Claim.Summary)

	if est := res.Estimate; est != nil {
		fmt.Fprintf(&b, "**Financial Estimate**\nTotal Damage: %s\nInsurance Pays: %s\nYour Deductible: %s\n\n",
			model.FormatAmount(est.TotalEstimatedDamage),
			model.FormatAmount(est.EstimatedPayout),
			model.FormatAmount(est.Deductible))
	}
	if res.Recommendations != nil {
		if top := res.Recommendations.Top(); top != nil {
			fmt.Fprintf(&b, "**Top Recommended Shop**\n%s - %.1f/5.0\nDistance: %.1f mi | Price: %s\n\n",
				top.Name, top.Rating, top.Distance, top.PriceRange)
		}
	}
	if res.Compliance != nil {
		fmt.Fprintf(&b, "**Compliance Status**\n%s\n", res.Compliance.Summary)
	}
	return b.String()
}

// resolutionFailure renders a claim resolution error. need completes "I need a claim to ...".
func resolutionFailure(msg *Message, err error, need string) string {
	switch {
	case errors.Is(err, model.ErrClaimNotFound):
		return fmt.Sprintf("I couldn't find claim %s. Please check the claim ID and try again.", referencedID(msg))
	case errors.Is(err, model.ErrInputMissing):
		return fmt.Sprintf("I need a claim to %s. Please upload a claim document first, or provide a claim ID.", need)
	default:
		return fmt.Sprintf("I couldn't look up the claim: %s", err.Error())
	}
}

func referencedID(msg *Message) model.ClaimID {
	if msg.ClaimID != "" {
		return msg.ClaimID
	}
	return model.FindClaimID(msg.Text)
}
