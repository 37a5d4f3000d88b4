package orchestrator

import "strings"

type Intent string

const (
	IntentProcessDocument Intent = "process_document"
	IntentEstimateDamage  Intent = "estimate_damage"
	IntentFindProviders   Intent = "find_providers"
	IntentFullWorkflow    Intent = "full_workflow"
	IntentGetStatus       Intent = "get_status"
	IntentAnalyzeClaim    Intent = "analyze_claim"
	IntentGeneralQuery    Intent = "general_query"
)

// Classifier maps an inbound message to exactly one Intent
type Classifier interface {
	Classify(msg *Message) Intent
}

var (
	fullWorkflowKeywords = []string{"payout", "cost", "shop", "everything", "full"}
	financialKeywords    = []string{"estimate", "cost", "damage", "payout", "deductible", "coverage"}
	providerKeywords     = []string{"shop", "repair", "mechanic", "garage", "recommend"}
	statusKeywords       = []string{"status", "check claim", "my claim"}
	analysisKeywords     = []string{"analyze", "analysis", "review", "assess"}
)

// KeywordClassifier matches lower-cased substrings in a fixed precedence order.
// Substring matching means "recommendation" hits "recommend" and "full" hits "fully".
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(msg *Message) Intent {
	text := strings.ToLower(msg.Text)

	if msg.Attachment != nil {
		if containsAny(text, fullWorkflowKeywords) {
			return IntentFullWorkflow
		}
		return IntentProcessDocument
	}

	switch {
	case containsAny(text, financialKeywords):
		return IntentEstimateDamage
	case containsAny(text, providerKeywords):
		return IntentFindProviders
	case containsAny(text, statusKeywords) && msg.ClaimID != "":
		return IntentGetStatus
	case containsAny(text, analysisKeywords) && msg.ClaimID != "":
		return IntentAnalyzeClaim
	default:
		return IntentGeneralQuery
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
