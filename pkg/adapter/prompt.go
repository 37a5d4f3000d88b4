package adapter

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const summaryTemperature = 0.3

//go:embed prompt/summary.md
var summaryPromptRaw string

var summaryTemplate = template.Must(template.New("summary").Parse(summaryPromptRaw))

// SummaryPrompt builds the LLM prompt used by every Summarizer in this package
func SummaryPrompt(claim *model.Claim) (string, error) {
	if claim == nil {
		return "", goerr.Wrap(model.ErrInputMissing, "claim is required for summary prompt")
	}

	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, claim); err != nil {
		return "", goerr.Wrap(err, "failed to execute summary template", goerr.V("claim_id", claim.ID))
	}
	return buf.String(), nil
}
