package extraction

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/llmjson"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/extract.md
var extractPromptRaw string

var extractPrompt = template.Must(template.New("extract").Parse(extractPromptRaw))

const extractTemperature = 0.1

// LLM asks a language model for the claim fields. Fields the model leaves empty, and every
// field when the model fails, come from the regular expression extractor.
type LLM struct {
	client   interfaces.LLMClient
	fallback *Service
}

func NewLLM(client interfaces.LLMClient, fallback *Service) *LLM {
	return &LLM{client: client, fallback: fallback}
}

type llmParty struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type llmFields struct {
	IncidentType       string     `json:"incident_type"`
	Date               string     `json:"date"`
	Location           string     `json:"location"`
	Parties            []llmParty `json:"parties_involved"`
	DamagesDescription string     `json:"damages_description"`
	EstimatedAmount    amount     `json:"estimated_amount"`
}

// amount accepts a JSON number or a string such as "$3,500.00"
type amount struct {
	value float64
	ok    bool
}

func (a *amount) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		a.value, a.ok = x, x >= 0 && x <= model.MaxAmount
	case string:
		a.value, a.ok = model.ParseAmount(x)
	}
	return nil
}

// Extract implements interfaces.Extractor
func (l *LLM) Extract(ctx context.Context, doc *model.Document) (*model.Extraction, error) {
	text, err := documentText(doc)
	if err != nil {
		return nil, err
	}

	x := l.fallback.fromText(text)
	fields, err := l.ask(ctx, text)
	if err != nil {
		logging.From(ctx).Warn("LLM extraction failed, using pattern extraction", "error", err, "name", doc.Name)
		return x, nil
	}

	merge(x, fields)
	x.Confidence = confidence(x)

	logging.From(ctx).Debug("document extracted by LLM",
		"name", doc.Name,
		"incident_type", x.IncidentType,
		"confidence", x.Confidence,
	)
	return x, nil
}

func (l *LLM) ask(ctx context.Context, text string) (*llmFields, error) {
	var prompt bytes.Buffer
	if err := extractPrompt.Execute(&prompt, struct {
		IncidentTypes []model.IncidentType
		Text          string
	}{
		IncidentTypes: model.IncidentTypes(),
		Text:          text,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to build extraction prompt")
	}

	reply, err := l.client.Generate(ctx, prompt.String(), interfaces.GenerateOptions{
		JSON:        true,
		Temperature: extractTemperature,
	})
	if err != nil {
		return nil, err
	}

	var fields llmFields
	if err := llmjson.Decode(reply, &fields); err != nil {
		return nil, goerr.Wrap(model.ErrCollaborator, "unusable extraction reply", goerr.V("error", err.Error()))
	}
	return &fields, nil
}

func merge(x *model.Extraction, f *llmFields) {
	if t, ok := model.LookupIncidentType(f.IncidentType); ok {
		x.IncidentType = t
	}
	if v := strings.TrimSpace(f.Date); v != "" {
		x.Date = v
	}
	if v := strings.TrimSpace(f.Location); v != "" {
		x.Location = v
	}
	if v := strings.TrimSpace(f.DamagesDescription); v != "" {
		x.DamagesDescription = v
	}

	var parties []model.Party
	for _, p := range f.Parties {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		role := strings.TrimSpace(p.Role)
		if role == "" {
			role = "involved party"
		}
		parties = append(parties, model.Party{Name: name, Role: role})
	}
	if len(parties) > 0 {
		x.Parties = parties
	}

	if f.EstimatedAmount.ok {
		amounts := []float64{f.EstimatedAmount.value}
		for _, v := range x.Amounts {
			if v != f.EstimatedAmount.value {
				amounts = append(amounts, v)
			}
		}
		x.Amounts = amounts
	}
}
