package drafting

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/llmjson"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultRecipient       = "claims@insurance.com"
	defaultAttachmentsNote = "Please attach: photos of the damage, repair estimates or receipts, and any police or incident reports"

	emailTemperature = 0.3
)

var emailFuncs = texttemplate.FuncMap{
	"money": model.FormatAmount,
	"lower": func(t model.IncidentType) string { return strings.ToLower(string(t)) },
	"parties": func(parties []model.Party) string {
		names := make([]string, 0, len(parties))
		for _, p := range parties {
			names = append(names, p.Name)
		}
		return strings.Join(names, ", ")
	},
}

//go:embed templates/email.txt.tmpl
var emailTemplateRaw string

//go:embed templates/email_prompt.md
var emailPromptRaw string

var (
	emailTemplate = texttemplate.Must(texttemplate.New("email").Funcs(emailFuncs).Parse(emailTemplateRaw))
	emailPrompt   = texttemplate.Must(texttemplate.New("email_prompt").Funcs(emailFuncs).Parse(emailPromptRaw))
)

type emailInput struct {
	Claim    *model.Claim
	Estimate *model.Estimate
	To       string
}

type llmEmail struct {
	Subject         string `json:"subject"`
	To              string `json:"to"`
	CC              string `json:"cc"`
	Body            string `json:"body"`
	AttachmentsNote string `json:"attachments_note"`
}

// Email drafts the cover email to the insurer. It is written by the LLM when one is configured
// and falls back to a fixed template when there is none or its reply is unusable.
func (s *Service) Email(ctx context.Context, claim *model.Claim, estimate *model.Estimate) (*model.Email, error) {
	if claim == nil {
		return nil, goerr.Wrap(model.ErrInputMissing, "claim is required for email drafting")
	}
	in := emailInput{Claim: claim, Estimate: estimate, To: s.recipient}

	if s.writer != nil {
		email, err := s.writeEmail(ctx, in)
		if err == nil {
			return email, nil
		}
		logging.From(ctx).Warn("LLM email drafting failed, using template", "error", err, "claim_id", claim.ID)
	}

	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, in); err != nil {
		return nil, goerr.Wrap(err, "failed to render claim email", goerr.V("claim_id", claim.ID))
	}

	return &model.Email{
		ClaimID:         claim.ID,
		Subject:         "Insurance Claim Submission - " + string(claim.ID),
		To:              s.recipient,
		Body:            body.String(),
		AttachmentsNote: defaultAttachmentsNote,
		Source:          model.EmailFromTemplate,
		GeneratedAt:     s.now().Format(time.RFC3339),
	}, nil
}

func (s *Service) writeEmail(ctx context.Context, in emailInput) (*model.Email, error) {
	var prompt bytes.Buffer
	if err := emailPrompt.Execute(&prompt, in); err != nil {
		return nil, goerr.Wrap(err, "failed to build email prompt")
	}

	reply, err := s.writer.Generate(ctx, prompt.String(), interfaces.GenerateOptions{
		JSON:        true,
		Temperature: emailTemperature,
	})
	if err != nil {
		return nil, err
	}

	var out llmEmail
	if err := llmjson.Decode(reply, &out); err != nil {
		return nil, goerr.Wrap(model.ErrCollaborator, "unusable email reply", goerr.V("error", err.Error()))
	}
	if strings.TrimSpace(out.Subject) == "" || strings.TrimSpace(out.Body) == "" {
		return nil, goerr.Wrap(model.ErrCollaborator, "email reply lacks subject or body")
	}

	email := &model.Email{
		ClaimID:         in.Claim.ID,
		Subject:         strings.TrimSpace(out.Subject),
		To:              strings.TrimSpace(out.To),
		CC:              strings.TrimSpace(out.CC),
		Body:            out.Body,
		AttachmentsNote: strings.TrimSpace(out.AttachmentsNote),
		Source:          model.EmailFromLLM,
		GeneratedAt:     s.now().Format(time.RFC3339),
	}
	if email.To == "" {
		email.To = s.recipient
	}
	if email.AttachmentsNote == "" {
		email.AttachmentsNote = defaultAttachmentsNote
	}
	return email, nil
}
