package drafting

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed templates/claim.html.tmpl
var claimTemplateRaw string

var claimTemplate = template.Must(template.New("claim").Funcs(template.FuncMap{
	"money":   model.FormatAmount,
	"percent": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
}).Parse(claimTemplateRaw))

// Service renders claim documents and insurer emails, and optionally archives the documents
type Service struct {
	store     interfaces.ObjectStore
	writer    interfaces.LLMClient
	recipient string
	now       func() time.Time
}

type Option func(*Service)

// WithStore archives every rendered draft to the object store
func WithStore(store interfaces.ObjectStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithWriter lets an LLM write the insurer email
func WithWriter(writer interfaces.LLMClient) Option {
	return func(s *Service) {
		s.writer = writer
	}
}

// WithRecipient sets the insurer address used when the email has no recipient
func WithRecipient(addr string) Option {
	return func(s *Service) {
		s.recipient = addr
	}
}

// WithClock replaces time.Now for the generated timestamp
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		recipient: DefaultRecipient,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render produces the HTML claim document. The financial section is present only when estimate is given.
func (s *Service) Render(ctx context.Context, claim *model.Claim, estimate *model.Estimate) (*model.Draft, error) {
	if claim == nil {
		return nil, goerr.Wrap(model.ErrInputMissing, "claim is required for drafting")
	}

	generated := s.now()
	var buf bytes.Buffer
	if err := claimTemplate.Execute(&buf, struct {
		Claim     *model.Claim
		Estimate  *model.Estimate
		Generated time.Time
	}{
		Claim:     claim,
		Estimate:  estimate,
		Generated: generated,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to render claim draft", goerr.V("claim_id", claim.ID))
	}

	draft := &model.Draft{
		ClaimID:     claim.ID,
		HTML:        buf.String(),
		Summary:     Summary(claim.ID),
		GeneratedAt: generated.Format(time.RFC3339),
	}

	if s.store != nil {
		key := "drafts/" + string(claim.ID) + ".html"
		if err := s.archive(ctx, key, buf.Bytes()); err != nil {
			logging.From(ctx).Warn("failed to archive draft", "error", err, "claim_id", claim.ID)
		} else {
			draft.ArchivedAt = key
		}
	}

	return draft, nil
}

func (s *Service) archive(ctx context.Context, key string, data []byte) error {
	w, err := s.store.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to open object writer", goerr.V("key", key))
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write draft", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close object writer", goerr.V("key", key))
	}
	return nil
}

// Summary is the one-line description returned alongside a draft
func Summary(id model.ClaimID) string {
	return fmt.Sprintf("I've prepared a formal claim draft for %s. "+
		"The document includes all incident details, damage description, parties involved, and financial information. "+
		"The draft is ready for compliance review and submission.", id)
}
