package claim

import (
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
)

// UseCase is the intake agent: it turns documents into claims and manages their lifecycle
type UseCase struct {
	repo       interfaces.ClaimRepository
	extractor  interfaces.Extractor
	summarizer interfaces.Summarizer
	now        func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithSummarizer enables LLM-written summaries. Without it the template summary is used.
func WithSummarizer(s interfaces.Summarizer) Option {
	return func(uc *UseCase) {
		uc.summarizer = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new claim UseCase instance
func New(
	repo interfaces.ClaimRepository,
	extractor interfaces.Extractor,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:      repo,
		extractor: extractor,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
