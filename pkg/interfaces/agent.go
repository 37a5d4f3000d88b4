package interfaces

import (
	"context"
	"io"

	"github.com/m-mizutani/claimpilot/pkg/model"
)

// Extractor turns a document into structured claim fields
type Extractor interface {
	Extract(ctx context.Context, doc *model.Document) (*model.Extraction, error)
}

// Summarizer writes a narrative summary of a claim
type Summarizer interface {
	Summarize(ctx context.Context, claim *model.Claim) (string, error)
}

type GenerateOptions struct {
	// JSON asks for a reply that is a single JSON object
	JSON        bool
	Temperature float32
}

// LLMClient answers a single prompt
type LLMClient interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

type EstimateOptions struct {
	// Severity overrides automatic severity detection when not empty
	Severity model.Severity
	// Coverage overrides the incident-type coverage table when not nil
	Coverage *float64
}

// Estimator computes the financial estimate of a claim
type Estimator interface {
	Estimate(ctx context.Context, claim *model.Claim, opts EstimateOptions) (*model.Estimate, error)
}

type LocateOptions struct {
	MaxResults  int
	PriceTier   model.PriceTier
	Specialty   string
	RadiusMiles float64
}

// Locator recommends service providers near the claim location
type Locator interface {
	Find(ctx context.Context, claim *model.Claim, opts LocateOptions) (*model.RecommendationSet, error)
}

// Drafter renders the claim document and the cover email to the insurer. estimate may be nil.
type Drafter interface {
	Render(ctx context.Context, claim *model.Claim, estimate *model.Estimate) (*model.Draft, error)
	Email(ctx context.Context, claim *model.Claim, estimate *model.Estimate) (*model.Email, error)
}

// ComplianceChecker validates a claim for submission. draft may be nil.
type ComplianceChecker interface {
	Validate(ctx context.Context, claim *model.Claim, draft *model.Draft) (*model.ComplianceResult, error)
}

// ObjectStore archives blobs such as drafts and transcripts
type ObjectStore interface {
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
