package claim_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/repository"
	"github.com/m-mizutani/claimpilot/pkg/service/extraction"
	"github.com/m-mizutani/claimpilot/pkg/usecase/claim"
	"github.com/m-mizutani/gt"
)

const carReport = `Car accident report
Date of incident: 03/15/2025
Location: Nassau Street, Princeton
Driver: John Smith
Owner: Mary Jones
The rear bumper was dented and the tail light broken! Repair quote is $3,500.00 and towing cost $150`

type mockSummarizer struct {
	text  string
	err   error
	calls int
}

func (m *mockSummarizer) Summarize(ctx context.Context, c *model.Claim) (string, error) {
	m.calls++
	return m.text, m.err
}

func clock() time.Time {
	return time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC)
}

func newUseCase(opts ...claim.Option) (*claim.UseCase, *repository.Memory) {
	repo := repository.NewMemory()
	opts = append([]claim.Option{claim.WithClock(clock)}, opts...)
	return claim.New(repo, extraction.New(), opts...), repo
}

func TestProcess(t *testing.T) {
	uc, repo := newUseCase()
	ctx := context.Background()

	c, err := uc.Process(ctx, model.NewTextDocument(carReport))
	gt.NoError(t, err)

	gt.S(t, string(c.ID)).Contains("C-2025-")
	gt.Equal(t, model.FindClaimID(string(c.ID)), c.ID)
	gt.Equal(t, c.Status, model.ClaimStatusProcessing)
	gt.Equal(t, c.IncidentType, model.IncidentCarAccident)
	gt.Equal(t, c.EstimatedDamage, "$3,500.00")
	gt.Equal(t, c.CreatedAt, clock())
	gt.S(t, c.Summary).Contains("A car accident occurred on 03/15/2025 at Nassau Street, Princeton.")
	gt.S(t, c.Summary).Contains("The incident involved John Smith and Mary Jones.")
	gt.S(t, c.Summary).Contains("Estimated damage is $3,500.00.")
	gt.S(t, c.Summary).Contains("This claim has been assigned ID " + string(c.ID) + " and is currently in Processing status.")

	stored, err := repo.GetClaim(ctx, c.ID)
	gt.NoError(t, err)
	gt.V(t, stored).NotNil()
	gt.Equal(t, stored.Summary, c.Summary)
}

func TestProcessEmptyInput(t *testing.T) {
	uc, repo := newUseCase()
	ctx := context.Background()

	_, err := uc.Process(ctx, model.NewTextDocument("   "))
	gt.True(t, errors.Is(err, model.ErrInputMissing))

	claims, err := repo.ListClaims(ctx, interfaces.ListOptions{})
	gt.NoError(t, err)
	gt.A(t, claims).Length(0)
}

func TestProcessCanceledDoesNotSave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	summarizer := &mockSummarizer{text: "summary"}
	uc, repo := newUseCase(claim.WithSummarizer(&cancelingSummarizer{next: summarizer, cancel: cancel}))

	_, err := uc.Process(ctx, model.NewTextDocument(carReport))
	gt.True(t, errors.Is(err, context.Canceled))
	gt.Equal(t, summarizer.calls, 1)

	claims, err := repo.ListClaims(context.Background(), interfaces.ListOptions{})
	gt.NoError(t, err)
	gt.A(t, claims).Length(0)
}

// cancelingSummarizer cancels the caller's context once it has answered
type cancelingSummarizer struct {
	next   interfaces.Summarizer
	cancel context.CancelFunc
}

func (s *cancelingSummarizer) Summarize(ctx context.Context, c *model.Claim) (string, error) {
	defer s.cancel()
	return s.next.Summarize(ctx, c)
}

func TestProcessWithSummarizer(t *testing.T) {
	ctx := context.Background()

	t.Run("used for long text", func(t *testing.T) {
		s := &mockSummarizer{text: "An LLM summary."}
		uc, _ := newUseCase(claim.WithSummarizer(s))
		c, err := uc.Process(ctx, model.NewTextDocument(carReport))
		gt.NoError(t, err)
		gt.Equal(t, s.calls, 1)
		gt.S(t, c.Summary).Contains("An LLM summary.\n\nThis claim has been assigned ID")
	})

	t.Run("skipped for short text", func(t *testing.T) {
		s := &mockSummarizer{text: "An LLM summary."}
		uc, _ := newUseCase(claim.WithSummarizer(s))
		c, err := uc.Process(ctx, model.NewTextDocument("My car was stolen."))
		gt.NoError(t, err)
		gt.Equal(t, s.calls, 0)
		gt.S(t, c.Summary).NotContains("LLM")
	})

	t.Run("falls back on failure", func(t *testing.T) {
		s := &mockSummarizer{err: errors.New("quota exceeded")}
		uc, _ := newUseCase(claim.WithSummarizer(s))
		c, err := uc.Process(ctx, model.NewTextDocument(carReport))
		gt.NoError(t, err)
		gt.Equal(t, s.calls, 1)
		gt.S(t, c.Summary).Contains("A car accident occurred")
	})
}

func TestTemplateSummaryParties(t *testing.T) {
	c := &model.Claim{
		ID:           "C-2025-0000AAAA",
		IncidentType: model.IncidentTheft,
		Date:         "2025-01-02",
		Location:     "Princeton",
		Parties:      []model.Party{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		Status:       model.ClaimStatusOpen,
	}
	gt.Equal(t, claim.TemplateSummary(c),
		"A theft occurred on 2025-01-02 at Princeton. The incident involved A, B and C. "+
			"This claim has been assigned ID C-2025-0000AAAA and is currently in Open status.")
}

func TestGetAndList(t *testing.T) {
	base := clock()
	tick := 0
	uc, _ := newUseCase(claim.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))
	ctx := context.Background()

	_, err := uc.Get(ctx, "C-2025-FFFFFFFF")
	gt.True(t, errors.Is(err, model.ErrClaimNotFound))

	latest, err := uc.Latest(ctx)
	gt.NoError(t, err)
	gt.V(t, latest).Nil()

	first, err := uc.Process(ctx, model.NewTextDocument(carReport))
	gt.NoError(t, err)
	second, err := uc.Process(ctx, model.NewTextDocument("My house was flooded and the basement has water damage."))
	gt.NoError(t, err)

	got, err := uc.Get(ctx, first.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.ID, first.ID)

	claims, err := uc.List(ctx, interfaces.ListOptions{})
	gt.NoError(t, err)
	gt.A(t, claims).Length(2)

	latest, err = uc.Latest(ctx)
	gt.NoError(t, err)
	gt.Equal(t, latest.ID, second.ID)

	_, err = uc.List(ctx, interfaces.ListOptions{Status: "Lost"})
	gt.True(t, errors.Is(err, model.ErrValidation))
}

func TestUpdateStatus(t *testing.T) {
	uc, _ := newUseCase()
	ctx := context.Background()

	c, err := uc.Process(ctx, model.NewTextDocument(carReport))
	gt.NoError(t, err)

	updated, err := uc.UpdateStatus(ctx, c.ID, model.ClaimStatusClosed)
	gt.NoError(t, err)
	gt.Equal(t, updated.Status, model.ClaimStatusClosed)

	closed, err := uc.List(ctx, interfaces.ListOptions{Status: model.ClaimStatusClosed})
	gt.NoError(t, err)
	gt.A(t, closed).Length(1)

	_, err = uc.UpdateStatus(ctx, c.ID, "Archived")
	gt.True(t, errors.Is(err, model.ErrInvalidClaimStatus))

	_, err = uc.UpdateStatus(ctx, "C-2025-FFFFFFFF", model.ClaimStatusOpen)
	gt.True(t, errors.Is(err, model.ErrClaimNotFound))
}

func TestAnalyzeClaim(t *testing.T) {
	testCases := map[string]struct {
		claim    model.Claim
		severity model.SeverityTier
		actions  []string
		missing  []string
	}{
		"high amount": {
			claim: model.Claim{
				IncidentType: model.IncidentHomeDamage, EstimatedDamage: "$12,000.00", Confidence: 0.9,
				Parties: []model.Party{{Name: "A"}}, Status: model.ClaimStatusOpen,
			},
			severity: model.SeverityTierHigh,
			actions:  []string{},
			missing:  []string{},
		},
		"medium amount": {
			claim:    model.Claim{IncidentType: model.IncidentTheft, EstimatedDamage: "$3,000.01", Confidence: 0.65, Status: model.ClaimStatusClosed},
			severity: model.SeverityTierMedium,
			actions:  []string{},
			missing:  []string{"Parties involved", "Additional documentation may be needed"},
		},
		"low amount": {
			claim:    model.Claim{IncidentType: model.IncidentCarAccident, EstimatedDamage: "$3,000.00", Confidence: 0.5, Status: model.ClaimStatusProcessing},
			severity: model.SeverityTierLow,
			actions:  []string{"Review and verify claim information", "Continue claim processing", "Request repair shop recommendations"},
			missing:  []string{"Parties involved", "Additional documentation may be needed"},
		},
		"no amount, medical": {
			claim:    model.Claim{IncidentType: model.IncidentMedical, Confidence: 0.8, Status: model.ClaimStatusOpen},
			severity: model.SeverityTierMedium,
			actions:  []string{"Request financial estimation from FinTrack agent"},
			missing:  []string{"Parties involved", "Estimated damage amount"},
		},
		"no amount, other": {
			claim:    model.Claim{IncidentType: model.IncidentOther, Confidence: 0.8, Status: model.ClaimStatusOpen},
			severity: model.SeverityTierLow,
			actions:  []string{"Request financial estimation from FinTrack agent"},
			missing:  []string{"Parties involved", "Estimated damage amount"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			a := claim.AnalyzeClaim(&tc.claim)
			gt.Equal(t, a.Severity, tc.severity)
			gt.Equal(t, a.RecommendedActions, tc.actions)
			gt.Equal(t, a.MissingInformation, tc.missing)
		})
	}
}

func TestAnalyze(t *testing.T) {
	uc, _ := newUseCase()
	ctx := context.Background()

	c, err := uc.Process(ctx, model.NewTextDocument(carReport))
	gt.NoError(t, err)

	a, err := uc.Analyze(ctx, c.ID)
	gt.NoError(t, err)
	gt.Equal(t, a.ClaimID, c.ID)
	gt.Equal(t, a.Severity, model.SeverityTierMedium)
	gt.Equal(t, a.Completeness, "100%")

	_, err = uc.Analyze(ctx, "C-2025-FFFFFFFF")
	gt.True(t, errors.Is(err, model.ErrClaimNotFound))
}
