package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/repository"
	"github.com/m-mizutani/claimpilot/pkg/service/compliance"
	"github.com/m-mizutani/claimpilot/pkg/service/drafting"
	"github.com/m-mizutani/claimpilot/pkg/service/estimation"
	"github.com/m-mizutani/claimpilot/pkg/service/extraction"
	"github.com/m-mizutani/claimpilot/pkg/service/locator"
	"github.com/m-mizutani/claimpilot/pkg/usecase/claim"
	"github.com/m-mizutani/claimpilot/pkg/usecase/orchestrator"
	"github.com/m-mizutani/gt"
)

const carReport = `Car accident report
Date of incident: 03/15/2025
Location: Nassau Street, Princeton
Driver: John Smith
The rear bumper was dented and the tail light broken! Repair quote is $3,500.00`

// spy wrappers count calls and can replace the real collaborator with a failure or a block

type spyEstimator struct {
	next   interfaces.Estimator
	mu     sync.Mutex
	calls  []model.ClaimID
	err    error
	block  bool
	panics bool
}

func (s *spyEstimator) Estimate(ctx context.Context, c *model.Claim, opts interfaces.EstimateOptions) (*model.Estimate, error) {
	s.mu.Lock()
	s.calls = append(s.calls, c.ID)
	s.mu.Unlock()
	if s.panics {
		panic("estimator exploded")
	}
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.next.Estimate(ctx, c, opts)
}

func (s *spyEstimator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type spyLocator struct {
	next  interfaces.Locator
	mu    sync.Mutex
	calls int
	err   error
}

func (s *spyLocator) Find(ctx context.Context, c *model.Claim, opts interfaces.LocateOptions) (*model.RecommendationSet, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.next.Find(ctx, c, opts)
}

func (s *spyLocator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type spyDrafter struct {
	next        interfaces.Drafter
	calls       int
	emails      int
	gotEstimate bool
}

func (s *spyDrafter) Render(ctx context.Context, c *model.Claim, est *model.Estimate) (*model.Draft, error) {
	s.calls++
	s.gotEstimate = est != nil
	return s.next.Render(ctx, c, est)
}

func (s *spyDrafter) Email(ctx context.Context, c *model.Claim, est *model.Estimate) (*model.Email, error) {
	s.emails++
	s.gotEstimate = est != nil
	return s.next.Email(ctx, c, est)
}

type spyCompliance struct {
	next     interfaces.ComplianceChecker
	calls    int
	gotDraft bool
}

func (s *spyCompliance) Validate(ctx context.Context, c *model.Claim, d *model.Draft) (*model.ComplianceResult, error) {
	s.calls++
	s.gotDraft = d != nil
	return s.next.Validate(ctx, c, d)
}

type failingIntake struct {
	orchestrator.ClaimAgent
}

func (failingIntake) Process(ctx context.Context, doc *model.Document) (*model.Claim, error) {
	return nil, errors.New("extraction backend unavailable")
}

// slowSummarizer ignores ctx and answers after delay
type slowSummarizer struct {
	delay time.Duration
	done  chan struct{}
}

func (s *slowSummarizer) Summarize(ctx context.Context, c *model.Claim) (string, error) {
	defer close(s.done)
	time.Sleep(s.delay)
	return "late summary", nil
}

type panicClassifier struct{}

func (panicClassifier) Classify(msg *orchestrator.Message) orchestrator.Intent {
	panic("classifier bug")
}

type env struct {
	repo       *repository.Memory
	claims     *claim.UseCase
	estimator  *spyEstimator
	locator    *spyLocator
	drafter    *spyDrafter
	compliance *spyCompliance
}

func newEnv(t *testing.T) *env {
	t.Helper()
	checker, err := compliance.New(context.Background())
	gt.NoError(t, err)

	repo := repository.NewMemory()
	return &env{
		repo:       repo,
		claims:     claim.New(repo, extraction.New()),
		estimator:  &spyEstimator{next: estimation.New()},
		locator:    &spyLocator{next: locator.New(locator.StaticCatalog{})},
		drafter:    &spyDrafter{next: drafting.New()},
		compliance: &spyCompliance{next: checker},
	}
}

func (e *env) orchestrator(opts ...orchestrator.Option) *orchestrator.Orchestrator {
	return e.build(e.claims, opts...)
}

func (e *env) build(intake orchestrator.ClaimAgent, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(intake, e.estimator, e.locator, e.drafter, e.compliance, opts...)
}

func (e *env) saveClaim(t *testing.T, c *model.Claim) *model.Claim {
	t.Helper()
	gt.NoError(t, e.repo.SaveClaim(context.Background(), c))
	return c
}

func carClaim(id model.ClaimID, created time.Time) *model.Claim {
	return &model.Claim{
		ID:                 id,
		IncidentType:       model.IncidentCarAccident,
		Date:               "03/15/2025",
		Location:           "Nassau Street, Princeton",
		DamagesDescription: "Front bumper cracked and hood dented",
		Confidence:         0.67,
		Status:             model.ClaimStatusOpen,
		Summary:            "A car accident occurred.",
		CreatedAt:          created,
		UpdatedAt:          created,
	}
}

func TestGeneralQuery(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{Text: "I need help"})
	gt.Equal(t, resp.Intent, orchestrator.IntentGeneralQuery)
	gt.True(t, resp.Success)
	gt.S(t, resp.Message).Contains("I can help you with:")
	gt.S(t, resp.Message).Contains("Estimate damage costs and insurance payouts")
	gt.A(t, o.History()).Length(2)
}

func TestFullWorkflowAbortsWhenProcessingFails(t *testing.T) {
	e := newEnv(t)
	o := e.build(failingIntake{ClaimAgent: e.claims})

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{
		Text:       "show me the cost too",
		Attachment: model.NewTextDocument(carReport),
	})

	gt.Equal(t, resp.Intent, orchestrator.IntentFullWorkflow)
	gt.False(t, resp.Success)
	gt.S(t, resp.Message).Contains("I couldn't process the document")
	gt.S(t, resp.Message).Contains("extraction backend unavailable")
	gt.Equal(t, e.estimator.count(), 0)
	gt.Equal(t, e.locator.count(), 0)
	gt.Equal(t, e.drafter.calls, 0)
	gt.Equal(t, e.compliance.calls, 0)
	gt.A(t, o.History()).Length(2)
}

func TestFullWorkflow(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{
		Text:       "please do everything",
		Attachment: &model.Document{Name: "report.txt", Data: []byte(carReport)},
	})

	gt.Equal(t, resp.Intent, orchestrator.IntentFullWorkflow)
	gt.True(t, resp.Success)
	gt.Equal(t, resp.AgentUsed, model.AgentAll)
	gt.V(t, resp.Claim).NotNil()
	gt.V(t, resp.Estimate).NotNil()
	gt.V(t, resp.Recommendations).NotNil()
	gt.S(t, resp.Message).Contains("Claim processed: " + string(resp.Claim.ID))
	gt.S(t, resp.Message).Contains("Damage estimated: $3,500.00")
	gt.S(t, resp.Message).Contains("**Financial Estimate**")
	gt.S(t, resp.Message).Contains("**Top Recommended Shop**")
	gt.S(t, resp.Message).Contains("**Compliance Status**")

	gt.Equal(t, e.estimator.count(), 1)
	gt.Equal(t, e.locator.count(), 1)
	gt.Equal(t, e.drafter.calls, 1)
	gt.True(t, e.drafter.gotEstimate)
	gt.Equal(t, e.compliance.calls, 1)
	gt.True(t, e.compliance.gotDraft)

	status := o.AgentStatus(resp.Claim.ID)
	for _, agent := range model.Agents {
		gt.Equal(t, status[agent], model.AgentComplete)
	}
}

func TestProcessFullClaimPartialFailure(t *testing.T) {
	e := newEnv(t)
	e.locator.err = errors.New("maps API quota exceeded")
	o := e.orchestrator()

	res := o.ProcessFullClaim(context.Background(), &orchestrator.Message{Attachment: model.NewTextDocument(carReport)})

	gt.True(t, res.Success)
	gt.Equal(t, res.Intent, orchestrator.IntentFullWorkflow)
	gt.A(t, res.Steps).Length(5)
	gt.True(t, res.Steps[0].Success)
	gt.True(t, res.Steps[1].Success)
	gt.False(t, res.Steps[2].Success)
	gt.Equal(t, res.Steps[2].Agent, model.AgentShopFinder)
	gt.S(t, res.Steps[2].Detail).Contains("maps API quota exceeded")
	gt.True(t, res.Steps[3].Success)
	gt.True(t, res.Steps[4].Success)

	gt.V(t, res.Recommendations).Nil()
	gt.V(t, res.Draft).NotNil()
	gt.V(t, res.Compliance).NotNil()
	gt.S(t, res.Message).NotContains("Top Recommended Shop")

	gt.Equal(t, res.AgentStatus[model.AgentShopFinder], model.AgentError)
	gt.Equal(t, res.AgentStatus[model.AgentFinTrack], model.AgentComplete)
	gt.Equal(t, res.AgentStatus[model.AgentComplianceCheck], model.AgentComplete)

	// full claim runs are not part of the conversation
	gt.A(t, o.History()).Length(0)
}

func TestEstimateDamage(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()
	c := e.saveClaim(t, carClaim("C-2025-AAAA1111", time.Now()))

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{Text: "estimate my damage", ClaimID: c.ID})

	gt.Equal(t, resp.Intent, orchestrator.IntentEstimateDamage)
	gt.True(t, resp.Success)
	gt.Equal(t, resp.AgentUsed, model.AgentFinTrack)
	gt.Equal(t, e.estimator.calls, []model.ClaimID{c.ID})
	gt.V(t, resp.Estimate).NotNil()
	gt.True(t, resp.Estimate.TotalEstimatedDamage >= 0)
	gt.True(t, resp.Estimate.CoveragePercentage >= 0 && resp.Estimate.CoveragePercentage <= 1)
	gt.S(t, resp.Message).Contains("Cost Breakdown:")
	gt.Equal(t, o.AgentStatus(c.ID)[model.AgentFinTrack], model.AgentComplete)
}

func TestEstimateDamageWithoutClaim(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{Text: "what is my deductible?"})
	gt.Equal(t, resp.Intent, orchestrator.IntentEstimateDamage)
	gt.False(t, resp.Success)
	gt.S(t, resp.Message).Contains("I need a claim to estimate damage")
	gt.Equal(t, e.estimator.count(), 0)
}

func TestEstimateDamageFailureMarksError(t *testing.T) {
	ctx := context.Background()

	t.Run("timeout", func(t *testing.T) {
		e := newEnv(t)
		e.estimator.block = true
		o := e.orchestrator(orchestrator.WithTimeout(20 * time.Millisecond))
		c := e.saveClaim(t, carClaim("C-2025-AAAA1111", time.Now()))

		resp := o.ProcessMessage(ctx, &orchestrator.Message{Text: "estimate", ClaimID: c.ID})
		gt.False(t, resp.Success)
		gt.S(t, resp.Message).Contains("I couldn't estimate the damage")
		gt.S(t, resp.Message).Contains("timed out")
		gt.Equal(t, o.AgentStatus(c.ID)[model.AgentFinTrack], model.AgentError)
	})

	t.Run("panic", func(t *testing.T) {
		e := newEnv(t)
		e.estimator.panics = true
		o := e.orchestrator()
		c := e.saveClaim(t, carClaim("C-2025-AAAA1111", time.Now()))

		resp := o.ProcessMessage(ctx, &orchestrator.Message{Text: "estimate", ClaimID: c.ID})
		gt.False(t, resp.Success)
		gt.S(t, resp.Message).Contains("panicked")
		gt.Equal(t, o.AgentStatus(c.ID)[model.AgentFinTrack], model.AgentError)
		gt.A(t, o.History()).Length(2)
	})
}

func TestFindProvidersUsesMostRecentClaim(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()
	now := time.Now()
	e.saveClaim(t, carClaim("C-2025-AAAA1111", now.Add(-time.Hour)))
	latest := e.saveClaim(t, carClaim("C-2025-BBBB2222", now))

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{Text: "find me a garage"})
	gt.Equal(t, resp.Intent, orchestrator.IntentFindProviders)
	gt.True(t, resp.Success)
	gt.Equal(t, resp.Claim.ID, latest.ID)
	gt.A(t, resp.Recommendations.Providers).Length(3)
	gt.S(t, resp.Message).Contains("Recommended Shops:")
	gt.S(t, resp.Message).Contains("1. " + resp.Recommendations.Providers[0].Name)
}

func TestFindProvidersEmbeddedID(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()
	now := time.Now()
	older := e.saveClaim(t, carClaim("C-2025-AAAA1111", now.Add(-time.Hour)))
	e.saveClaim(t, carClaim("C-2025-BBBB2222", now))

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{Text: "repair options for C-2025-AAAA1111 please"})
	gt.True(t, resp.Success)
	gt.Equal(t, resp.Claim.ID, older.ID)
}

func TestGetStatus(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()
	ctx := context.Background()
	c := e.saveClaim(t, carClaim("C-2025-AAAA1111", time.Now()))

	msg := &orchestrator.Message{Text: "what's the status?", ClaimID: c.ID}
	first := o.ProcessMessage(ctx, msg)
	second := o.ProcessMessage(ctx, msg)

	gt.Equal(t, first.Intent, orchestrator.IntentGetStatus)
	gt.True(t, first.Success)
	gt.S(t, first.Message).Contains("**Claim Status: C-2025-AAAA1111**")
	gt.S(t, first.Message).Contains("Status: Open")
	gt.Equal(t, first.Message, second.Message)
	gt.A(t, o.History()).Length(4)
}

func TestGetStatusUnknownClaim(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()
	e.saveClaim(t, carClaim("C-2025-AAAA1111", time.Now()))

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{Text: "check claim status", ClaimID: "C-2025-FFFFFFFF"})

	gt.Equal(t, resp.Intent, orchestrator.IntentGetStatus)
	gt.False(t, resp.Success)
	gt.S(t, resp.Message).Contains("C-2025-FFFFFFFF")
	gt.A(t, o.History()).Length(2)
	gt.Equal(t, o.History()[1].Message, resp.Message)
}

func TestAnalyzeClaim(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()
	c := e.saveClaim(t, carClaim("C-2025-AAAA1111", time.Now()))

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{Text: "please assess this", ClaimID: c.ID})
	gt.Equal(t, resp.Intent, orchestrator.IntentAnalyzeClaim)
	gt.True(t, resp.Success)
	gt.S(t, resp.Message).Contains("**Claim Analysis: C-2025-AAAA1111**")
	gt.S(t, resp.Message).Contains("Severity: Medium")
	gt.S(t, resp.Message).Contains("Request financial estimation from FinTrack agent")
	gt.Equal(t, resp.Analysis.Completeness, "67%")
}

func TestProcessDocument(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{
		Text:       "here is my report",
		Attachment: model.NewTextDocument(carReport),
	})

	gt.Equal(t, resp.Intent, orchestrator.IntentProcessDocument)
	gt.True(t, resp.Success)
	gt.S(t, resp.Message).Contains("I've successfully processed your car accident claim!")
	gt.Equal(t, resp.Claim.Status, model.ClaimStatusProcessing)
	gt.Equal(t, o.AgentStatus(resp.Claim.ID)[model.AgentClaimPilot], model.AgentComplete)
	gt.Equal(t, e.estimator.count(), 0)

	claims, err := e.repo.ListClaims(context.Background(), interfaces.ListOptions{})
	gt.NoError(t, err)
	gt.A(t, claims).Length(1)
}

func TestHistoryGrowsByTwo(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()
	ctx := context.Background()
	c := e.saveClaim(t, carClaim("C-2025-AAAA1111", time.Now()))

	messages := []*orchestrator.Message{
		{Text: "hello"},
		{Text: "estimate my payout", ClaimID: c.ID},
		{Text: "recommend a mechanic"},
		{Text: "status", ClaimID: "C-2025-FFFFFFFF"},
		{Text: "analyze", ClaimID: c.ID},
		{Text: "upload", Attachment: model.NewTextDocument("   ")},
	}
	for i, msg := range messages {
		o.ProcessMessage(ctx, msg)
		gt.A(t, o.History()).Length(2 * (i + 1))
	}

	history := o.History()
	for i, turn := range history {
		if i%2 == 0 {
			gt.Equal(t, turn.Role, model.RoleUser)
		} else {
			gt.Equal(t, turn.Role, model.RoleAssistant)
		}
	}

	o.ClearHistory()
	gt.A(t, o.History()).Length(0)
}

func TestProcessMessageRecoversPanic(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator(orchestrator.WithClassifier(panicClassifier{}))

	resp := o.ProcessMessage(context.Background(), &orchestrator.Message{Text: "hi"})
	gt.False(t, resp.Success)
	gt.S(t, resp.Message).Contains("I encountered an error: classifier bug")
	gt.A(t, o.History()).Length(2)
}

func TestConcurrentFindProviders(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()
	ctx := context.Background()
	c := e.saveClaim(t, carClaim("C-2025-AAAA1111", time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			resp := o.ProcessMessage(ctx, &orchestrator.Message{Text: "find a repair shop", ClaimID: c.ID})
			gt.True(t, resp.Success)
		}()
		go func() {
			defer wg.Done()
			gt.NoError(t, o.SetAgentStatus(c.ID, model.AgentClaimDrafting, model.AgentComplete))
			_ = o.AgentStatus(c.ID)
		}()
	}
	wg.Wait()

	status := o.AgentStatus(c.ID)
	gt.Equal(t, status[model.AgentShopFinder], model.AgentComplete)
	gt.Equal(t, status[model.AgentClaimDrafting], model.AgentComplete)
	gt.Equal(t, status[model.AgentFinTrack], model.AgentPending)
	gt.Equal(t, e.locator.count(), 20)
	gt.A(t, o.History()).Length(40)
}

func TestDirectOperations(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator()
	ctx := context.Background()
	c := e.saveClaim(t, carClaim("C-2025-AAAA1111", time.Now()))

	coverage := 0.5
	est, err := o.Estimate(ctx, c.ID, interfaces.EstimateOptions{Coverage: &coverage})
	gt.NoError(t, err)
	gt.Equal(t, est.CoveragePercentage, 0.5)

	set, err := o.FindProviders(ctx, c.ID, interfaces.LocateOptions{MaxResults: 1})
	gt.NoError(t, err)
	gt.A(t, set.Providers).Length(1)

	draft, err := o.Draft(ctx, c.ID)
	gt.NoError(t, err)
	gt.S(t, draft.HTML).Contains("C-2025-AAAA1111")

	email, err := o.Email(ctx, c.ID)
	gt.NoError(t, err)
	gt.Equal(t, email.Source, model.EmailFromTemplate)
	gt.S(t, email.Body).Contains("Claim ID: C-2025-AAAA1111")
	gt.Equal(t, e.drafter.emails, 1)
	gt.True(t, e.drafter.gotEstimate)

	_, err = o.Email(ctx, "C-2025-FFFFFFFF")
	gt.True(t, errors.Is(err, model.ErrClaimNotFound))

	result, err := o.CheckCompliance(ctx, c.ID, draft)
	gt.NoError(t, err)
	gt.Equal(t, result.ClaimID, c.ID)

	analysis, err := o.Analyze(ctx, c.ID)
	gt.NoError(t, err)
	gt.Equal(t, analysis.Severity, model.SeverityTierMedium)

	_, err = o.Estimate(ctx, "C-2025-FFFFFFFF", interfaces.EstimateOptions{})
	gt.True(t, errors.Is(err, model.ErrClaimNotFound))

	bad := 1.5
	_, err = o.Estimate(ctx, c.ID, interfaces.EstimateOptions{Coverage: &bad})
	gt.True(t, errors.Is(err, model.ErrValidation))

	gt.A(t, o.History()).Length(0)
	gt.Equal(t, o.Stats().TrackedClaims, 1)
}

func TestProcessDocumentTimeoutLeavesNoClaim(t *testing.T) {
	e := newEnv(t)
	slow := &slowSummarizer{delay: 50 * time.Millisecond, done: make(chan struct{})}
	intake := claim.New(e.repo, extraction.New(), claim.WithSummarizer(slow))
	o := e.build(intake, orchestrator.WithTimeout(10*time.Millisecond))
	ctx := context.Background()

	resp := o.ProcessMessage(ctx, &orchestrator.Message{
		Text:       "here is my report",
		Attachment: model.NewTextDocument(carReport),
	})
	gt.False(t, resp.Success)

	<-slow.done
	time.Sleep(20 * time.Millisecond)

	claims, err := e.repo.ListClaims(ctx, interfaces.ListOptions{})
	gt.NoError(t, err)
	gt.A(t, claims).Length(0)

	resp = o.ProcessMessage(ctx, &orchestrator.Message{Text: "estimate my damage"})
	gt.False(t, resp.Success)
	gt.Equal(t, e.estimator.count(), 0)
}
