package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const DefaultTimeout = 30 * time.Second

// ClaimAgent is the intake collaborator. *claim.UseCase satisfies it.
type ClaimAgent interface {
	ClaimLookup
	Process(ctx context.Context, doc *model.Document) (*model.Claim, error)
	Analyze(ctx context.Context, id model.ClaimID) (*model.Analysis, error)
}

// Orchestrator routes messages to collaborators and owns the conversation and agent status state
type Orchestrator struct {
	claims     ClaimAgent
	estimator  interfaces.Estimator
	locator    interfaces.Locator
	drafter    interfaces.Drafter
	compliance interfaces.ComplianceChecker

	classifier Classifier
	resolver   *Resolver
	strict     *Resolver
	history    *History
	status     *StatusRegistry
	timeout    time.Duration
	now        func() time.Time
}

type Option func(*Orchestrator)

// WithClassifier replaces the keyword classifier
func WithClassifier(c Classifier) Option {
	return func(o *Orchestrator) {
		o.classifier = c
	}
}

// WithResolver replaces the claim resolution chain used by estimate and provider handlers
func WithResolver(r *Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// WithTimeout bounds every collaborator call
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func New(
	claims ClaimAgent,
	estimator interfaces.Estimator,
	locator interfaces.Locator,
	drafter interfaces.Drafter,
	compliance interfaces.ComplianceChecker,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		claims:     claims,
		estimator:  estimator,
		locator:    locator,
		drafter:    drafter,
		compliance: compliance,
		classifier: KeywordClassifier{},
		resolver:   DefaultResolver(),
		strict:     StrictResolver(),
		history:    NewHistory(),
		status:     NewStatusRegistry(),
		timeout:    DefaultTimeout,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// History returns a copy of the conversation, oldest first
func (o *Orchestrator) History() []model.Turn {
	return o.history.List()
}

func (o *Orchestrator) ClearHistory() {
	o.history.Clear()
}

// AgentStatus returns the status map of a claim, all Pending on first access
func (o *Orchestrator) AgentStatus(id model.ClaimID) model.AgentStatusMap {
	return o.status.Get(id)
}

func (o *Orchestrator) SetAgentStatus(id model.ClaimID, agent model.AgentName, state model.AgentState) error {
	return o.status.Set(id, agent, state)
}

// Stats summarizes the in-process state
type Stats struct {
	Turns         int `json:"conversation_turns"`
	TrackedClaims int `json:"tracked_claims"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{Turns: o.history.Len(), TrackedClaims: o.status.Len()}
}

func (o *Orchestrator) mark(ctx context.Context, id model.ClaimID, agent model.AgentName, state model.AgentState) {
	if err := o.status.Set(id, agent, state); err != nil {
		logging.From(ctx).Error("failed to set agent status", "error", err, "claim_id", id, "agent", agent)
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// invoke runs fn under the collaborator timeout. A panic or a timeout becomes model.ErrCollaborator,
// and so does any error that does not already carry a kind.
func invoke[T any](ctx context.Context, timeout time.Duration, agent model.AgentName, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome[T]{err: goerr.Wrap(model.ErrCollaborator, "collaborator panicked",
					goerr.V("agent", agent),
					goerr.V("panic", fmt.Sprint(r)),
				)}
			}
		}()
		v, err := fn(ctx)
		ch <- outcome[T]{value: v, err: err}
	}()

	timedOut := func() error {
		return goerr.Wrap(model.ErrCollaborator, "collaborator timed out",
			goerr.V("agent", agent),
			goerr.V("timeout", timeout.String()),
		)
	}

	select {
	case out := <-ch:
		if out.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return zero, timedOut()
			}
			return zero, classify(agent, out.err)
		}
		return out.value, nil
	case <-ctx.Done():
		// fn may have finished at the deadline; prefer its result over reporting a timeout
		select {
		case out := <-ch:
			if out.err == nil {
				return out.value, nil
			}
		default:
		}
		return zero, timedOut()
	}
}

func classify(agent model.AgentName, err error) error {
	for _, kind := range []error{model.ErrCollaborator, model.ErrInputMissing, model.ErrClaimNotFound, model.ErrValidation} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return goerr.Wrap(model.ErrCollaborator, err.Error(), goerr.V("agent", agent))
}
