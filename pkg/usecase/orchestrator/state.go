package orchestrator

import (
	"sync"

	"github.com/m-mizutani/claimpilot/pkg/model"
)

// History is the append-only conversation log
type History struct {
	turns []model.Turn
	mu    sync.RWMutex
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(turns ...model.Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turns...)
}

// List returns a copy of all turns, oldest first
func (h *History) List() []model.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]model.Turn{}, h.turns...)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// StatusRegistry tracks the agent status map of each claim for the process lifetime
type StatusRegistry struct {
	claims map[model.ClaimID]model.AgentStatusMap
	mu     sync.RWMutex
}

func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{claims: make(map[model.ClaimID]model.AgentStatusMap)}
}

// Get returns a copy of the claim's status map, creating it with every agent Pending on first access
func (r *StatusRegistry) Get(id model.ClaimID) model.AgentStatusMap {
	r.mu.RLock()
	m, ok := r.claims[id]
	if ok {
		defer r.mu.RUnlock()
		return m.Clone()
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lazy(id).Clone()
}

func (r *StatusRegistry) Set(id model.ClaimID, agent model.AgentName, state model.AgentState) error {
	if err := agent.Validate(); err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lazy(id)[agent] = state
	return nil
}

// lazy must be called with the write lock held
func (r *StatusRegistry) lazy(id model.ClaimID) model.AgentStatusMap {
	m, ok := r.claims[id]
	if !ok {
		m = model.NewAgentStatusMap()
		r.claims[id] = m
	}
	return m
}

// Len is the number of claims with a status map
func (r *StatusRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.claims)
}
