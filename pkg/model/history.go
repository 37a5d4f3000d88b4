package model

import (
	"time"

	"github.com/google/uuid"
)

type HistoryID string

// NewHistoryID generates a new unique HistoryID
func NewHistoryID() HistoryID {
	return HistoryID(uuid.New().String())
}

// History is an archived conversation transcript
type History struct {
	ID        HistoryID `json:"id"`
	Turns     []Turn    `json:"turns"`
	ClaimIDs  []ClaimID `json:"claim_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StorageKey is the object key used when the transcript is archived
func (h *History) StorageKey() string {
	return "history/" + string(h.ID) + ".json"
}
