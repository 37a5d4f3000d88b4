package history

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Save archives a conversation transcript to the object store. Claim IDs mentioned in the turns
// are recorded alongside.
func Save(ctx context.Context, store interfaces.ObjectStore, turns []model.Turn, now time.Time) (*model.History, error) {
	if len(turns) == 0 {
		return nil, goerr.Wrap(model.ErrInputMissing, "conversation is empty")
	}

	h := &model.History{
		ID:        model.NewHistoryID(),
		Turns:     turns,
		ClaimIDs:  mentionedClaims(turns),
		CreatedAt: now,
	}

	w, err := store.Put(ctx, h.StorageKey())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage writer", goerr.V("key", h.StorageKey()))
	}
	defer w.Close()

	if err := json.NewEncoder(w).Encode(h); err != nil {
		return nil, goerr.Wrap(err, "failed to write history to storage", goerr.V("key", h.StorageKey()))
	}
	if err := w.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to close storage writer", goerr.V("key", h.StorageKey()))
	}

	logging.From(ctx).Info("conversation archived", "history_id", h.ID, "turns", len(turns))
	return h, nil
}

// Load reads an archived transcript
func Load(ctx context.Context, store interfaces.ObjectStore, id model.HistoryID) (*model.History, error) {
	key := (&model.History{ID: id}).StorageKey()
	r, err := store.Get(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get history from storage", goerr.V("key", key))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read history data", goerr.V("key", key))
	}

	var h model.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal history", goerr.V("key", key))
	}
	return &h, nil
}

func mentionedClaims(turns []model.Turn) []model.ClaimID {
	seen := map[model.ClaimID]bool{}
	var ids []model.ClaimID
	for _, t := range turns {
		if id := model.FindClaimID(t.Message); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
