package orchestrator

import (
	"context"
	"fmt"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
)

// ProcessMessage classifies msg, runs the matching handler and records both turns in the history.
// It never returns nil and never panics; failures come back as a Response with Success false.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg *Message) (resp *Response) {
	if msg == nil {
		msg = &Message{}
	}
	o.history.Append(model.Turn{Role: model.RoleUser, Message: msg.Text, Timestamp: o.now()})

	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("handler panicked", "panic", r)
			resp = &Response{
				Message:   fmt.Sprintf("I encountered an error: %v. Please try again or rephrase your request.", r),
				Error:     fmt.Sprint(r),
				Timestamp: o.now(),
			}
		}
		o.history.Append(model.Turn{Role: model.RoleAssistant, Message: resp.Message, Timestamp: resp.Timestamp})
	}()

	intent := o.classifier.Classify(msg)
	logging.From(ctx).Debug("message classified", "intent", intent, "claim_id", msg.ClaimID, "attachment", msg.Attachment != nil)

	resp = o.dispatch(ctx, intent, msg)
	resp.Intent = intent
	return resp
}
