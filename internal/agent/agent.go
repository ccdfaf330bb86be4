// Package agent implements the conversational decision logic for one voice
// call: answer from static business facts or curated knowledge, or open an
// escalation ticket for a supervisor. Speech I/O stays with the voice
// platform.
package agent

import (
	"context"
	"log/slog"

	"salon-agent/internal/business"
	"salon-agent/internal/escalate"
	"salon-agent/internal/models"
	"salon-agent/internal/store"
)

// EscalationPhrase is spoken verbatim whenever a query is handed to a
// supervisor.
const EscalationPhrase = "Let me check with my supervisor and get back to you."

// Answerer is the optional LLM fallback consulted before giving up on a
// query. answered=false means the model declined.
type Answerer interface {
	Answer(ctx context.Context, query string) (reply string, answered bool, err error)
}

// Responder decides the reply for each utterance. Classifier triggers
// always win over direct answers.
type Responder struct {
	Store      store.Store
	Classifier *escalate.Classifier
	Info       *business.Info
	// Assistant is consulted after the knowledge base when non-nil.
	Assistant Answerer
	// CloseOnEscalation closes the call record (escalated=true) as soon
	// as a ticket is opened, instead of leaving the call open for a live
	// handoff.
	CloseOnEscalation bool
}

// Respond produces the text to speak for one utterance and performs the
// escalation side effects when needed. Even when ticket creation fails the
// caller still hears the escalation phrase; the error is returned for the
// session loop to log.
func (r *Responder) Respond(ctx context.Context, call *models.CallRecord, utterance string) (string, error) {
	if needs, reason := r.Classifier.Classify(utterance); needs {
		return r.escalate(ctx, call, utterance, reason)
	}

	if reply, ok := r.Info.Answer(utterance); ok {
		return reply, nil
	}

	if entries, err := r.Store.SearchKnowledge(ctx, utterance); err != nil {
		slog.Error("knowledge search failed", "call_id", call.ID, "error", err)
	} else if len(entries) > 0 {
		return entries[0].Answer, nil
	}

	if r.Assistant != nil {
		reply, answered, err := r.Assistant.Answer(ctx, utterance)
		if err != nil {
			slog.Error("assistant failed, escalating", "call_id", call.ID, "error", err)
		} else if answered {
			return reply, nil
		}
	}

	return r.escalate(ctx, call, utterance, models.CategoryGeneral)
}

func (r *Responder) escalate(ctx context.Context, call *models.CallRecord, query, category string) (string, error) {
	// One pending ticket per call: repeat triggers while the supervisor
	// has not answered yet must not pile up duplicates.
	if pending, existingID, err := r.Store.HasPendingRequestForCall(ctx, call.ID); err != nil {
		slog.Error("pending request lookup failed", "call_id", call.ID, "error", err)
	} else if pending {
		slog.Info("escalation already pending for call", "request_id", existingID, "call_id", call.ID)
		if r.CloseOnEscalation {
			if _, err := r.Store.CloseCall(ctx, call.ID, true, existingID); err != nil {
				slog.Error("escalated call not closed", "call_id", call.ID, "request_id", existingID, "error", err)
				return EscalationPhrase, err
			}
		}
		return EscalationPhrase, nil
	}

	req, err := r.Store.CreateRequest(ctx, call.CustomerPhone, query, call.ID, category)
	if err != nil {
		slog.Error("escalation request not recorded", "call_id", call.ID, "category", category, "error", err)
		return EscalationPhrase, err
	}

	slog.Info("escalation request created", "request_id", req.ID, "call_id", call.ID, "category", category)

	if r.CloseOnEscalation {
		if _, err := r.Store.CloseCall(ctx, call.ID, true, req.ID); err != nil {
			slog.Error("escalated call not closed", "call_id", call.ID, "request_id", req.ID, "error", err)
			return EscalationPhrase, err
		}
	}

	return EscalationPhrase, nil
}
