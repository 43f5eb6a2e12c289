package slackhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	slackapi "github.com/slack-go/slack"

	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/inbound/slackhook/middleware"
	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/inbound/slackhook/template"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/inbound"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
	"github.com/sunbeamhq/sunbeam-bot/internal/observability"
)

// User-facing ephemeral messages per failure category.
const (
	msgNotLinked      = ":link: Your Slack account isn't linked yet. Connect it from the app settings to act on approvals."
	msgNotFound       = ":mag: This approval could not be found. It may have been removed."
	msgAlreadyDone    = ":information_source: This request has already been actioned."
	msgExpired        = ":clock4: This approval has expired and can no longer be actioned."
	msgGenericFailure = ":warning: Something went wrong applying your decision. Please try again."
)

// Handler routes Slack interactivity payloads: approval controls go through
// the lifecycle flow, everything else is delegated to domain handlers or
// acknowledged as a no-op. Every routed branch answers 200; non-200 is
// reserved for authentication (handled upstream) and undecodable payloads,
// because anything else makes Slack retry aggressively.
type Handler struct {
	flow     inbound.ApprovalFlowPort
	users    outbound.UserLinkRepository
	notifier outbound.Notifier
	domain   *DomainRegistry
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewHandler creates a Handler. domain may be nil when no out-of-scope
// handlers are registered; metrics may be nil.
func NewHandler(
	flow inbound.ApprovalFlowPort,
	users outbound.UserLinkRepository,
	notifier outbound.Notifier,
	domain *DomainRegistry,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Handler {
	if domain == nil {
		domain = NewDomainRegistry()
	}
	return &Handler{
		flow:     flow,
		users:    users,
		notifier: notifier,
		domain:   domain,
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body := middleware.RawBody(r)
	if body == nil {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		body = raw
	}

	if challenge, ok := urlVerificationChallenge(body); ok {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge))
		return
	}

	callback, err := DecodePayload(body, r.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Warn("undecodable interaction payload", "error", err)
		h.metrics.RecordInteraction("unknown", "bad_payload")
		http.Error(w, "missing or undecodable payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	switch callback.Type {
	case slackapi.InteractionTypeBlockActions:
		h.handleBlockActions(ctx, w, callback)
	case slackapi.InteractionTypeViewSubmission:
		h.handleViewSubmission(ctx, w, callback)
	case slackapi.InteractionTypeShortcut, slackapi.InteractionTypeMessageAction:
		h.handleShortcut(ctx, w, callback)
	default:
		h.logger.Debug("unhandled interaction type", "type", callback.Type)
		h.metrics.RecordInteraction(string(callback.Type), "no_op")
		ackOK(w)
	}
}

// handleBlockActions inspects the first triggered action: approval tokens go
// through the lifecycle flow, everything else is domain-routed or a silent
// no-op.
func (h *Handler) handleBlockActions(ctx context.Context, w http.ResponseWriter, callback slackapi.InteractionCallback) {
	const kind = "block_actions"

	actions := callback.ActionCallback.BlockActions
	if len(actions) == 0 {
		h.metrics.RecordInteraction(kind, "no_op")
		ackOK(w)
		return
	}
	action := actions[0]

	actionID, ok := model.ParseActionID(action.ActionID)
	if !ok {
		if fn, found := h.domain.resolveAction(action.ActionID); found {
			if err := fn(ctx, callback, action); err != nil {
				h.logger.Error("domain action handler failed", "action_id", action.ActionID, "error", err)
			}
			h.metrics.RecordInteraction(kind, "domain")
		} else {
			h.logger.Debug("unmatched action id", "action_id", action.ActionID)
			h.metrics.RecordInteraction(kind, "no_op")
		}
		ackOK(w)
		return
	}

	link, linked := h.resolveActor(ctx, w, kind, callback)
	if !linked {
		return
	}

	approval, err := h.flow.Validate(ctx, actionID.ApprovalID)
	if err != nil {
		h.reportLifecycleError(ctx, callback.Channel.ID, callback.User.ID, kind, err)
		ackOK(w)
		return
	}

	switch actionID.Verb {
	case model.VerbApprove:
		h.applyDecision(ctx, callback, approval, link, kind, h.flow.Approve)
	case model.VerbReject:
		h.applyDecision(ctx, callback, approval, link, kind, h.flow.Reject)
	case model.VerbEdit:
		fields := h.flow.EditForm(approval)
		if err := h.notifier.OpenEditModal(ctx, callback.TriggerID, approval, fields); err != nil {
			h.logger.Error("opening edit modal failed", "approval_id", approval.ID, "error", err)
			h.sendEphemeral(ctx, callback.Channel.ID, callback.User.ID, msgGenericFailure)
			h.metrics.RecordInteraction(kind, "error")
		} else {
			h.metrics.RecordInteraction(kind, "ok")
		}
	}
	ackOK(w)
}

// handleViewSubmission routes modal submissions by callback id. The approval
// edit form carries the action-identifier token with the edit verb; other
// callback ids belong to domain handlers. Modal acknowledgements are an
// empty 200 body.
func (h *Handler) handleViewSubmission(ctx context.Context, w http.ResponseWriter, callback slackapi.InteractionCallback) {
	const kind = "view_submission"

	actionID, ok := model.ParseActionID(callback.View.CallbackID)
	if !ok {
		if fn, found := h.domain.resolveCallback(callback.View.CallbackID); found {
			if err := fn(ctx, callback); err != nil {
				h.logger.Error("domain view handler failed", "callback_id", callback.View.CallbackID, "error", err)
			}
			h.metrics.RecordInteraction(kind, "domain")
		} else {
			h.logger.Debug("unmatched view callback id", "callback_id", callback.View.CallbackID)
			h.metrics.RecordInteraction(kind, "no_op")
		}
		ackEmpty(w)
		return
	}

	meta := template.ParseModalMetadata(callback.View.PrivateMetadata)
	channelID := meta.ChannelID
	if channelID == "" {
		channelID = callback.Channel.ID
	}

	link, found, err := h.users.Resolve(ctx, callback.User.ID, callback.Team.ID)
	if err != nil {
		h.logger.Error("resolving user link failed", "slack_user", callback.User.ID, "error", err)
		h.sendEphemeral(ctx, channelID, callback.User.ID, msgGenericFailure)
		h.metrics.RecordInteraction(kind, "error")
		ackEmpty(w)
		return
	}
	if !found {
		h.sendEphemeral(ctx, channelID, callback.User.ID, msgNotLinked)
		h.metrics.RecordInteraction(kind, "unlinked")
		ackEmpty(w)
		return
	}

	approval, err := h.flow.Validate(ctx, actionID.ApprovalID)
	if err != nil {
		h.reportLifecycleError(ctx, channelID, callback.User.ID, kind, err)
		ackEmpty(w)
		return
	}

	values := flattenViewState(callback.View.State)
	updated, err := h.flow.SubmitEdit(ctx, approval, values, link.UserID)
	if err != nil {
		h.reportLifecycleError(ctx, channelID, callback.User.ID, kind, err)
		ackEmpty(w)
		return
	}

	h.refreshCard(ctx, updated, callback.User.ID)
	h.metrics.RecordInteraction(kind, "ok")
	ackEmpty(w)
}

// handleShortcut delegates shortcuts and message actions by callback id.
func (h *Handler) handleShortcut(ctx context.Context, w http.ResponseWriter, callback slackapi.InteractionCallback) {
	kind := string(callback.Type)

	if fn, found := h.domain.resolveCallback(callback.CallbackID); found {
		if err := fn(ctx, callback); err != nil {
			h.logger.Error("domain shortcut handler failed", "callback_id", callback.CallbackID, "error", err)
		}
		h.metrics.RecordInteraction(kind, "domain")
	} else {
		h.logger.Debug("unmatched shortcut callback id", "callback_id", callback.CallbackID)
		h.metrics.RecordInteraction(kind, "no_op")
	}
	ackOK(w)
}

// resolveActor looks up the acting user's internal identity, handling the
// unlinked and failure branches. It acknowledges the request itself when it
// returns linked=false.
func (h *Handler) resolveActor(ctx context.Context, w http.ResponseWriter, kind string, callback slackapi.InteractionCallback) (model.UserLink, bool) {
	link, found, err := h.users.Resolve(ctx, callback.User.ID, callback.Team.ID)
	if err != nil {
		h.logger.Error("resolving user link failed", "slack_user", callback.User.ID, "error", err)
		h.sendEphemeral(ctx, callback.Channel.ID, callback.User.ID, msgGenericFailure)
		h.metrics.RecordInteraction(kind, "error")
		ackOK(w)
		return model.UserLink{}, false
	}
	if !found {
		h.sendEphemeral(ctx, callback.Channel.ID, callback.User.ID, msgNotLinked)
		h.metrics.RecordInteraction(kind, "unlinked")
		ackOK(w)
		return model.UserLink{}, false
	}
	return link, true
}

// applyDecision runs an approve/reject transition and refreshes the card on
// success. The original message is left untouched on failure.
func (h *Handler) applyDecision(
	ctx context.Context,
	callback slackapi.InteractionCallback,
	approval model.Approval,
	link model.UserLink,
	kind string,
	transition func(context.Context, model.Approval, string) (model.Approval, error),
) {
	updated, err := transition(ctx, approval, link.UserID)
	if err != nil {
		h.reportLifecycleError(ctx, callback.Channel.ID, callback.User.ID, kind, err)
		return
	}
	h.refreshCard(ctx, updated, callback.User.ID)
	h.metrics.RecordInteraction(kind, "ok")
}

// refreshCard rewrites the original approval card. Best-effort follow-up
// work: the transition is committed regardless.
func (h *Handler) refreshCard(ctx context.Context, approval model.Approval, slackUserID string) {
	if err := h.notifier.UpdateApprovalCard(ctx, approval, slackUserID); err != nil {
		h.logger.Warn("updating approval card failed", "approval_id", approval.ID, "error", err)
	}
}

// reportLifecycleError translates a lifecycle or store failure into the
// matching ephemeral message. Always paired with a 200 acknowledgement.
func (h *Handler) reportLifecycleError(ctx context.Context, channelID, slackUserID, kind string, err error) {
	var text string
	switch {
	case errors.Is(err, model.ErrApprovalNotFound):
		text = msgNotFound
	case errors.Is(err, model.ErrAlreadyActioned):
		text = msgAlreadyDone
	case errors.Is(err, model.ErrApprovalExpired):
		text = msgExpired
	default:
		h.logger.Error("approval flow failed", "error", err)
		text = msgGenericFailure
		h.metrics.RecordInteraction(kind, "error")
		h.sendEphemeral(ctx, channelID, slackUserID, text)
		return
	}

	h.logger.Info("lifecycle violation", "reason", err, "channel", channelID)
	h.metrics.RecordInteraction(kind, "lifecycle")
	h.sendEphemeral(ctx, channelID, slackUserID, text)
}

func (h *Handler) sendEphemeral(ctx context.Context, channelID, slackUserID, text string) {
	if channelID == "" || slackUserID == "" {
		// Shortcut-shaped payloads carry no channel; nothing to post to.
		h.logger.Debug("no ephemeral destination", "text", text)
		return
	}
	if err := h.notifier.SendEphemeral(ctx, channelID, slackUserID, text); err != nil {
		h.logger.Warn("sending ephemeral message failed", "channel", channelID, "error", err)
	}
}

// urlVerificationChallenge answers the install-time handshake.
func urlVerificationChallenge(body []byte) (string, bool) {
	var probe struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", false
	}
	if probe.Type != "url_verification" || probe.Challenge == "" {
		return "", false
	}
	return probe.Challenge, true
}

func ackOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

// ackEmpty acknowledges a modal submission. An empty 200 closes the modal.
func ackEmpty(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}
