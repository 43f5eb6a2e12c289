package notification

import (
	"context"
	"log/slog"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
)

// NoopNotifier logs chat-side notifications instead of sending them. Used in
// local development when Slack is not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

// NewNoopNotifier creates a NoopNotifier.
func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

var _ outbound.Notifier = (*NoopNotifier)(nil)

func (n *NoopNotifier) PostApprovalCard(_ context.Context, approval model.Approval) (string, string, error) {
	n.logger.Info("noop: approval card",
		"approval_id", approval.ID,
		"resource_type", approval.ResourceType,
		"channel", approval.ChannelID,
	)
	return approval.ChannelID, "noop-" + approval.ID, nil
}

func (n *NoopNotifier) UpdateApprovalCard(_ context.Context, approval model.Approval, actorUserID string) error {
	n.logger.Info("noop: card update",
		"approval_id", approval.ID,
		"status", approval.Status,
		"actor", actorUserID,
	)
	return nil
}

func (n *NoopNotifier) SendEphemeral(_ context.Context, channelID, userID, text string) error {
	n.logger.Info("noop: ephemeral message",
		"channel", channelID,
		"user", userID,
		"text", text,
	)
	return nil
}

func (n *NoopNotifier) OpenEditModal(_ context.Context, triggerID string, approval model.Approval, fields []model.FormField) error {
	n.logger.Info("noop: edit modal",
		"approval_id", approval.ID,
		"trigger_id", triggerID,
		"fields", len(fields),
	)
	return nil
}
