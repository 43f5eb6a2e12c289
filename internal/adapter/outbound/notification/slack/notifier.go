package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/inbound/slackhook/template"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
)

// Config holds Slack notifier configuration.
type Config struct {
	BotToken       string
	DefaultChannel string
}

// Notifier implements outbound.Notifier via the Slack Web API.
type Notifier struct {
	client *slackapi.Client
	config Config
}

// NewNotifier creates a Slack Notifier.
func NewNotifier(cfg Config) *Notifier {
	return &Notifier{
		client: slackapi.New(cfg.BotToken),
		config: cfg,
	}
}

var _ outbound.Notifier = (*Notifier)(nil)

// PostApprovalCard posts the Approve/Reject/Edit card, threading under the
// approval's thread when one is set.
func (n *Notifier) PostApprovalCard(ctx context.Context, approval model.Approval) (string, string, error) {
	channel := approval.ChannelID
	if channel == "" {
		channel = n.config.DefaultChannel
	}

	opts := []slackapi.MsgOption{
		slackapi.MsgOptionBlocks(template.BuildApprovalBlocks(approval)...),
		slackapi.MsgOptionText(
			fmt.Sprintf("%s ready for review", template.ResourceLabel(approval.ResourceType)), false),
	}
	if approval.ThreadTS != "" {
		opts = append(opts, slackapi.MsgOptionTS(approval.ThreadTS))
	}

	postedChannel, ts, err := n.client.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return "", "", fmt.Errorf("slack PostApprovalCard: %w", err)
	}
	return postedChannel, ts, nil
}

// UpdateApprovalCard rewrites the original card into its resolved form.
func (n *Notifier) UpdateApprovalCard(ctx context.Context, approval model.Approval, actorUserID string) error {
	if approval.ChannelID == "" || approval.MessageTS == "" {
		return nil
	}

	_, _, _, err := n.client.UpdateMessageContext(ctx, approval.ChannelID, approval.MessageTS,
		slackapi.MsgOptionBlocks(template.BuildResolvedBlocks(approval, actorUserID)...),
		slackapi.MsgOptionText(
			fmt.Sprintf("%s %s", template.ResourceLabel(approval.ResourceType), approval.Status), false),
	)
	if err != nil {
		return fmt.Errorf("slack UpdateApprovalCard: %w", err)
	}
	return nil
}

// SendEphemeral posts a message only the given user can see.
func (n *Notifier) SendEphemeral(ctx context.Context, channelID, userID, text string) error {
	if channelID == "" || userID == "" {
		return fmt.Errorf("slack SendEphemeral: channel and user required")
	}
	_, err := n.client.PostEphemeralContext(ctx, channelID, userID,
		slackapi.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("slack SendEphemeral: %w", err)
	}
	return nil
}

// OpenEditModal opens the resource-type-specific edit form against the
// interaction's trigger id.
func (n *Notifier) OpenEditModal(ctx context.Context, triggerID string, approval model.Approval, fields []model.FormField) error {
	view := template.BuildEditModal(approval, fields)
	if _, err := n.client.OpenViewContext(ctx, triggerID, view); err != nil {
		return fmt.Errorf("slack OpenEditModal: %w", err)
	}
	return nil
}
