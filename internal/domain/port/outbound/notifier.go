package outbound

import (
	"context"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
)

// Notifier sends chat-side messages: the approval card, its resolved
// replacement, ephemeral user feedback, and the edit modal.
type Notifier interface {
	// PostApprovalCard posts the Approve/Reject/Edit card and returns where
	// it landed.
	PostApprovalCard(ctx context.Context, approval model.Approval) (channelID, messageTS string, err error)

	// UpdateApprovalCard rewrites the original card into a resolved summary.
	// Best-effort: callers log failures and move on.
	UpdateApprovalCard(ctx context.Context, approval model.Approval, actorUserID string) error

	// SendEphemeral posts a message visible only to the given user.
	SendEphemeral(ctx context.Context, channelID, userID, text string) error

	// OpenEditModal opens the resource-type-specific edit form.
	OpenEditModal(ctx context.Context, triggerID string, approval model.Approval, fields []model.FormField) error
}
