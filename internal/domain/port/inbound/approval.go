package inbound

import (
	"context"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
)

// ApprovalFlowPort drives the approve/reject/edit lifecycle of one approval.
// Callers load via Validate first, then apply exactly one transition; the
// port guarantees at-most-once application under concurrent duplicates.
type ApprovalFlowPort interface {
	// Validate loads the approval and checks it is still actionable. It
	// fails with model.ErrApprovalNotFound, model.ErrAlreadyActioned, or
	// model.ErrApprovalExpired.
	Validate(ctx context.Context, approvalID string) (model.Approval, error)

	// Approve transitions pending -> approved and notifies the callback
	// target with the original content.
	Approve(ctx context.Context, approval model.Approval, actorUserID string) (model.Approval, error)

	// Reject transitions pending -> rejected. Any in-progress edits are
	// discarded; the callback target receives the original content.
	Reject(ctx context.Context, approval model.Approval, actorUserID string) (model.Approval, error)

	// EditForm selects the resource-type-specific form for editing the
	// approval's content. It performs no state change.
	EditForm(approval model.Approval) []model.FormField

	// SubmitEdit extracts edited content from submitted form values,
	// transitions pending -> edited, and notifies the callback target with
	// the edited content.
	SubmitEdit(ctx context.Context, approval model.Approval, values map[string]string, actorUserID string) (model.Approval, error)
}
