package inbound

import (
	"context"
	"time"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
)

// CreateApprovalRequest is the management-API shape for registering a new
// pending approval and posting its card to Slack.
type CreateApprovalRequest struct {
	OrgID            string
	UserID           string
	CreatedBy        string
	ResourceType     model.ResourceType
	ResourceID       string
	ResourceName     string
	ChannelID        string
	ThreadTS         string
	Content          model.Document
	CallbackType     model.CallbackType
	CallbackTarget   string
	CallbackMetadata model.Document
	TTL              time.Duration
}

// ApprovalIntakePort registers new approvals on behalf of upstream
// collaborators (the CRM layer, assistants producing drafts).
type ApprovalIntakePort interface {
	Create(ctx context.Context, req CreateApprovalRequest) (model.Approval, error)
	Get(ctx context.Context, approvalID string) (model.Approval, error)
}
