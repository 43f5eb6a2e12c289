package model

import (
	"time"

	"github.com/google/uuid"
)

type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
	ApprovalStatusEdited    ApprovalStatus = "edited"
	ApprovalStatusExpired   ApprovalStatus = "expired"
	ApprovalStatusCancelled ApprovalStatus = "cancelled"
)

type ResourceType string

const (
	ResourceEmailDraft      ResourceType = "email_draft"
	ResourceFollowUp        ResourceType = "follow_up"
	ResourceTaskList        ResourceType = "task_list"
	ResourceSummary         ResourceType = "summary"
	ResourceMeetingNotes    ResourceType = "meeting_notes"
	ResourceProposalSection ResourceType = "proposal_section"
	ResourceCoachingTip     ResourceType = "coaching_tip"
)

// ValidResourceType reports whether rt is one of the known resource types.
func ValidResourceType(rt ResourceType) bool {
	switch rt {
	case ResourceEmailDraft, ResourceFollowUp, ResourceTaskList, ResourceSummary,
		ResourceMeetingNotes, ResourceProposalSection, ResourceCoachingTip:
		return true
	}
	return false
}

type CallbackType string

const (
	CallbackEdgeFunction CallbackType = "edge_function"
	CallbackWebhook      CallbackType = "webhook"
	CallbackWorkflow     CallbackType = "workflow"
)

// Approval is one pending or resolved human decision point. The status field
// only ever moves away from pending, exactly once, via a guarded store update.
type Approval struct {
	ID    string `json:"id"`
	OrgID string `json:"org_id"`

	UserID     string `json:"user_id"`
	CreatedBy  string `json:"created_by"`
	ActionedBy string `json:"actioned_by"`

	ResourceType ResourceType `json:"resource_type"`
	ResourceID   string       `json:"resource_id"`
	ResourceName string       `json:"resource_name"`

	TeamID    string `json:"team_id"`
	ChannelID string `json:"channel_id"`
	MessageTS string `json:"message_ts"`
	ThreadTS  string `json:"thread_ts"`

	Status ApprovalStatus `json:"status"`

	OriginalContent Document `json:"original_content"`
	EditedContent   Document `json:"edited_content,omitempty"`
	Response        Document `json:"response,omitempty"`

	CallbackType     CallbackType `json:"callback_type,omitempty"`
	CallbackTarget   string       `json:"callback_target,omitempty"`
	CallbackMetadata Document     `json:"callback_metadata,omitempty"`

	Metadata Document `json:"metadata,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ActionedAt *time.Time `json:"actioned_at,omitempty"`
}

// NewApproval creates a pending approval for the given resource, expiring
// after ttl.
func NewApproval(orgID string, rt ResourceType, resourceID string, content Document, ttl time.Duration) Approval {
	now := time.Now().UTC()
	return Approval{
		ID:              uuid.NewString(),
		OrgID:           orgID,
		ResourceType:    rt,
		ResourceID:      resourceID,
		Status:          ApprovalStatusPending,
		OriginalContent: content,
		Metadata:        Document{},
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
}

func (a Approval) IsPending() bool {
	return a.Status == ApprovalStatusPending
}

func (a Approval) IsTerminal() bool {
	switch a.Status {
	case ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusEdited,
		ApprovalStatusExpired, ApprovalStatusCancelled:
		return true
	}
	return false
}

// IsExpired reports whether the approval deadline has passed at the given
// instant, independent of the stored status.
func (a Approval) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// OutcomeContent is the document a callback target should receive: the edited
// content when an edit was submitted, otherwise the original.
func (a Approval) OutcomeContent() Document {
	if a.EditedContent != nil {
		return a.EditedContent
	}
	return a.OriginalContent
}

func (a Approval) WithChatMessage(teamID, channelID, messageTS string) Approval {
	a.TeamID = teamID
	a.ChannelID = channelID
	a.MessageTS = messageTS
	a.UpdatedAt = time.Now().UTC()
	return a
}
