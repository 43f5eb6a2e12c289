package outbound

import (
	"context"
	"time"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
)

// TransitionUpdate carries the fields written alongside a status transition.
type TransitionUpdate struct {
	ActionedBy    string
	ActionedAt    time.Time
	EditedContent model.Document
	Response      model.Document
}

// ApprovalRepository persists approval records. TransitionStatus is the only
// write path for the status column and must be conditional on the row still
// being pending, so concurrent duplicates resolve to exactly one winner.
type ApprovalRepository interface {
	Create(ctx context.Context, approval model.Approval) (model.Approval, error)

	// GetByID fails with model.ErrApprovalNotFound when no row exists.
	GetByID(ctx context.Context, id string) (model.Approval, error)

	// TransitionStatus atomically moves the record from pending to the given
	// terminal status. It fails with model.ErrAlreadyActioned when the row is
	// no longer pending and model.ErrApprovalNotFound when it does not exist.
	TransitionStatus(ctx context.Context, id string, to model.ApprovalStatus, update TransitionUpdate) (model.Approval, error)

	// SetChatMessage records where the approval card was posted.
	SetChatMessage(ctx context.Context, id, teamID, channelID, messageTS string) error

	// ExpireOverdue flips pending rows whose deadline passed before cutoff to
	// expired, returning the number of rows changed.
	ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserLinkRepository resolves Slack identities to internal accounts.
type UserLinkRepository interface {
	// Resolve returns found=false, with no error, when the Slack user has no
	// linked account.
	Resolve(ctx context.Context, slackUserID, slackTeamID string) (model.UserLink, bool, error)

	Upsert(ctx context.Context, link model.UserLink) error
}
