package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/inbound"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
	"github.com/sunbeamhq/sunbeam-bot/internal/observability"
)

// ApprovalService is the approval lifecycle state machine. Every terminal
// transition goes through the repository's conditional update, so a record
// moves away from pending exactly once no matter how many duplicate clicks
// race for it.
type ApprovalService struct {
	repo      outbound.ApprovalRepository
	notifier  outbound.Notifier
	callbacks outbound.CallbackSender
	logger    *slog.Logger
	metrics   *observability.Metrics

	defaultTTL time.Duration
	now        func() time.Time
}

// NewApprovalService creates an ApprovalService. metrics may be nil.
func NewApprovalService(
	repo outbound.ApprovalRepository,
	notifier outbound.Notifier,
	callbacks outbound.CallbackSender,
	logger *slog.Logger,
	metrics *observability.Metrics,
	defaultTTL time.Duration,
) *ApprovalService {
	return &ApprovalService{
		repo:       repo,
		notifier:   notifier,
		callbacks:  callbacks,
		logger:     logger,
		metrics:    metrics,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

var _ inbound.ApprovalFlowPort = (*ApprovalService)(nil)
var _ inbound.ApprovalIntakePort = (*ApprovalService)(nil)

// Validate implements inbound.ApprovalFlowPort. Expiry is checked lazily
// here: a record past its deadline is refused even while the stored status
// still reads pending.
func (s *ApprovalService) Validate(ctx context.Context, approvalID string) (model.Approval, error) {
	approval, err := s.repo.GetByID(ctx, approvalID)
	if err != nil {
		return model.Approval{}, err
	}
	if !approval.IsPending() {
		return model.Approval{}, model.ErrAlreadyActioned
	}
	if approval.IsExpired(s.now().UTC()) {
		return model.Approval{}, model.ErrApprovalExpired
	}
	return approval, nil
}

// Approve implements inbound.ApprovalFlowPort.
func (s *ApprovalService) Approve(ctx context.Context, approval model.Approval, actorUserID string) (model.Approval, error) {
	return s.apply(ctx, approval, model.ApprovalStatusApproved, actorUserID, nil)
}

// Reject implements inbound.ApprovalFlowPort. The callback target receives
// the original content; any edits in progress are discarded.
func (s *ApprovalService) Reject(ctx context.Context, approval model.Approval, actorUserID string) (model.Approval, error) {
	return s.apply(ctx, approval, model.ApprovalStatusRejected, actorUserID, nil)
}

// EditForm implements inbound.ApprovalFlowPort.
func (s *ApprovalService) EditForm(approval model.Approval) []model.FormField {
	return codecFor(approval.ResourceType).Fields(approval.OriginalContent)
}

// SubmitEdit implements inbound.ApprovalFlowPort. The edited content is
// extracted with the same resource-type codec that built the form.
func (s *ApprovalService) SubmitEdit(ctx context.Context, approval model.Approval, values map[string]string, actorUserID string) (model.Approval, error) {
	edited := codecFor(approval.ResourceType).Extract(values)
	return s.apply(ctx, approval, model.ApprovalStatusEdited, actorUserID, edited)
}

// apply performs the guarded transition and, only after it committed,
// notifies the callback target. Callback failures never unwind the
// transition.
func (s *ApprovalService) apply(
	ctx context.Context,
	approval model.Approval,
	to model.ApprovalStatus,
	actorUserID string,
	edited model.Document,
) (model.Approval, error) {
	updated, err := s.repo.TransitionStatus(ctx, approval.ID, to, outbound.TransitionUpdate{
		ActionedBy:    actorUserID,
		ActionedAt:    s.now().UTC(),
		EditedContent: edited,
		Response: model.Document{
			"actioned_by": actorUserID,
			"source":      "slack",
		},
	})
	if err != nil {
		return model.Approval{}, err
	}

	s.logger.Info("approval transitioned",
		"approval_id", updated.ID,
		"resource_type", updated.ResourceType,
		"status", updated.Status,
		"actioned_by", actorUserID,
	)
	s.metrics.RecordTransition(string(updated.ResourceType), string(to))

	content := updated.OriginalContent
	if to == model.ApprovalStatusEdited {
		content = updated.EditedContent
	}
	if err := s.callbacks.Dispatch(ctx, updated, to, content); err != nil {
		// Logged and swallowed: the transition is committed and the click
		// must still be acknowledged.
		s.logger.Warn("callback dispatch failed",
			"approval_id", updated.ID,
			"callback_type", updated.CallbackType,
			"error", err,
		)
		s.metrics.RecordCallback(string(updated.CallbackType), "error")
	} else if updated.CallbackType != "" {
		s.metrics.RecordCallback(string(updated.CallbackType), "ok")
	}

	return updated, nil
}

// Create implements inbound.ApprovalIntakePort: persists a pending approval
// and posts its card to the configured channel. Card delivery is best-effort;
// the record survives a failed post and the card can be re-posted.
func (s *ApprovalService) Create(ctx context.Context, req inbound.CreateApprovalRequest) (model.Approval, error) {
	if !model.ValidResourceType(req.ResourceType) {
		return model.Approval{}, fmt.Errorf("unknown resource type %q", req.ResourceType)
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	approval := model.NewApproval(req.OrgID, req.ResourceType, req.ResourceID, req.Content, ttl)
	approval.UserID = req.UserID
	approval.CreatedBy = req.CreatedBy
	approval.ResourceName = req.ResourceName
	approval.ChannelID = req.ChannelID
	approval.ThreadTS = req.ThreadTS
	approval.CallbackType = req.CallbackType
	approval.CallbackTarget = req.CallbackTarget
	approval.CallbackMetadata = req.CallbackMetadata

	approval, err := s.repo.Create(ctx, approval)
	if err != nil {
		return model.Approval{}, fmt.Errorf("creating approval: %w", err)
	}

	channelID, messageTS, err := s.notifier.PostApprovalCard(ctx, approval)
	if err != nil {
		s.logger.Warn("posting approval card failed",
			"approval_id", approval.ID,
			"channel", approval.ChannelID,
			"error", err,
		)
		return approval, nil
	}

	if err := s.repo.SetChatMessage(ctx, approval.ID, approval.TeamID, channelID, messageTS); err != nil {
		s.logger.Warn("recording card location failed", "approval_id", approval.ID, "error", err)
	} else {
		approval.ChannelID = channelID
		approval.MessageTS = messageTS
	}
	return approval, nil
}

// Get implements inbound.ApprovalIntakePort.
func (s *ApprovalService) Get(ctx context.Context, approvalID string) (model.Approval, error) {
	return s.repo.GetByID(ctx, approvalID)
}
