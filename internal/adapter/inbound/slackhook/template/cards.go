package template

import (
	"encoding/json"
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
)

// resourceLabels maps resource types to the card headline.
var resourceLabels = map[model.ResourceType]string{
	model.ResourceEmailDraft:      "Email Draft",
	model.ResourceFollowUp:        "Follow-up",
	model.ResourceTaskList:        "Task List",
	model.ResourceSummary:         "Summary",
	model.ResourceMeetingNotes:    "Meeting Notes",
	model.ResourceProposalSection: "Proposal Section",
	model.ResourceCoachingTip:     "Coaching Tip",
}

// ResourceLabel returns a human-readable name for a resource type.
func ResourceLabel(rt model.ResourceType) string {
	if label, ok := resourceLabels[rt]; ok {
		return label
	}
	return string(rt)
}

// BuildApprovalBlocks constructs the Block Kit card for a pending approval:
// the content preview plus Approve/Reject/Edit buttons carrying the
// action-identifier token.
func BuildApprovalBlocks(approval model.Approval) []slackapi.Block {
	title := fmt.Sprintf(":hourglass_flowing_sand: *%s ready for review*", ResourceLabel(approval.ResourceType))
	if approval.ResourceName != "" {
		title += fmt.Sprintf("\n*%s*", approval.ResourceName)
	}
	header := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType, title, false, false),
		nil, nil,
	)

	preview := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			contentPreview(approval.ResourceType, approval.OriginalContent), false, false),
		nil, nil,
	)

	approveBtn := slackapi.NewButtonBlockElement(
		model.ActionID{Verb: model.VerbApprove, ResourceType: approval.ResourceType, ApprovalID: approval.ID}.String(),
		approval.ID,
		slackapi.NewTextBlockObject(slackapi.PlainTextType, "Approve", false, false),
	)
	approveBtn.Style = slackapi.StylePrimary

	rejectBtn := slackapi.NewButtonBlockElement(
		model.ActionID{Verb: model.VerbReject, ResourceType: approval.ResourceType, ApprovalID: approval.ID}.String(),
		approval.ID,
		slackapi.NewTextBlockObject(slackapi.PlainTextType, "Reject", false, false),
	)
	rejectBtn.Style = slackapi.StyleDanger

	editBtn := slackapi.NewButtonBlockElement(
		model.ActionID{Verb: model.VerbEdit, ResourceType: approval.ResourceType, ApprovalID: approval.ID}.String(),
		approval.ID,
		slackapi.NewTextBlockObject(slackapi.PlainTextType, "Edit", false, false),
	)

	return []slackapi.Block{
		header,
		slackapi.NewDividerBlock(),
		preview,
		slackapi.NewDividerBlock(),
		slackapi.NewActionBlock("", approveBtn, rejectBtn, editBtn),
	}
}

// BuildResolvedBlocks rewrites the card once the approval reached a terminal
// status: the preview stays, the buttons become an outcome line.
func BuildResolvedBlocks(approval model.Approval, actorUserID string) []slackapi.Block {
	var outcome string
	switch approval.Status {
	case model.ApprovalStatusApproved:
		outcome = fmt.Sprintf(":white_check_mark: *Approved* by <@%s>", actorUserID)
	case model.ApprovalStatusRejected:
		outcome = fmt.Sprintf(":no_entry_sign: *Rejected* by <@%s>", actorUserID)
	case model.ApprovalStatusEdited:
		outcome = fmt.Sprintf(":pencil2: *Edited and sent* by <@%s>", actorUserID)
	case model.ApprovalStatusExpired:
		outcome = ":clock4: *Expired*"
	case model.ApprovalStatusCancelled:
		outcome = ":heavy_multiplication_x: *Cancelled*"
	default:
		outcome = fmt.Sprintf("*%s*", approval.Status)
	}

	content := approval.OriginalContent
	if approval.Status == model.ApprovalStatusEdited && approval.EditedContent != nil {
		content = approval.EditedContent
	}

	return []slackapi.Block{
		slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType,
				fmt.Sprintf("*%s*", ResourceLabel(approval.ResourceType)), false, false),
			nil, nil,
		),
		slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType,
				contentPreview(approval.ResourceType, content), false, false),
			nil, nil,
		),
		slackapi.NewContextBlock("",
			slackapi.NewTextBlockObject(slackapi.MarkdownType, outcome, false, false),
		),
	}
}

// ModalMetadata rides in the modal's private_metadata so the submission
// handler can reach the originating channel for ephemeral feedback.
type ModalMetadata struct {
	ChannelID string `json:"channel_id"`
	MessageTS string `json:"message_ts"`
}

// ParseModalMetadata decodes private_metadata written by BuildEditModal.
func ParseModalMetadata(raw string) ModalMetadata {
	var meta ModalMetadata
	_ = json.Unmarshal([]byte(raw), &meta)
	return meta
}

// BuildEditModal constructs the resource-type-specific edit form. The
// callback id reuses the action-identifier token with the edit verb, so the
// submission routes through the same parser as button clicks.
func BuildEditModal(approval model.Approval, fields []model.FormField) slackapi.ModalViewRequest {
	blocks := make([]slackapi.Block, 0, len(fields))
	for _, field := range fields {
		if field.ReadOnly {
			blocks = append(blocks, slackapi.NewContextBlock("",
				slackapi.NewTextBlockObject(slackapi.MarkdownType,
					fmt.Sprintf("*%s:* %s", field.Label, field.Initial), false, false),
			))
			continue
		}

		input := slackapi.NewPlainTextInputBlockElement(nil, field.ID)
		input.InitialValue = field.Initial
		input.Multiline = field.Multiline

		blocks = append(blocks, slackapi.NewInputBlock(
			field.ID,
			slackapi.NewTextBlockObject(slackapi.PlainTextType, field.Label, false, false),
			nil,
			input,
		))
	}

	meta, _ := json.Marshal(ModalMetadata{
		ChannelID: approval.ChannelID,
		MessageTS: approval.MessageTS,
	})

	return slackapi.ModalViewRequest{
		Type: slackapi.VTModal,
		Title: slackapi.NewTextBlockObject(slackapi.PlainTextType,
			modalTitle(approval.ResourceType), false, false),
		Submit:          slackapi.NewTextBlockObject(slackapi.PlainTextType, "Save & Send", false, false),
		Close:           slackapi.NewTextBlockObject(slackapi.PlainTextType, "Cancel", false, false),
		CallbackID:      model.ActionID{Verb: model.VerbEdit, ResourceType: approval.ResourceType, ApprovalID: approval.ID}.String(),
		PrivateMetadata: string(meta),
		Blocks:          slackapi.Blocks{BlockSet: blocks},
	}
}

// modalTitle keeps within Slack's 24-character modal title limit.
func modalTitle(rt model.ResourceType) string {
	title := "Edit " + ResourceLabel(rt)
	if len(title) > 24 {
		title = title[:24]
	}
	return title
}

func contentPreview(rt model.ResourceType, doc model.Document) string {
	switch rt {
	case model.ResourceEmailDraft:
		lines := []string{}
		if to := doc.StringField("to"); to != "" {
			lines = append(lines, fmt.Sprintf("*To:* %s", to))
		}
		if subject := doc.StringField("subject"); subject != "" {
			lines = append(lines, fmt.Sprintf("*Subject:* %s", subject))
		}
		if body := doc.StringField("body"); body != "" {
			lines = append(lines, truncate(body, 500))
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	case model.ResourceTaskList:
		tasks := doc.StringSliceField("tasks")
		if len(tasks) > 0 {
			bullets := make([]string, len(tasks))
			for i, task := range tasks {
				bullets[i] = "• " + task
			}
			return truncate(strings.Join(bullets, "\n"), 500)
		}
	default:
		if content := doc.StringField("content"); content != "" {
			return truncate(content, 500)
		}
	}
	return "_(no preview available)_"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
