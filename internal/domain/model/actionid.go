package model

import "strings"

// ActionVerb is the decision a Slack control requests.
type ActionVerb string

const (
	VerbApprove ActionVerb = "approve"
	VerbReject  ActionVerb = "reject"
	VerbEdit    ActionVerb = "edit"
)

const actionIDSep = "::"

// ActionID is the decoded "verb::resourceType::approvalId" token carried in
// block action ids and edit-modal callback ids.
type ActionID struct {
	Verb         ActionVerb
	ResourceType ResourceType
	ApprovalID   string
}

// String renders the token in wire form.
func (a ActionID) String() string {
	return string(a.Verb) + actionIDSep + string(a.ResourceType) + actionIDSep + a.ApprovalID
}

// ParseActionID decodes an action-identifier token. Any deviation from the
// three-part form, an unknown verb, or an unknown resource type yields
// ok=false; identifiers that fail to parse belong to other features and fall
// through to their own routing.
func ParseActionID(raw string) (ActionID, bool) {
	parts := strings.Split(raw, actionIDSep)
	if len(parts) != 3 {
		return ActionID{}, false
	}

	verb := ActionVerb(parts[0])
	switch verb {
	case VerbApprove, VerbReject, VerbEdit:
	default:
		return ActionID{}, false
	}

	rt := ResourceType(parts[1])
	if !ValidResourceType(rt) {
		return ActionID{}, false
	}
	if parts[2] == "" {
		return ActionID{}, false
	}

	return ActionID{Verb: verb, ResourceType: rt, ApprovalID: parts[2]}, true
}
