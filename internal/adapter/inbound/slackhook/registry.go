package slackhook

import (
	"context"
	"strings"

	slackapi "github.com/slack-go/slack"
)

// DomainActionFunc handles a block action that is not an approval control
// (CRM buttons, pagination, pickers). Owned by collaborators outside this
// package.
type DomainActionFunc func(ctx context.Context, callback slackapi.InteractionCallback, action *slackapi.BlockAction) error

// DomainCallbackFunc handles a view submission, shortcut, or message action
// by its callback id.
type DomainCallbackFunc func(ctx context.Context, callback slackapi.InteractionCallback) error

type prefixEntry struct {
	prefix string
	fn     DomainActionFunc
}

// DomainRegistry routes non-approval interactions to their owners. Action
// ids match exactly first, then by registered prefix; callback ids match
// exactly. Unmatched interactions are acknowledged as silent no-ops by the
// handler.
type DomainRegistry struct {
	actions   map[string]DomainActionFunc
	prefixes  []prefixEntry
	callbacks map[string]DomainCallbackFunc
}

// NewDomainRegistry creates an empty registry.
func NewDomainRegistry() *DomainRegistry {
	return &DomainRegistry{
		actions:   make(map[string]DomainActionFunc),
		callbacks: make(map[string]DomainCallbackFunc),
	}
}

// RegisterAction binds an exact action id.
func (r *DomainRegistry) RegisterAction(actionID string, fn DomainActionFunc) {
	r.actions[actionID] = fn
}

// RegisterActionPrefix binds all action ids sharing a prefix.
func (r *DomainRegistry) RegisterActionPrefix(prefix string, fn DomainActionFunc) {
	r.prefixes = append(r.prefixes, prefixEntry{prefix: prefix, fn: fn})
}

// RegisterCallback binds a view-submission/shortcut callback id.
func (r *DomainRegistry) RegisterCallback(callbackID string, fn DomainCallbackFunc) {
	r.callbacks[callbackID] = fn
}

func (r *DomainRegistry) resolveAction(actionID string) (DomainActionFunc, bool) {
	if fn, ok := r.actions[actionID]; ok {
		return fn, true
	}
	for _, entry := range r.prefixes {
		if strings.HasPrefix(actionID, entry.prefix) {
			return entry.fn, true
		}
	}
	return nil, false
}

func (r *DomainRegistry) resolveCallback(callbackID string) (DomainCallbackFunc, bool) {
	fn, ok := r.callbacks[callbackID]
	return fn, ok
}
