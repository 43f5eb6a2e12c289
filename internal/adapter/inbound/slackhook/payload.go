package slackhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	slackapi "github.com/slack-go/slack"
)

// errNoPayload means the request carried nothing decodable as an interaction
// payload. It maps to HTTP 400, the only non-auth failure the webhook
// reports, since anything else would trigger platform-side retries.
var errNoPayload = errors.New("no decodable interaction payload")

// DecodePayload extracts the interaction payload from the raw request body.
// Slack sends form-encoded bodies with the JSON in a payload field; some
// intermediaries re-post the JSON directly, so that is accepted too. Runs
// strictly after signature verification: decoding must never touch the bytes
// the signature was computed over.
func DecodePayload(body []byte, contentType string) (slackapi.InteractionCallback, error) {
	raw := body
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return slackapi.InteractionCallback{}, fmt.Errorf("%w: bad form encoding", errNoPayload)
		}
		payload := values.Get("payload")
		if payload == "" {
			return slackapi.InteractionCallback{}, fmt.Errorf("%w: missing payload field", errNoPayload)
		}
		raw = []byte(payload)
	}

	var callback slackapi.InteractionCallback
	if err := json.Unmarshal(raw, &callback); err != nil {
		return slackapi.InteractionCallback{}, fmt.Errorf("%w: %v", errNoPayload, err)
	}
	if callback.Type == "" {
		return slackapi.InteractionCallback{}, fmt.Errorf("%w: missing interaction type", errNoPayload)
	}
	return callback, nil
}

// flattenViewState collapses a modal's block/action value grid into a flat
// actionID -> submitted value map for the edit-form codecs.
func flattenViewState(state *slackapi.ViewState) map[string]string {
	values := make(map[string]string)
	if state == nil {
		return values
	}
	for _, actions := range state.Values {
		for actionID, action := range actions {
			values[actionID] = action.Value
		}
	}
	return values
}
