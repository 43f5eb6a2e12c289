package model

import "time"

// UserLink maps a Slack identity to an internal account. A missing link is a
// normal state (the user never connected their account), not an error.
type UserLink struct {
	SlackUserID string    `json:"slack_user_id"`
	SlackTeamID string    `json:"slack_team_id"`
	UserID      string    `json:"user_id"`
	OrgID       string    `json:"org_id"`
	CreatedAt   time.Time `json:"created_at"`
}
