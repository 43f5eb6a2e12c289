package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
)

// UserLinkRepo implements outbound.UserLinkRepository using SQLite.
type UserLinkRepo struct {
	db *sql.DB
}

// NewUserLinkRepo creates a UserLinkRepo backed by the given store.
func NewUserLinkRepo(store *Store) *UserLinkRepo {
	return &UserLinkRepo{db: store.DB}
}

var _ outbound.UserLinkRepository = (*UserLinkRepo)(nil)

// Resolve looks up the internal identity for a Slack user. A missing row is
// found=false with a nil error: unlinked accounts are a normal state.
func (r *UserLinkRepo) Resolve(ctx context.Context, slackUserID, slackTeamID string) (model.UserLink, bool, error) {
	const q = `SELECT slack_user_id, slack_team_id, user_id, org_id, created_at
		FROM user_links WHERE slack_user_id = ? AND (slack_team_id = ? OR slack_team_id = '')
		ORDER BY slack_team_id DESC LIMIT 1`

	var link model.UserLink
	err := r.db.QueryRowContext(ctx, q, slackUserID, slackTeamID).Scan(
		&link.SlackUserID, &link.SlackTeamID, &link.UserID, &link.OrgID, &link.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserLink{}, false, nil
	}
	if err != nil {
		return model.UserLink{}, false, fmt.Errorf("resolving user link: %w", err)
	}
	return link, true, nil
}

// Upsert inserts or replaces the link for a Slack identity.
func (r *UserLinkRepo) Upsert(ctx context.Context, link model.UserLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO user_links (slack_user_id, slack_team_id, user_id, org_id, created_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT (slack_user_id, slack_team_id)
		DO UPDATE SET user_id = excluded.user_id, org_id = excluded.org_id`

	_, err := r.db.ExecContext(ctx, q,
		link.SlackUserID, link.SlackTeamID, link.UserID, link.OrgID, link.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting user link: %w", err)
	}
	return nil
}
