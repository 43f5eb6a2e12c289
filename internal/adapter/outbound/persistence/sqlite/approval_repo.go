package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
)

const approvalColumns = `id, org_id, user_id, created_by, actioned_by,
	resource_type, resource_id, resource_name,
	team_id, channel_id, message_ts, thread_ts,
	status, original_content, edited_content, response,
	callback_type, callback_target, callback_metadata, metadata,
	created_at, updated_at, expires_at, actioned_at`

// ApprovalRepo implements outbound.ApprovalRepository using SQLite.
type ApprovalRepo struct {
	db *sql.DB
}

// NewApprovalRepo creates an ApprovalRepo backed by the given store.
func NewApprovalRepo(store *Store) *ApprovalRepo {
	return &ApprovalRepo{db: store.DB}
}

var _ outbound.ApprovalRepository = (*ApprovalRepo)(nil)

// Create inserts a new approval row.
func (r *ApprovalRepo) Create(ctx context.Context, a model.Approval) (model.Approval, error) {
	original, err := marshalDocument(a.OriginalContent)
	if err != nil {
		return model.Approval{}, fmt.Errorf("marshaling original content: %w", err)
	}
	cbMeta, err := marshalDocument(a.CallbackMetadata)
	if err != nil {
		return model.Approval{}, fmt.Errorf("marshaling callback metadata: %w", err)
	}
	meta, err := marshalDocument(a.Metadata)
	if err != nil {
		return model.Approval{}, fmt.Errorf("marshaling metadata: %w", err)
	}

	const q = `INSERT INTO approvals
		(id, org_id, user_id, created_by, actioned_by,
		 resource_type, resource_id, resource_name,
		 team_id, channel_id, message_ts, thread_ts,
		 status, original_content, edited_content, response,
		 callback_type, callback_target, callback_metadata, metadata,
		 created_at, updated_at, expires_at, actioned_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

	_, err = r.db.ExecContext(ctx, q,
		a.ID, a.OrgID, a.UserID, a.CreatedBy, a.ActionedBy,
		string(a.ResourceType), a.ResourceID, a.ResourceName,
		a.TeamID, a.ChannelID, a.MessageTS, a.ThreadTS,
		string(a.Status), original, nullableDocument(a.EditedContent), nullableDocument(a.Response),
		string(a.CallbackType), a.CallbackTarget, cbMeta, meta,
		a.CreatedAt.UTC(), a.UpdatedAt.UTC(), a.ExpiresAt.UTC(), nullableTime(a.ActionedAt),
	)
	if err != nil {
		return model.Approval{}, fmt.Errorf("inserting approval: %w", err)
	}
	return a, nil
}

// GetByID fetches a single approval by primary key.
func (r *ApprovalRepo) GetByID(ctx context.Context, id string) (model.Approval, error) {
	q := `SELECT ` + approvalColumns + ` FROM approvals WHERE id = ?`

	row := r.db.QueryRowContext(ctx, q, id)
	a, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Approval{}, model.ErrApprovalNotFound
	}
	if err != nil {
		return model.Approval{}, fmt.Errorf("fetching approval: %w", err)
	}
	return a, nil
}

// TransitionStatus applies the pending-guarded terminal transition. The
// WHERE status='pending' clause is the whole concurrency story: of any
// number of racing callers, exactly one update reports a changed row.
func (r *ApprovalRepo) TransitionStatus(ctx context.Context, id string, to model.ApprovalStatus, update outbound.TransitionUpdate) (model.Approval, error) {
	response, err := marshalDocument(update.Response)
	if err != nil {
		return model.Approval{}, fmt.Errorf("marshaling response: %w", err)
	}

	const q = `UPDATE approvals
		SET status = ?,
		    actioned_by = ?,
		    actioned_at = ?,
		    edited_content = COALESCE(?, edited_content),
		    response = ?,
		    updated_at = ?
		WHERE id = ? AND status = 'pending'`

	res, err := r.db.ExecContext(ctx, q,
		string(to),
		update.ActionedBy,
		update.ActionedAt.UTC(),
		nullableDocument(update.EditedContent),
		response,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return model.Approval{}, fmt.Errorf("transitioning approval: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return model.Approval{}, fmt.Errorf("transitioning approval: %w", err)
	}
	if n == 0 {
		// Lost the race, or the row never existed. A follow-up read tells
		// the caller which.
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, model.ErrApprovalNotFound) {
			return model.Approval{}, model.ErrApprovalNotFound
		}
		return model.Approval{}, model.ErrAlreadyActioned
	}

	return r.GetByID(ctx, id)
}

// SetChatMessage records where the approval card was posted.
func (r *ApprovalRepo) SetChatMessage(ctx context.Context, id, teamID, channelID, messageTS string) error {
	const q = `UPDATE approvals SET team_id = ?, channel_id = ?, message_ts = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, teamID, channelID, messageTS, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("setting chat message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrApprovalNotFound
	}
	return nil
}

// ExpireOverdue bulk-flips overdue pending rows to expired. The status guard
// in the WHERE clause keeps the sweep from touching rows a concurrent click
// just resolved.
func (r *ApprovalRepo) ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `UPDATE approvals
		SET status = 'expired', updated_at = ?
		WHERE status = 'pending' AND expires_at < ?`

	res, err := r.db.ExecContext(ctx, q, time.Now().UTC(), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("expiring approvals: %w", err)
	}
	return res.RowsAffected()
}

// --- helpers ---

type approvalScanner interface {
	Scan(dest ...any) error
}

func scanApproval(s approvalScanner) (model.Approval, error) {
	var a model.Approval
	var resourceType, status, callbackType string
	var original, cbMeta, meta string
	var edited, response sql.NullString
	var actionedAt sql.NullTime

	err := s.Scan(
		&a.ID, &a.OrgID, &a.UserID, &a.CreatedBy, &a.ActionedBy,
		&resourceType, &a.ResourceID, &a.ResourceName,
		&a.TeamID, &a.ChannelID, &a.MessageTS, &a.ThreadTS,
		&status, &original, &edited, &response,
		&callbackType, &a.CallbackTarget, &cbMeta, &meta,
		&a.CreatedAt, &a.UpdatedAt, &a.ExpiresAt, &actionedAt,
	)
	if err != nil {
		return model.Approval{}, err
	}

	a.ResourceType = model.ResourceType(resourceType)
	a.Status = model.ApprovalStatus(status)
	a.CallbackType = model.CallbackType(callbackType)

	a.OriginalContent = unmarshalDocument(original)
	if edited.Valid {
		a.EditedContent = unmarshalDocument(edited.String)
	}
	if response.Valid {
		a.Response = unmarshalDocument(response.String)
	}
	a.CallbackMetadata = unmarshalDocument(cbMeta)
	a.Metadata = unmarshalDocument(meta)
	if actionedAt.Valid {
		t := actionedAt.Time
		a.ActionedAt = &t
	}
	return a, nil
}

func marshalDocument(d model.Document) (string, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullableDocument(d model.Document) any {
	if d == nil {
		return nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	return string(b)
}

func unmarshalDocument(raw string) model.Document {
	var d model.Document
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return model.Document{}
	}
	return d
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
