package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/inbound"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
)

// ---- fakes ----

// fakeApprovalRepo implements the same pending-only transition guard the
// sqlite repository enforces.
type fakeApprovalRepo struct {
	mu       sync.Mutex
	rows     map[string]model.Approval
	createFn func(model.Approval) error
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{rows: make(map[string]model.Approval)}
}

func (f *fakeApprovalRepo) Create(_ context.Context, a model.Approval) (model.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFn != nil {
		if err := f.createFn(a); err != nil {
			return model.Approval{}, err
		}
	}
	f.rows[a.ID] = a
	return a, nil
}

func (f *fakeApprovalRepo) GetByID(_ context.Context, id string) (model.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return model.Approval{}, model.ErrApprovalNotFound
	}
	return a, nil
}

func (f *fakeApprovalRepo) TransitionStatus(_ context.Context, id string, to model.ApprovalStatus, update outbound.TransitionUpdate) (model.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return model.Approval{}, model.ErrApprovalNotFound
	}
	if a.Status != model.ApprovalStatusPending {
		return model.Approval{}, model.ErrAlreadyActioned
	}
	a.Status = to
	a.ActionedBy = update.ActionedBy
	at := update.ActionedAt
	a.ActionedAt = &at
	if update.EditedContent != nil {
		a.EditedContent = update.EditedContent
	}
	a.Response = update.Response
	f.rows[id] = a
	return a, nil
}

func (f *fakeApprovalRepo) SetChatMessage(_ context.Context, id, teamID, channelID, messageTS string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return model.ErrApprovalNotFound
	}
	f.rows[id] = a.WithChatMessage(teamID, channelID, messageTS)
	return nil
}

func (f *fakeApprovalRepo) ExpireOverdue(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, a := range f.rows {
		if a.Status == model.ApprovalStatusPending && a.ExpiresAt.Before(cutoff) {
			a.Status = model.ApprovalStatusExpired
			f.rows[id] = a
			n++
		}
	}
	return n, nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	posted     []model.Approval
	updated    []model.Approval
	ephemerals []string
	postErr    error
}

func (f *fakeNotifier) PostApprovalCard(_ context.Context, a model.Approval) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", "", f.postErr
	}
	f.posted = append(f.posted, a)
	return "C-test", "1724.100", nil
}

func (f *fakeNotifier) UpdateApprovalCard(_ context.Context, a model.Approval, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, a)
	return nil
}

func (f *fakeNotifier) SendEphemeral(_ context.Context, _, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemerals = append(f.ephemerals, text)
	return nil
}

func (f *fakeNotifier) OpenEditModal(_ context.Context, _ string, _ model.Approval, _ []model.FormField) error {
	return nil
}

type dispatchRecord struct {
	approvalID string
	outcome    model.ApprovalStatus
	content    model.Document
}

type fakeCallbackSender struct {
	mu      sync.Mutex
	sent    []dispatchRecord
	sendErr error
}

func (f *fakeCallbackSender) Dispatch(_ context.Context, a model.Approval, outcome model.ApprovalStatus, content model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, dispatchRecord{approvalID: a.ID, outcome: outcome, content: content})
	return nil
}

func (f *fakeCallbackSender) dispatched() []dispatchRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatchRecord, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestService(repo *fakeApprovalRepo, notifier *fakeNotifier, callbacks *fakeCallbackSender) *ApprovalService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewApprovalService(repo, notifier, callbacks, logger, nil, time.Hour)
}

func seedPending(t *testing.T, repo *fakeApprovalRepo, rt model.ResourceType, content model.Document) model.Approval {
	t.Helper()
	a := model.NewApproval("org-1", rt, "res-1", content, time.Hour)
	a, err := repo.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("seeding approval: %v", err)
	}
	return a
}

// ---- Validate ----

func TestValidate(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := newTestService(repo, &fakeNotifier{}, &fakeCallbackSender{})
	seeded := seedPending(t, repo, model.ResourceSummary, model.Document{"content": "x"})

	got, err := svc.Validate(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if got.ID != seeded.ID {
		t.Errorf("expected approval %s, got %s", seeded.ID, got.ID)
	}
}

func TestValidate_NotFound(t *testing.T) {
	svc := newTestService(newFakeApprovalRepo(), &fakeNotifier{}, &fakeCallbackSender{})

	_, err := svc.Validate(context.Background(), "missing")
	if !errors.Is(err, model.ErrApprovalNotFound) {
		t.Errorf("expected ErrApprovalNotFound, got %v", err)
	}
}

func TestValidate_AlreadyActioned(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := newTestService(repo, &fakeNotifier{}, &fakeCallbackSender{})
	seeded := seedPending(t, repo, model.ResourceSummary, model.Document{})

	if _, err := svc.Approve(context.Background(), seeded, "user-1"); err != nil {
		t.Fatalf("Approve error: %v", err)
	}

	_, err := svc.Validate(context.Background(), seeded.ID)
	if !errors.Is(err, model.ErrAlreadyActioned) {
		t.Errorf("expected ErrAlreadyActioned, got %v", err)
	}
}

func TestValidate_Expired(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := newTestService(repo, &fakeNotifier{}, &fakeCallbackSender{})
	seeded := seedPending(t, repo, model.ResourceSummary, model.Document{})

	// Stored status still reads pending; expiry is evaluated lazily.
	svc.now = func() time.Time { return seeded.ExpiresAt.Add(time.Minute) }

	_, err := svc.Validate(context.Background(), seeded.ID)
	if !errors.Is(err, model.ErrApprovalExpired) {
		t.Errorf("expected ErrApprovalExpired, got %v", err)
	}
}

// ---- transitions ----

func TestApprove(t *testing.T) {
	repo := newFakeApprovalRepo()
	callbacks := &fakeCallbackSender{}
	svc := newTestService(repo, &fakeNotifier{}, callbacks)

	content := model.Document{"subject": "Hi", "body": "there"}
	seeded := seedPending(t, repo, model.ResourceEmailDraft, content)

	updated, err := svc.Approve(context.Background(), seeded, "user-7")
	if err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	if updated.Status != model.ApprovalStatusApproved {
		t.Errorf("expected approved, got %s", updated.Status)
	}
	if updated.ActionedBy != "user-7" {
		t.Errorf("expected actioned by user-7, got %s", updated.ActionedBy)
	}
	if updated.ActionedAt == nil {
		t.Error("expected ActionedAt to be set")
	}

	sent := callbacks.dispatched()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(sent))
	}
	if sent[0].outcome != model.ApprovalStatusApproved {
		t.Errorf("expected approved outcome, got %s", sent[0].outcome)
	}
	if sent[0].content.StringField("subject") != "Hi" {
		t.Error("expected callback to carry the original content")
	}
}

func TestReject_SendsOriginalContent(t *testing.T) {
	repo := newFakeApprovalRepo()
	callbacks := &fakeCallbackSender{}
	svc := newTestService(repo, &fakeNotifier{}, callbacks)

	seeded := seedPending(t, repo, model.ResourceFollowUp, model.Document{"content": "draft"})

	updated, err := svc.Reject(context.Background(), seeded, "user-7")
	if err != nil {
		t.Fatalf("Reject error: %v", err)
	}
	if updated.Status != model.ApprovalStatusRejected {
		t.Errorf("expected rejected, got %s", updated.Status)
	}

	sent := callbacks.dispatched()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(sent))
	}
	if sent[0].content.StringField("content") != "draft" {
		t.Error("expected rejection callback to carry the original content")
	}
}

func TestSubmitEdit(t *testing.T) {
	repo := newFakeApprovalRepo()
	callbacks := &fakeCallbackSender{}
	svc := newTestService(repo, &fakeNotifier{}, callbacks)

	seeded := seedPending(t, repo, model.ResourceEmailDraft, model.Document{"subject": "old", "body": "old body"})

	updated, err := svc.SubmitEdit(context.Background(), seeded, map[string]string{
		"subject": "new subject",
		"body":    "new body",
	}, "user-7")
	if err != nil {
		t.Fatalf("SubmitEdit error: %v", err)
	}
	if updated.Status != model.ApprovalStatusEdited {
		t.Errorf("expected edited, got %s", updated.Status)
	}
	if updated.EditedContent.StringField("subject") != "new subject" {
		t.Errorf("unexpected edited content: %v", updated.EditedContent)
	}
	if updated.OriginalContent.StringField("subject") != "old" {
		t.Error("original content must be preserved alongside the edit")
	}

	sent := callbacks.dispatched()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(sent))
	}
	if sent[0].content.StringField("body") != "new body" {
		t.Error("expected edit callback to carry the edited content")
	}
}

func TestApprove_CallbackFailureDoesNotUnwind(t *testing.T) {
	repo := newFakeApprovalRepo()
	callbacks := &fakeCallbackSender{sendErr: errors.New("target unreachable")}
	svc := newTestService(repo, &fakeNotifier{}, callbacks)

	seeded := seedPending(t, repo, model.ResourceSummary, model.Document{})

	updated, err := svc.Approve(context.Background(), seeded, "user-1")
	if err != nil {
		t.Fatalf("expected callback failure to be swallowed, got: %v", err)
	}
	if updated.Status != model.ApprovalStatusApproved {
		t.Errorf("expected transition to stand, got %s", updated.Status)
	}

	stored, err := repo.GetByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if stored.Status != model.ApprovalStatusApproved {
		t.Errorf("expected stored status approved, got %s", stored.Status)
	}
}

func TestApprove_ConcurrentDuplicates(t *testing.T) {
	repo := newFakeApprovalRepo()
	callbacks := &fakeCallbackSender{}
	svc := newTestService(repo, &fakeNotifier{}, callbacks)

	seeded := seedPending(t, repo, model.ResourceTaskList, model.Document{"tasks": []string{"a"}})

	const racers = 16
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(context.Background(), seeded, "user-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, model.ErrAlreadyActioned):
			losses++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly one winning transition, got %d", wins)
	}
	if losses != racers-1 {
		t.Errorf("expected %d losers, got %d", racers-1, losses)
	}
	if got := len(callbacks.dispatched()); got != 1 {
		t.Errorf("expected exactly one callback for %d duplicate clicks, got %d", racers, got)
	}
}

// ---- EditForm ----

func TestEditForm_UsesResourceCodec(t *testing.T) {
	svc := newTestService(newFakeApprovalRepo(), &fakeNotifier{}, &fakeCallbackSender{})

	a := model.Approval{
		ResourceType:    model.ResourceEmailDraft,
		OriginalContent: model.Document{"to": "x@example.com", "subject": "s", "body": "b"},
	}
	fields := svc.EditForm(a)
	if len(fields) != 3 {
		t.Fatalf("expected email form with 3 fields, got %d", len(fields))
	}

	a = model.Approval{ResourceType: model.ResourceCoachingTip, OriginalContent: model.Document{"content": "tip"}}
	fields = svc.EditForm(a)
	if len(fields) != 1 || fields[0].ID != "content" {
		t.Errorf("expected generic form, got %+v", fields)
	}
}

// ---- Create / Get ----

func TestCreate(t *testing.T) {
	repo := newFakeApprovalRepo()
	notifier := &fakeNotifier{}
	svc := newTestService(repo, notifier, &fakeCallbackSender{})

	created, err := svc.Create(context.Background(), inbound.CreateApprovalRequest{
		OrgID:        "org-1",
		UserID:       "u-9",
		ResourceType: model.ResourceEmailDraft,
		ResourceID:   "res-5",
		ResourceName: "Intro email",
		Content:      model.Document{"subject": "Hello"},
		CallbackType: model.CallbackWebhook,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.Status != model.ApprovalStatusPending {
		t.Errorf("expected pending, got %s", created.Status)
	}
	if created.ChannelID != "C-test" || created.MessageTS != "1724.100" {
		t.Errorf("expected card location recorded, got %s/%s", created.ChannelID, created.MessageTS)
	}
	if len(notifier.posted) != 1 {
		t.Errorf("expected one card posted, got %d", len(notifier.posted))
	}

	stored, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if stored.MessageTS != "1724.100" {
		t.Errorf("expected persisted message ts, got %q", stored.MessageTS)
	}
}

func TestCreate_UnknownResourceType(t *testing.T) {
	svc := newTestService(newFakeApprovalRepo(), &fakeNotifier{}, &fakeCallbackSender{})

	_, err := svc.Create(context.Background(), inbound.CreateApprovalRequest{
		OrgID:        "org-1",
		ResourceType: "blog_post",
		ResourceID:   "r",
	})
	if err == nil {
		t.Error("expected error for unknown resource type")
	}
}

func TestCreate_SurvivesFailedCardPost(t *testing.T) {
	repo := newFakeApprovalRepo()
	notifier := &fakeNotifier{postErr: errors.New("slack down")}
	svc := newTestService(repo, notifier, &fakeCallbackSender{})

	created, err := svc.Create(context.Background(), inbound.CreateApprovalRequest{
		OrgID:        "org-1",
		ResourceType: model.ResourceSummary,
		ResourceID:   "r",
		Content:      model.Document{"content": "x"},
	})
	if err != nil {
		t.Fatalf("expected create to survive card failure, got: %v", err)
	}

	if _, err := repo.GetByID(context.Background(), created.ID); err != nil {
		t.Errorf("expected record persisted despite card failure: %v", err)
	}
}

func TestCreate_DefaultTTL(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := newTestService(repo, &fakeNotifier{}, &fakeCallbackSender{})

	created, err := svc.Create(context.Background(), inbound.CreateApprovalRequest{
		OrgID:        "org-1",
		ResourceType: model.ResourceSummary,
		ResourceID:   "r",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	ttl := created.ExpiresAt.Sub(created.CreatedAt)
	if ttl != time.Hour {
		t.Errorf("expected service default TTL 1h, got %v", ttl)
	}
}
