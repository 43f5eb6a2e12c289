package sqlite_test

import (
	"context"
	"testing"

	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/outbound/persistence/sqlite"
	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
)

func TestUserLinkRepo_UpsertAndResolve(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewUserLinkRepo(store)
	ctx := context.Background()

	err := repo.Upsert(ctx, model.UserLink{
		SlackUserID: "U123",
		SlackTeamID: "T456",
		UserID:      "u-9",
		OrgID:       "org-1",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	link, found, err := repo.Resolve(ctx, "U123", "T456")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !found {
		t.Fatal("expected link to be found")
	}
	if link.UserID != "u-9" || link.OrgID != "org-1" {
		t.Errorf("unexpected link: %+v", link)
	}
	if link.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be populated")
	}
}

func TestUserLinkRepo_Resolve_NotLinked(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewUserLinkRepo(store)

	// Unlinked is a normal state, not an error.
	_, found, err := repo.Resolve(context.Background(), "U999", "T456")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if found {
		t.Error("expected found=false for unlinked user")
	}
}

func TestUserLinkRepo_Resolve_TeamWildcard(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewUserLinkRepo(store)
	ctx := context.Background()

	// A link stored without a team matches any team.
	if err := repo.Upsert(ctx, model.UserLink{SlackUserID: "U1", SlackTeamID: "", UserID: "u-any", OrgID: "org-1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	link, found, err := repo.Resolve(ctx, "U1", "T777")
	if err != nil || !found {
		t.Fatalf("Resolve: found=%v err=%v", found, err)
	}
	if link.UserID != "u-any" {
		t.Errorf("expected wildcard link, got %+v", link)
	}

	// A team-specific link wins over the wildcard.
	if err := repo.Upsert(ctx, model.UserLink{SlackUserID: "U1", SlackTeamID: "T777", UserID: "u-specific", OrgID: "org-1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	link, _, err = repo.Resolve(ctx, "U1", "T777")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if link.UserID != "u-specific" {
		t.Errorf("expected team-specific link to win, got %+v", link)
	}
}

func TestUserLinkRepo_Upsert_Overwrites(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewUserLinkRepo(store)
	ctx := context.Background()

	if err := repo.Upsert(ctx, model.UserLink{SlackUserID: "U1", SlackTeamID: "T1", UserID: "u-old", OrgID: "org-1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, model.UserLink{SlackUserID: "U1", SlackTeamID: "T1", UserID: "u-new", OrgID: "org-2"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	link, found, err := repo.Resolve(ctx, "U1", "T1")
	if err != nil || !found {
		t.Fatalf("Resolve: found=%v err=%v", found, err)
	}
	if link.UserID != "u-new" || link.OrgID != "org-2" {
		t.Errorf("expected overwritten link, got %+v", link)
	}
}
