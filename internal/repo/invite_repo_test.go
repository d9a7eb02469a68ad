package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/convoy-chat/go-backend/internal/domain"
)

func TestInviteRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, db, "owner", "owner@example.com", "h", "")
	g, _ := CreateGroup(ctx, db, owner.ID, "g", "", "")

	maxUses := 5
	inv, err := CreateInvite(ctx, db, &domain.GroupInvite{
		GroupID:        g.ID,
		CreatedBy:      owner.ID,
		Token:          "invite_abc123def456_1700000000000",
		ExpiresAt:      time.Now().Add(time.Hour).UTC(),
		ExpirationType: "1h",
		MaxUses:        &maxUses,
		UsesType:       "5",
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}
	if inv.ID == "" || inv.CreatedAt.IsZero() {
		t.Fatalf("CreateInvite did not fill defaults: %+v", inv)
	}

	byToken, err := GetInviteByToken(ctx, db, inv.Token)
	if err != nil {
		t.Fatalf("GetInviteByToken: %v", err)
	}
	if byToken.ID != inv.ID {
		t.Fatalf("GetInviteByToken = %q; want %q", byToken.ID, inv.ID)
	}

	byID, err := GetInvite(ctx, db, inv.ID)
	if err != nil {
		t.Fatalf("GetInvite: %v", err)
	}
	if byID.MaxUses == nil || *byID.MaxUses != 5 {
		t.Fatalf("MaxUses round-trip = %v; want 5", byID.MaxUses)
	}

	if _, err := GetInviteByToken(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetInviteByToken(missing) err = %v; want ErrNotFound", err)
	}
}

func TestIncrementInviteUses_StopsAtCap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, db, "owner", "owner@example.com", "h", "")
	g, _ := CreateGroup(ctx, db, owner.ID, "g", "", "")

	maxUses := 2
	inv, err := CreateInvite(ctx, db, &domain.GroupInvite{
		GroupID:        g.ID,
		CreatedBy:      owner.ID,
		Token:          "invite_capcapcapcap_1700000000001",
		ExpiresAt:      time.Now().Add(time.Hour).UTC(),
		ExpirationType: "1h",
		MaxUses:        &maxUses,
		UsesType:       "2",
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	if err := IncrementInviteUses(ctx, db, inv.ID); err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if err := IncrementInviteUses(ctx, db, inv.ID); err != nil {
		t.Fatalf("second increment: %v", err)
	}
	if err := IncrementInviteUses(ctx, db, inv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("increment past cap err = %v; want ErrNotFound", err)
	}

	got, _ := GetInvite(ctx, db, inv.ID)
	if got.UsesCount != 2 {
		t.Fatalf("UsesCount = %d; want 2", got.UsesCount)
	}
	if !got.Exhausted() {
		t.Fatalf("invite with UsesCount == MaxUses should be exhausted: %+v", got)
	}
}

func TestIncrementInviteUses_UnlimitedNeverExhausts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, db, "owner", "owner@example.com", "h", "")
	g, _ := CreateGroup(ctx, db, owner.ID, "g", "", "")

	inv, err := CreateInvite(ctx, db, &domain.GroupInvite{
		GroupID:        g.ID,
		CreatedBy:      owner.ID,
		Token:          "invite_unlimited123_1700000000002",
		ExpiresAt:      time.Now().Add(time.Hour).UTC(),
		ExpirationType: "1h",
		MaxUses:        nil,
		UsesType:       "unlimited",
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := IncrementInviteUses(ctx, db, inv.ID); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	got, _ := GetInvite(ctx, db, inv.ID)
	if got.UsesCount != 10 || got.Exhausted() {
		t.Fatalf("unlimited invite after 10 uses: %+v", got)
	}
}

func TestDeactivateInvite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, db, "owner", "owner@example.com", "h", "")
	g, _ := CreateGroup(ctx, db, owner.ID, "g", "", "")

	inv, err := CreateInvite(ctx, db, &domain.GroupInvite{
		GroupID:        g.ID,
		CreatedBy:      owner.ID,
		Token:          "invite_deactivate12_1700000000003",
		ExpiresAt:      time.Now().Add(time.Hour).UTC(),
		ExpirationType: "1h",
		UsesType:       "unlimited",
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	if err := DeactivateInvite(ctx, db, inv.ID); err != nil {
		t.Fatalf("DeactivateInvite: %v", err)
	}
	got, _ := GetInvite(ctx, db, inv.ID)
	if got.IsActive {
		t.Fatalf("invite still active after deactivation: %+v", got)
	}

	if err := DeactivateInvite(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeactivateInvite(missing) err = %v; want ErrNotFound", err)
	}
}

func TestListGroupInvites_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, db, "owner", "owner@example.com", "h", "")
	g, _ := CreateGroup(ctx, db, owner.ID, "g", "", "")

	base := time.Now().Add(-time.Hour).UTC()
	for i := 0; i < 3; i++ {
		_, err := CreateInvite(ctx, db, &domain.GroupInvite{
			GroupID:        g.ID,
			CreatedBy:      owner.ID,
			Token:          "invite_list" + string(rune('a'+i)) + "0000000_170000000000" + string(rune('4'+i)),
			ExpiresAt:      time.Now().Add(time.Hour).UTC(),
			ExpirationType: "1h",
			UsesType:       "unlimited",
			IsActive:       true,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateInvite %d: %v", i, err)
		}
	}

	invites, err := ListGroupInvites(ctx, db, g.ID)
	if err != nil {
		t.Fatalf("ListGroupInvites: %v", err)
	}
	if len(invites) != 3 {
		t.Fatalf("len = %d; want 3", len(invites))
	}
	for i := 1; i < len(invites); i++ {
		if invites[i].CreatedAt.Before(invites[i-1].CreatedAt) {
			t.Fatalf("invites not ordered oldest first: %v then %v", invites[i-1].CreatedAt, invites[i].CreatedAt)
		}
	}
}
