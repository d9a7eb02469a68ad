package services

import (
	"context"
	"errors"
	"testing"

	"github.com/convoy-chat/go-backend/internal/repo"
)

func TestFindUserByID(t *testing.T) {
	db := newTestDB(t)
	s := &UserService{DB: db}
	ctx := context.Background()

	u := seedUser(t, db, "ana", "ana@example.com")

	id, err := s.FindUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindUserByID: %v", err)
	}
	if id.UserID != u.ID || id.Username != "ana" || id.Email != "ana@example.com" {
		t.Fatalf("identity = %+v", id)
	}

	if _, err := s.FindUserByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user err = %v; want ErrUserNotFound", err)
	}
}

func TestFindUserByID_CarriesAvatar(t *testing.T) {
	db := newTestDB(t)
	s := &UserService{DB: db}
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, db, "ana", "ana@example.com", "x", "https://cdn.example.com/ana.png")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	id, err := s.FindUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindUserByID: %v", err)
	}
	if id.AvatarURL != "https://cdn.example.com/ana.png" {
		t.Fatalf("identity avatar = %q; want stored avatar", id.AvatarURL)
	}
}

func TestProfile(t *testing.T) {
	db := newTestDB(t)
	s := &UserService{DB: db}
	ctx := context.Background()

	u := seedUser(t, db, "ana", "ana@example.com")
	p, err := s.Profile(ctx, u.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.ID != u.ID || p.Username != "ana" {
		t.Fatalf("profile = %+v", p)
	}

	if _, err := s.Profile(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing profile err = %v; want ErrUserNotFound", err)
	}
}
