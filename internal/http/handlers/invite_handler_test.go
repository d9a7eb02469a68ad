package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/convoy-chat/go-backend/internal/domain"
	"github.com/convoy-chat/go-backend/internal/services"
)

func TestCreateInvite_ForwardsPresets(t *testing.T) {
	invites := stubInviteSvc{create: func(ctx context.Context, userID, groupID, expirationType, usesType string) (*domain.GroupInvite, error) {
		if expirationType != "1_day" || usesType != "10_uses" {
			t.Fatalf("presets = %q %q; want 1_day 10_uses", expirationType, usesType)
		}
		return &domain.GroupInvite{ID: "i-1", GroupID: groupID, Token: "invite_abc_1"}, nil
	}}
	h := newTestHandlers(nil, nil, nil, invites, nil)

	r := gin.New()
	r.POST("/groups/:groupId/invites", asUser("u-1"), h.CreateInvite)

	w := httptest.NewRecorder()
	body := `{"expiration":"1_day","maxUses":"10_uses"}`
	req := httptest.NewRequest(http.MethodPost, "/groups/g-1/invites", bytes.NewBufferString(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; want 201. body=%s", w.Code, w.Body.String())
	}
	var inv domain.GroupInvite
	if err := json.Unmarshal(w.Body.Bytes(), &inv); err != nil {
		t.Fatalf("json: %v", err)
	}
	if inv.Token == "" {
		t.Fatal("token missing from response")
	}
}

func TestCreateInvite_BadPreset(t *testing.T) {
	invites := stubInviteSvc{create: func(ctx context.Context, userID, groupID, expirationType, usesType string) (*domain.GroupInvite, error) {
		return nil, services.ErrInvalidExpiration
	}}
	h := newTestHandlers(nil, nil, nil, invites, nil)

	r := gin.New()
	r.POST("/groups/:groupId/invites", asUser("u-1"), h.CreateInvite)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/groups/g-1/invites", bytes.NewBufferString(`{"expiration":"2_centuries","maxUses":"unlimited"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
}

func TestValidateInvite_GoneStates(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"expired", services.ErrInviteExpired, ErrCodeInviteExpired},
		{"exhausted", services.ErrInviteExhausted, ErrCodeInviteExhausted},
		{"inactive", services.ErrInviteInactive, ErrCodeInviteInactive},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			invites := stubInviteSvc{validate: func(ctx context.Context, token string) (*services.InviteInfo, error) {
				return nil, tc.err
			}}
			h := newTestHandlers(nil, nil, nil, invites, nil)

			r := gin.New()
			r.GET("/invites/:token", h.ValidateInvite)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/invites/invite_dead_1", nil)
			r.ServeHTTP(w, req)

			if w.Code != http.StatusGone {
				t.Fatalf("status = %d; want 410", w.Code)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.wantCode {
				t.Fatalf("code = %q; want %q", er.Code, tc.wantCode)
			}
		})
	}
}

func TestUseInvite_Success(t *testing.T) {
	invites := stubInviteSvc{use: func(ctx context.Context, userID, token string) (string, error) {
		if userID != "u-9" || token != "invite_abc_1" {
			t.Fatalf("unexpected args: %q %q", userID, token)
		}
		return "g-1", nil
	}}
	h := newTestHandlers(nil, nil, nil, invites, nil)

	r := gin.New()
	r.POST("/invites/:token/join", asUser("u-9"), h.UseInvite)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invites/invite_abc_1/join", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200. body=%s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp["group_id"] != "g-1" {
		t.Fatalf("group_id = %q; want g-1", resp["group_id"])
	}
}

func TestUseInvite_AlreadyMember(t *testing.T) {
	invites := stubInviteSvc{use: func(ctx context.Context, userID, token string) (string, error) {
		return "", services.ErrAlreadyMember
	}}
	h := newTestHandlers(nil, nil, nil, invites, nil)

	r := gin.New()
	r.POST("/invites/:token/join", asUser("u-9"), h.UseInvite)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invites/invite_abc_1/join", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d; want 409", w.Code)
	}
}

func TestDeactivateInvite_OwnerOnly(t *testing.T) {
	invites := stubInviteSvc{deactivate: func(ctx context.Context, userID, inviteID string) error {
		return services.ErrNotGroupOwner
	}}
	h := newTestHandlers(nil, nil, nil, invites, nil)

	r := gin.New()
	r.DELETE("/invites/:inviteId", asUser("u-2"), h.DeactivateInvite)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/invites/i-1", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d; want 403", w.Code)
	}
}
