package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/convoy-chat/go-backend/internal/chat"
)

type wsDirectory struct{}

func (wsDirectory) FindUserByID(ctx context.Context, userID string) (chat.Identity, error) {
	return chat.Identity{}, errors.New("no directory in this test")
}

func newWSTestServer(t *testing.T, groups GroupService, allowedOrigins ...string) *httptest.Server {
	t.Helper()
	d := chat.NewDispatcher(chat.NewRegistry(), chat.NewIdentityCache(), wsDirectory{}, zerolog.Nop(), time.Second, 16)
	h := NewWSHandler(d, groups, zerolog.Nop(), allowedOrigins)

	r := gin.New()
	r.GET("/ws/chat/:groupId/:channelId", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestWSServe_RejectsMissingIdentity(t *testing.T) {
	srv := newWSTestServer(t, stubGroupSvc{})

	resp, err := http.Get(srv.URL + "/ws/chat/g-1/c-1?username=gopher")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", resp.StatusCode)
	}
}

func TestWSServe_RejectsNonMember(t *testing.T) {
	groups := stubGroupSvc{isMember: func(ctx context.Context, userID, groupID string) (bool, error) {
		return false, nil
	}}
	srv := newWSTestServer(t, groups)

	resp, err := http.Get(srv.URL + "/ws/chat/g-1/c-1?userId=u-1&username=gopher")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d; want 403", resp.StatusCode)
	}
}

func TestWSServe_MembershipCheckFailure(t *testing.T) {
	groups := stubGroupSvc{isMember: func(ctx context.Context, userID, groupID string) (bool, error) {
		return false, context.DeadlineExceeded
	}}
	srv := newWSTestServer(t, groups)

	resp, err := http.Get(srv.URL + "/ws/chat/g-1/c-1?userId=u-1&username=gopher")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", resp.StatusCode)
	}
}

func TestWSServe_OriginAllowlist(t *testing.T) {
	srv := newWSTestServer(t, stubGroupSvc{}, "https://app.example.com")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/g-1/c-1?userId=u-1&username=gopher"

	// A browser handshake from an unlisted origin is refused.
	hdr := http.Header{"Origin": []string{"https://evil.example.net"}}
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, hdr); err == nil {
		t.Fatal("dial from unlisted origin succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unlisted origin response = %+v; want 403", resp)
	}

	// The listed origin connects; the match is case-insensitive.
	hdr = http.Header{"Origin": []string{"https://APP.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	if err != nil {
		t.Fatalf("dial from listed origin: %v", err)
	}
	conn.Close()

	// Non-browser clients send no Origin header and are not blocked.
	conn, _, err = websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial without origin: %v", err)
	}
	conn.Close()
}

func TestWSServe_RoundTrip(t *testing.T) {
	srv := newWSTestServer(t, stubGroupSvc{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/g-1/c-1?userId=u-1&username=gopher"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// First frame is the room history, empty for a fresh room.
	var hist struct {
		Type     string            `json:"type"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := conn.ReadJSON(&hist); err != nil {
		t.Fatalf("read history: %v", err)
	}
	if hist.Type != "history" {
		t.Fatalf("first frame type = %q; want history", hist.Type)
	}
	if len(hist.Messages) != 0 {
		t.Fatalf("fresh room history = %d messages; want 0", len(hist.Messages))
	}

	if err := conn.WriteJSON(map[string]string{"message": "hello room"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var live struct {
		Type string `json:"type"`
		Data struct {
			Username string `json:"username"`
			Message  string `json:"message"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&live); err != nil {
		t.Fatalf("read live: %v", err)
	}
	if live.Type != "message" || live.Data.Message != "hello room" || live.Data.Username != "gopher" {
		t.Fatalf("unexpected live frame: %+v", live)
	}
}
