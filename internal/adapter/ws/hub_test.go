package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/nextup/internal/domain/user"
	"github.com/Strob0t/nextup/internal/middleware"
	"github.com/Strob0t/nextup/internal/port/broadcast"
)

var _ broadcast.Broadcaster = (*Hub)(nil)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubSendNoConnections(t *testing.T) {
	hub := NewHub(nil)
	hub.Send(context.Background(), "u1", Message{Type: "test", Payload: []byte(`{"key":"value"}`)})
}

func TestHubSendToUserMarshalError(t *testing.T) {
	hub := NewHub(nil)
	// A channel cannot be marshaled to JSON; should log, not panic.
	hub.SendToUser(context.Background(), "u1", "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub(nil)
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.remove(&conn{cancel: cancel, userID: "u1"})
}

func TestHandleWSRequiresUser(t *testing.T) {
	hub := NewHub(nil)
	rec := httptest.NewRecorder()
	hub.HandleWS(rec, httptest.NewRequest(http.MethodGet, "/ws", http.NoBody))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func withUser(id string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.AuthUserCtxKeyForTest(), &user.User{ID: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestHubRoutesToOwnerOnly(t *testing.T) {
	hub := NewHub(nil)
	alice := httptest.NewServer(withUser("alice", http.HandlerFunc(hub.HandleWS)))
	defer alice.Close()
	bob := httptest.NewServer(withUser("bob", http.HandlerFunc(hub.HandleWS)))
	defer bob.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ca, _, err := websocket.Dial(ctx, alice.URL, nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer func() { _ = ca.CloseNow() }()
	cb, _, err := websocket.Dial(ctx, bob.URL, nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer func() { _ = cb.CloseNow() }()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := hub.ConnectionCount(); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}

	hub.SendToUser(ctx, "alice", "todos.updated", map[string]string{"todo_id": "t1"})

	_, data, err := ca.Read(ctx)
	if err != nil {
		t.Fatalf("alice read: %v", err)
	}
	if want := `{"type":"todos.updated","payload":{"todo_id":"t1"}}`; string(data) != want {
		t.Fatalf("alice got %s, want %s", data, want)
	}

	rctx, rcancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer rcancel()
	if _, _, err := cb.Read(rctx); err == nil {
		t.Fatal("bob should not receive alice's event")
	}
}
