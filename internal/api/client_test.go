package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adamavenir/agora/internal/fakeapi"
	"github.com/adamavenir/agora/internal/types"
)

func newTestClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, StaticToken(token), Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://campus.example/", want: "https://campus.example"},
		{in: "  http://localhost:8080//  ", want: "http://localhost:8080"},
		{in: "campus.example", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeBaseURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalize %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("normalize %q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAPIErrorCarriesStatusAndCode(t *testing.T) {
	client := newTestClient(t, fakeapi.New(nil), "unknown")
	_, err := client.Conversations(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Code != "unauthorized" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestIsNotFound(t *testing.T) {
	srv, token := fakeapi.NewDemo(nil)
	client := newTestClient(t, srv, token)
	err := client.DeleteMessage(context.Background(), "msg-missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMalformedRecordsAreDroppedNotFatal(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"c1","type":"direct","participants":[{"id":"a","name":"A"},{"id":"b","name":"B"}],"lastMessage":{"content":"hi","timestamp":1700000000000,"senderId":"b"},"unreadCount":-3},
			{"id":"","type":"group","participants":[]},
			{"id":"c2","type":"direct","participants":[{"id":"a","name":"A"}]},
			"not an object",
			{"id":"c3","participants":[{"id":"a"},{"id":"b"},{"id":"c"},{"id":"a"}],"lastMessage":{"content":"yo","timestamp":"2024-01-02T03:04:05Z","senderId":"c"}}
		]`))
	})
	client := newTestClient(t, handler, "t")
	convs, err := client.Conversations(context.Background())
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 valid conversations, got %d", len(convs))
	}
	if convs[0].UnreadCount != 0 {
		t.Fatalf("negative unread should clamp to 0, got %d", convs[0].UnreadCount)
	}
	if !convs[0].LastMessage.Timestamp.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("epoch timestamp not parsed: %v", convs[0].LastMessage.Timestamp)
	}
	if convs[1].Type != types.ConversationGroup || len(convs[1].Participants) != 3 {
		t.Fatalf("expected inferred group with 3 members, got %+v", convs[1])
	}
}

func TestMessageDefaults(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"m1","senderId":"a","content":"x","type":"sticker","reactions":{"👍":["a","a",""],"":["b"]}},
			{"id":"m2","content":"no sender"}
		]`))
	})
	client := newTestClient(t, handler, "t")
	msgs, err := client.Messages(context.Background(), "c1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.ConversationID != "c1" || msg.Type != types.MessageTypeText {
		t.Fatalf("unexpected defaults: %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Fatalf("missing timestamp should default to now")
	}
	if len(msg.Reactions) != 1 || len(msg.Reactions["👍"]) != 1 {
		t.Fatalf("unexpected reactions: %+v", msg.Reactions)
	}
}

func TestSendAndReactRoundTrip(t *testing.T) {
	srv, token := fakeapi.NewDemo(nil)
	client := newTestClient(t, srv, token)
	ctx := context.Background()

	convs, err := client.Conversations(ctx)
	if err != nil || len(convs) == 0 {
		t.Fatalf("conversations: %v", err)
	}
	sent, err := client.SendMessage(ctx, convs[0].ID, SendMessageRequest{ClientID: "c-1", Content: "hello", Type: types.MessageTypeText})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.ID == "" || sent.SenderID != "u-ada" {
		t.Fatalf("unexpected sent message: %+v", sent)
	}
	reacted, err := client.SetReaction(ctx, sent.ID, "🎉", true)
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if !reacted.Reactions.Has("🎉", "u-ada") {
		t.Fatalf("expected reaction, got %+v", reacted.Reactions)
	}
	// Setting the same state twice is a no-op.
	reacted, err = client.SetReaction(ctx, sent.ID, "🎉", true)
	if err != nil || len(reacted.Reactions["🎉"]) != 1 {
		t.Fatalf("repeat react: %v %+v", err, reacted.Reactions)
	}
}

func TestRequestsCarryBearerAndIdempotencyKey(t *testing.T) {
	var auth, key string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		key = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, handler, "secret")
	if err := client.MarkRead(context.Background(), "c1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if key == "" {
		t.Fatalf("expected idempotency key on mutation")
	}
}
