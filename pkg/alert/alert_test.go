package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testNotification() *Notification {
	return &Notification{
		Title:      "1 new trending topic",
		Body:       "Music: rock",
		SnapshotTS: time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC),
		Topics: []Topic{
			{CategoryID: "10", CategoryName: "Music", Tag: "rock", Velocity: 3000, Volume: 170000, VideosCnt: 2, Freshness: 1},
		},
	}
}

func TestWebhookSignsBody(t *testing.T) {
	var (
		gotSig  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL, "s3cret").Send(context.Background(), testNotification()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotSig != "sha256="+Sign("s3cret", gotBody) {
		t.Errorf("signature %q does not match body", gotSig)
	}

	var decoded Notification
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Topics) != 1 || decoded.Topics[0].Tag != "rock" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestChatNotifiers(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := NewManager([]Notifier{NewSlack(srv.URL), NewDiscord(srv.URL)})
	if err := m.Broadcast(context.Background(), testNotification()); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("got %d requests, want 2", len(bodies))
	}
	for _, b := range bodies {
		if !strings.Contains(b, "#rock") {
			t.Errorf("payload %s does not mention the topic", b)
		}
	}
}

func TestBroadcastJoinsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewManager([]Notifier{NewSlack(srv.URL), NewWebhook(srv.URL, "")})
	err := m.Broadcast(context.Background(), testNotification())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "slack") || !strings.Contains(err.Error(), "webhook") {
		t.Errorf("error %q should name both notifiers", err)
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 2 {
		t.Errorf("error should join two failures: %v", err)
	}
}
