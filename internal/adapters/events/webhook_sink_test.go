package events

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dienynas/attendapi/internal/core/domain"
)

func TestWebhookSinkSignsAndDelivers(t *testing.T) {
	var (
		gotBody      []byte
		gotSignature string
		gotEventName string
		gotType      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		gotBody, err = io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		gotSignature = r.Header.Get("X-Hub-Signature-256")
		gotEventName = r.Header.Get("X-Attendapi-Event")
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "wh-secret", time.Second)
	event := domain.Event{
		Name:        domain.EventCheckIn,
		Payload:     map[string]any{"userId": int64(42), "date": "2024-03-01"},
		PublishedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	if err := sink.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if gotType != "application/json" {
		t.Fatalf("unexpected content type %q", gotType)
	}
	if gotEventName != domain.EventCheckIn {
		t.Fatalf("unexpected event header %q", gotEventName)
	}

	mac := hmac.New(sha256.New, []byte("wh-secret"))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSignature != want {
		t.Fatalf("signature mismatch: got %q want %q", gotSignature, want)
	}

	var body webhookBody
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Event != domain.EventCheckIn {
		t.Fatalf("unexpected body event %q", body.Event)
	}
	if body.Payload["date"] != "2024-03-01" {
		t.Fatalf("unexpected body payload: %v", body.Payload)
	}
	if !body.PublishedAt.Equal(event.PublishedAt) {
		t.Fatalf("unexpected published_at %v", body.PublishedAt)
	}
}

func TestWebhookSinkReportsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "wh-secret", time.Second)
	err := sink.Handle(context.Background(), domain.Event{Name: domain.EventCheckOut})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
