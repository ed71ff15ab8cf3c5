package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rss2social/rss2social/internal/domain"
)

func TestWebhookPublisherSuccess(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if h := r.Header.Get("X-Test"); h != "1" {
			t.Errorf("missing header, got %s", h)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := SanitizeDestination(Destination{
		Kind: KindWebhook,
		Webhook: &WebhookEndpoint{
			URL:            srv.URL,
			Headers:        map[string]string{"X-Test": "1"},
			TimeoutSeconds: 2,
		},
	})
	pub, err := newWebhookPublisher(context.Background(), d, Options{})
	if err != nil {
		t.Fatalf("newWebhookPublisher: %v", err)
	}
	if pub.AccountID() != srv.URL || pub.Kind() != KindWebhook {
		t.Fatalf("unexpected identity %s/%s", pub.Kind(), pub.AccountID())
	}

	post := domain.Post{Title: "Post A", Link: "https://x/1", Summary: "Body"}
	if err := pub.Publish(context.Background(), post); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.Text != "Post A - https://x/1" || got.Link != "https://x/1" || got.Summary != "Body" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestWebhookPublisherErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	pub, err := newWebhookPublisher(context.Background(), SanitizeDestination(Destination{
		Kind:    KindWebhook,
		Webhook: &WebhookEndpoint{URL: srv.URL, TimeoutSeconds: 1},
	}), Options{})
	if err != nil {
		t.Fatalf("newWebhookPublisher: %v", err)
	}

	if err := pub.Publish(context.Background(), domain.Post{}); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}
