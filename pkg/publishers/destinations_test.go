package publishers

import "testing"

func TestSanitizeDestinationDefaults(t *testing.T) {
	d := SanitizeDestination(Destination{
		Kind:    " Bluesky ",
		Bluesky: &BlueskyAccount{Username: " @alice.bsky.social ", Password: " pw "},
	})
	if d.Kind != KindBluesky {
		t.Fatalf("kind = %q", d.Kind)
	}
	if d.Bluesky.Username != "alice.bsky.social" || d.Bluesky.Password != "pw" {
		t.Fatalf("unexpected account %+v", d.Bluesky)
	}
	if d.Bluesky.Service != DefaultBlueskyService {
		t.Fatalf("service = %q", d.Bluesky.Service)
	}

	w := SanitizeDestination(Destination{
		Kind:    KindWebhook,
		Webhook: &WebhookEndpoint{URL: " https://hooks.example ", Headers: map[string]string{" ": "x", "X-A": " 1 "}},
	})
	if w.Webhook.Method != "POST" || w.Webhook.TimeoutSeconds != webhookDefaultTimeoutSeconds {
		t.Fatalf("webhook defaults not applied: %+v", w.Webhook)
	}
	if len(w.Webhook.Headers) != 1 || w.Webhook.Headers["X-A"] != "1" {
		t.Fatalf("headers = %v", w.Webhook.Headers)
	}
}

func TestAccountIDPerKind(t *testing.T) {
	tests := []struct {
		d    Destination
		want string
	}{
		{Destination{Kind: KindBluesky, Bluesky: &BlueskyAccount{Username: "alice"}}, "alice"},
		{Destination{Kind: KindMastodon, Mastodon: &MastodonAccount{APIBaseURL: "https://m.example"}}, "https://m.example"},
		{Destination{Kind: KindWebhook, Webhook: &WebhookEndpoint{URL: "https://h"}}, "https://h"},
		{Destination{Kind: KindSQS, SQS: &SQSQueue{QueueURL: "https://sqs/q"}}, "https://sqs/q"},
		{Destination{Kind: KindSNS, SNS: &SNSTopic{TopicARN: "arn:t"}}, "arn:t"},
		{Destination{Kind: KindPubSub, PubSub: &PubSubTopic{ProjectID: "p", Topic: "t"}}, "projects/p/topics/t"},
		{Destination{Kind: KindBluesky}, ""},
	}
	for _, tt := range tests {
		if got := tt.d.AccountID(); got != tt.want {
			t.Fatalf("%s AccountID = %q, want %q", tt.d.Kind, got, tt.want)
		}
	}
}

func TestValidateDestination(t *testing.T) {
	bad := []Destination{
		{},
		{Kind: "friendster"},
		{Kind: KindBluesky, Bluesky: &BlueskyAccount{Username: "alice"}},
		{Kind: KindMastodon, Mastodon: &MastodonAccount{APIBaseURL: "https://m.example"}},
		{Kind: KindMastodon},
		{Kind: KindSQS, SQS: &SQSQueue{QueueURL: "https://q"}},
		{Kind: KindSNS, SNS: &SNSTopic{TopicARN: "arn"}},
		{Kind: KindPubSub, PubSub: &PubSubTopic{ProjectID: "p"}},
		{Kind: KindWebhook, Webhook: &WebhookEndpoint{}},
	}
	for _, d := range bad {
		if err := ValidateDestination(d); err == nil {
			t.Fatalf("expected validation error for %+v", d)
		}
	}

	good := Destination{Kind: KindMastodon, Mastodon: &MastodonAccount{APIBaseURL: "https://m.example", AccessToken: "t"}}
	if err := ValidateDestination(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
