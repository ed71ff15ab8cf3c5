package publishers

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a destination platform. It is also the platform key in the ledger.
type Kind string

const (
	// Supported destination kinds.
	KindBluesky  Kind = "bluesky"
	KindMastodon Kind = "mastodon"
	KindWebhook  Kind = "webhook"
	KindSQS      Kind = "sqs"
	KindSNS      Kind = "sns"
	KindPubSub   Kind = "pubsub"

	DefaultBlueskyService = "https://bsky.social"

	webhookDefaultMethod         = "POST"
	webhookDefaultTimeoutSeconds = 5
)

// BlueskyAccount is a Bluesky handle with an app password.
type BlueskyAccount struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Service  string `json:"service" yaml:"service"`
}

// MastodonAccount is an instance base URL with an access token.
type MastodonAccount struct {
	APIBaseURL  string `json:"api_base_url" yaml:"api_base_url"`
	AccessToken string `json:"access_token" yaml:"access_token"`
}

// WebhookEndpoint holds generic HTTP sink settings.
type WebhookEndpoint struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// SQSQueue holds AWS SQS specific settings.
type SQSQueue struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
}

// SNSTopic holds AWS SNS specific settings.
type SNSTopic struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
}

// PubSubTopic holds Google Cloud Pub/Sub settings.
type PubSubTopic struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Topic     string `json:"topic" yaml:"topic"`
}

// Destination is one configured account. Exactly one of the account fields matches Kind.
type Destination struct {
	Kind     Kind
	Bluesky  *BlueskyAccount
	Mastodon *MastodonAccount
	Webhook  *WebhookEndpoint
	SQS      *SQSQueue
	SNS      *SNSTopic
	PubSub   *PubSubTopic
}

// AccountID returns the identifier under which the ledger records this destination.
func (d Destination) AccountID() string {
	switch d.Kind {
	case KindBluesky:
		if d.Bluesky != nil {
			return d.Bluesky.Username
		}
	case KindMastodon:
		if d.Mastodon != nil {
			return d.Mastodon.APIBaseURL
		}
	case KindWebhook:
		if d.Webhook != nil {
			return d.Webhook.URL
		}
	case KindSQS:
		if d.SQS != nil {
			return d.SQS.QueueURL
		}
	case KindSNS:
		if d.SNS != nil {
			return d.SNS.TopicARN
		}
	case KindPubSub:
		if d.PubSub != nil {
			return fmt.Sprintf("projects/%s/topics/%s", d.PubSub.ProjectID, d.PubSub.Topic)
		}
	}
	return ""
}

// String is used in logs; it never includes credentials.
func (d Destination) String() string {
	return string(d.Kind) + ":" + d.AccountID()
}

// SanitizeDestination trims and normalizes the destination fields.
func SanitizeDestination(d Destination) Destination {
	d.Kind = Kind(strings.ToLower(strings.TrimSpace(string(d.Kind))))

	if d.Bluesky != nil {
		c := *d.Bluesky
		c.Username = strings.TrimPrefix(strings.TrimSpace(c.Username), "@")
		c.Password = strings.TrimSpace(c.Password)
		c.Service = strings.TrimRight(strings.TrimSpace(c.Service), "/")
		if c.Service == "" {
			c.Service = DefaultBlueskyService
		}
		d.Bluesky = &c
	}
	if d.Mastodon != nil {
		c := *d.Mastodon
		c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
		c.AccessToken = strings.TrimSpace(c.AccessToken)
		d.Mastodon = &c
	}
	if d.Webhook != nil {
		c := *d.Webhook
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = webhookDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = webhookDefaultTimeoutSeconds
		}
		d.Webhook = &c
	}
	if d.SQS != nil {
		c := *d.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		d.SQS = &c
	}
	if d.SNS != nil {
		c := *d.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		d.SNS = &c
	}
	if d.PubSub != nil {
		c := *d.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		d.PubSub = &c
	}

	return d
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ValidateDestination checks that required fields are present.
func ValidateDestination(d Destination) error {
	switch d.Kind {
	case KindBluesky:
		if d.Bluesky == nil {
			return errors.New("bluesky account missing")
		}
		if d.Bluesky.Username == "" || d.Bluesky.Password == "" {
			return fmt.Errorf("bluesky username and password are required")
		}
	case KindMastodon:
		if d.Mastodon == nil {
			return errors.New("mastodon account missing")
		}
		if d.Mastodon.APIBaseURL == "" {
			return fmt.Errorf("mastodon api_base_url is required")
		}
		if d.Mastodon.AccessToken == "" {
			return fmt.Errorf("mastodon access_token is required for %q", d.Mastodon.APIBaseURL)
		}
	case KindWebhook:
		if d.Webhook == nil || d.Webhook.URL == "" {
			return errors.New("webhook url is required")
		}
	case KindSQS:
		if d.SQS == nil || d.SQS.QueueURL == "" {
			return errors.New("sqs uri is required")
		}
		if d.SQS.Region == "" {
			return fmt.Errorf("sqs region is required for %q", d.SQS.QueueURL)
		}
	case KindSNS:
		if d.SNS == nil || d.SNS.TopicARN == "" {
			return errors.New("sns topic_arn is required")
		}
		if d.SNS.Region == "" {
			return fmt.Errorf("sns region is required for %q", d.SNS.TopicARN)
		}
	case KindPubSub:
		if d.PubSub == nil || d.PubSub.ProjectID == "" || d.PubSub.Topic == "" {
			return errors.New("pubsub project_id and topic are required")
		}
	case "":
		return errors.New("kind is required")
	default:
		return fmt.Errorf("unsupported destination kind %q", d.Kind)
	}
	return nil
}
