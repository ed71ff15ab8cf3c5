package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rss2social/rss2social/pkg/publishers"
)

// Document is the feed and account configuration file (config.json by default).
type Document struct {
	RSSFeed  string                       `json:"rss_feed" yaml:"rss_feed"`
	Bluesky  []publishers.BlueskyAccount  `json:"bluesky" yaml:"bluesky"`
	Mastodon []publishers.MastodonAccount `json:"mastodon" yaml:"mastodon"`
	Webhook  []publishers.WebhookEndpoint `json:"webhook" yaml:"webhook"`
	SQS      []publishers.SQSQueue        `json:"sqs" yaml:"sqs"`
	SNS      []publishers.SNSTopic        `json:"sns" yaml:"sns"`
	PubSub   []publishers.PubSubTopic     `json:"pubsub" yaml:"pubsub"`
}

// LoadDocument reads and validates the document at path. YAML or JSON is picked by extension.
func LoadDocument(path string) (*Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	doc, err := parseDocument(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	doc.RSSFeed = strings.TrimSpace(doc.RSSFeed)
	if doc.RSSFeed == "" {
		return nil, errors.New("rss_feed is required")
	}
	if _, err := doc.Destinations(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func parseDocument(data []byte, ext string) (Document, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var doc Document
		if err := d.fn(data, &doc); err != nil {
			errs = append(errs, fmt.Errorf("decode %s config: %w", d.name, err))
			continue
		}
		return doc, nil
	}

	if len(errs) > 0 {
		return Document{}, errors.Join(errs...)
	}
	return Document{}, fmt.Errorf("config file format %q not recognized (expected YAML or JSON)", ext)
}

// Destinations flattens the document into sanitized, validated destinations in publishing
// order: bluesky, mastodon, webhook, sqs, sns, pubsub, each in document order.
func (d *Document) Destinations() ([]publishers.Destination, error) {
	if d == nil {
		return nil, errors.New("config document is nil")
	}

	var raw []publishers.Destination
	for i := range d.Bluesky {
		raw = append(raw, publishers.Destination{Kind: publishers.KindBluesky, Bluesky: &d.Bluesky[i]})
	}
	for i := range d.Mastodon {
		raw = append(raw, publishers.Destination{Kind: publishers.KindMastodon, Mastodon: &d.Mastodon[i]})
	}
	for i := range d.Webhook {
		raw = append(raw, publishers.Destination{Kind: publishers.KindWebhook, Webhook: &d.Webhook[i]})
	}
	for i := range d.SQS {
		raw = append(raw, publishers.Destination{Kind: publishers.KindSQS, SQS: &d.SQS[i]})
	}
	for i := range d.SNS {
		raw = append(raw, publishers.Destination{Kind: publishers.KindSNS, SNS: &d.SNS[i]})
	}
	for i := range d.PubSub {
		raw = append(raw, publishers.Destination{Kind: publishers.KindPubSub, PubSub: &d.PubSub[i]})
	}

	if len(raw) == 0 {
		return nil, errors.New("no destination accounts configured")
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]publishers.Destination, 0, len(raw))
	for i, dest := range raw {
		dest = publishers.SanitizeDestination(dest)
		if err := publishers.ValidateDestination(dest); err != nil {
			return nil, fmt.Errorf("destination[%d] (%s): %w", i, dest.Kind, err)
		}
		key := dest.String()
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("duplicate destination %s", key)
		}
		seen[key] = struct{}{}
		out = append(out, dest)
	}
	return out, nil
}
