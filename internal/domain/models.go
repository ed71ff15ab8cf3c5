package domain

// Domain contains core models shared between the feed, normalizer, dispatcher and publishers.

// FeedEntry is a raw item as returned by the feed source. It is consumed within a run and
// never persisted. An empty Summary means the feed carried no summary.
type FeedEntry struct {
	Title            string
	Link             string
	Summary          string
	MediaContentURLs []string
	Enclosures       []Enclosure
}

// Enclosure is a typed link attached to a feed entry.
type Enclosure struct {
	URL  string
	Type string
}

// Post is the normalized, immutable form of a FeedEntry that publishers consume.
// An empty ImageURL means no image.
type Post struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Summary  string `json:"summary"`
	ImageURL string `json:"image_url,omitempty"`
}

// Message is the plain-text rendering used by text-only destinations.
func (p Post) Message() string {
	return p.Title + " - " + p.Link
}
