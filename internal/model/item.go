package model // import "jobimporter.app/internal/model"

// RawItem is the loosely decoded XML element a feed item came from. Values
// are strings, nested RawItem-shaped maps, or []any of those, so the whole
// tree round-trips through encoding/json unchanged.
type RawItem = map[string]any

// FeedItem is the canonical form of one feed item, produced by the
// normalizer. Empty string fields mean the feed did not supply the value.
// Raw is always present, even when every typed field is absent.
type FeedItem struct {
	ExternalID  string
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Raw         RawItem
}
