// Package normalizer maps raw feed items onto the canonical FeedItem.
// Normalization never fails: absent or ambiguous fields stay empty and the
// raw payload is retained verbatim for audit.
package normalizer // import "jobimporter.app/internal/reader/normalizer"

import (
	"encoding/json"

	"jobimporter.app/internal/model"
)

const maxFallbackIDLen = 50

// Normalize converts one raw item into a FeedItem. The external id is
// derived with a fallback chain, so it is only empty when the raw item
// cannot be serialized at all.
func Normalize(raw model.RawItem) model.FeedItem {
	if raw == nil {
		raw = model.RawItem{}
	}
	return model.FeedItem{
		ExternalID:  externalID(raw),
		Title:       textValue(raw["title"]),
		Company:     firstValue(raw, "company", "author", "creator"),
		Location:    firstValue(raw, "location", "job_location"),
		Description: firstValue(raw, "description", "content", "summary"),
		URL:         linkValue(raw["link"]),
		Raw:         raw,
	}
}

// externalID picks the dedupe key: guid, id, link, title, then a bounded
// serialization of the whole item as a deterministic last resort.
func externalID(raw model.RawItem) string {
	for _, name := range []string{"guid", "id"} {
		if s := textValue(raw[name]); s != "" {
			return s
		}
	}
	if s := linkValue(raw["link"]); s != "" {
		return s
	}
	if s := textValue(raw["title"]); s != "" {
		return s
	}
	return fallbackID(raw)
}

func fallbackID(raw model.RawItem) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	if len(b) > maxFallbackIDLen {
		b = b[:maxFallbackIDLen]
	}
	return string(b)
}

func firstValue(raw model.RawItem, names ...string) string {
	for _, name := range names {
		if s := textValue(raw[name]); s != "" {
			return s
		}
	}
	return ""
}

// textValue unwraps a decoded value to its text: either a plain string or
// a structured node carrying its character data under "_".
func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["_"].(string); ok {
			return s
		}
	}
	return ""
}

// linkValue unwraps a link that may be plain text, an Atom-style element
// with an href attribute, or a sequence of such elements.
func linkValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["href"].(string); ok && s != "" {
			return s
		}
		if s, ok := t["_"].(string); ok {
			return s
		}
	case []any:
		for _, el := range t {
			if s := linkValue(el); s != "" {
				return s
			}
		}
	}
	return ""
}
