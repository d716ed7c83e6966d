// Package parser turns heterogeneous job feeds (RSS, Atom, generic XML)
// into a uniform sequence of raw items. Unrecognized but well-formed
// documents yield an empty sequence, not an error.
package parser // import "jobimporter.app/internal/reader/parser"

import (
	"io"

	"jobimporter.app/internal/model"
)

// Format is the detected feed flavor.
type Format int

const (
	FormatUnknown Format = iota
	FormatRSS
	FormatAtom
	FormatGeneric
)

func (f Format) String() string {
	switch f {
	case FormatRSS:
		return "rss"
	case FormatAtom:
		return "atom"
	case FormatGeneric:
		return "generic"
	}
	return "unknown"
}

// Parse decodes an XML feed and returns its raw items in document order.
// A malformed document is an error; a well-formed document of an unknown
// shape returns no items.
func Parse(r io.Reader) ([]model.RawItem, error) {
	doc, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}
	_, items := DetectFormat(doc)
	return items, nil
}

// DetectFormat inspects a decoded document and extracts its item sequence:
// rss.channel.item, feed.entry, or item/job/jobs at the document root.
func DetectFormat(doc map[string]any) (Format, []model.RawItem) {
	if rss, ok := doc["rss"].(map[string]any); ok {
		if channel, ok := rss["channel"].(map[string]any); ok {
			return FormatRSS, asItems(channel["item"])
		}
		return FormatRSS, nil
	}

	if feed, ok := doc["feed"].(map[string]any); ok {
		return FormatAtom, asItems(feed["entry"])
	}

	for _, name := range []string{"item", "job", "jobs"} {
		v, ok := doc[name]
		if !ok {
			continue
		}
		// A plural wrapper element nests the actual items one level down.
		if wrapper, ok := v.(map[string]any); ok {
			for _, inner := range []string{"job", "item"} {
				if nested, ok := wrapper[inner]; ok {
					return FormatGeneric, asItems(nested)
				}
			}
		}
		return FormatGeneric, asItems(v)
	}

	return FormatUnknown, nil
}

// asItems normalizes a decoded value to a slice of raw items: a single
// element and a sequence of elements are both accepted, and a bare text
// node is wrapped so its content survives as "_".
func asItems(v any) []model.RawItem {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		items := make([]model.RawItem, 0, len(t))
		for _, el := range t {
			if item := asItem(el); item != nil {
				items = append(items, item)
			}
		}
		return items
	default:
		if item := asItem(v); item != nil {
			return []model.RawItem{item}
		}
		return nil
	}
}

func asItem(v any) model.RawItem {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		if t == "" {
			return nil
		}
		return model.RawItem{"_": t}
	}
	return nil
}
