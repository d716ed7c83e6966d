package parser // import "jobimporter.app/internal/reader/parser"

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// decodeDocument decodes the root element of an XML document into its loose
// representation, keyed by the root element name.
func decodeDocument(r io.Reader) (map[string]any, error) {
	d := xml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("parser: document has no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("parser: malformed document: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			v, err := decodeElement(d, start)
			if err != nil {
				return nil, fmt.Errorf("parser: malformed document: %w", err)
			}
			return map[string]any{start.Name.Local: v}, nil
		}
	}
}

// decodeElement builds the loose value of one element:
//
//   - text-only element without attributes -> string
//   - element with attributes or children  -> map[string]any with the
//     attributes merged in and any character data under "_"
//   - repeated child name -> []any
//
// Namespaced names are keyed by their local part, so dc:creator becomes
// "creator".
func decodeElement(d *xml.Decoder, start xml.StartElement) (any, error) {
	var children map[string]any
	var text strings.Builder

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			v, err := decodeElement(d, t)
			if err != nil {
				return nil, err
			}
			if children == nil {
				children = make(map[string]any)
			}
			addChild(children, t.Name.Local, v)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if len(children) == 0 && len(start.Attr) == 0 {
				return s, nil
			}

			node := make(map[string]any, len(children)+len(start.Attr)+1)
			for _, attr := range start.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				node[attr.Name.Local] = attr.Value
			}
			for name, v := range children {
				node[name] = v
			}
			if s != "" {
				node["_"] = s
			}
			return node, nil
		}
	}
}

func addChild(m map[string]any, name string, v any) {
	prev, ok := m[name]
	if !ok {
		m[name] = v
		return
	}
	if list, ok := prev.([]any); ok {
		m[name] = append(list, v)
		return
	}
	m[name] = []any{prev, v}
}
