// Package decode converts Qualys wire payloads into nested Go mappings.
// JSON passes through the standard library; XML is folded into the same
// map[string]any shape so downstream record constructors never care which
// wire format an endpoint speaks. The decoder is pure and endpoint-agnostic.
package decode

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// JSON parses a JSON payload into nested maps and slices.
func JSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// XML parses an XML document into a nested mapping keyed by the root element
// name. Folding rules:
//   - element with children only: map keyed by child tag
//   - repeated child tags: []any of the per-element values
//   - attributes: keys prefixed "@"
//   - element with both attributes and text: text under "#text"
//   - element with text only: the text string itself
//
// Control characters outside whitespace are stripped first; the service
// occasionally emits invalid bytes inside CDATA.
func XML(data []byte) (map[string]any, error) {
	dec := xml.NewDecoder(bytes.NewReader(sanitize(data)))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("decode xml: no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			value, err := foldElement(dec, start)
			if err != nil {
				return nil, fmt.Errorf("decode xml: %w", err)
			}
			return map[string]any{start.Name.Local: value}, nil
		}
	}
}

// foldElement consumes the element opened by start and returns its folded
// value: a string for text-only elements, a map otherwise, nil when empty.
func foldElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	node := make(map[string]any)
	for _, attr := range start.Attr {
		node["@"+attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := foldElement(dec, t)
			if err != nil {
				return nil, err
			}
			merge(node, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			content := strings.TrimSpace(text.String())
			if len(node) == 0 {
				if content == "" {
					return nil, nil
				}
				return content, nil
			}
			if content != "" {
				node["#text"] = content
			}
			return node, nil
		}
	}
}

// merge stores a child value under tag, promoting repeated tags to a slice.
func merge(node map[string]any, tag string, value any) {
	existing, ok := node[tag]
	if !ok {
		node[tag] = value
		return
	}
	if list, isList := existing.([]any); isList {
		node[tag] = append(list, value)
		return
	}
	node[tag] = []any{existing, value}
}

// sanitize strips control characters outside tab, newline, and carriage
// return, which are the only control bytes XML 1.0 permits.
func sanitize(data []byte) []byte {
	clean := make([]byte, 0, len(data))
	for _, b := range data {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			continue
		}
		clean = append(clean, b)
	}
	return clean
}
