package ovc

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// Tree is a decoded OVC response: element names map to a nested Tree, a
// string (leaf text), or a []any when the element repeats.
type Tree map[string]any

// DecodeTree decodes an XML document into a Tree keyed by the root element.
// Attributes become "@name" keys and text mixed with child elements becomes
// "#text". Namespace prefixes are dropped.
func DecodeTree(r io.Reader) (Tree, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "ovc: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil, eris.New("ovc: empty document")
		}
		if err != nil {
			return nil, eris.Wrap(err, "ovc: read token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		value, err := decodeElement(decoder, se)
		if err != nil {
			return nil, err
		}
		return Tree{se.Name.Local: value}, nil
	}
}

// decodeElement consumes tokens up to the matching end element of se.
func decodeElement(decoder *xml.Decoder, se xml.StartElement) (any, error) {
	node := Tree{}
	for _, attr := range se.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		node["@"+attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, eris.Wrapf(err, "ovc: decode <%s>", se.Name.Local)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(decoder, t)
			if err != nil {
				return nil, err
			}
			node.add(t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			content := strings.TrimSpace(text.String())
			if len(node) == 0 {
				return content, nil
			}
			if content != "" {
				node["#text"] = content
			}
			return node, nil
		}
	}
}

// add stores a child, turning a repeated key into a sequence.
func (t Tree) add(key string, value any) {
	existing, ok := t[key]
	if !ok {
		t[key] = value
		return
	}
	if list, ok := existing.([]any); ok {
		t[key] = append(list, value)
		return
	}
	t[key] = []any{existing, value}
}

// Lookup returns the raw value at path.
func (t Tree) Lookup(path ...string) (any, bool) {
	var cur any = t
	for _, key := range path {
		m, ok := asTree(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether every key along path exists.
func (t Tree) Has(path ...string) bool {
	_, ok := t.Lookup(path...)
	return ok
}

// Map returns the Tree at path, or nil when the path is missing or does not
// hold an element with children. A nil Tree is safe to query further.
func (t Tree) Map(path ...string) Tree {
	v, ok := t.Lookup(path...)
	if !ok {
		return nil
	}
	m, _ := asTree(v)
	return m
}

// String returns the text at path, or "" when missing.
func (t Tree) String(path ...string) string {
	v, ok := t.Lookup(path...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case Tree:
		text, _ := s["#text"].(string)
		return text
	}
	return ""
}

// List returns the elements at path as a sequence of Trees. A single
// element yields a one-element slice; non-element entries are skipped.
func (t Tree) List(path ...string) []Tree {
	v, ok := t.Lookup(path...)
	if !ok {
		return nil
	}
	if m, ok := asTree(v); ok {
		return []Tree{m}
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Tree, 0, len(items))
	for _, item := range items {
		if m, ok := asTree(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func asTree(v any) (Tree, bool) {
	switch m := v.(type) {
	case Tree:
		return m, true
	case map[string]any:
		return Tree(m), true
	}
	return nil, false
}
