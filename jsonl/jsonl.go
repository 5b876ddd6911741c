// Package jsonl decodes and encodes the per-line JSON documents that flow
// through PipelineDriver, extracting a single configurable text field
// while preserving every other field untouched, using json-iterator/go
// exactly as jsonbuilder does.
package jsonl

import (
	"encoding/json"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/faithful-dedup/corpus-dedup/jsonbuilder"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTextKey is the field name consumed by TextPrep when no
// --text-key flag overrides it.
const DefaultTextKey = "text"

// Document is one decoded JSONL record: every field is kept as raw JSON
// so passthrough fields round-trip byte-for-byte, plus the extracted text
// for the configured key. order records field emission order for Encode:
// the input's fields sorted by name, followed by any fields added via
// SetField in the order they were set.
type Document struct {
	Fields  map[string]jsoniter.RawMessage
	order   []string
	Text    string
	HasText bool
}

// Decode parses one JSONL line into a Document, extracting textKey as a
// string if present.
func Decode(line []byte, textKey string) (Document, error) {
	var fields map[string]jsoniter.RawMessage
	if err := jsonIter.Unmarshal(line, &fields); err != nil {
		return Document{}, fmt.Errorf("jsonl: decode: %w", err)
	}
	order := make([]string, 0, len(fields))
	for k := range fields {
		order = append(order, k)
	}
	sort.Strings(order)

	doc := Document{Fields: fields, order: order}
	if raw, ok := fields[textKey]; ok {
		var s string
		if err := jsonIter.Unmarshal(raw, &s); err != nil {
			return Document{}, fmt.Errorf("jsonl: decode text field %q: %w", textKey, err)
		}
		doc.Text = s
		doc.HasText = true
	}
	return doc, nil
}

// SetField sets key to v's JSON encoding, overwriting any existing field
// of that name. Newly introduced keys are appended to the end of the
// output document.
func (d *Document) SetField(key string, v any) error {
	raw, err := jsonIter.Marshal(v)
	if err != nil {
		return fmt.Errorf("jsonl: marshal field %q: %w", key, err)
	}
	if d.Fields == nil {
		d.Fields = make(map[string]jsoniter.RawMessage)
	}
	if _, exists := d.Fields[key]; !exists {
		d.order = append(d.order, key)
	}
	d.Fields[key] = raw
	return nil
}

// DeleteField removes key, used to strip the source text on request.
func (d *Document) DeleteField(key string) {
	if _, ok := d.Fields[key]; !ok {
		return
	}
	delete(d.Fields, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Encode serializes the document back to a single JSONL line, preserving
// field order via jsonbuilder.OrderedJSONObject rather than relying on
// map iteration order.
func (d *Document) Encode() ([]byte, error) {
	obj := jsonbuilder.NewObject()
	for _, key := range d.order {
		obj.Raw(key, json.RawMessage(d.Fields[key]))
	}
	out, err := jsonIter.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("jsonl: encode: %w", err)
	}
	return out, nil
}
