package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Record is one item of a remote collection, kept as the raw JSON object
// the API returned. Fields are read with gjson paths ("client.name").
type Record struct {
	raw []byte
}

// NewRecord wraps raw JSON. The bytes are copied.
func NewRecord(raw []byte) Record {
	return Record{raw: append([]byte(nil), bytes.TrimSpace(raw)...)}
}

// MustRecord builds a Record from a Go value; it panics if v cannot be
// marshaled. Intended for fixtures and tests.
func MustRecord(v any) Record {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("catalog: marshal record: %v", err))
	}
	return Record{raw: raw}
}

// Get returns the value at path rendered as text. Strings come back
// unquoted, numbers and booleans in JSON form, objects and arrays as raw
// JSON. Missing values and null are "".
func (r Record) Get(path string) string {
	res := gjson.GetBytes(r.raw, path)
	switch res.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return res.Str
	default:
		return res.Raw
	}
}

// Has reports whether path exists in the record.
func (r Record) Has(path string) bool {
	return gjson.GetBytes(r.raw, path).Exists()
}

// IsObject reports whether the record is a JSON object.
func (r Record) IsObject() bool {
	return gjson.ParseBytes(r.raw).IsObject()
}

// Keys returns the top-level keys in document order.
func (r Record) Keys() []string {
	var keys []string
	gjson.ParseBytes(r.raw).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// Raw returns the underlying JSON. Callers must not modify it.
func (r Record) Raw() []byte { return r.raw }

// Pretty returns the record as indented JSON.
func (r Record) Pretty() string {
	if len(r.raw) == 0 {
		return "null"
	}
	return string(bytes.TrimRight(pretty.Pretty(r.raw), "\n"))
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("catalog: invalid record JSON")
	}
	r.raw = append(r.raw[:0], bytes.TrimSpace(data)...)
	return nil
}

// Records wraps a slice of raw JSON items.
func Records(raws []json.RawMessage) []Record {
	out := make([]Record, len(raws))
	for i, raw := range raws {
		out[i] = NewRecord(raw)
	}
	return out
}
