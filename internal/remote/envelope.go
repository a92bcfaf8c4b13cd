package remote

import (
	"github.com/tidwall/gjson"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

// Shape names the payload form a collection response arrived in.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeArray          // [ ... ]
	ShapeData           // {"success": true, "data": [ ... ]}
	ShapeKeyed          // {"success": true, "<key>": [ ... ]}
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeData:
		return "data"
	case ShapeKeyed:
		return "keyed"
	default:
		return "unknown"
	}
}

// normalize reduces every collection payload the API is known to send to
// a slice of records. success:false is an error; any other shape without
// a recognizable list is an empty collection.
func normalize(body []byte, key string) ([]catalog.Record, Shape, error) {
	if !gjson.ValidBytes(body) {
		return nil, ShapeUnknown, nil
	}
	doc := gjson.ParseBytes(body)
	if doc.IsArray() {
		return records(doc), ShapeArray, nil
	}
	if !doc.IsObject() {
		return nil, ShapeUnknown, nil
	}

	if ok := doc.Get("success"); ok.Exists() && !ok.Bool() {
		msg := doc.Get("message").String()
		if msg == "" {
			msg = doc.Get("error").String()
		}
		return nil, ShapeUnknown, &UnsuccessfulError{Message: msg}
	}

	if data := doc.Get("data"); data.IsArray() {
		return records(data), ShapeData, nil
	}
	if key != "" {
		if list := doc.Get(key); list.IsArray() {
			return records(list), ShapeKeyed, nil
		}
		if list := doc.Get("data." + key); list.IsArray() {
			return records(list), ShapeKeyed, nil
		}
	}
	return nil, ShapeUnknown, nil
}

func records(list gjson.Result) []catalog.Record {
	arr := list.Array()
	out := make([]catalog.Record, 0, len(arr))
	for _, item := range arr {
		out = append(out, catalog.NewRecord([]byte(item.Raw)))
	}
	return out
}

// decodeRecord reads a single-record response: a bare object with an id,
// or one wrapped in "data".
func decodeRecord(body []byte) (catalog.Record, bool) {
	if !gjson.ValidBytes(body) {
		return catalog.Record{}, false
	}
	doc := gjson.ParseBytes(body)
	if data := doc.Get("data"); data.IsObject() {
		return catalog.NewRecord([]byte(data.Raw)), true
	}
	if doc.IsObject() && doc.Get("id").Exists() {
		return catalog.NewRecord([]byte(doc.Raw)), true
	}
	return catalog.Record{}, false
}
