package survey

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// recordAttrs keeps what the typed model does not own: attributes it has
// no field for, and which named attributes were present in the source.
// Together they let a record be written back without losing anything.
type recordAttrs struct {
	extra   map[string]json.RawMessage
	present map[string]struct{}
}

// Extra returns the raw value of an attribute the model does not name.
func (a *recordAttrs) Extra(key string) (json.RawMessage, bool) {
	raw, ok := a.extra[key]
	return raw, ok
}

// ExtraKeys returns the number of unmodelled attributes.
func (a *recordAttrs) ExtraKeys() int {
	return len(a.extra)
}

// forget drops a named attribute from the output even if it was present in the source.
func (a *recordAttrs) forget(key string) {
	delete(a.present, key)
}

var knownKeyCache sync.Map // reflect.Type -> map[string]struct{}

// knownKeys returns the JSON names of the exported fields of struct type t.
func knownKeys(t reflect.Type) map[string]struct{} {
	if cached, ok := knownKeyCache.Load(t); ok {
		return cached.(map[string]struct{})
	}

	keys := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		keys[name] = struct{}{}
	}

	knownKeyCache.Store(t, keys)
	return keys
}

// decodeRecord unmarshals data into the typed fields of v (a pointer to a
// method-free alias of the record type) and stores the rest in attrs.
func decodeRecord(data []byte, v any, attrs *recordAttrs) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	known := knownKeys(reflect.TypeOf(v).Elem())
	attrs.extra = nil
	attrs.present = make(map[string]struct{}, len(known))
	for key, raw := range all {
		if _, ok := known[key]; ok {
			attrs.present[key] = struct{}{}
			continue
		}
		if attrs.extra == nil {
			attrs.extra = make(map[string]json.RawMessage)
		}
		attrs.extra[key] = raw
	}
	return nil
}

// encodeRecord marshals v and merges the preserved attributes back in.
// Named attributes that are null and were absent from the source stay absent.
func encodeRecord(v any, attrs recordAttrs) ([]byte, error) {
	typed, err := marshal(v)
	if err != nil {
		return nil, err
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(typed, &out); err != nil {
		return nil, err
	}

	for key, raw := range out {
		if _, ok := attrs.present[key]; ok {
			continue
		}
		if bytes.Equal(raw, []byte("null")) {
			delete(out, key)
		}
	}

	for key, raw := range attrs.extra {
		if _, ok := out[key]; !ok {
			out[key] = raw
		}
	}

	return marshal(out)
}

// marshal encodes v without HTML escaping, matching how survey tools write JSON.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
