package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Entry is one key/value pair of a Scope.
type Entry struct {
	Key   string
	Value any
}

// Scope is an insertion-ordered mapping of metadata embedded alongside the
// transformed tree. The transformer never interprets it.
//
// Values are expected to be JSON-encodable primitives (nil, string, bool,
// numbers) or string lists.
type Scope struct {
	entries []Entry
}

// NewScope builds a scope from entries, keeping their order. A repeated key
// replaces the earlier value in place.
func NewScope(entries ...Entry) Scope {
	var s Scope
	for _, e := range entries {
		s.Set(e.Key, e.Value)
	}
	return s
}

// Set adds or replaces a value.
func (s *Scope) Set(key string, value any) {
	for i := range s.entries {
		if s.entries[i].Key == key {
			s.entries[i].Value = value
			return
		}
	}
	s.entries = append(s.entries, Entry{Key: key, Value: value})
}

// Get returns the value for key.
func (s Scope) Get(key string) (any, bool) {
	for _, e := range s.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// String returns a string value, or "" when absent or not a string.
func (s Scope) String(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Keys returns the keys in insertion order.
func (s Scope) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in insertion order.
func (s Scope) Entries() []Entry {
	return s.Clone().entries
}

// Len returns the number of entries.
func (s Scope) Len() int { return len(s.entries) }

// Clone returns a deep copy; slices and maps inside values are copied.
func (s Scope) Clone() Scope {
	if s.entries == nil {
		return Scope{}
	}
	out := Scope{entries: make([]Entry, len(s.entries))}
	for i, e := range s.entries {
		out.entries[i] = Entry{Key: e.Key, Value: cloneValue(e.Value)}
	}
	return out
}

// Equal reports whether both scopes hold the same keys, in the same order,
// with deeply equal values.
func (s Scope) Equal(other Scope) bool {
	if len(s.entries) != len(other.entries) {
		return false
	}
	for i := range s.entries {
		if s.entries[i].Key != other.entries[i].Key {
			return false
		}
		if !reflect.DeepEqual(s.entries[i].Value, other.entries[i].Value) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the scope as a JSON object in insertion order.
func (s Scope) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("scope key %q: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order. Arrays holding
// only strings decode to []string and integral numbers to int64.
func (s *Scope) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = Scope{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("scope: expected object, got %v", tok)
	}

	var out Scope
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("scope: expected key, got %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("scope key %q: %w", key, err)
		}
		out.Set(key, normalizeDecoded(raw))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

func normalizeDecoded(v any) any {
	switch tv := v.(type) {
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return i
		}
		f, _ := tv.Float64()
		return f
	case []any:
		strs := make([]string, 0, len(tv))
		for _, item := range tv {
			str, ok := item.(string)
			if !ok {
				out := make([]any, len(tv))
				for i, x := range tv {
					out[i] = normalizeDecoded(x)
				}
				return out
			}
			strs = append(strs, str)
		}
		return strs
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, x := range tv {
			out[k] = normalizeDecoded(x)
		}
		return out
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case []string:
		if tv == nil {
			return tv
		}
		return append([]string{}, tv...)
	case []any:
		if tv == nil {
			return tv
		}
		out := make([]any, len(tv))
		for i, x := range tv {
			out[i] = cloneValue(x)
		}
		return out
	case map[string]any:
		if tv == nil {
			return tv
		}
		out := make(map[string]any, len(tv))
		for k, x := range tv {
			out[k] = cloneValue(x)
		}
		return out
	default:
		return v
	}
}
