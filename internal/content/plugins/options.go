package plugins

import (
	"fmt"
	"sort"
	"strings"
)

// Options holds the raw configuration of one plugin, as read from YAML.
type Options map[string]any

// String returns a string option or def when unset.
func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q: expected string, got %T", key, v)
	}
	return s, nil
}

// Strings returns a list option or def when unset. A single string is
// accepted as a one-element list.
func (o Options) Strings(key string, def []string) ([]string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch tv := v.(type) {
	case string:
		return strings.Fields(tv), nil
	case []string:
		return append([]string{}, tv...), nil
	case []any:
		out := make([]string, 0, len(tv))
		for _, item := range tv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("option %q: expected list of strings, got element %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("option %q: expected list of strings, got %T", key, v)
	}
}

// Keys returns option names sorted, for diagnostics.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o Options) rejectUnknown(plugin string, allowed ...string) error {
	for _, k := range o.Keys() {
		known := false
		for _, a := range allowed {
			if k == a {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("plugin %q: unknown option %q", plugin, k)
		}
	}
	return nil
}
