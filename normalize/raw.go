// Package normalize turns loosely shaped JSON payloads into the canonical
// User, Project, Task and Comment records used everywhere else.
//
// Payloads differ in identifier keys (id or _id), display keys (title or
// name), and in whether relations arrive as bare identifiers or as nested
// objects. All of that variance is absorbed here.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Raw is a decoded JSON object with no assumptions about its shape.
type Raw map[string]any

// Now is the clock used for absent timestamps.
var Now = time.Now

// ToRaw serializes v to JSON and decodes it back as a Raw object.
func ToRaw(v any) (Raw, error) {
	if r, ok := v.(Raw); ok {
		return r, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: marshal %T: %w", v, err)
	}
	var out Raw
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("normalize: %T is not a JSON object: %w", v, err)
	}
	return out, nil
}

// Decode parses a response body into a generic value for the list helpers.
func Decode(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Has reports whether any of keys is present, even with a null value.
func (r Raw) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r[k]; ok {
			return true
		}
	}
	return false
}

// ID returns the identifier under "id" or "_id".
func (r Raw) ID() string {
	for _, k := range []string{"id", "_id"} {
		if s := idString(r[k]); s != "" {
			return s
		}
	}
	return ""
}

// String returns the first non-empty string value among keys.
func (r Raw) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := scalarString(r[k]); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// Time returns the first parseable timestamp among keys.
func (r Raw) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if t, ok := parseTime(r[k]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func (r Raw) first(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func asRaw(v any) (Raw, bool) {
	switch m := v.(type) {
	case Raw:
		return m, true
	case map[string]any:
		return Raw(m), true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case []Raw:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	}
	return nil, false
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint:
		return strconv.FormatUint(uint64(s), 10), true
	}
	return "", false
}

// idString accepts a scalar id or a nested object carrying one (including
// the {"$oid": "..."} extended JSON form).
func idString(v any) string {
	if s, ok := scalarString(v); ok {
		return strings.TrimSpace(s)
	}
	if m, ok := asRaw(v); ok {
		if oid := m.String("$oid"); oid != "" {
			return oid
		}
		return m.ID()
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return canonicalTime(t), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return canonicalTime(*t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				if parsed.IsZero() {
					return time.Time{}, false
				}
				return canonicalTime(parsed), true
			}
		}
	case float64:
		// Milliseconds since the Unix epoch, limited to four-digit years.
		if math.IsNaN(t) || t < minEpochMillis || t > maxEpochMillis {
			return time.Time{}, false
		}
		return canonicalTime(time.UnixMilli(int64(t))), true
	}
	return time.Time{}, false
}

var (
	minEpochMillis = float64(time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	maxEpochMillis = float64(time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli())
)

// canonicalTime strips location and monotonic reading so equal instants compare equal.
func canonicalTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

func timeOrNow(r Raw, keys ...string) time.Time {
	if t, ok := r.Time(keys...); ok {
		return t
	}
	return canonicalTime(Now())
}
