package models

import (
	"encoding/json"
	"math"
	"time"
)

// Record is the flat key/value form of an entity as stored in the document store.
// Values are strings, numbers, booleans, Timestamps, nested Records and slices of those.
type Record map[string]any

// Timestamp is the store-neutral timestamp written into records.
// Backends convert it to their native representation (Firestore: time.Time, JSON: {_seconds,_nanoseconds}).
type Timestamp struct {
	Seconds int64 `json:"_seconds"`
	Nanos   int32 `json:"_nanoseconds"`
}

// NewTimestamp converts a time.Time into a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time returns the timestamp as a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

// String returns the value at key if it is a string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// OptionalString returns a pointer to the string at key, or nil if absent or not a string.
func (r Record) OptionalString(key string) *string {
	if s, ok := r.String(key); ok {
		return &s
	}
	return nil
}

// Bool returns the value at key if it is a boolean.
func (r Record) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// Int returns the value at key if it is an integral number.
// JSON-backed stores hand back float64 or json.Number, Firestore hands back int64.
func (r Record) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Time returns the value at key if it is a timestamp in any supported representation.
func (r Record) Time(key string) (time.Time, bool) {
	switch v := r[key].(type) {
	case Timestamp:
		return v.Time(), true
	case *Timestamp:
		if v == nil {
			return time.Time{}, false
		}
		return v.Time(), true
	case time.Time:
		return v.UTC(), true
	default:
		return time.Time{}, false
	}
}

// StringSlice returns the value at key if it is a list made only of strings.
func (r Record) StringSlice(key string) ([]string, bool) {
	switch v := r[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// Records returns the value at key if it is a list made only of maps.
func (r Record) Records(key string) ([]Record, bool) {
	switch v := r[key].(type) {
	case []Record:
		return v, true
	case []map[string]any:
		out := make([]Record, len(v))
		for i, m := range v {
			out[i] = Record(m)
		}
		return out, true
	case []any:
		out := make([]Record, 0, len(v))
		for _, item := range v {
			switch m := item.(type) {
			case Record:
				out = append(out, m)
			case map[string]any:
				out = append(out, Record(m))
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}
