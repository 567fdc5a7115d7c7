package db

import (
	"adventcal/models"
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeRecord serializes a record to JSON. Timestamps become {"_seconds":..,"_nanoseconds":..}.
func EncodeRecord(rec models.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

// DecodeRecord parses JSON produced by EncodeRecord. Integral numbers come back as int64,
// other numbers as float64 and timestamp objects as models.Timestamp.
func DecodeRecord(data []byte) (models.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to decode record: not an object")
	}

	rec := make(models.Record, len(raw))
	for k, v := range raw {
		rec[k] = normalizeValue(v)
	}
	return rec, nil
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		if ts, ok := asTimestamp(val); ok {
			return ts
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func asTimestamp(m map[string]any) (models.Timestamp, bool) {
	if len(m) != 2 {
		return models.Timestamp{}, false
	}
	secs, ok := m["_seconds"].(json.Number)
	if !ok {
		return models.Timestamp{}, false
	}
	nanos, ok := m["_nanoseconds"].(json.Number)
	if !ok {
		return models.Timestamp{}, false
	}
	s, err := secs.Int64()
	if err != nil {
		return models.Timestamp{}, false
	}
	n, err := nanos.Int64()
	if err != nil {
		return models.Timestamp{}, false
	}
	return models.Timestamp{Seconds: s, Nanos: int32(n)}, true
}
