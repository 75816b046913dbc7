// Package ingest normalizes heterogeneous domain records into
// dimension-tagged observations.
package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DomainRecord is one row from an upstream control table, tagged with its
// source table and primary key for traceability.
type DomainRecord struct {
	Table      string
	ID         string
	SiteID     string
	ObservedAt time.Time
	Fields     map[string]any
}

// Per-record ingestion errors. Both are non-fatal to batch processing: the
// caller logs and skips the record.
var (
	// ErrUnrecognizedSource is returned for records from unmapped tables.
	ErrUnrecognizedSource = errors.New("unrecognized source table")
	// ErrMissingField is returned when a required field is absent or cannot
	// be interpreted.
	ErrMissingField = errors.New("missing required field")
)

// numField extracts a required numeric field.
func numField(fields map[string]any, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	v, err := toFloat64(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%v)", ErrMissingField, key, err)
	}
	return v, nil
}

// strField extracts a required string field.
func strField(fields map[string]any, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s (not a string)", ErrMissingField, key)
	}
	return s, nil
}

// boolField extracts an optional bool field, returning def when absent.
func boolField(fields map[string]any, key string, def bool) bool {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return def
	}
	if b, ok := raw.(bool); ok {
		return b
	}
	return def
}

// optStrField extracts an optional string field, returning def when absent.
func optStrField(fields map[string]any, key, def string) string {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return def
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return def
}

// dateField parses a required ISO date field (2006-01-02).
func dateField(fields map[string]any, key string) (time.Time, error) {
	s, err := strField(fields, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s (%v)", ErrMissingField, key, err)
	}
	return t, nil
}

// toFloat64 coerces the numeric types JSON decoding and manual construction
// produce into a float64.
func toFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", val)
	}
}
