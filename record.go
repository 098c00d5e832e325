package neogds

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// singleRecord extracts the one-and-only record from an eager result.
// It returns ErrNotFound for empty results, which is what catalog lookups
// by name produce when the resource has been dropped.
func singleRecord(result *neo4j.EagerResult) (*neo4j.Record, error) {
	if len(result.Records) == 0 {
		return nil, ErrNotFound
	}
	if len(result.Records) > 1 {
		return nil, fmt.Errorf("expected 1 record but found %d", len(result.Records))
	}
	return result.Records[0], nil
}

// recordValue fetches a named column from a record and asserts its type.
func recordValue[T any](record *neo4j.Record, key string) (T, error) {
	var zero T
	raw, ok := record.Get(key)
	if !ok {
		return zero, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	value, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("return value '%s' has unexpected type %T", key, raw)
	}
	return value, nil
}

// recordMap fetches a named column as a generic property map.
func recordMap(record *neo4j.Record, key string) (map[string]interface{}, error) {
	return recordValue[map[string]interface{}](record, key)
}

// asFloat64 converts a numeric value returned by the driver to a float64.
// The Bolt protocol delivers whole numbers as int64 even in floating-point
// columns, so both representations must be accepted.
func asFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// asFloat64Slice converts a driver-returned list into a slice of float64.
func asFloat64Slice(value interface{}) ([]float64, bool) {
	list, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]float64, len(list))
	for i, item := range list {
		f, ok := asFloat64(item)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// asStringSlice converts a driver-returned list into a slice of strings.
func asStringSlice(value interface{}) ([]string, bool) {
	list, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
