package utils

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// MetaString extracts a string value from an event meta map
func MetaString(meta map[string]string, key string) string {
	return meta[key]
}

// MetaFloat64 extracts a float64 value from an event meta map
func MetaFloat64(meta map[string]string, key string) float64 {
	val, ok := meta[key]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return f
}

// MetaInt extracts an int value from an event meta map
func MetaInt(meta map[string]string, key string) int {
	val, ok := meta[key]
	if !ok {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}

// MarshalMeta encodes an event meta map for jsonb storage. Empty maps
// store as NULL rather than an empty object.
func MarshalMeta(meta map[string]string) ([]byte, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event meta")
	}
	return data, nil
}

// UnmarshalMeta decodes a stored jsonb meta column
func UnmarshalMeta(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var meta map[string]string
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal event meta")
	}
	return meta, nil
}
