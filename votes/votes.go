// Package votes applies signed vote deltas to question and answer records.
package votes

import (
	"context"
	"encoding/json"
	"math"

	"github.com/cppla/qalite/store"
)

// DefaultDelta is used whenever a vote request carries no usable delta.
const DefaultDelta int64 = 1

// Apply adds delta to the record's vote count through the table's atomic
// increment and returns the record as it reads afterwards. Voting on an
// unknown key creates a zero-based counter for it.
func Apply[T any](ctx context.Context, table store.Table[T], key string, delta int64) (*T, error) {
	if err := table.Increment(ctx, key, delta); err != nil {
		return nil, err
	}
	return table.Get(ctx, key)
}

// ParseDelta reads "delta" from a vote request body. Malformed or absent
// bodies count as {}, and a delta that is missing, null, non-numeric or not a
// whole number yields DefaultDelta.
func ParseDelta(body string) int64 {
	if body == "" {
		return DefaultDelta
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return DefaultDelta
	}
	raw, ok := payload["delta"]
	if !ok {
		return DefaultDelta
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return DefaultDelta
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return DefaultDelta
	}
	return int64(f)
}
