// Package normalize rewrites decoded F-List API responses so that relative-time strings become
// absolute timestamps.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/flistgo/flistapi/internal/timespan"
)

// MarkerKey identifies object fields holding a relative-time string.
const MarkerKey = "datetime_"

// IsMarkerKey reports whether key names a relative-time field.
func IsMarkerKey(key string) bool {
	return strings.Contains(key, MarkerKey)
}

// Normalize walks v depth first and replaces every string stored under a marker key with the
// time.Time it encodes. Objects and arrays are modified in place; the (possibly identical) root is
// returned so callers can also use it on scalar input, which is returned unchanged.
func Normalize(v any, now time.Time) any {
	switch node := v.(type) {
	case map[string]any:
		for key, child := range node {
			if IsMarkerKey(key) {
				if at, err := timespan.ParseValue(child, now); err == nil {
					node[key] = at
					continue
				}
			}
			Normalize(child, now)
		}
	case []any:
		for _, child := range node {
			Normalize(child, now)
		}
	}
	return v
}

// Decode parses a JSON document into the generic tree Normalize understands. Numbers are kept as
// json.Number so identifiers survive without float rounding.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("normalize: decode body failed: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("normalize: trailing data after JSON value")
	}
	return out, nil
}
