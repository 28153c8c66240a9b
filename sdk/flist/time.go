package flist

import (
	"time"

	"github.com/flistgo/flistapi/internal/timespan"
)

// ParseRelativeTime converts an F-List relative-time value ("2w, 3d") into the point in time it
// describes relative to now. It fails with *ParseError when v is not a string; strings without
// any recognizable group resolve to now.
func ParseRelativeTime(v any, now time.Time) (time.Time, error) {
	return timespan.ParseValue(v, now)
}
