package analytics

import (
	"cmp"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

const day = 24 * time.Hour

var presets = map[string]time.Duration{
	"7d":   7 * day,
	"30d":  30 * day,
	"90d":  90 * day,
	"365d": 365 * day,
}

var timeNowUTC = func() time.Time { return time.Now().UTC() }

// resolveAnalyticsRange reads either an RFC3339 from/to pair or a preset
// ending at now. The preset defaults to 30d.
func resolveAnalyticsRange(r *http.Request, now time.Time) (start, end time.Time, err error) {
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" && to == "" {
		preset := strings.ToLower(strings.TrimSpace(q.Get("preset")))
		span, ok := presets[cmp.Or(preset, "30d")]
		if !ok {
			return start, end, rangeError("preset", "preset must be one of 7d, 30d, 90d, 365d")
		}
		return now.Add(-span), now, nil
	}
	if from == "" || to == "" {
		return start, end, rangeError("from", "from and to must be provided together")
	}

	if start, err = time.Parse(time.RFC3339, from); err != nil {
		return start, end, rangeError("from", "invalid from timestamp")
	}
	if end, err = time.Parse(time.RFC3339, to); err != nil {
		return start, end, rangeError("to", "invalid to timestamp")
	}
	if end.Before(start) {
		return start, end, rangeError("to", "end must be after start")
	}
	return start.UTC(), end.UTC(), nil
}

func rangeError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]string{"field": field})
}
