package schedule

import (
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	floatingLayout = "2006-01-02T15:04:05"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// eventTime is one side of a start/end pair. A floating time carries neither
// an offset nor a time zone and stays that way on output.
type eventTime struct {
	at       time.Time
	timed    bool
	zone     string
	floating bool
}

// SanitizeEventPayload normalizes the start/end fields of a schedule mutation
// payload against the request text that produced it. The input map is not
// modified; other fields are copied unchanged.
//
// Rules, in order:
//   - only an end given: start is one day (date-only) or one hour (timestamp) earlier
//   - request text without a time of day: both sides become dates, end = start + 1 day
//     unless a later end date was given
//   - otherwise both sides become timestamps; a missing or non-increasing end is
//     start + 1 hour, and an explicit time in the request replaces a missing one
//
// An empty request text keeps the start's own form.
func SanitizeEventPayload(params map[string]interface{}, requestText string) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}

	start, hasStart := parseEventTime(params["start"])
	end, hasEnd := parseEventTime(params["end"])
	if !hasStart && !hasEnd {
		return out
	}

	if !hasStart {
		start = end
		if end.timed {
			start.at = end.at.Add(-time.Hour)
		} else {
			start.at = end.at.AddDate(0, 0, -1)
		}
	}
	if start.zone == "" && hasEnd {
		start.zone = end.zone
	}

	tod, hasTOD := DetectTimeOfDay(requestText)
	allDay := !hasTOD
	if strings.TrimSpace(requestText) == "" {
		allDay = !start.timed
	}

	if allDay {
		startDay := midnight(start.at)
		endDay := startDay.AddDate(0, 0, 1)
		if hasEnd {
			if candidate := midnight(end.at); candidate.After(startDay) {
				endDay = candidate
			}
		}
		out["start"] = dateValue(startDay)
		out["end"] = dateValue(endDay)
		return out
	}

	startAt := start.at
	if hasTOD && (!start.timed || (tod.Explicit && isMidnight(startAt) && !isMidnight(tod.On(startAt)))) {
		startAt = tod.On(startAt)
	}

	endAt := startAt.Add(time.Hour)
	if hasEnd && end.timed && end.at.After(startAt) {
		endAt = end.at
	}

	out["start"] = timestampValue(startAt, start)
	out["end"] = timestampValue(endAt, start)
	return out
}

func parseEventTime(v interface{}) (eventTime, bool) {
	switch val := v.(type) {
	case string:
		return parseTimeString(val, "")
	case map[string]interface{}:
		zone := firstString(val, "timeZone", "time_zone", "timezone")
		if s := firstString(val, "dateTime", "date_time", "datetime"); s != "" {
			return parseTimeString(s, zone)
		}
		if s := firstString(val, "date"); s != "" {
			return parseTimeString(s, zone)
		}
	}
	return eventTime{}, false
}

func parseTimeString(s, zone string) (eventTime, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return eventTime{}, false
	}

	loc := time.UTC
	if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}

	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return eventTime{at: d, zone: zone, floating: zone == ""}, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			floating := zone == "" && layout != time.RFC3339
			return eventTime{at: t, timed: true, zone: zone, floating: floating}, true
		}
	}
	return eventTime{}, false
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func dateValue(t time.Time) map[string]interface{} {
	return map[string]interface{}{"date": t.Format(dateLayout)}
}

func timestampValue(t time.Time, ref eventTime) map[string]interface{} {
	if ref.floating {
		return map[string]interface{}{"dateTime": t.Format(floatingLayout)}
	}
	v := map[string]interface{}{"dateTime": t.Format(time.RFC3339)}
	if ref.zone != "" {
		v["timeZone"] = ref.zone
	}
	return v
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}
