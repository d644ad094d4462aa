// Package schedule detects date and time-of-day phrases in request text and
// normalizes the start/end payloads of schedule mutations.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time found in request text.
type TimeOfDay struct {
	Hour   int
	Minute int
	// Explicit is false for vague parts of the day such as "morning".
	Explicit bool
	// Phrase is the matched text.
	Phrase string
}

var (
	meridiemPattern = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*(a\.?m\.?|p\.?m\.?)(?:[^a-z]|$)`)
	clockPattern    = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	oclockPattern   = regexp.MustCompile(`\b(\d{1,2})\s*o'?clock\b`)
	namedTimes      = []struct {
		pattern *regexp.Regexp
		hour    int
		exact   bool
	}{
		{regexp.MustCompile(`\b(noon|midday)\b`), 12, true},
		{regexp.MustCompile(`\bmidnight\b`), 0, true},
		{regexp.MustCompile(`\bmorning\b`), 9, false},
		{regexp.MustCompile(`\bafternoon\b`), 14, false},
		{regexp.MustCompile(`\b(evening|tonight)\b`), 18, false},
	}
)

// DetectTimeOfDay finds the first time-of-day expression in text.
func DetectTimeOfDay(text string) (TimeOfDay, bool) {
	lower := strings.ToLower(text)

	if m := meridiemPattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour >= 1 && hour <= 12 && minute < 60 {
			pm := strings.HasPrefix(m[3], "p")
			switch {
			case pm && hour != 12:
				hour += 12
			case !pm && hour == 12:
				hour = 0
			}
			return TimeOfDay{Hour: hour, Minute: minute, Explicit: true, Phrase: strings.TrimSpace(m[0])}, true
		}
	}

	if m := clockPattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return TimeOfDay{Hour: hour, Minute: minute, Explicit: true, Phrase: m[0]}, true
	}

	if m := oclockPattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour <= 23 {
			return TimeOfDay{Hour: hour, Explicit: true, Phrase: m[0]}, true
		}
	}

	for _, named := range namedTimes {
		if loc := named.pattern.FindString(lower); loc != "" {
			return TimeOfDay{Hour: named.hour, Explicit: named.exact, Phrase: loc}, true
		}
	}
	return TimeOfDay{}, false
}

// HasTimeOfDay reports whether text carries any time-of-day expression.
func HasTimeOfDay(text string) bool {
	_, ok := DetectTimeOfDay(text)
	return ok
}

// On returns the time of day on the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var (
	dayAfterTomorrowPattern = regexp.MustCompile(`\bday after tomorrow\b`)
	tomorrowPattern         = regexp.MustCompile(`\btomorrow\b`)
	todayPattern            = regexp.MustCompile(`\b(today|tonight)\b`)
	inDaysPattern           = regexp.MustCompile(`\bin (\d{1,2}) days?\b`)
	nextWeekPattern         = regexp.MustCompile(`\bnext week\b`)
	weekdayPattern          = regexp.MustCompile(`\b(?:(next|this|on|coming)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	isoDatePattern          = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
)

// DatePhrase is a resolved relative or absolute date found in request text.
type DatePhrase struct {
	Date   time.Time
	Phrase string
}

// ResolveDatePhrase finds a date phrase in text and resolves it against now.
// The returned date is midnight in now's location.
func ResolveDatePhrase(text string, now time.Time) (DatePhrase, bool) {
	lower := strings.ToLower(text)
	today := midnight(now)

	if m := isoDatePattern.FindString(lower); m != "" {
		if d, err := time.ParseInLocation(dateLayout, m, now.Location()); err == nil {
			return DatePhrase{Date: d, Phrase: m}, true
		}
	}
	if m := dayAfterTomorrowPattern.FindString(lower); m != "" {
		return DatePhrase{Date: today.AddDate(0, 0, 2), Phrase: m}, true
	}
	if m := tomorrowPattern.FindString(lower); m != "" {
		return DatePhrase{Date: today.AddDate(0, 0, 1), Phrase: m}, true
	}
	if m := todayPattern.FindString(lower); m != "" {
		return DatePhrase{Date: today, Phrase: m}, true
	}
	if m := inDaysPattern.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return DatePhrase{Date: today.AddDate(0, 0, n), Phrase: m[0]}, true
	}
	if m := weekdayPattern.FindStringSubmatch(lower); m != nil {
		target := weekdays[m[2]]
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		if ahead == 0 && m[1] != "this" {
			ahead = 7
		}
		return DatePhrase{Date: today.AddDate(0, 0, ahead), Phrase: m[0]}, true
	}
	if m := nextWeekPattern.FindString(lower); m != "" {
		ahead := (int(time.Monday) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return DatePhrase{Date: today.AddDate(0, 0, ahead), Phrase: m}, true
	}
	return DatePhrase{}, false
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
