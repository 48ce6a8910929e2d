package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type kind int

const (
	kindDate kind = iota
	kindClock
	kindPeriod
	kindInstant
)

type meridiem int

const (
	meridiemNone meridiem = iota
	meridiemAM
	meridiemPM
)

type roll int

const (
	rollNone roll = iota
	rollWeek
	rollYear
)

// fragment is a single rule hit before adjacent hits are merged.
type fragment struct {
	start, end int
	kind       kind

	year, month, day int
	yearCertain      bool
	roll             roll

	hour, minute int
	meridiem     meridiem

	hasPeriod    bool
	periodHour   int
	periodMinute int
	periodPM     bool

	at time.Time

	// bare marks an unqualified hour; it only survives next to a date.
	bare bool
}

func (f fragment) overlaps(o fragment) bool {
	return f.start < o.end && o.start < f.end
}

type rule struct {
	re *regexp.Regexp
	// span is the capture group that delimits the phrase; 0 is the whole match.
	span  int
	build func(m []string, ref time.Time) (fragment, bool)
}

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

const weekdayNames = `sun(?:day)?|mon(?:day)?|tue(?:s(?:day)?)?|wed(?:nesday)?|thu(?:r(?:s(?:day)?)?)?|fri(?:day)?|sat(?:urday)?`

var (
	isoDateRE       = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDateRE     = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
	monthDayRE      = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	dayMonthRE      = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthNames + `)\b(?:,?\s+(\d{4})\b)?`)
	casualDateRE    = regexp.MustCompile(`(?i)\b((?:the\s+)?day\s+after\s+tomorrow|today|tonight|tomorrow|tmrw|tmr)\b`)
	weekdayRE       = regexp.MustCompile(`(?i)\b(?:(this|next|coming)\s+)?(` + weekdayNames + `)\b`)
	relativeRE      = regexp.MustCompile(`(?i)\bin\s+(\d{1,3}|an?|one|two|three|four|five|six|seven|eight|nine|ten)\s+(minutes?|mins?|hours?|hrs?|days?|weeks?)\b`)
	meridiemClockRE = regexp.MustCompile(`(?i)\b(\d{1,2})(?:[:.](\d{2}))?\s*(a\.m\.|p\.m\.|a\.m\b|p\.m\b|am\b|pm\b)`)
	clock24RE       = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	atClockRE       = regexp.MustCompile(`(?i)(?:\bat|@)\s*((\d{1,2})(?:[:.](\d{2}))?)\b`)
	bareHourRE      = regexp.MustCompile(`\b([01]?\d|2[0-3])(?:[:.]([0-5]\d))?\b`)
	namedClockRE    = regexp.MustCompile(`(?i)\b(noon|midday|midnight)\b`)
	periodRE        = regexp.MustCompile(`(?i)\b(?:(?:in\s+the|this)\s+)?(morning|afternoon|evening|night)\b`)
)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var periods = map[string]struct {
	hour int
	pm   bool
}{
	"morning":   {6, false},
	"afternoon": {15, true},
	"evening":   {20, true},
	"night":     {22, true},
}

// rules run in this order; overlapping hits are resolved by position then length.
var rules = []rule{
	{re: isoDateRE, build: buildISODate},
	{re: slashDateRE, build: buildSlashDate},
	{re: monthDayRE, build: buildMonthDay},
	{re: dayMonthRE, build: buildDayMonth},
	{re: casualDateRE, build: buildCasualDate},
	{re: weekdayRE, build: buildWeekday},
	{re: relativeRE, build: buildRelative},
	{re: meridiemClockRE, build: buildMeridiemClock},
	{re: clock24RE, build: buildClock24},
	{re: atClockRE, span: 1, build: buildAtClock},
	{re: namedClockRE, build: buildNamedClock},
	{re: periodRE, build: buildPeriod},
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func dateFragment(year, month, day int, yearCertain bool, r roll) (fragment, bool) {
	if !validDate(year, month, day) {
		return fragment{}, false
	}
	return fragment{
		kind:        kindDate,
		year:        year,
		month:       month,
		day:         day,
		yearCertain: yearCertain,
		roll:        r,
	}, true
}

func offsetDate(ref time.Time, days int) (int, int, int) {
	t := ref.AddDate(0, 0, days)
	return t.Year(), int(t.Month()), t.Day()
}

func buildISODate(m []string, _ time.Time) (fragment, bool) {
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return dateFragment(year, month, day, true, rollNone)
}

func buildSlashDate(m []string, ref time.Time) (fragment, bool) {
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	// Month first unless that is impossible, as in 31/12.
	if month > 12 && day <= 12 {
		month, day = day, month
	}
	if m[3] == "" {
		return dateFragment(ref.Year(), month, day, false, rollYear)
	}
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	return dateFragment(year, month, day, true, rollNone)
}

func monthNumber(name string) int {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0
	}
	return months[name[:3]]
}

func buildMonthDay(m []string, ref time.Time) (fragment, bool) {
	return namedMonthDate(monthNumber(m[1]), m[2], m[3], ref)
}

func buildDayMonth(m []string, ref time.Time) (fragment, bool) {
	return namedMonthDate(monthNumber(m[2]), m[1], m[3], ref)
}

func namedMonthDate(month int, dayStr, yearStr string, ref time.Time) (fragment, bool) {
	day, _ := strconv.Atoi(dayStr)
	if yearStr == "" {
		return dateFragment(ref.Year(), month, day, false, rollYear)
	}
	year, _ := strconv.Atoi(yearStr)
	return dateFragment(year, month, day, true, rollNone)
}

func buildCasualDate(m []string, ref time.Time) (fragment, bool) {
	word := strings.Join(strings.Fields(strings.ToLower(m[1])), " ")
	offset := 0
	switch word {
	case "today", "tonight":
	case "tomorrow", "tmrw", "tmr":
		offset = 1
	default:
		offset = 2
	}
	y, mo, d := offsetDate(ref, offset)
	f, ok := dateFragment(y, mo, d, true, rollNone)
	if ok && word == "tonight" {
		f.hasPeriod = true
		f.periodHour = 22
		f.periodPM = true
	}
	return f, ok
}

// daysToWeekday counts days from ref to the target weekday. A bare or "this"
// weekday is the next occurrence including today; "next" skips to the
// following week unless the day has already passed this week.
func daysToWeekday(ref, target time.Weekday, modifier string) int {
	forward := (int(target) - int(ref) + 7) % 7
	if modifier != "next" {
		return forward
	}
	switch ref {
	case time.Sunday:
		if target == time.Sunday {
			return 7
		}
		return int(target)
	case time.Saturday:
		switch target {
		case time.Saturday:
			return 7
		case time.Sunday:
			return 8
		}
		return 1 + int(target)
	}
	if target < ref && target != time.Sunday {
		return forward
	}
	return forward + 7
}

func buildWeekday(m []string, ref time.Time) (fragment, bool) {
	target, ok := weekdays[strings.ToLower(m[2])[:3]]
	if !ok {
		return fragment{}, false
	}
	modifier := strings.ToLower(m[1])
	r := rollWeek
	if modifier == "next" {
		r = rollNone
	}
	y, mo, d := offsetDate(ref, daysToWeekday(ref.Weekday(), target, modifier))
	return dateFragment(y, mo, d, true, r)
}

func buildRelative(m []string, ref time.Time) (fragment, bool) {
	n, err := strconv.Atoi(m[1])
	if err != nil {
		n = numberWords[strings.ToLower(m[1])]
	}
	if n <= 0 {
		return fragment{}, false
	}
	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "min"):
		return fragment{kind: kindInstant, at: ref.Add(time.Duration(n) * time.Minute).Truncate(time.Minute)}, true
	case strings.HasPrefix(unit, "h"):
		return fragment{kind: kindInstant, at: ref.Add(time.Duration(n) * time.Hour).Truncate(time.Minute)}, true
	case strings.HasPrefix(unit, "week"):
		n *= 7
	}
	y, mo, d := offsetDate(ref, n)
	f, ok := dateFragment(y, mo, d, true, rollNone)
	if ok {
		// Relative day offsets keep the reference clock.
		f.hasPeriod = true
		f.periodHour = ref.Hour()
		f.periodMinute = ref.Minute()
	}
	return f, ok
}

func parseMinute(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v > 59 {
		return 0, false
	}
	return v, true
}

func buildMeridiemClock(m []string, _ time.Time) (fragment, bool) {
	hour, _ := strconv.Atoi(m[1])
	minute, ok := parseMinute(m[2])
	if !ok || hour < 1 || hour > 12 {
		return fragment{}, false
	}
	mer := meridiemAM
	if strings.HasPrefix(strings.ToLower(m[3]), "p") {
		mer = meridiemPM
	}
	hour %= 12
	if mer == meridiemPM {
		hour += 12
	}
	return fragment{kind: kindClock, hour: hour, minute: minute, meridiem: mer}, true
}

func buildClock24(m []string, _ time.Time) (fragment, bool) {
	hour, _ := strconv.Atoi(m[1])
	minute, ok := parseMinute(m[2])
	if !ok {
		return fragment{}, false
	}
	mer := meridiemNone
	switch {
	case hour == 0:
		mer = meridiemAM
	case hour > 12:
		mer = meridiemPM
	}
	return fragment{kind: kindClock, hour: hour, minute: minute, meridiem: mer}, true
}

func buildAtClock(m []string, ref time.Time) (fragment, bool) {
	hour, _ := strconv.Atoi(m[2])
	minute, ok := parseMinute(m[3])
	if !ok || hour > 23 {
		return fragment{}, false
	}
	return buildClock24([]string{m[0], strconv.Itoa(hour), strconv.Itoa(minute)}, ref)
}

// bareHourRule is enabled by WithBareHours.
var bareHourRule = rule{re: bareHourRE, build: buildBareHour}

func buildBareHour(m []string, ref time.Time) (fragment, bool) {
	f, ok := buildClock24(m, ref)
	f.bare = true
	return f, ok
}

func buildNamedClock(m []string, _ time.Time) (fragment, bool) {
	if strings.EqualFold(m[1], "midnight") {
		return fragment{kind: kindClock, hour: 0, meridiem: meridiemAM}, true
	}
	return fragment{kind: kindClock, hour: 12, meridiem: meridiemPM}, true
}

func buildPeriod(m []string, _ time.Time) (fragment, bool) {
	p, ok := periods[strings.ToLower(m[1])]
	if !ok {
		return fragment{}, false
	}
	return fragment{kind: kindPeriod, hasPeriod: true, periodHour: p.hour, periodPM: p.pm}, true
}
