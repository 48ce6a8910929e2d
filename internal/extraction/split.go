package extraction

import (
	"regexp"
	"strings"
)

var clockRE = regexp.MustCompile(`(?i)\b\d{1,2}([:.]\d{2})? ?(a\.m\.|p\.m\.|am|pm)?`)

// Split is a recognized phrase divided into its date and time halves.
type Split struct {
	DatePart string
	TimePart string
}

// SplitPhrase divides a recognized phrase on " at " or " @ ". Without a
// separator the whole phrase is the date part, and when hourCertain is set the
// first clock-looking substring is copied out as the time part.
func SplitPhrase(matched string, hourCertain bool) Split {
	for _, sep := range []string{" at ", " @ "} {
		if before, after, ok := strings.Cut(matched, sep); ok {
			return Split{DatePart: strings.TrimSpace(before), TimePart: strings.TrimSpace(after)}
		}
	}

	s := Split{DatePart: strings.TrimSpace(matched)}
	if hourCertain {
		s.TimePart = findClock(matched)
	}
	return s
}

// findClock prefers a hit with minutes or a meridiem over a bare number. Hits
// start on a word boundary so "10.30am" is never cut down to "30am".
func findClock(text string) string {
	hits := clockRE.FindAllStringSubmatch(text, -1)
	if len(hits) == 0 {
		return ""
	}
	for _, h := range hits {
		if h[1] != "" || h[2] != "" {
			return strings.TrimSpace(h[0])
		}
	}
	return strings.TrimSpace(hits[0][0])
}
