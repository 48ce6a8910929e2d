package temporal

import (
	"regexp"
	"sort"
	"time"
)

// mergeGapRE matches the text allowed between two fragments of one phrase.
var mergeGapRE = regexp.MustCompile(`(?i)^[\s,]*(?:at|@|on|of|by|-)?[\s,]*$`)

// Parser finds date/time phrases in text.
type Parser struct {
	forwardDate bool
	bareHours   bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithForwardDate resolves ambiguous phrases to the future: a time that has
// already passed today moves to tomorrow, a weekday that has passed moves a
// week ahead and a month/day without a year moves to next year.
func WithForwardDate() Option {
	return func(p *Parser) {
		p.forwardDate = true
	}
}

// WithBareHours accepts an unqualified hour such as the "3" in "tomorrow 3"
// when it sits directly beside a date. Used when re-parsing a phrase whose
// "at" was stripped off.
func WithBareHours() Option {
	return func(p *Parser) {
		p.bareHours = true
	}
}

// NewParser builds a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse returns every phrase in text, in order of appearance, resolved against ref.
func (p *Parser) Parse(text string, ref time.Time) []Result {
	active := rules
	if p.bareHours {
		active = append(append([]rule{}, rules...), bareHourRule)
	}
	frags := collect(text, ref, active)
	if len(frags) == 0 {
		return nil
	}
	groups := group(text, frags)
	results := make([]Result, 0, len(groups))
	for _, g := range groups {
		if g = anchorBare(g); len(g) == 0 {
			continue
		}
		start, end := g[0].start, g[len(g)-1].end
		results = append(results, Result{
			Index: start,
			Text:  text[start:end],
			Start: p.resolve(g, ref),
		})
	}
	return results
}

// ParseFirst returns the first phrase in text.
func (p *Parser) ParseFirst(text string, ref time.Time) (Result, bool) {
	results := p.Parse(text, ref)
	if len(results) == 0 {
		return Result{}, false
	}
	return results[0], true
}

func collect(text string, ref time.Time, active []rule) []fragment {
	var hits []fragment
	for _, r := range active {
		for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
			m := make([]string, len(loc)/2)
			for i := range m {
				if loc[2*i] >= 0 {
					m[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			start, end := loc[2*r.span], loc[2*r.span+1]
			if start < 0 {
				continue
			}
			f, ok := r.build(m, ref)
			if !ok {
				continue
			}
			f.start, f.end = start, end
			hits = append(hits, f)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end-hits[i].start > hits[j].end-hits[j].start
	})

	kept := hits[:0]
	for _, f := range hits {
		if len(kept) > 0 && kept[len(kept)-1].overlaps(f) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

type slots struct {
	date, clock, period, instant int
}

func (s *slots) add(f fragment) {
	switch f.kind {
	case kindDate:
		s.date++
		if f.hasPeriod {
			s.period++
		}
	case kindClock:
		s.clock++
	case kindPeriod:
		s.period++
	case kindInstant:
		s.instant++
	}
}

func (s slots) fits(f fragment) bool {
	next := s
	next.add(f)
	if next.instant > 0 {
		return false
	}
	return next.date <= 1 && next.clock <= 1 && next.period <= 1
}

// group joins adjacent fragments that describe a single point in time.
func group(text string, frags []fragment) [][]fragment {
	var groups [][]fragment
	var cur []fragment
	var used slots
	for _, f := range frags {
		if len(cur) > 0 {
			gap := text[cur[len(cur)-1].end:f.start]
			if mergeGapRE.MatchString(gap) && used.fits(f) {
				cur = append(cur, f)
				used.add(f)
				continue
			}
			groups = append(groups, cur)
		}
		cur = []fragment{f}
		used = slots{}
		used.add(f)
	}
	return append(groups, cur)
}

// anchorBare drops bare hours that have no date fragment right beside them.
func anchorBare(g []fragment) []fragment {
	kept := make([]fragment, 0, len(g))
	for i, f := range g {
		if f.bare {
			prevDate := i > 0 && g[i-1].kind == kindDate
			nextDate := i+1 < len(g) && g[i+1].kind == kindDate
			if !prevDate && !nextDate {
				continue
			}
		}
		kept = append(kept, f)
	}
	return kept
}

func (p *Parser) resolve(g []fragment, ref time.Time) Components {
	c := newComponents(ref)

	var date, clock, period *fragment
	for i := range g {
		f := &g[i]
		switch f.kind {
		case kindInstant:
			at := f.at.In(ref.Location())
			c.assign(Year, at.Year())
			c.assign(Month, int(at.Month()))
			c.assign(Day, at.Day())
			c.assign(Hour, at.Hour())
			c.assign(Minute, at.Minute())
			return c
		case kindDate:
			date = f
			if f.hasPeriod {
				period = f
			}
		case kindClock:
			clock = f
		case kindPeriod:
			period = f
		}
	}

	if date != nil {
		c.assign(Month, date.month)
		c.assign(Day, date.day)
		if date.yearCertain {
			c.assign(Year, date.year)
		} else {
			c.imply(Year, date.year)
		}
	}

	switch {
	case clock != nil:
		hour := clock.hour
		if clock.meridiem == meridiemNone && period != nil && period.periodPM && hour < 12 {
			hour += 12
		}
		c.assign(Hour, hour)
		c.assign(Minute, clock.minute)
	case period != nil:
		c.imply(Hour, period.periodHour)
		c.imply(Minute, period.periodMinute)
	}

	if p.forwardDate {
		forward(&c, date, ref)
	}
	return c
}

func forward(c *Components, date *fragment, ref time.Time) {
	if date == nil {
		if c.Date().Before(ref) {
			c.shiftDate(0, 0, 1)
		}
		return
	}
	switch date.roll {
	case rollWeek:
		if c.Date().Before(ref) {
			c.shiftDate(0, 0, 7)
		}
	case rollYear:
		refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
		day := time.Date(c.Get(Year), time.Month(c.Get(Month)), c.Get(Day), 0, 0, 0, 0, ref.Location())
		if day.Before(refDay) {
			c.shiftDate(1, 0, 0)
		}
	}
}
