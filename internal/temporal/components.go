// Package temporal recognizes English date/time phrases in free text and
// resolves them against a reference instant.
//
// Every resolved field is either certain (stated in the text) or implied
// (filled from the reference or a default such as 12:00 for date-only
// phrases). Callers use the distinction to decide how much of a phrase they
// can trust.
package temporal

import (
	"fmt"
	"time"
)

// Component is a single calendar or clock field.
type Component int

const (
	Year Component = iota
	Month
	Day
	Hour
	Minute
	numComponents
)

func (c Component) String() string {
	switch c {
	case Year:
		return "year"
	case Month:
		return "month"
	case Day:
		return "day"
	case Hour:
		return "hour"
	case Minute:
		return "minute"
	default:
		return fmt.Sprintf("component(%d)", int(c))
	}
}

// Components is a resolved point in time in the reference location.
type Components struct {
	values  [numComponents]int
	certain [numComponents]bool
	loc     *time.Location
}

func newComponents(ref time.Time) Components {
	c := Components{loc: ref.Location()}
	c.imply(Year, ref.Year())
	c.imply(Month, int(ref.Month()))
	c.imply(Day, ref.Day())
	c.imply(Hour, 12)
	c.imply(Minute, 0)
	return c
}

// Get returns the value of a component.
func (c Components) Get(comp Component) int {
	return c.values[comp]
}

// IsCertain reports whether the component was stated in the text.
func (c Components) IsCertain(comp Component) bool {
	return c.certain[comp]
}

// Date returns the absolute instant in the reference location.
func (c Components) Date() time.Time {
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(c.values[Year], time.Month(c.values[Month]), c.values[Day],
		c.values[Hour], c.values[Minute], 0, 0, loc)
}

func (c *Components) assign(comp Component, v int) {
	c.values[comp] = v
	c.certain[comp] = true
}

func (c *Components) imply(comp Component, v int) {
	if c.certain[comp] {
		return
	}
	c.values[comp] = v
}

// shiftDate moves the calendar date while keeping clock fields and certainty.
func (c *Components) shiftDate(years, months, days int) {
	t := time.Date(c.values[Year], time.Month(c.values[Month]), c.values[Day], 0, 0, 0, 0, time.UTC).
		AddDate(years, months, days)
	c.values[Year] = t.Year()
	c.values[Month] = int(t.Month())
	c.values[Day] = t.Day()
}

// Result is one recognized phrase.
type Result struct {
	// Index is the byte offset of Text in the parsed input.
	Index int
	// Text is the matched span, in the input's original case.
	Text  string
	Start Components
}
