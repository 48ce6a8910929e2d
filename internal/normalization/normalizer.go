// Package normalization resolves extracted phrases into an ISO date, a 24-hour
// clock time in the clinic timezone and a canonical department label.
package normalization

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/wolfman30/appointment-intake/internal/departments"
	"github.com/wolfman30/appointment-intake/internal/extraction"
	"github.com/wolfman30/appointment-intake/internal/temporal"
)

// TargetTimezone is the zone every appointment is reported in.
const TargetTimezone = "Asia/Kolkata"

// Confidence values reported by Normalize.
const (
	ConfidenceResolved   = 0.90
	ConfidenceUnresolved = 0.0
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// AnchorMode controls which zone relative phrases are resolved in.
type AnchorMode string

const (
	// AnchorReference resolves phrases in the location carried by now and
	// only then converts the instant into the target zone.
	AnchorReference AnchorMode = "reference"
	// AnchorTarget moves now into the target zone before resolving, so "3pm"
	// means 3pm clinic time.
	AnchorTarget AnchorMode = "target"
)

// ParseAnchorMode maps a config value to a mode. Empty means AnchorReference.
func ParseAnchorMode(raw string) (AnchorMode, error) {
	switch AnchorMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", AnchorReference:
		return AnchorReference, nil
	case AnchorTarget:
		return AnchorTarget, nil
	default:
		return "", fmt.Errorf("normalization: unknown anchor mode %q", raw)
	}
}

// Appointment is the normalized form. Date and Time are set together or not at all.
type Appointment struct {
	Date       *string `json:"date"`
	Time       *string `json:"time"`
	TZ         string  `json:"tz"`
	Department *string `json:"department"`
}

// Result is the normalizer output.
type Result struct {
	Normalized           Appointment
	Confidence           float64
	DepartmentNormalized *string
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	dict       *departments.Dictionary
	recognizer extraction.Recognizer
	target     *time.Location
	anchor     AnchorMode
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAnchorMode sets the anchor mode.
func WithAnchorMode(mode AnchorMode) Option {
	return func(n *Normalizer) {
		n.anchor = mode
	}
}

// WithRecognizer replaces the temporal parser.
func WithRecognizer(r extraction.Recognizer) Option {
	return func(n *Normalizer) {
		n.recognizer = r
	}
}

// New builds a Normalizer sharing dict with the extractor.
func New(dict *departments.Dictionary, opts ...Option) (*Normalizer, error) {
	loc, err := time.LoadLocation(TargetTimezone)
	if err != nil {
		return nil, fmt.Errorf("normalization: load %s: %w", TargetTimezone, err)
	}
	if dict == nil {
		dict = departments.Default()
	}
	n := &Normalizer{
		dict:       dict,
		recognizer: temporal.NewParser(temporal.WithForwardDate(), temporal.WithBareHours()),
		target:     loc,
		anchor:     AnchorReference,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Normalize resolves entities against now. Unresolvable input is not an
// error: date and time stay nil and confidence is zero.
func (n *Normalizer) Normalize(ents extraction.Entities, now time.Time) Result {
	res := Result{
		Normalized: Appointment{TZ: TargetTimezone},
		Confidence: ConfidenceUnresolved,
	}

	if ents.DepartmentRaw != nil {
		if label, ok := n.dict.Canonical(*ents.DepartmentRaw); ok {
			res.DepartmentNormalized = &label
			res.Normalized.Department = &label
		}
	}

	phrase := combine(ents.DatePhrase, ents.TimePhrase)
	if phrase == "" {
		return res
	}

	ref := now
	if n.anchor == AnchorTarget {
		ref = now.In(n.target)
	}
	match, ok := n.recognizer.ParseFirst(phrase, ref)
	if !ok {
		return res
	}

	local := match.Start.Date().In(n.target)
	date := local.Format(dateLayout)
	clock := local.Format(timeLayout)
	res.Normalized.Date = &date
	res.Normalized.Time = &clock
	res.Confidence = ConfidenceResolved
	return res
}

func combine(parts ...*string) string {
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		if s := strings.TrimSpace(*p); s != "" {
			words = append(words, s)
		}
	}
	return strings.Join(words, " ")
}
