// Package extraction finds the department keyword and the first date/time
// phrase in an appointment request.
package extraction

import (
	"time"

	"github.com/wolfman30/appointment-intake/internal/departments"
	"github.com/wolfman30/appointment-intake/internal/temporal"
)

// Confidence values reported by Extract.
const (
	ConfidenceMatched = 0.85
	ConfidenceWeak    = 0.5
)

// Entities are the raw spans found in the text. A nil field was not found.
type Entities struct {
	DatePhrase    *string `json:"date_phrase"`
	TimePhrase    *string `json:"time_phrase"`
	DepartmentRaw *string `json:"department"`
}

// Result is the extractor output.
type Result struct {
	Entities   Entities
	Confidence float64
}

// Recognizer finds the first date/time phrase in text relative to ref.
type Recognizer interface {
	ParseFirst(text string, ref time.Time) (temporal.Result, bool)
}

// Extractor is safe for concurrent use; it holds no per-call state.
type Extractor struct {
	dict       *departments.Dictionary
	recognizer Recognizer
}

// New builds an Extractor. Nil arguments fall back to the default dictionary
// and a forward-dating temporal parser.
func New(dict *departments.Dictionary, recognizer Recognizer) *Extractor {
	if dict == nil {
		dict = departments.Default()
	}
	if recognizer == nil {
		recognizer = temporal.NewParser(temporal.WithForwardDate())
	}
	return &Extractor{dict: dict, recognizer: recognizer}
}

// Extract scans text for a department and a date/time phrase anchored to now.
func (e *Extractor) Extract(text string, now time.Time) Result {
	var ents Entities

	if keyword, _, ok := e.dict.Match(text); ok {
		ents.DepartmentRaw = &keyword
	}

	if match, ok := e.recognizer.ParseFirst(text, now); ok {
		split := SplitPhrase(match.Text, match.Start.IsCertain(temporal.Hour))
		ents.DatePhrase = optional(split.DatePart)
		ents.TimePhrase = optional(split.TimePart)
	}

	confidence := ConfidenceWeak
	if ents.DepartmentRaw != nil && (ents.DatePhrase != nil || ents.TimePhrase != nil) {
		confidence = ConfidenceMatched
	}
	return Result{Entities: ents, Confidence: confidence}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
