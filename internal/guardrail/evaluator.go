// Package guardrail decides whether a normalized appointment is trustworthy
// enough to confirm or must go back to the patient for clarification.
package guardrail

import (
	"strings"

	"github.com/wolfman30/appointment-intake/internal/extraction"
	"github.com/wolfman30/appointment-intake/internal/normalization"
)

// OCRThreshold is the lowest OCR confidence accepted for image input.
const OCRThreshold = 0.5

// Reasons reported by NeedsClarification, in evaluation order.
const (
	ReasonLowOCRConfidence  = "Low OCR confidence"
	ReasonUnknownDepartment = "Unknown department"
	ReasonAmbiguousDateTime = "Ambiguous date/time"
)

// Input gathers everything the pipeline learned about one request.
type Input struct {
	RawText   string
	FromImage bool
	// OCRConfidence is 1.0 for typed text.
	OCRConfidence float64

	Entities           extraction.Entities
	EntitiesConfidence float64

	Normalized              normalization.Appointment
	NormalizationConfidence float64
	DepartmentNormalized    *string
}

// Decision is either Confirmed or NeedsClarification.
type Decision interface {
	decision()
}

// Appointment is a fully resolved booking request.
type Appointment struct {
	Department string `json:"department"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	TZ         string `json:"tz"`
}

// Scores carries the upstream confidence values.
type Scores struct {
	OCR           float64 `json:"ocr_confidence"`
	Entities      float64 `json:"entities_confidence"`
	Normalization float64 `json:"normalization_confidence"`
}

// Confirmed is returned when every check passed.
type Confirmed struct {
	Appointment Appointment
	Scores      Scores
	RawText     string
	Entities    extraction.Entities
	Normalized  normalization.Appointment
}

// Debug is echoed back with a clarification request.
type Debug struct {
	RawText    string                    `json:"raw_text"`
	Entities   extraction.Entities       `json:"entities"`
	Normalized normalization.Appointment `json:"normalized"`
}

// NeedsClarification lists every failed check.
type NeedsClarification struct {
	Reasons []string
	Debug   Debug
}

func (Confirmed) decision()          {}
func (NeedsClarification) decision() {}

// Message joins the reasons for display.
func (n NeedsClarification) Message() string {
	return strings.Join(n.Reasons, ", ")
}

// Evaluate runs every check and never fails.
func Evaluate(in Input) Decision {
	var reasons []string
	if in.FromImage && in.OCRConfidence < OCRThreshold {
		reasons = append(reasons, ReasonLowOCRConfidence)
	}
	if in.DepartmentNormalized == nil {
		reasons = append(reasons, ReasonUnknownDepartment)
	}
	if in.Normalized.Date == nil || in.Normalized.Time == nil {
		reasons = append(reasons, ReasonAmbiguousDateTime)
	}

	if len(reasons) > 0 {
		return NeedsClarification{
			Reasons: reasons,
			Debug: Debug{
				RawText:    in.RawText,
				Entities:   in.Entities,
				Normalized: in.Normalized,
			},
		}
	}

	return Confirmed{
		Appointment: Appointment{
			Department: *in.DepartmentNormalized,
			Date:       *in.Normalized.Date,
			Time:       *in.Normalized.Time,
			TZ:         in.Normalized.TZ,
		},
		Scores: Scores{
			OCR:           in.OCRConfidence,
			Entities:      in.EntitiesConfidence,
			Normalization: in.NormalizationConfidence,
		},
		RawText:    in.RawText,
		Entities:   in.Entities,
		Normalized: in.Normalized,
	}
}
