// Package records persists one row per processed appointment request.
package records

import (
	"errors"
	"time"
)

// Sources of raw text.
const (
	SourceText  = "text"
	SourceImage = "image"
)

// Statuses mirror the response status.
const (
	StatusOK                 = "ok"
	StatusNeedsClarification = "needs_clarification"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("records: intake not found")

// Record is a stored intake outcome.
type Record struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id,omitempty"`
	Source    string `json:"source"`
	Status    string `json:"status"`

	RawText       string  `json:"raw_text"`
	OCRConfidence float64 `json:"ocr_confidence"`

	DatePhrase         *string `json:"date_phrase"`
	TimePhrase         *string `json:"time_phrase"`
	DepartmentRaw      *string `json:"department_raw"`
	EntitiesConfidence float64 `json:"entities_confidence"`

	Date                    *string `json:"date"`
	Time                    *string `json:"time"`
	TZ                      string  `json:"tz"`
	Department              *string `json:"department"`
	NormalizationConfidence float64 `json:"normalization_confidence"`

	Reasons    []string  `json:"reasons"`
	ArchiveKey string    `json:"archive_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Status string `validate:"omitempty,oneof=ok needs_clarification"`
	Limit  int    `validate:"min=0,max=200"`
	Offset int    `validate:"min=0"`
}

const defaultListLimit = 50

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}
