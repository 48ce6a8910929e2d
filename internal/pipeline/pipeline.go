// Package pipeline runs extraction, normalization and guardrail evaluation in
// sequence over one piece of raw text.
package pipeline

import (
	"time"

	"github.com/wolfman30/appointment-intake/internal/departments"
	"github.com/wolfman30/appointment-intake/internal/extraction"
	"github.com/wolfman30/appointment-intake/internal/guardrail"
	"github.com/wolfman30/appointment-intake/internal/normalization"
	"github.com/wolfman30/appointment-intake/internal/temporal"
)

// RawInput is text ready for understanding. Confidence is 1.0 for typed text
// and the OCR score for image input.
type RawInput struct {
	Text       string
	Confidence float64
	FromImage  bool
}

// Outcome keeps every intermediate result alongside the decision.
type Outcome struct {
	Extraction    extraction.Result
	Normalization normalization.Result
	Decision      guardrail.Decision
}

// Pipeline holds no per-request state and may be shared.
type Pipeline struct {
	extractor  *extraction.Extractor
	normalizer *normalization.Normalizer
}

// New wires both stages to one dictionary and one temporal parser.
func New(dict *departments.Dictionary, anchor normalization.AnchorMode) (*Pipeline, error) {
	if dict == nil {
		dict = departments.Default()
	}
	// The normalizer re-parses split phrases, where "tomorrow at 3" has become
	// "tomorrow 3", so it also accepts bare hours beside a date.
	normalizer, err := normalization.New(dict,
		normalization.WithRecognizer(temporal.NewParser(temporal.WithForwardDate(), temporal.WithBareHours())),
		normalization.WithAnchorMode(anchor),
	)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		extractor:  extraction.New(dict, temporal.NewParser(temporal.WithForwardDate())),
		normalizer: normalizer,
	}, nil
}

// Run processes in against now. Blank text must be rejected by the caller.
func (p *Pipeline) Run(in RawInput, now time.Time) Outcome {
	ext := p.extractor.Extract(in.Text, now)
	norm := p.normalizer.Normalize(ext.Entities, now)
	decision := guardrail.Evaluate(guardrail.Input{
		RawText:                 in.Text,
		FromImage:               in.FromImage,
		OCRConfidence:           in.Confidence,
		Entities:                ext.Entities,
		EntitiesConfidence:      ext.Confidence,
		Normalized:              norm.Normalized,
		NormalizationConfidence: norm.Confidence,
		DepartmentNormalized:    norm.DepartmentNormalized,
	})
	return Outcome{Extraction: ext, Normalization: norm, Decision: decision}
}
