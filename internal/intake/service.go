// Package intake turns one patient request, typed or photographed, into a
// confirmed appointment or a clarification request.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/appointment-intake/internal/archive"
	"github.com/wolfman30/appointment-intake/internal/events"
	"github.com/wolfman30/appointment-intake/internal/extraction"
	"github.com/wolfman30/appointment-intake/internal/guardrail"
	"github.com/wolfman30/appointment-intake/internal/normalization"
	"github.com/wolfman30/appointment-intake/internal/observability/metrics"
	"github.com/wolfman30/appointment-intake/internal/ocr"
	"github.com/wolfman30/appointment-intake/internal/pipeline"
	"github.com/wolfman30/appointment-intake/internal/records"
	"github.com/wolfman30/appointment-intake/pkg/logging"
)

var tracer = otel.Tracer("intake.internal.intake")

// Messages returned before the pipeline runs.
const (
	MessageNoInput      = "No input provided. Please provide text or an image."
	MessageNoTextInput  = "Could not detect any text from the input."
	defaultOCRTimeout   = 30 * time.Second
	aggregatePrefix     = "intake:"
	statusOK            = records.StatusOK
	statusClarification = records.StatusNeedsClarification
)

// Request is one call to the intake endpoint. Image wins over Text.
type Request struct {
	RequestID string
	Text      string
	Image     []byte
	MIMEType  string
}

// ConfirmedBody is the response for a fully resolved appointment.
type ConfirmedBody struct {
	RawText                 string                    `json:"raw_text"`
	OCRConfidence           float64                   `json:"ocr_confidence"`
	Entities                extraction.Entities       `json:"entities"`
	EntitiesConfidence      float64                   `json:"entities_confidence"`
	Normalized              normalization.Appointment `json:"normalized"`
	NormalizationConfidence float64                   `json:"normalization_confidence"`
	Appointment             guardrail.Appointment     `json:"appointment"`
	Status                  string                    `json:"status"`
}

// ClarificationBody is the response when the request cannot be booked as is.
type ClarificationBody struct {
	Status    string           `json:"status"`
	Message   string           `json:"message"`
	DebugInfo *guardrail.Debug `json:"debug_info,omitempty"`
}

// Outcome is what the handler writes back. Body is a ConfirmedBody or a
// ClarificationBody.
type Outcome struct {
	IntakeID string
	Status   string
	Body     any
}

// Processor is implemented by Service.
type Processor interface {
	Process(ctx context.Context, req Request) (Outcome, error)
}

// Deps wires a Service. Only Pipeline is required.
type Deps struct {
	Pipeline   *pipeline.Pipeline
	Engine     ocr.Engine
	OCRTimeout time.Duration
	Records    records.Repository
	Archive    *archive.Store
	Publisher  events.Publisher
	Metrics    *metrics.IntakeMetrics
	Logger     *logging.Logger
	Now        func() time.Time
}

// Service runs OCR, the understanding pipeline, and best-effort persistence.
type Service struct {
	pipeline   *pipeline.Pipeline
	engine     ocr.Engine
	ocrTimeout time.Duration
	records    records.Repository
	archive    *archive.Store
	publisher  events.Publisher
	metrics    *metrics.IntakeMetrics
	logger     *logging.Logger
	now        func() time.Time
}

// NewService validates deps and fills defaults.
func NewService(deps Deps) (*Service, error) {
	if deps.Pipeline == nil {
		return nil, errors.New("intake: pipeline is required")
	}
	if deps.Engine == nil {
		deps.Engine = ocr.DisabledEngine{}
	}
	if deps.OCRTimeout <= 0 {
		deps.OCRTimeout = defaultOCRTimeout
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		pipeline:   deps.Pipeline,
		engine:     deps.Engine,
		ocrTimeout: deps.OCRTimeout,
		records:    deps.Records,
		archive:    deps.Archive,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}, nil
}

// Process handles one request. Ambiguity never produces an error; the error
// return is reserved for cancelled contexts.
func (s *Service) Process(ctx context.Context, req Request) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "intake.process")
	defer span.End()

	fromImage := len(req.Image) > 0
	source := records.SourceText
	if fromImage {
		source = records.SourceImage
	}
	span.SetAttributes(attribute.String("intake.source", source))

	// Whitespace-only text was still supplied and falls through to the
	// no-text exit below.
	if !fromImage && req.Text == "" {
		s.metrics.ObserveRequest("none", statusClarification)
		return Outcome{
			Status: statusClarification,
			Body:   ClarificationBody{Status: statusClarification, Message: MessageNoInput},
		}, nil
	}

	now := s.now()
	rec := records.Record{
		ID:        uuid.New().String(),
		RequestID: req.RequestID,
		Source:    source,
		CreatedAt: now.UTC(),
	}

	raw := ocr.FromText(req.Text)
	if fromImage {
		raw = s.recognize(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, fmt.Errorf("intake: request cancelled: %w", err)
	}
	rec.RawText = raw.Text
	rec.OCRConfidence = raw.Confidence

	if strings.TrimSpace(raw.Text) == "" {
		rec.Status = statusClarification
		rec.Reasons = []string{}
		s.persist(ctx, req, &rec, nil)
		s.metrics.ObserveRequest(source, statusClarification)
		span.SetAttributes(attribute.String("intake.status", statusClarification))
		return Outcome{
			IntakeID: rec.ID,
			Status:   statusClarification,
			Body:     ClarificationBody{Status: statusClarification, Message: MessageNoTextInput},
		}, nil
	}

	started := time.Now()
	out := s.pipeline.Run(pipeline.RawInput{
		Text:       raw.Text,
		Confidence: raw.Confidence,
		FromImage:  fromImage,
	}, now)
	s.metrics.ObservePipeline(time.Since(started))

	fillRecord(&rec, out)

	var body any
	switch d := out.Decision.(type) {
	case guardrail.Confirmed:
		rec.Status = statusOK
		body = ConfirmedBody{
			RawText:                 d.RawText,
			OCRConfidence:           d.Scores.OCR,
			Entities:                d.Entities,
			EntitiesConfidence:      d.Scores.Entities,
			Normalized:              d.Normalized,
			NormalizationConfidence: d.Scores.Normalization,
			Appointment:             d.Appointment,
			Status:                  statusOK,
		}
	case guardrail.NeedsClarification:
		rec.Status = statusClarification
		rec.Reasons = d.Reasons
		debug := d.Debug
		body = ClarificationBody{
			Status:    statusClarification,
			Message:   d.Message(),
			DebugInfo: &debug,
		}
		s.metrics.ObserveReasons(d.Reasons)
	default:
		return Outcome{}, fmt.Errorf("intake: unexpected decision %T", out.Decision)
	}

	s.persist(ctx, req, &rec, out.Decision)
	s.metrics.ObserveRequest(source, rec.Status)
	span.SetAttributes(
		attribute.String("intake.id", rec.ID),
		attribute.String("intake.status", rec.Status),
	)
	s.logger.Info("intake processed",
		"intake_id", rec.ID,
		"request_id", req.RequestID,
		"source", source,
		"status", rec.Status,
		"reasons", rec.Reasons,
	)

	return Outcome{IntakeID: rec.ID, Status: rec.Status, Body: body}, nil
}

// recognize degrades every engine failure to empty text with zero confidence.
func (s *Service) recognize(ctx context.Context, req Request) ocr.Result {
	ctx, span := tracer.Start(ctx, "intake.ocr", trace.WithAttributes(
		attribute.String("ocr.engine", s.engine.Name()),
		attribute.String("ocr.mime_type", req.MIMEType),
		attribute.Int("ocr.size_bytes", len(req.Image)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.ocrTimeout)
	defer cancel()

	started := time.Now()
	res, err := s.engine.Recognize(ctx, req.Image, req.MIMEType)
	s.metrics.ObserveOCR(s.engine.Name(), time.Since(started), res.Confidence, err)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("ocr failed",
			"engine", s.engine.Name(),
			"request_id", req.RequestID,
			"error", err,
		)
		return ocr.Result{}
	}
	return res
}

func fillRecord(rec *records.Record, out pipeline.Outcome) {
	rec.DatePhrase = out.Extraction.Entities.DatePhrase
	rec.TimePhrase = out.Extraction.Entities.TimePhrase
	rec.DepartmentRaw = out.Extraction.Entities.DepartmentRaw
	rec.EntitiesConfidence = out.Extraction.Confidence
	rec.Date = out.Normalization.Normalized.Date
	rec.Time = out.Normalization.Normalized.Time
	rec.TZ = out.Normalization.Normalized.TZ
	rec.Department = out.Normalization.DepartmentNormalized
	rec.NormalizationConfidence = out.Normalization.Confidence
	rec.Reasons = []string{}
}

// persist archives the image, stores the record and publishes the event.
// Failures are logged and never change the response.
func (s *Service) persist(ctx context.Context, req Request, rec *records.Record, decision guardrail.Decision) {
	rec.RawText = archive.ScrubPII(rec.RawText)

	if len(req.Image) > 0 && s.archive.Enabled() {
		key, err := s.archive.ArchiveUpload(ctx, archive.Upload{
			IntakeID:   rec.ID,
			Image:      req.Image,
			MIMEType:   req.MIMEType,
			ReceivedAt: rec.CreatedAt,
		}, rec.Status, rec.OCRConfidence)
		if err != nil {
			s.logger.Warn("failed to archive upload", "intake_id", rec.ID, "error", err)
		}
		rec.ArchiveKey = key
	}

	if s.records != nil {
		if err := s.records.Save(ctx, rec); err != nil {
			s.logger.Warn("failed to save intake record", "intake_id", rec.ID, "error", err)
		}
	}

	evt := eventFor(rec, decision)
	if evt == nil {
		return
	}
	if err := s.publisher.Publish(ctx, aggregatePrefix+rec.ID, rec.RequestID, evt); err != nil {
		s.logger.Warn("failed to publish intake event",
			"intake_id", rec.ID,
			"event_type", evt.EventType(),
			"error", err,
		)
	}
}

func eventFor(rec *records.Record, decision guardrail.Decision) events.CanonicalEvent {
	switch d := decision.(type) {
	case guardrail.Confirmed:
		return events.AppointmentConfirmedV1{
			IntakeID:    rec.ID,
			Source:      rec.Source,
			Department:  d.Appointment.Department,
			Date:        d.Appointment.Date,
			Time:        d.Appointment.Time,
			TZ:          d.Appointment.TZ,
			ConfirmedAt: rec.CreatedAt,
		}
	case guardrail.NeedsClarification:
		return events.ClarificationRequestedV1{
			IntakeID:    rec.ID,
			Source:      rec.Source,
			Reasons:     d.Reasons,
			Message:     d.Message(),
			RawText:     rec.RawText,
			Department:  rec.Department,
			Date:        rec.Date,
			Time:        rec.Time,
			RequestedAt: rec.CreatedAt,
		}
	case nil:
		return events.ClarificationRequestedV1{
			IntakeID:    rec.ID,
			Source:      rec.Source,
			Reasons:     []string{},
			Message:     MessageNoTextInput,
			RequestedAt: rec.CreatedAt,
		}
	}
	return nil
}
