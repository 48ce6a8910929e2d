package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"
)

const geminiPrompt = `Read the handwritten or printed note in this image. It is a request for a medical appointment.
Return JSON only: {"text": "<all text in reading order, single line>", "confidence": <0..1 how legible the note was>}.
If there is no text, return {"text": "", "confidence": 0}.`

// generator abstracts the Gemini call so tests can stub it.
type generator interface {
	generate(ctx context.Context, image []byte, mimeType string) (string, error)
}

type genaiGenerator struct {
	client  *genai.Client
	modelID string
}

func (g *genaiGenerator) generate(ctx context.Context, image []byte, mimeType string) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	format := strings.TrimPrefix(mimeType, "image/")
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(geminiPrompt))
	if err != nil {
		return "", fmt.Errorf("ocr: gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("ocr: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("ocr: gemini returned empty content")
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// GeminiEngine reads images with a Gemini vision model.
type GeminiEngine struct {
	gen    generator
	closer func() error
}

// NewGeminiEngine creates a Gemini-backed engine.
func NewGeminiEngine(ctx context.Context, apiKey, modelID string) (*GeminiEngine, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ocr: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to create gemini client: %w", err)
	}
	return &GeminiEngine{
		gen:    &genaiGenerator{client: client, modelID: modelID},
		closer: client.Close,
	}, nil
}

func (e *GeminiEngine) Name() string { return "gemini" }

func (e *GeminiEngine) Recognize(ctx context.Context, image []byte, mimeType string) (Result, error) {
	ctx, span := tracer.Start(ctx, "ocr.gemini")
	defer span.End()
	span.SetAttributes(attribute.String("ocr.mime_type", mimeType))

	if !IsSupported(mimeType) {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedMIME, mimeType)
	}
	raw, err := e.gen.generate(ctx, image, mimeType)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	return parseGeminiResponse(raw)
}

// Close releases resources held by the Gemini client.
func (e *GeminiEngine) Close() error {
	if e.closer != nil {
		return e.closer()
	}
	return nil
}

func parseGeminiResponse(raw string) (Result, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload struct {
		Text       string   `json:"text"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return Result{}, fmt.Errorf("ocr: decode gemini response: %w", err)
	}
	res := Result{Text: collapseWhitespace(payload.Text)}
	if payload.Confidence != nil {
		res.Confidence = round2(clamp01(*payload.Confidence))
	}
	return res, nil
}
