package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/appointment-intake/pkg/logging"
)

var tracer = otel.Tracer("intake.internal.ocr")

// TesseractConfig holds the tesseract CLI settings.
type TesseractConfig struct {
	// Path is the tesseract executable.
	Path string
	// Languages are passed to -l, e.g. "eng" or "eng+hin".
	Languages string
	// DataPath is an optional tessdata directory.
	DataPath string
}

type commandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// TesseractEngine runs the tesseract CLI and reads its TSV output.
type TesseractEngine struct {
	cfg    TesseractConfig
	run    commandRunner
	logger *logging.Logger
}

// NewTesseractEngine creates an engine. Empty fields take defaults.
func NewTesseractEngine(cfg TesseractConfig, logger *logging.Logger) *TesseractEngine {
	if cfg.Path == "" {
		cfg.Path = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TesseractEngine{cfg: cfg, run: execRunner, logger: logger}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize writes the image to a temp file and runs
// `tesseract <file> stdout -l <langs> tsv`.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, mimeType string) (Result, error) {
	ctx, span := tracer.Start(ctx, "ocr.tesseract")
	defer span.End()
	span.SetAttributes(
		attribute.String("ocr.mime_type", mimeType),
		attribute.Int("ocr.size_bytes", len(image)),
	)

	if !IsSupported(mimeType) {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedMIME, mimeType)
	}

	tmp, err := os.CreateTemp("", "intake_ocr_*")
	if err != nil {
		return Result{}, fmt.Errorf("ocr: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return Result{}, fmt.Errorf("ocr: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("ocr: close temp file: %w", err)
	}

	args := []string{tmpPath, "stdout", "-l", e.cfg.Languages}
	if e.cfg.DataPath != "" {
		args = append(args, "--tessdata-dir", e.cfg.DataPath)
	}
	args = append(args, "tsv")

	stdout, stderr, err := e.run(ctx, e.cfg.Path, args...)
	if err != nil {
		e.logger.Warn("tesseract command failed", "error", err, "stderr", strings.TrimSpace(string(stderr)))
		span.RecordError(err)
		return Result{}, fmt.Errorf("ocr: tesseract: %w", err)
	}

	res, err := parseTSV(stdout)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	span.SetAttributes(attribute.Float64("ocr.confidence", res.Confidence))
	return res, nil
}

// parseTSV reads word rows (level 5) from tesseract TSV output. Text is the
// words joined by single spaces and confidence the mean word confidence
// scaled to [0,1] and rounded to two decimals.
func parseTSV(data []byte) (Result, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var words []string
	var total float64
	header := true
	for scanner.Scan() {
		line := scanner.Text()
		if header {
			header = false
			if strings.HasPrefix(line, "level") {
				continue
			}
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		words = append(words, word)
		total += conf
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("ocr: read tsv: %w", err)
	}
	if len(words) == 0 {
		return Result{}, nil
	}
	return Result{
		Text:       collapseWhitespace(strings.Join(words, " ")),
		Confidence: round2(clamp01(total / float64(len(words)) / 100)),
	}, nil
}
