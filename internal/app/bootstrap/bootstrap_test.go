package bootstrap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/appointment-intake/internal/config"
	httpmiddleware "github.com/wolfman30/appointment-intake/internal/http/middleware"
	"github.com/wolfman30/appointment-intake/internal/records"
	"github.com/wolfman30/appointment-intake/internal/velocity"
	"github.com/wolfman30/appointment-intake/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, quietLogger(), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, quietLogger(), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	limiter, closeFn := BuildRateLimiter(client, &appconfig.Config{RateLimitPerMinute: 5}, quietLogger())
	defer closeFn()
	if _, ok := limiter.(*velocity.Limiter); !ok {
		t.Fatalf("expected redis limiter, got %T", limiter)
	}
}

func TestBuildRateLimiterFallsBackToMemory(t *testing.T) {
	limiter, closeFn := BuildRateLimiter(nil, &appconfig.Config{RateLimitPerMinute: 5}, quietLogger())
	defer closeFn()
	if _, ok := limiter.(*httpmiddleware.RateLimiter); !ok {
		t.Fatalf("expected in-memory limiter, got %T", limiter)
	}

	limiter, closeFn = BuildRateLimiter(nil, &appconfig.Config{}, quietLogger())
	defer closeFn()
	if limiter != nil {
		t.Fatalf("expected no limiter when disabled")
	}
}

func TestBuildRecordsRepositoryInMemory(t *testing.T) {
	repo, closeFn, err := BuildRecordsRepository(context.Background(), &appconfig.Config{}, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()
	if _, ok := repo.(*records.InMemoryRepository); !ok {
		t.Fatalf("expected in-memory repository, got %T", repo)
	}
}

func TestBuildOCREngine(t *testing.T) {
	tests := []struct {
		engine  string
		want    string
		wantErr bool
	}{
		{engine: "", want: "tesseract"},
		{engine: "tesseract", want: "tesseract"},
		{engine: "none", want: "none"},
		{engine: "gemini", wantErr: true}, // no api key
		{engine: "abbyy", wantErr: true},
	}
	for _, tt := range tests {
		engine, closeFn, err := BuildOCREngine(context.Background(), &appconfig.Config{OCREngine: tt.engine}, quietLogger())
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.engine)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.engine, err)
		}
		closeFn()
		if engine.Name() != tt.want {
			t.Errorf("%q: expected %s engine, got %s", tt.engine, tt.want, engine.Name())
		}
	}

	if _, _, err := BuildOCREngine(context.Background(), nil, quietLogger()); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildServesRequests(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	monday := time.Date(2026, time.October, 19, 9, 0, 0, 0, loc)

	app, err := Build(context.Background(), &appconfig.Config{
		AnchorZone:         "reference",
		OCREngine:          "none",
		RateLimitPerMinute: 100,
		MaxUploadBytes:     1 << 20,
	}, quietLogger(), Options{Now: func() time.Time { return monday }})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	req := httptest.NewRequest(http.MethodPost, "/process-appointment", strings.NewReader(`{"text":"Book dentist next Friday at 3pm"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"date":"2026-10-30"`) {
		t.Errorf("expected resolved date in %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "appointment_intake_requests_total") {
		t.Errorf("expected intake metrics to be exported")
	}
}

func TestBuildRejectsBadConfig(t *testing.T) {
	if _, err := Build(context.Background(), &appconfig.Config{AnchorZone: "server"}, quietLogger(), Options{}); err == nil {
		t.Fatalf("expected error for unknown anchor zone")
	}
	if _, err := Build(context.Background(), &appconfig.Config{OCREngine: "none", ArchiveBucket: "b"}, quietLogger(), Options{}); err == nil {
		t.Fatalf("expected error when archive is configured without aws")
	}
}
