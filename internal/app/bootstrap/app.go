package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/appointment-intake/internal/api/router"
	"github.com/wolfman30/appointment-intake/internal/archive"
	appconfig "github.com/wolfman30/appointment-intake/internal/config"
	"github.com/wolfman30/appointment-intake/internal/events"
	"github.com/wolfman30/appointment-intake/internal/intake"
	"github.com/wolfman30/appointment-intake/internal/normalization"
	"github.com/wolfman30/appointment-intake/internal/observability/metrics"
	"github.com/wolfman30/appointment-intake/internal/pipeline"
	"github.com/wolfman30/appointment-intake/pkg/logging"
)

// Options carries dependencies created by the binary.
type Options struct {
	// AWS is required only when ARCHIVE_BUCKET or CLARIFICATION_QUEUE_URL is set.
	AWS *aws.Config
	// Registry defaults to a fresh registry with Go and process collectors.
	Registry *prometheus.Registry
	// Now overrides the clock used to resolve relative dates.
	Now func() time.Time
}

// App is the fully wired HTTP surface.
type App struct {
	Handler http.Handler
	closers []func()
}

// Close releases pools, clients and background goroutines in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// NeedsAWS reports whether cfg enables an AWS-backed component.
func NeedsAWS(cfg *appconfig.Config) bool {
	return cfg != nil && (strings.TrimSpace(cfg.ArchiveBucket) != "" || strings.TrimSpace(cfg.ClarificationQueueURL) != "")
}

// Build wires every component named by cfg into one router.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	app := &App{}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	anchor, err := normalization.ParseAnchorMode(cfg.AnchorZone)
	if err != nil {
		return fail(fmt.Errorf("bootstrap: %w", err))
	}
	p, err := pipeline.New(nil, anchor)
	if err != nil {
		return fail(fmt.Errorf("bootstrap: pipeline: %w", err))
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	intakeMetrics := metrics.NewIntakeMetrics(registry)

	engine, closeEngine, err := BuildOCREngine(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	app.closers = append(app.closers, closeEngine)

	repo, closeRepo, err := BuildRecordsRepository(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	app.closers = append(app.closers, closeRepo)

	var (
		store     *archive.Store
		publisher events.Publisher = events.NopPublisher{}
	)
	if NeedsAWS(cfg) {
		if opts.AWS == nil {
			return fail(fmt.Errorf("bootstrap: aws config required for archive or clarification queue"))
		}
		if cfg.ArchiveBucket != "" {
			s3Client := s3.NewFromConfig(*opts.AWS, func(o *s3.Options) {
				o.UsePathStyle = cfg.AWSEndpointOverride != ""
			})
			store = archive.NewStore(s3Client, cfg.ArchiveBucket, logger)
			logger.Info("upload archive enabled", "bucket", cfg.ArchiveBucket)
		}
		if cfg.ClarificationQueueURL != "" {
			publisher = events.NewSQSPublisher(sqs.NewFromConfig(*opts.AWS), cfg.ClarificationQueueURL)
			logger.Info("intake events enabled", "queue_url", cfg.ClarificationQueueURL)
		}
	}

	service, err := intake.NewService(intake.Deps{
		Pipeline:   p,
		Engine:     engine,
		OCRTimeout: cfg.OCRTimeout,
		Records:    repo,
		Archive:    store,
		Publisher:  publisher,
		Metrics:    intakeMetrics,
		Logger:     logger,
		Now:        opts.Now,
	})
	if err != nil {
		return fail(err)
	}

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}
	limiter, closeLimiter := BuildRateLimiter(redisClient, cfg, logger)
	app.closers = append(app.closers, closeLimiter)

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes disabled")
	}

	app.Handler = router.New(&router.Config{
		Logger: logger,
		IntakeHandler: intake.NewHandler(intake.HandlerConfig{
			Service:        service,
			Records:        repo,
			Archive:        store,
			Gatherer:       registry,
			MaxUploadBytes: cfg.MaxUploadBytes,
			Logger:         logger,
		}),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		AdminAuthSecret:    cfg.AdminJWTSecret,
	})
	return app, nil
}
