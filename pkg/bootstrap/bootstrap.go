package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"

	shared "github.com/onalog/server/pkg"
	"github.com/onalog/server/pkg/infrastructure/database"
	infrapubsub "github.com/onalog/server/pkg/infrastructure/pubsub"
	infrasentry "github.com/onalog/server/pkg/infrastructure/sentry"
	infrastorage "github.com/onalog/server/pkg/infrastructure/storage"
	"github.com/onalog/server/pkg/parser"
	"github.com/onalog/server/pkg/sheets"
)

// Config holds standard configuration for all services
type Config struct {
	ProjectID         string
	SheetWebAppURL    string
	SheetSecret       string
	GeminiAPIKey      string
	GeminiModel       string
	TelegramBotToken  string
	EnablePublish     bool
	GCSArtifactBucket string
	FetchLimit        int
	SentryDSN         string
	Environment       string
}

// LoadConfig reads configuration from environment variables. A missing
// webapp URL or shared secret is fatal: no run may start without them.
func LoadConfig() (*Config, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = shared.ProjectID // Fallback
	}

	cfg := &Config{
		ProjectID:         projectID,
		SheetWebAppURL:    os.Getenv("SHEET_WEBAPP_URL"),
		SheetSecret:       os.Getenv("SHEET_SECRET"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", shared.DefaultGeminiModel),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		EnablePublish:     os.Getenv("ENABLE_PUBLISH") == "true",
		GCSArtifactBucket: os.Getenv("GCS_ARTIFACT_BUCKET"),
		FetchLimit:        getIntEnv("FETCH_LIMIT", shared.DefaultFetchLimit),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		Environment:       getEnv("ENVIRONMENT", "production"),
	}

	if cfg.SheetWebAppURL == "" {
		return nil, fmt.Errorf("config: SHEET_WEBAPP_URL is required")
	}
	if cfg.SheetSecret == "" {
		return nil, fmt.Errorf("config: SHEET_SECRET is required")
	}
	return cfg, nil
}

// RequireParser enforces the credentials the pipeline needs beyond the
// store; intake-only services skip this check.
func (c *Config) RequireParser() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config: GEMINI_API_KEY is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
	component string
}

// WithGroup implements slog.Handler
func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

// WithAttrs implements slog.Handler
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newComp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			newComp = a.Value.String()
		}
	}
	return &ComponentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: newComp,
	}
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	comp := h.component

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false // stop
		}
		return true
	})

	if comp != "" {
		newMsg := fmt.Sprintf("[%s] %s", comp, r.Message)
		newRecord := slog.NewRecord(r.Time, r.Level, newMsg, r.PC)
		// Keep the component attribute in the structured payload too
		r.Attrs(func(a slog.Attr) bool {
			newRecord.AddAttrs(a)
			return true
		})
		r = newRecord
	}

	return h.Handler.Handle(ctx, r)
}

// InitLogger configures structured logging with Cloud Logging compatible keys
func InitLogger() {
	opts := GetSlogHandlerOptions(LogLevelFromEnv())
	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(&ComponentHandler{Handler: handler})
	slog.SetDefault(logger)
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName string) *slog.Logger {
	opts := GetSlogHandlerOptions(LogLevelFromEnv())
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// LogLevelFromEnv maps LOG_LEVEL to a slog.Level, defaulting to info.
func LogLevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Service holds initialized dependencies
type Service struct {
	DB     shared.Database
	Pub    shared.Publisher
	Store  shared.BlobStore
	Sheets *sheets.Client
	Parser *parser.Parser
	Config *Config

	// Firestore is the raw client, for callers that need transactions
	// (the run lock) rather than the Database abstraction.
	Firestore *firestore.Client
}

// NewService initializes all standard dependencies
func NewService(ctx context.Context) (*Service, error) {
	InitLogger()

	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Configuration invalid", "error", err)
		return nil, err
	}

	slog.Info("Initializing service", "project_id", cfg.ProjectID)

	if err := infrasentry.Init(infrasentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	}, slog.Default()); err != nil {
		// Error tracking is ambient; a broken DSN must not block the run
		slog.Warn("Sentry init failed", "error", err)
	}

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		slog.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			slog.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		slog.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{}
		slog.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		slog.Error("Storage init failed", "error", err)
		return nil, fmt.Errorf("storage init: %w", err)
	}

	return &Service{
		DB:        database.NewFirestoreAdapter(fsClient),
		Pub:       pubAdapter,
		Store:     &infrastorage.StorageAdapter{Client: gcsClient},
		Sheets:    sheets.NewClient(cfg.SheetWebAppURL, cfg.SheetSecret),
		Parser:    parser.New(&parser.GeminiGenerator{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}),
		Config:    cfg,
		Firestore: fsClient,
	}, nil
}
