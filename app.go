package vidtube

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/authorization"
	"github.com/nasermirzaei89/vidtube/authorization/casbin"
	"github.com/nasermirzaei89/vidtube/contents"
	"github.com/nasermirzaei89/vidtube/database/sqlite3"
	"github.com/nasermirzaei89/vidtube/discuss"
	"github.com/nasermirzaei89/vidtube/mailer"
	"github.com/nasermirzaei89/vidtube/notifications"
	"github.com/nasermirzaei89/vidtube/random"
	"github.com/nasermirzaei89/vidtube/reactions"
	"github.com/nasermirzaei89/vidtube/server"
	"github.com/nasermirzaei89/vidtube/storage"
	"github.com/nasermirzaei89/vidtube/storage/minio"
	"github.com/nasermirzaei89/vidtube/web"
)

type App struct {
	server        *server.Server
	handler       *web.Handler
	authSvc       *authentication.Service
	purgeInterval time.Duration
	db            *sql.DB
}

//go:embed policy.csv
var defaultAuthorizationPolicyContent string

func NewApp(ctx context.Context) (*App, error) {
	db, err := sqlite3.NewDB(ctx, env.GetString("DB_DSN", "file::memory:?cache=shared"))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	err = sqlite3.MigrateUp(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	transactor := sqlite3.NewTransactor(db)
	userRepo := sqlite3.NewUserRepository(db)
	purgeRepo := sqlite3.NewPurgeRepository(db)
	videoRepo := sqlite3.NewVideoRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)
	replyRepo := sqlite3.NewReplyRepository(db)
	notificationRepo := sqlite3.NewNotificationRepository(db)

	authzProvider, err := newAuthorizationProvider(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization provider: %w", err)
	}

	authzSvc, err := authorization.NewService(authzProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization service: %w", err)
	}

	authzClient := authorization.NewClient(authzSvc)

	objects, err := newObjectStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	tokenTTL := getDurationFromEnv("TOKEN_TTL", authentication.DefaultTokenTTL)
	tokens := authentication.NewTokenIssuer([]byte(env.GetString("JWT_SECRET", random.String(32))), tokenTTL)

	authSvc := authentication.NewService(
		userRepo,
		purgeRepo,
		transactor,
		tokens,
		newOTPSender(),
		authzClient,
		objects,
	)

	err = authSvc.LoadBloomFilter(ctx, 10_000, 0.01)
	if err != nil {
		return nil, fmt.Errorf("failed to load bloom filter: %w", err)
	}

	notificationsSvc := notifications.NewService(notificationRepo, userRepo, transactor)
	discussSvc := discuss.NewService(commentRepo, replyRepo, videoRepo, userRepo, notificationsSvc, transactor)
	contentsSvc := contents.NewService(videoRepo, userRepo, transactor, objects, discussSvc)
	reactionsSvc := reactions.NewService(videoRepo, userRepo, transactor)

	httpHandler := web.NewHandler(
		authSvc,
		contents.NewAuthorizationMiddleware(authzClient, contentsSvc),
		discuss.NewAuthorizationMiddleware(authzClient, discussSvc),
		reactions.NewAuthorizationMiddleware(authzClient, reactionsSvc),
		notifications.NewAuthorizationMiddleware(authzClient, notificationsSvc),
		web.WithRateLimit(
			getFloatFromEnv("RATE_LIMIT_RPS", web.DefaultRateLimitRPS),
			getIntFromEnv("RATE_LIMIT_BURST", web.DefaultRateLimitBurst),
		),
	)

	app := &App{
		server:        newServer(),
		handler:       httpHandler,
		authSvc:       authSvc,
		purgeInterval: getDurationFromEnv("PURGE_INTERVAL", authentication.DefaultPurgeInterval),
		db:            db,
	}

	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	// Handle SIGINT (CTRL+C) and SIGTERM gracefully.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if app.db != nil {
			err := app.db.Close()
			if err != nil {
				slog.ErrorContext(ctx, "failed to close database", "error", err)
			}
		}
	}()

	stopPurge := authentication.StartPurgeWorker(ctx, app.authSvc, app.purgeInterval)
	defer stopPurge()

	err := app.server.Run(ctx, app.handler)
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	return nil
}

func newServer() *server.Server {
	server := &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}

	return server
}

// newOTPSender logs codes instead of mailing them when no SMTP host is set.
func newOTPSender() authentication.OTPSender {
	host := env.GetString("SMTP_HOST", "")
	if host == "" {
		slog.Warn("SMTP_HOST is not set, one-time passwords will be logged")

		return mailer.LogSender{}
	}

	return mailer.NewSMTPSender(mailer.Config{
		Host:        host,
		Port:        getIntFromEnv("SMTP_PORT", 587),
		Username:    env.GetString("SMTP_USERNAME", ""),
		Password:    env.GetString("SMTP_PASSWORD", ""),
		From:        env.GetString("SMTP_FROM", "no-reply@vidtube.local"),
		ImplicitTLS: env.GetBool("SMTP_IMPLICIT_TLS", false),
	})
}

// newObjectStore keeps files in memory when no MinIO endpoint is set.
func newObjectStore(ctx context.Context) (storage.ObjectStore, error) {
	endpoint := env.GetString("MINIO_ENDPOINT", "")
	if endpoint == "" {
		slog.WarnContext(ctx, "MINIO_ENDPOINT is not set, uploaded files will be kept in memory")

		return storage.NewMemoryStore(env.GetString("OBJECTS_PUBLIC_URL", "http://localhost/objects")), nil
	}

	store, err := minio.NewObjectStore(ctx, minio.Config{
		Endpoint:  endpoint,
		AccessKey: env.GetString("MINIO_ACCESS_KEY", ""),
		SecretKey: env.GetString("MINIO_SECRET_KEY", ""),
		UseSSL:    env.GetBool("MINIO_USE_SSL", false),
		Bucket:    env.GetString("MINIO_BUCKET", "vidtube"),
		Region:    env.GetString("MINIO_REGION", ""),
		PublicURL: env.GetString("OBJECTS_PUBLIC_URL", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio object store: %w", err)
	}

	return store, nil
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}

func getDurationFromEnv(key string, def time.Duration) time.Duration {
	raw := env.GetString(key, "")
	if raw == "" {
		return def
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", def)

		return def
	}

	return d
}

func getIntFromEnv(key string, def int) int {
	raw := env.GetString(key, "")
	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer, using default", "key", key, "value", raw, "default", def)

		return def
	}

	return n
}

func getFloatFromEnv(key string, def float64) float64 {
	raw := env.GetString(key, "")
	if raw == "" {
		return def
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("invalid number, using default", "key", key, "value", raw, "default", def)

		return def
	}

	return f
}

func newAuthorizationProvider(ctx context.Context, db *sql.DB) (*casbin.AuthorizationProvider, error) {
	adapter, err := casbin.NewSQLAdapter(db, casbin.DriverSQLite, casbin.DefaultPolicyTable)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization adapter: %w", err)
	}

	provider, err := casbin.NewAuthorizationProvider(adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization provider: %w", err)
	}

	policyContent, err := loadPolicyContent()
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization policy content: %w", err)
	}

	err = provider.AddPolicyFromCSV(ctx, policyContent)
	if err != nil {
		return nil, fmt.Errorf("failed to add authorization policy from csv: %w", err)
	}

	return provider, nil
}

func loadPolicyContent() (string, error) {
	policyFilePath := env.GetString("AUTHORIZATION_POLICY_FILE", "")

	if policyFilePath == "" {
		return defaultAuthorizationPolicyContent, nil
	}

	content, err := os.ReadFile(policyFilePath) // nolint:gosec
	if err != nil {
		return "", fmt.Errorf("failed to read policy file %q: %w", policyFilePath, err)
	}

	return string(content), nil
}
