// Package main is the entry point of the registrar HTTP API.
//
// The server accepts admission and semester enrollment forms, lets the
// registrar's office record course scores, and renders transcripts and
// CSV sheets from the stored records.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smcen/registrar/config"
	"github.com/smcen/registrar/internal/application/command"
	"github.com/smcen/registrar/internal/application/query"
	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/student"
	"github.com/smcen/registrar/internal/domain/transcript"
	"github.com/smcen/registrar/internal/infrastructure/export"
	"github.com/smcen/registrar/internal/infrastructure/persistence/memory"
	"github.com/smcen/registrar/internal/infrastructure/persistence/postgres"
	"github.com/smcen/registrar/internal/infrastructure/persistence/redis"
	httpserver "github.com/smcen/registrar/internal/interface/http"
	"github.com/smcen/registrar/internal/interface/http/handlers"
	"github.com/smcen/registrar/pkg/circuitbreaker"
	"github.com/smcen/registrar/pkg/logger"
	"github.com/smcen/registrar/pkg/retry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := newLogger(cfg)
	log.Info("starting registrar",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	scale, catalog := grading.CanonicalScale, grading.CanonicalCatalog
	if id := cfg.Export.GradingScaleID; id != "" && id != scale.ID() {
		return fmt.Errorf("configured grading scale %q does not match the built-in table %q", id, scale.ID())
	}

	clock := func() time.Time { return time.Now().In(cfg.App.Location) }

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	var (
		students    student.Repository
		enrollments student.EnrollmentRepository
	)

	switch {
	case cfg.Database.URL != "":
		conn, err := connectDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database connection")
			conn.Close()
		}()

		if cfg.Database.MigrateOnStart {
			applied, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database schema is up to date", logger.Count("applied", applied))
		}

		students = postgres.NewStudentRepository(conn)
		enrollments = postgres.NewEnrollmentRepository(conn)
		health.AddCheck("database", handlers.PingCheck(conn))

	case cfg.IsDevelopment():
		log.Warn("DATABASE_URL not set, keeping records in memory")
		students = memory.NewStudentRepository()
		enrollments = memory.NewEnrollmentRepository()

	default:
		return errors.New("DATABASE_URL is required outside development")
	}

	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureRecordCache) {
		cache, err := redis.NewCache(ctx, redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("redis unavailable, record cache disabled", logger.Err(err))
		} else {
			defer func() { _ = cache.Close() }()
			breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			}, redis.IsCacheFailure)
			records := redis.NewGuardedCache(redis.NewStudentCache(cache, cfg.Redis.RecordTTL), breaker)
			students = redis.NewCachedStudentRepository(students, records, log)
			health.AddOptionalCheck("cache", handlers.PingCheck(cache))
			log.Info("record cache enabled", logger.Duration("ttl", cfg.Redis.RecordTTL))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	institution := transcript.DefaultInstitution()
	if len(cfg.Export.HeaderLines) > 0 {
		institution.HeaderLines = cfg.Export.HeaderLines
	}
	if cfg.Export.SignatoryTitle != "" {
		institution.SignatoryTitle = cfg.Export.SignatoryTitle
	}
	institution.Location = cfg.App.Location

	formatter := transcript.NewFormatter(scale, catalog, institution)
	encoder := export.NewPDFEncoder(export.DefaultPDFConfig())
	exportCfg := query.ExportConfig{Workers: cfg.Export.Workers, Timeout: cfg.Export.Timeout}

	var auth *handlers.AdminAuth
	if cfg.Auth.JWTSecret != "" {
		auth = handlers.NewAdminAuth(handlers.AuthConfig{
			Secret: cfg.Auth.JWTSecret,
			Issuer: cfg.Auth.Issuer,
			Role:   cfg.Auth.AdminRole,
		})
	} else {
		log.Warn("JWT_SECRET not set, admin routes are disabled")
	}

	deps := httpserver.Dependencies{
		RegisterStudent:      command.NewRegisterStudentHandler(students, scale, catalog, cfg.Auth.BcryptCost, clock, log),
		EnrollSemester:       command.NewEnrollSemesterHandler(enrollments, catalog, clock, log),
		RecomputeGrades:      command.NewRecomputeGradesHandler(students, scale, catalog, cfg.Features, clock, log),
		GetStudent:           query.NewGetStudentHandler(students, scale, catalog),
		ListStudents:         query.NewListStudentsHandler(students),
		RenderTranscript:     query.NewRenderTranscriptHandler(students, formatter, encoder, clock, log),
		ExportTranscripts:    query.NewExportTranscriptsHandler(students, formatter, encoder, cfg.Features, exportCfg, clock, log),
		ExportStudentsCSV:    query.NewExportStudentsCSVHandler(students),
		ExportEnrollmentsCSV: query.NewExportEnrollmentsCSVHandler(enrollments),
		Auth:                 auth,
		Features:             cfg.Features,
		HealthChecker:        health,
		Logger:               log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	srv := httpserver.NewServer(httpserver.Config{
		Host:               cfg.HTTP.Host,
		Port:               cfg.HTTP.Port,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:     1 << 20,
		MaxBodyBytes:       cfg.HTTP.MaxBodyBytes,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMin,
		Version:            cfg.App.Version,
	}, deps)

	errCh := srv.StartAsync()
	log.Info("registrar is running", logger.String("addr", cfg.HTTPAddr()))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Err(err))
		return err
	}

	log.Info("registrar stopped", logger.Duration("uptime", srv.Uptime()))
	return nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.Observability.LogFormat != "" {
		opts.Format = logger.Format(cfg.Observability.LogFormat)
	}
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts).With(logger.String("app", cfg.App.Name))
}

// connectDatabase dials PostgreSQL, retrying while the database starts up.
func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	if cfg.Database.MaxOpenConns > 0 {
		pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		pgCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	}
	pgCfg.QueryTimeout = cfg.Database.QueryTimeout

	attempts := max(cfg.Database.ConnectAttempts, 1)
	retrier := retry.ConnectRetrier(attempts, func(attempt int, err error, delay time.Duration) {
		log.Warn("database not ready",
			logger.Int("attempt", attempt),
			logger.Duration("retry_in", delay),
			logger.Err(err),
		)
	})

	var conn *postgres.Connection
	err := retrier.Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, pgCfg)
		if errors.Is(err, postgres.ErrInvalidURL) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established")
	return conn, nil
}
