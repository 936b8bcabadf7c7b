package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/careers-portal/internal/client"
	"github.com/jonathan/careers-portal/internal/config"
	"github.com/jonathan/careers-portal/internal/db"
	"github.com/jonathan/careers-portal/internal/drafts"
	"github.com/jonathan/careers-portal/internal/logging"
	"github.com/jonathan/careers-portal/internal/server"
	"github.com/jonathan/careers-portal/internal/server/ratelimit"
	"github.com/jonathan/careers-portal/internal/validation"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing the applicant draft sessions, batch saves and the application wizard.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	logger := logging.Get()

	if cfg.UpstreamURL == "" {
		return fmt.Errorf("upstream URL is required: set CAREERS_UPSTREAM_URL or upstream_url")
	}
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	opts := client.DefaultOptions(cfg.UpstreamURL)
	opts.Timeout = cfg.Timeout()
	opts.Token = cfg.UpstreamToken
	upstream, err := client.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}

	ctx := cmd.Context()
	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
	}

	backend, closeBackend, err := openBackend(ctx, cfg, database, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	res := upstream.Resources()
	srvCfg := server.Config{
		Port:    cfg.Port,
		Backend: backend,
		Repositories: server.Repositories{
			Education:  res.Education,
			Experience: res.Experience,
			Dependents: res.Dependents,
			References: res.References,
		},
		Profiles:      upstream,
		JWT:           server.NewJWTService(jwtCfg),
		RateLimit:     ratelimit.LoadConfig(),
		Validator:     validation.New(),
		MaxExperience: cfg.MaxExperience,
		Concurrency:   cfg.SaveConcurrency,
		IdleTimeout:   cfg.IdleTimeout(),
		Logger:        logger,
	}
	if database != nil {
		srvCfg.Submissions = database
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info().
		Str("upstream", cfg.UpstreamURL).
		Str("draft_backend", cfg.DraftBackend).
		Bool("record_submissions", database != nil).
		Msg("configured")
	return srv.Start(ctx)
}

func openDatabase(ctx context.Context, url string) (*db.DB, error) {
	database, err := db.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// openBackend builds the configured draft backend. The returned func releases it.
func openBackend(ctx context.Context, cfg config.Config, database *db.DB, logger *zerolog.Logger) (drafts.Backend, func(), error) {
	noop := func() {}
	switch cfg.DraftBackend {
	case config.BackendFile:
		b, err := drafts.NewFileBackend(cfg.DraftDir)
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	case config.BackendRedis:
		b, err := drafts.NewRedisBackend(ctx, drafts.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "careers:",
			TTL:      cfg.DraftTTL(),
		})
		if err != nil {
			return nil, noop, err
		}
		return b, func() {
			if err := b.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close redis")
			}
		}, nil
	case config.BackendPostgres:
		if database == nil {
			return nil, noop, fmt.Errorf("postgres draft backend needs a database URL")
		}
		return drafts.NewPostgresBackend(database), noop, nil
	default:
		logger.Warn().Msg("drafts are kept in memory and lost on restart")
		return drafts.NewMemoryBackend(), noop, nil
	}
}
