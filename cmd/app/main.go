package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/libraryapi/internal/app"
	"github.com/atvirokodosprendimai/libraryapi/internal/logging"
)

func main() {
	// A missing .env is fine; the environment may be set by the supervisor.
	_ = godotenv.Load()

	defaults := app.DefaultConfig()
	cmd := &cli.Command{
		Name:  "libraryapi",
		Usage: "Books and authors HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Sources: cli.EnvVars("LIBRARY_CONFIG"), Usage: "YAML config file; flags and env override its values"},
			&cli.StringFlag{Name: "addr", Value: defaults.Addr, Sources: cli.EnvVars("LIBRARY_ADDR"), Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "environment", Value: defaults.Environment, Sources: cli.EnvVars("LIBRARY_ENV", "APP_ENV"), Usage: "Deployment environment (development or production)"},

			&cli.StringFlag{Name: "store", Value: defaults.Store, Sources: cli.EnvVars("LIBRARY_STORE"), Usage: "Document store: sqlite or mongo"},
			&cli.StringFlag{Name: "db-path", Value: defaults.DBPath, Sources: cli.EnvVars("LIBRARY_DB_PATH"), Usage: "SQLite file path"},
			&cli.StringFlag{Name: "mongo-uri", Sources: cli.EnvVars("LIBRARY_MONGO_URI", "MONGODB_URI"), Usage: "MongoDB connection string"},
			&cli.StringFlag{Name: "mongo-database", Value: defaults.MongoDatabase, Sources: cli.EnvVars("LIBRARY_MONGO_DATABASE"), Usage: "MongoDB database name"},

			&cli.StringFlag{Name: "auth-issuer", Sources: cli.EnvVars("LIBRARY_AUTH_ISSUER", "AUTH0_ISSUER_BASE_URL"), Usage: "Trusted token issuer"},
			&cli.StringFlag{Name: "auth-audience", Sources: cli.EnvVars("LIBRARY_AUTH_AUDIENCE", "AUTH0_AUDIENCE"), Usage: "Expected token audience"},
			&cli.StringFlag{Name: "auth-jwks-url", Sources: cli.EnvVars("LIBRARY_AUTH_JWKS_URL"), Usage: "JWKS endpoint (default <issuer>/.well-known/jwks.json)"},
			&cli.BoolFlag{Name: "auth-disabled", Sources: cli.EnvVars("LIBRARY_AUTH_DISABLED"), Usage: "Explicitly disable credential checks"},
			&cli.DurationFlag{Name: "jwks-cache-ttl", Value: defaults.Auth.JWKSCacheTTL, Sources: cli.EnvVars("LIBRARY_JWKS_CACHE_TTL"), Usage: "How long signing keys are cached"},
			&cli.DurationFlag{Name: "clock-skew", Value: defaults.Auth.ClockSkew, Sources: cli.EnvVars("LIBRARY_CLOCK_SKEW"), Usage: "Leeway for token time claims"},
			&cli.StringFlag{Name: "read-scope", Value: defaults.Auth.ReadScope, Sources: cli.EnvVars("LIBRARY_READ_SCOPE"), Usage: "Scope gating reads when required"},
			&cli.StringFlag{Name: "write-scope", Value: defaults.Auth.WriteScope, Sources: cli.EnvVars("LIBRARY_WRITE_SCOPE"), Usage: "Scope required for create, replace and delete"},
			&cli.BoolFlag{Name: "require-read-scope", Sources: cli.EnvVars("LIBRARY_REQUIRE_READ_SCOPE"), Usage: "Gate list and get with the read scope"},

			&cli.StringSliceFlag{Name: "cors-origins", Sources: cli.EnvVars("LIBRARY_CORS_ORIGINS"), Usage: "Allowed CORS origins"},
			&cli.FloatFlag{Name: "rate-limit-rps", Sources: cli.EnvVars("LIBRARY_RATE_LIMIT_RPS"), Usage: "Requests per second per client IP (0 disables)"},
			&cli.IntFlag{Name: "rate-limit-burst", Value: defaults.RateLimitBurst, Sources: cli.EnvVars("LIBRARY_RATE_LIMIT_BURST"), Usage: "Rate limiter burst size"},

			&cli.StringFlag{Name: "log-level", Value: defaults.Log.Level, Sources: cli.EnvVars("LIBRARY_LOG_LEVEL"), Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Value: defaults.Log.Format, Sources: cli.EnvVars("LIBRARY_LOG_FORMAT"), Usage: "text or json"},
			&cli.StringFlag{Name: "log-file", Sources: cli.EnvVars("LIBRARY_LOG_FILE"), Usage: "Append logs to this file instead of stdout"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, logCloser := logging.New(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(logger)

	server, closer, err := app.NewServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			logger.Error("close resources", "err", closeErr)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "store", cfg.Store, "environment", cfg.Environment)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		return shutdown(server)
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
		return shutdown(server)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// loadConfig starts from defaults, overlays the config file and then applies
// every flag that was set explicitly or through the environment.
func loadConfig(c *cli.Command) (app.Config, error) {
	cfg := app.DefaultConfig()
	if path := c.String("config"); path != "" {
		if err := app.LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	setString(c, "addr", &cfg.Addr)
	setString(c, "environment", &cfg.Environment)
	setString(c, "store", &cfg.Store)
	setString(c, "db-path", &cfg.DBPath)
	setString(c, "mongo-uri", &cfg.MongoURI)
	setString(c, "mongo-database", &cfg.MongoDatabase)
	setString(c, "auth-issuer", &cfg.Auth.Issuer)
	setString(c, "auth-audience", &cfg.Auth.Audience)
	setString(c, "auth-jwks-url", &cfg.Auth.JWKSURL)
	setString(c, "read-scope", &cfg.Auth.ReadScope)
	setString(c, "write-scope", &cfg.Auth.WriteScope)
	setString(c, "log-level", &cfg.Log.Level)
	setString(c, "log-format", &cfg.Log.Format)
	setString(c, "log-file", &cfg.Log.File)

	if c.IsSet("auth-disabled") {
		cfg.Auth.Disabled = c.Bool("auth-disabled")
	}
	if c.IsSet("require-read-scope") {
		cfg.Auth.RequireReadScope = c.Bool("require-read-scope")
	}
	if c.IsSet("jwks-cache-ttl") {
		cfg.Auth.JWKSCacheTTL = c.Duration("jwks-cache-ttl")
	}
	if c.IsSet("clock-skew") {
		cfg.Auth.ClockSkew = c.Duration("clock-skew")
	}
	if c.IsSet("cors-origins") {
		cfg.CORSOrigins = c.StringSlice("cors-origins")
	}
	if c.IsSet("rate-limit-rps") {
		cfg.RateLimitRPS = c.Float("rate-limit-rps")
	}
	if c.IsSet("rate-limit-burst") {
		cfg.RateLimitBurst = int(c.Int("rate-limit-burst"))
	}

	return cfg, cfg.Validate()
}

func setString(c *cli.Command, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}
