package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/libraryapi/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/libraryapi/internal/adapters/jwtauth"
	mongoadapter "github.com/atvirokodosprendimai/libraryapi/internal/adapters/mongo"
	sqliteadapter "github.com/atvirokodosprendimai/libraryapi/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/libraryapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/ports"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/usecase"
	"github.com/atvirokodosprendimai/libraryapi/migrations"
)

const (
	booksCollection   = "books"
	authorsCollection = "authors"
)

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type stores struct {
	books   ports.DocumentStore[domain.Book]
	authors ports.DocumentStore[domain.Author]
	pinger  ports.Pinger
	closer  io.Closer
}

func NewServer(ctx context.Context, cfg Config, logger *slog.Logger) (*http.Server, io.Closer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	auth, err := newAuthService(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	bookSchema, err := usecase.NewSchemaService(usecase.BookSchema)
	if err != nil {
		_ = st.closer.Close()
		return nil, nil, err
	}
	authorSchema, err := usecase.NewSchemaService(usecase.AuthorSchema)
	if err != nil {
		_ = st.closer.Close()
		return nil, nil, err
	}

	handler, err := httpapi.NewHandler(httpapi.Options{
		Title:       "Library API",
		Version:     "1.0.0",
		Logger:      logger,
		Auth:        auth,
		Books:       usecase.NewRecordService("Book", st.books, bookSchema),
		Authors:     usecase.NewRecordService("Author", st.authors, authorSchema),
		Readiness:   st.pinger,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit: httpapi.RateLimit{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})
	if err != nil {
		_ = st.closer.Close()
		return nil, nil, err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return server, resourceCloser{closers: []io.Closer{st.closer}}, nil
}

// newAuthService resolves the enforcement mode once and builds the gate.
func newAuthService(cfg Config, logger *slog.Logger) (*usecase.AuthService, error) {
	mode, err := usecase.ResolveEnforcementMode(usecase.AuthSettings{
		Environment: cfg.Environment,
		Disabled:    cfg.Auth.Disabled,
		Issuer:      cfg.Auth.Issuer,
		Audience:    cfg.Auth.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve auth mode: %w", err)
	}

	var verifier ports.TokenVerifier
	switch mode {
	case usecase.ModeSecure:
		jwksURL := strings.TrimSpace(cfg.Auth.JWKSURL)
		if jwksURL == "" {
			jwksURL = jwtauth.DefaultJWKSURL(cfg.Auth.Issuer)
		}
		keys := jwtauth.NewKeySet(jwksURL, cfg.Auth.JWKSCacheTTL, nil)
		verifier = jwtauth.NewVerifier(keys, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.ClockSkew)
		logger.Info("auth enforcement enabled", "mode", mode.String(), "issuer", cfg.Auth.Issuer, "audience", cfg.Auth.Audience, "jwks_url", jwksURL)
	case usecase.ModeDisabled:
		logger.Warn("auth enforcement explicitly disabled; every request is allowed", "mode", mode.String())
	default:
		logger.Warn("auth is not configured; every request is allowed outside production", "mode", mode.String(), "environment", cfg.Environment)
	}

	return usecase.NewAuthService(mode, verifier, usecase.AuthPolicy{
		ReadScope:        cfg.Auth.ReadScope,
		WriteScope:       cfg.Auth.WriteScope,
		RequireReadScope: cfg.Auth.RequireReadScope,
	})
}

func openStores(ctx context.Context, cfg Config, logger *slog.Logger) (*stores, error) {
	switch cfg.Store {
	case StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongoadapter.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		logger.Info("using mongo store", "database", cfg.MongoDatabase)
		return &stores{
			books:   mongoadapter.NewDocumentStore[domain.Book](client, booksCollection),
			authors: mongoadapter.NewDocumentStore[domain.Author](client, authorsCollection),
			pinger:  client,
			closer:  client,
		}, nil

	default:
		db, err := gormsqlite.Open(cfg.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		writeSQLDB, err := db.WriteSQLDB()
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("resolve writer sql db: %w", err)
		}

		migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("using sqlite store", "path", cfg.DBPath)
		return &stores{
			books:   sqliteadapter.NewDocumentStore[domain.Book](db, booksCollection),
			authors: sqliteadapter.NewDocumentStore[domain.Author](db, authorsCollection),
			pinger:  db,
			closer:  db,
		}, nil
	}
}
