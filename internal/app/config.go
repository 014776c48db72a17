package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atvirokodosprendimai/libraryapi/internal/logging"
)

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

type Config struct {
	Addr        string `yaml:"addr"`
	Environment string `yaml:"environment"`

	Store         string `yaml:"store"`
	DBPath        string `yaml:"db_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	Auth AuthConfig `yaml:"auth"`

	CORSOrigins    []string `yaml:"cors_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`

	Log logging.Options `yaml:"log"`
}

type AuthConfig struct {
	Disabled bool   `yaml:"disabled"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	// JWKSURL defaults to the issuer's /.well-known/jwks.json.
	JWKSURL      string        `yaml:"jwks_url"`
	JWKSCacheTTL time.Duration `yaml:"jwks_cache_ttl"`
	ClockSkew    time.Duration `yaml:"clock_skew"`

	ReadScope        string `yaml:"read_scope"`
	WriteScope       string `yaml:"write_scope"`
	RequireReadScope bool   `yaml:"require_read_scope"`
}

func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		Environment:   "development",
		Store:         StoreSQLite,
		DBPath:        "./library.sqlite",
		MongoDatabase: "library",
		Auth: AuthConfig{
			JWKSCacheTTL: time.Hour,
			ClockSkew:    30 * time.Second,
			ReadScope:    "read:library",
			WriteScope:   "write:library",
		},
		RateLimitBurst: 20,
		Log:            logging.Options{Level: "info", Format: "text"},
	}
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.Store {
	case StoreSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("db-path is required for the sqlite store"))
		}
	case StoreMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			errs = append(errs, errors.New("mongo-uri is required for the mongo store"))
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			errs = append(errs, errors.New("mongo-database is required for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreSQLite, StoreMongo))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit values must not be negative"))
	}
	if c.Auth.JWKSCacheTTL < 0 || c.Auth.ClockSkew < 0 {
		errs = append(errs, errors.New("auth durations must not be negative"))
	}
	return errors.Join(errs...)
}
