// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port              string `mapstructure:"PORT"`
	Env               string `mapstructure:"APP_ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	SessionTTLHours   int    `mapstructure:"SESSION_TTL_HOURS"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	AdminBootstrap         string `mapstructure:"ADMIN_BOOTSTRAP"`
	BootstrapAdminUsername string `mapstructure:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `mapstructure:"BOOTSTRAP_ADMIN_PASSWORD"`

	SeedFile      string `mapstructure:"SEED_FILE"`
	SeedDemoPosts int    `mapstructure:"SEED_DEMO_POSTS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "5000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("SESSION_COOKIE_NAME", "culturetech_session")
	viper.SetDefault("SESSION_TTL_HOURS", 24*7)
	viper.SetDefault("STORE_DRIVER", StoreMemory)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "culturetech")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", "culturetech.db")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5000,http://localhost:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("ADMIN_BOOTSTRAP", "first_user")
	viper.SetDefault("BOOTSTRAP_ADMIN_USERNAME", "")
	viper.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
	viper.SetDefault("SEED_FILE", "")
	viper.SetDefault("SEED_DEMO_POSTS", 0)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Origins splits ALLOWED_ORIGINS into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.SessionTTLHours <= 0 {
		return errors.New("SESSION_TTL_HOURS must be positive")
	}

	switch c.StoreDriver {
	case StoreMemory, StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of memory, postgres, sqlite (got %q)", c.StoreDriver)
	}

	switch c.AdminBootstrap {
	case "", "first_user":
	case "seed":
		if c.BootstrapAdminUsername == "" || c.BootstrapAdminPassword == "" {
			return errors.New("ADMIN_BOOTSTRAP=seed requires BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD")
		}
	default:
		return fmt.Errorf("ADMIN_BOOTSTRAP must be first_user or seed (got %q)", c.AdminBootstrap)
	}

	if c.SeedDemoPosts < 0 {
		return errors.New("SEED_DEMO_POSTS cannot be negative")
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.StoreDriver == StorePostgres {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
				return errors.New("DB_SSLMODE must enable TLS in production")
			}
		}
		if c.StoreDriver == StoreMemory {
			log.Println("WARNING: STORE_DRIVER=memory in production. All data is lost on restart.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
