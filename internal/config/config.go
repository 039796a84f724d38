// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`

	StoreDriver   string `mapstructure:"STORE_DRIVER" validate:"oneof=postgres sqlite mongo"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        string `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME"`
	DBSSLMode     string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode  string `mapstructure:"DB_SCHEMA_MODE" validate:"omitempty,oneof=hybrid sql auto"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	StrictIndexes bool   `mapstructure:"STRICT_INDEXES"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret        string `mapstructure:"JWT_SECRET"`
	SessionTTLHours  int    `mapstructure:"SESSION_TTL_HOURS" validate:"gte=1"`
	IdentityProvider string `mapstructure:"IDENTITY_PROVIDER" validate:"oneof=local cognito"`
	CognitoRegion    string `mapstructure:"COGNITO_REGION"`
	CognitoClientID  string `mapstructure:"COGNITO_CLIENT_ID"`

	FeedOpenInterval     time.Duration `mapstructure:"FEED_OPEN_INTERVAL" validate:"gt=0"`
	FeedClosedInterval   time.Duration `mapstructure:"FEED_CLOSED_INTERVAL" validate:"gt=0"`
	FeedWindow           int           `mapstructure:"FEED_WINDOW" validate:"gte=1"`
	SearchCandidateLimit int           `mapstructure:"SEARCH_CANDIDATE_LIMIT" validate:"gte=1"`

	LikeCacheBackend string `mapstructure:"LIKE_CACHE_BACKEND" validate:"oneof=file redis"`
	// LikeCachePath is the directory holding one JSON file per device.
	LikeCachePath string `mapstructure:"LIKE_CACHE_PATH"`

	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER" validate:"omitempty,oneof=stdout otlp"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO" validate:"gte=0,lte=1"`
}

var validate = validator.New()

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
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

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("STORE_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "creaza")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("SQLITE_PATH", "creaza.db")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "creaza")
	viper.SetDefault("STRICT_INDEXES", false)

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("SESSION_TTL_HOURS", 24*7)
	viper.SetDefault("IDENTITY_PROVIDER", "local")
	viper.SetDefault("COGNITO_REGION", "us-east-1")
	viper.SetDefault("COGNITO_CLIENT_ID", "")

	viper.SetDefault("FEED_OPEN_INTERVAL", "15s")
	viper.SetDefault("FEED_CLOSED_INTERVAL", "60s")
	viper.SetDefault("FEED_WINDOW", 50)
	viper.SetDefault("SEARCH_CANDIDATE_LIMIT", 500)

	viper.SetDefault("LIKE_CACHE_BACKEND", "file")
	viper.SetDefault("LIKE_CACHE_PATH", ".creaza/likes")

	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.IdentityProvider = strings.ToLower(strings.TrimSpace(c.IdentityProvider))
	c.LikeCacheBackend = strings.ToLower(strings.TrimSpace(c.LikeCacheBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// IsProduction reports whether the environment is a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// SessionTTL is the lifetime of locally issued session tokens.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE are required for STORE_DRIVER=mongo")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for STORE_DRIVER=sqlite")
		}
	}
	if c.IdentityProvider == "cognito" && c.CognitoClientID == "" {
		return errors.New("COGNITO_CLIENT_ID is required for IDENTITY_PROVIDER=cognito")
	}
	if c.LikeCacheBackend == "file" && c.LikeCachePath == "" {
		return errors.New("LIKE_CACHE_PATH is required for LIKE_CACHE_BACKEND=file")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.StoreDriver == "postgres" {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
				log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
			}
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
