// Package config provides configuration settings for the short link service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"go-shortlink/types"
	"go-shortlink/urlgen"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

// maxIDLength caps ID_LENGTH at the digits a generated seed actually has.
const maxIDLength = urlgen.SeedLength

// Config holds the configuration settings for the application.
type Config struct {
	RateLimit        int           `mapstructure:"RATE_LIMIT"`
	RatePeriod       time.Duration `mapstructure:"RATE_PERIOD"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ServerPort       string        `mapstructure:"SERVER_PORT"`
	DisableRateLimit bool          `mapstructure:"DISABLE_RATE_LIMIT"`

	// Short link allocation
	IDLength     int                `mapstructure:"ID_LENGTH"`
	MaxRetries   int                `mapstructure:"MAX_RETRIES"`
	RetryBackoff time.Duration      `mapstructure:"RETRY_BACKOFF"`
	ShortURLMode types.ShortURLMode `mapstructure:"SHORT_URL_MODE"`
	BaseURL      string             `mapstructure:"BASE_URL"`
	VisitsMode   types.VisitsMode   `mapstructure:"VISITS_MODE"`

	// Link store
	Store          string `mapstructure:"STORE"`
	StoreCapacity  int    `mapstructure:"STORE_CAPACITY"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	TableName      string `mapstructure:"TABLE_NAME"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	// AWS
	AWSRegion          string `mapstructure:"AWS_REGION"`
	DynamoDBEndpoint   string `mapstructure:"DYNAMODB_ENDPOINT"`
	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() *Config {
	return &Config{
		RateLimit:        10,
		RatePeriod:       time.Second,
		RequestTimeout:   5 * time.Second,
		ServerPort:       ":3000",
		DisableRateLimit: false,

		IDLength:     6,
		MaxRetries:   5,
		RetryBackoff: 10 * time.Millisecond,
		ShortURLMode: types.ShortURLModeMirrorOrigin,
		VisitsMode:   types.VisitsCounter,

		Store:          StoreMemory,
		StoreCapacity:  1000000,
		TableName:      "short_links",
		RedisAddr:      "localhost:6379",
		RedisKeyPrefix: "shortlink:",
		AWSRegion:      "us-east-2",
	}
}

// Load reads an optional .env file and the environment on top of DefaultConfig.
func Load() (*Config, error) {
	_ = godotenv.Load() // no .env is fine, the environment may carry everything

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("RATE_LIMIT", d.RateLimit)
	v.SetDefault("RATE_PERIOD", d.RatePeriod)
	v.SetDefault("REQUEST_TIMEOUT", d.RequestTimeout)
	v.SetDefault("SERVER_PORT", d.ServerPort)
	v.SetDefault("DISABLE_RATE_LIMIT", d.DisableRateLimit)
	v.SetDefault("ID_LENGTH", d.IDLength)
	v.SetDefault("MAX_RETRIES", d.MaxRetries)
	v.SetDefault("RETRY_BACKOFF", d.RetryBackoff)
	v.SetDefault("SHORT_URL_MODE", string(d.ShortURLMode))
	v.SetDefault("BASE_URL", d.BaseURL)
	v.SetDefault("VISITS_MODE", string(d.VisitsMode))
	v.SetDefault("STORE", d.Store)
	v.SetDefault("STORE_CAPACITY", d.StoreCapacity)
	v.SetDefault("DATABASE_URL", d.DatabaseURL)
	v.SetDefault("TABLE_NAME", d.TableName)
	v.SetDefault("REDIS_ADDR", d.RedisAddr)
	v.SetDefault("REDIS_PASSWORD", d.RedisPassword)
	v.SetDefault("REDIS_DB", d.RedisDB)
	v.SetDefault("REDIS_KEY_PREFIX", d.RedisKeyPrefix)
	v.SetDefault("AWS_REGION", d.AWSRegion)
	v.SetDefault("DYNAMODB_ENDPOINT", d.DynamoDBEndpoint)
	v.SetDefault("AWS_ACCESS_KEY_ID", d.AWSAccessKeyID)
	v.SetDefault("AWS_SECRET_ACCESS_KEY", d.AWSSecretAccessKey)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.IDLength < 1 || c.IDLength > maxIDLength {
		return fmt.Errorf("ID_LENGTH must be between 1 and %d, got %d", maxIDLength, c.IDLength)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryBackoff < 0 {
		return errors.New("RETRY_BACKOFF cannot be negative")
	}

	switch c.ShortURLMode {
	case types.ShortURLModeMirrorOrigin:
	case types.ShortURLModeFixedBase:
		u, err := url.Parse(c.BaseURL)
		if c.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("BASE_URL must be an absolute URL in %s mode", c.ShortURLMode)
		}
	default:
		return fmt.Errorf("unknown SHORT_URL_MODE %q", c.ShortURLMode)
	}

	switch c.VisitsMode {
	case types.VisitsCounter, types.VisitsList:
	default:
		return fmt.Errorf("unknown VISITS_MODE %q", c.VisitsMode)
	}

	switch c.Store {
	case StoreMemory, StoreRedis:
	case StoreSQLite, StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store", c.Store)
		}
	case StoreDynamoDB:
		if c.TableName == "" {
			return errors.New("TABLE_NAME is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	return nil
}
