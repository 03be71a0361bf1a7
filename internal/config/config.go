package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application, loaded from an app.env
// file or environment variables.
type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`

	// OperationTimeout bounds a single transition or ledger write. Exceeding it
	// surfaces models.ErrTimeout to the caller, who retries with the same
	// idempotency key.
	OperationTimeout time.Duration `mapstructure:"OPERATION_TIMEOUT"`

	AWSRegion    string `mapstructure:"AWS_REGION"`
	SESFromEmail string `mapstructure:"SES_FROM_EMAIL"`

	// Routing / tracking tuning.
	RoutingAPIKey        string        `mapstructure:"ROUTING_API_KEY"`
	FallbackSpeedKmph    float64       `mapstructure:"FALLBACK_SPEED_KMPH"`
	TrackingMinInterval  time.Duration `mapstructure:"TRACKING_MIN_INTERVAL"`
	TrackingMinDistanceM float64       `mapstructure:"TRACKING_MIN_DISTANCE_M"`
}

// LoadConfig reads configuration from the given directory (app.env) with
// environment variables taking precedence.
func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("OPERATION_TIMEOUT", "5s")
	viper.SetDefault("FALLBACK_SPEED_KMPH", 25.0)
	viper.SetDefault("TRACKING_MIN_INTERVAL", "3s")
	viper.SetDefault("TRACKING_MIN_DISTANCE_M", 10.0)

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine; everything can come from the environment.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &cfg, nil
}
