package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Model         ModelConfig
	Predict       PredictConfig
	Metrics       MetricsConfig
	PredictionLog PredictionLogConfig
	Database      DatabaseConfig
	Logger        LoggerConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ModelConfig struct {
	Path string
}

type PredictConfig struct {
	// StrictFields rejects input fields the model was not trained on.
	StrictFields bool
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type PredictionLogConfig struct {
	Enabled       bool
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns a postgres URL with user and password escaped.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "5s")
	v.SetDefault("MODEL_PATH", "models/housing-linear-v1.json")
	v.SetDefault("PREDICT_STRICT_FIELDS", true)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")
	v.SetDefault("PREDICTION_LOG_ENABLED", false)
	v.SetDefault("PREDICTION_LOG_BUFFER_SIZE", 1024)
	v.SetDefault("PREDICTION_LOG_BATCH_SIZE", 100)
	v.SetDefault("PREDICTION_LOG_FLUSH_INTERVAL", "1s")
	v.SetDefault("PREDICTION_LOG_WRITE_TIMEOUT", "5s")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "predictor")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "predictor")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Model: ModelConfig{
			Path: v.GetString("MODEL_PATH"),
		},
		Predict: PredictConfig{
			StrictFields: v.GetBool("PREDICT_STRICT_FIELDS"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
		PredictionLog: PredictionLogConfig{
			Enabled:       v.GetBool("PREDICTION_LOG_ENABLED"),
			BufferSize:    v.GetInt("PREDICTION_LOG_BUFFER_SIZE"),
			BatchSize:     v.GetInt("PREDICTION_LOG_BATCH_SIZE"),
			FlushInterval: v.GetDuration("PREDICTION_LOG_FLUSH_INTERVAL"),
			WriteTimeout:  v.GetDuration("PREDICTION_LOG_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	if cfg.Model.Path == "" {
		return nil, fmt.Errorf("MODEL_PATH is required")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}

	return cfg, nil
}
