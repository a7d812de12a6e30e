package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
	Environment  string `mapstructure:"environment"`
}

// IsProduction returns true when running in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// GetDSN builds the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone,
	)
}

// KafkaConfig holds Kafka configuration for job lifecycle events
type KafkaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Brokers        string `mapstructure:"brokers"`
	SecurityEnable bool   `mapstructure:"security_enable"`
	SecurityUser   string `mapstructure:"security_user"`
	SecurityPass   string `mapstructure:"security_pass"`
}

// WorkerConfig holds the optimization worker loop configuration
type WorkerConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
}

// OptimizerConfig holds tuning parameters for the grid search engine
type OptimizerConfig struct {
	ValidationRatio float64 `mapstructure:"validation_ratio"`
	WeightMAPE      float64 `mapstructure:"weight_mape"`
	WeightRMSE      float64 `mapstructure:"weight_rmse"`
	WeightMAE       float64 `mapstructure:"weight_mae"`
	WeightAccuracy  float64 `mapstructure:"weight_accuracy"`
	FitServiceURL   string  `mapstructure:"fit_service_url"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	Production bool   `mapstructure:"production"`
}

// LoadConfig loads the application configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// Set default configuration file path if not provided
	if configPath == "" {
		configPath = "./config"
	}

	// Initialize Viper
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// Set environment variable prefix for overrides
	v.SetEnvPrefix("FORECAST_ALCHEMY")

	// Set environment variable separator for nested structs
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration from file
	if err := v.ReadInConfig(); err != nil {
		// If the configuration file is not found, that's fine, we'll use defaults and env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	// Set up environment variable binding
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Unmarshal configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15)  // seconds
	v.SetDefault("server.write_timeout", 15) // seconds
	v.SetDefault("server.idle_timeout", 60)  // seconds
	v.SetDefault("server.environment", "development")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "forecast_alchemy")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "kafka:9092")
	v.SetDefault("kafka.security_enable", false)

	// Worker defaults
	v.SetDefault("worker.poll_interval_seconds", 5)

	// Optimizer defaults
	v.SetDefault("optimizer.validation_ratio", 0.2)
	v.SetDefault("optimizer.weight_mape", 0.4)
	v.SetDefault("optimizer.weight_rmse", 0.3)
	v.SetDefault("optimizer.weight_mae", 0.2)
	v.SetDefault("optimizer.weight_accuracy", 0.1)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.production", false)
}

// validateConfig performs validation of the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Worker.PollIntervalSeconds < 1 {
		return fmt.Errorf("invalid worker poll interval: %d", config.Worker.PollIntervalSeconds)
	}

	if config.Optimizer.ValidationRatio <= 0 || config.Optimizer.ValidationRatio >= 1 {
		return fmt.Errorf("validation ratio must be in (0, 1), got %f", config.Optimizer.ValidationRatio)
	}

	for name, w := range map[string]float64{
		"weight_mape":     config.Optimizer.WeightMAPE,
		"weight_rmse":     config.Optimizer.WeightRMSE,
		"weight_mae":      config.Optimizer.WeightMAE,
		"weight_accuracy": config.Optimizer.WeightAccuracy,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %f", name, w)
		}
	}

	return nil
}
