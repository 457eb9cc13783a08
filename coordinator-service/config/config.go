package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string     `mapstructure:"service_name"`
	Env         string     `mapstructure:"env"`
	Port        string     `mapstructure:"port"`
	Database    Database   `mapstructure:"database"`
	AWS         AWS        `mapstructure:"aws"`
	Telemetry   Telemetry  `mapstructure:"telemetry"`
	Resilience  Resilience `mapstructure:"resilience"`
	Client      Client     `mapstructure:"client"`
	Discovery   Discovery  `mapstructure:"discovery"`
}

type Database struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type AWS struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
	EndpointSNS     string `mapstructure:"endpoint_sns"`
	EndpointSQS     string `mapstructure:"endpoint_sqs"`
	SNSTopicArn     string `mapstructure:"sns_topic_arn"`
	SQSQueueURL     string `mapstructure:"sqs_queue_url"`
}

type Telemetry struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Resilience holds circuit breaker tuning
type Resilience struct {
	FailureThreshold         int `mapstructure:"failure_threshold"`
	RequestVolumeThreshold   int `mapstructure:"request_volume_threshold"`
	ErrorPercentageThreshold int `mapstructure:"error_percentage_threshold"`
	RecoveryTimeoutSeconds   int `mapstructure:"recovery_timeout_seconds"`
}

// Client holds remote call tuning
type Client struct {
	AttemptTimeoutSeconds int `mapstructure:"attempt_timeout_seconds"`
	MaxRetries            int `mapstructure:"max_retries"`
}

// Discovery holds service discovery settings. Services maps a logical
// service name to its static instances.
type Discovery struct {
	CacheTTLSeconds int                          `mapstructure:"cache_ttl_seconds"`
	Services        map[string][]ServiceInstance `mapstructure:"services"`
}

type ServiceInstance struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("unable to get current file")
	}

	configDir := filepath.Join(filepath.Dir(filename))
	viper.SetConfigName(getConfigName())
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	// Allow environment variables to override config
	viper.AutomaticEnv()
	viper.SetEnvPrefix("COORDINATOR")

	setDefaultsFromEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	err = viper.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaultsFromEnv() {
	// Service defaults
	viper.SetDefault("service_name", "coordinator-service")
	viper.SetDefault("env", getEnv("ENV", "local"))
	viper.SetDefault("port", getEnv("PORT", "8080"))

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "saga_coordinator")
	viper.SetDefault("database.ssl_mode", "disable")

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	// AWS defaults
	viper.SetDefault("aws.access_key_id", getEnv("AWS_ACCESS_KEY_ID", "test"))
	viper.SetDefault("aws.secret_access_key", getEnv("AWS_SECRET_ACCESS_KEY", "test"))
	viper.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	viper.SetDefault("aws.endpoint_sns", getEnv("AWS_ENDPOINT_URL_SNS", "http://localhost:4566"))
	viper.SetDefault("aws.endpoint_sqs", getEnv("AWS_ENDPOINT_URL_SQS", "http://localhost:4566"))
	viper.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:saga-events"))
	viper.SetDefault("aws.sqs_queue_url", getEnv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/saga-events"))

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.otlp_endpoint", getEnv("OTLP_ENDPOINT", "localhost:4318"))

	// Circuit breaker defaults
	viper.SetDefault("resilience.failure_threshold", 5)
	viper.SetDefault("resilience.request_volume_threshold", 10)
	viper.SetDefault("resilience.error_percentage_threshold", 50)
	viper.SetDefault("resilience.recovery_timeout_seconds", 30)

	// Remote client defaults
	viper.SetDefault("client.attempt_timeout_seconds", 5)
	viper.SetDefault("client.max_retries", 3)

	// Discovery defaults
	viper.SetDefault("discovery.cache_ttl_seconds", 30)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetDatabaseURL constructs database URL from config
func (c *Config) GetDatabaseURL() string {
	if url := viper.GetString("database.url"); url != "" {
		return url
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RecoveryTimeout returns the breaker recovery timeout as a duration
func (r Resilience) RecoveryTimeout() time.Duration {
	return time.Duration(r.RecoveryTimeoutSeconds) * time.Second
}

// AttemptTimeout returns the per-attempt timeout as a duration
func (c Client) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

// CacheTTL returns the discovery cache TTL as a duration
func (d Discovery) CacheTTL() time.Duration {
	return time.Duration(d.CacheTTLSeconds) * time.Second
}
