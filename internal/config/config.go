package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LLM      LLMConfig      `yaml:"llm"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host            string           `yaml:"host"`
	Port            int              `yaml:"port"`
	User            string           `yaml:"user"`
	Password        string           `yaml:"password"`
	VHost           string           `yaml:"vhost"`
	Exchange        ExchangeConfig   `yaml:"exchange"`
	Queue           string           `yaml:"queue"`
	RoutingKey      string           `yaml:"routing_key"`
	DeadLetterQueue string           `yaml:"dead_letter_queue"`
	DeadLetterKey   string           `yaml:"dead_letter_key"`
	Connection      ConnectionConfig `yaml:"connection"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration. Concurrency is the number
// of jobs a single worker instance processes at once; the pipeline is
// memory-heavy, so production runs with 1.
type WorkerConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	JobTimeout        time.Duration `yaml:"job_timeout"`
	RateLimitMax      int           `yaml:"rate_limit_max"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	StalledAfter      time.Duration `yaml:"stalled_after"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// PipelineConfig holds the pdf-summary task pipeline settings
type PipelineConfig struct {
	MaxAttempts        int           `yaml:"max_attempts"`
	BackoffBase        time.Duration `yaml:"backoff_base"`
	MinTextChars       int           `yaml:"min_text_chars"`
	MaxTextChars       int           `yaml:"max_text_chars"`
	CompletedRetention int           `yaml:"completed_retention"`
	MaxDownloadBytes   int64         `yaml:"max_download_bytes"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
}

// LLMConfig holds the summarization service settings. The API key is never
// stored in the YAML file; it comes from the environment.
type LLMConfig struct {
	APIKeyEnv       string  `yaml:"api_key_env"`
	Model           string  `yaml:"model"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	// Temperature is a pointer so an explicit 0 is distinguishable from
	// an omitted value.
	Temperature *float32 `yaml:"temperature"`
}

// APIKey resolves the API key from the configured environment variable.
func (c *LLMConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills in the queue policy defaults for fields the file omits.
func (c *Config) applyDefaults() {
	if c.Pipeline.MaxAttempts == 0 {
		c.Pipeline.MaxAttempts = 3
	}
	if c.Pipeline.BackoffBase == 0 {
		c.Pipeline.BackoffBase = 5 * time.Second
	}
	if c.Pipeline.MinTextChars == 0 {
		c.Pipeline.MinTextChars = 80
	}
	if c.Pipeline.MaxTextChars == 0 {
		c.Pipeline.MaxTextChars = 16000
	}
	if c.Pipeline.CompletedRetention == 0 {
		c.Pipeline.CompletedRetention = 100
	}
	if c.Pipeline.MaxDownloadBytes == 0 {
		c.Pipeline.MaxDownloadBytes = 5 * 1024 * 1024
	}
	if c.Pipeline.FetchTimeout == 0 {
		c.Pipeline.FetchTimeout = 30 * time.Second
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 1
	}
	if c.Worker.RateLimitMax == 0 {
		c.Worker.RateLimitMax = 10
	}
	if c.Worker.RateLimitWindow == 0 {
		c.Worker.RateLimitWindow = time.Minute
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.LLM.MaxOutputTokens == 0 {
		c.LLM.MaxOutputTokens = 1400
	}
	if c.LLM.Temperature == nil {
		temperature := float32(0.5)
		c.LLM.Temperature = &temperature
	}
}

// validateShared checks the configuration both services depend on.
func (c *Config) validateShared() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.RabbitMQ.DeadLetterQueue == "" {
		return fmt.Errorf("rabbitmq dead letter queue name is required")
	}

	return nil
}

// ValidateAPIConfig checks the configuration the API service needs.
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateShared()
}

// ValidateWorkerConfig checks the configuration the worker service needs.
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateShared(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.RateLimitMax <= 0 || c.Worker.RateLimitWindow <= 0 {
		return fmt.Errorf("worker rate limit must be greater than 0")
	}

	if c.Pipeline.MaxAttempts <= 0 {
		return fmt.Errorf("pipeline max_attempts must be greater than 0")
	}

	if c.Pipeline.MinTextChars < 0 || c.Pipeline.MaxTextChars <= 0 {
		return fmt.Errorf("pipeline text bounds are invalid")
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	return nil
}
