package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "summary_db", cfg.Database.Database)
				assert.Equal(t, "summary_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "summary_jobs", cfg.RabbitMQ.Queue)
				assert.Equal(t, "summary_dead_letter", cfg.RabbitMQ.DeadLetterQueue)
				assert.Equal(t, "summary-api-service", cfg.App.Name)
				assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.BackoffBase)
	assert.Equal(t, 80, cfg.Pipeline.MinTextChars)
	assert.Equal(t, 16000, cfg.Pipeline.MaxTextChars)
	assert.Equal(t, 100, cfg.Pipeline.CompletedRetention)
	assert.Equal(t, int64(5*1024*1024), cfg.Pipeline.MaxDownloadBytes)
	assert.Equal(t, 1, cfg.Worker.Concurrency)
	assert.Equal(t, 10, cfg.Worker.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.Worker.RateLimitWindow)
	assert.Equal(t, "GEMINI_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, int32(1400), cfg.LLM.MaxOutputTokens)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.InDelta(t, 0.5, *cfg.LLM.Temperature, 0.001)
}

func TestApplyDefaultsKeepsExplicitZeroTemperature(t *testing.T) {
	zero := float32(0)
	cfg := &Config{LLM: LLMConfig{Temperature: &zero}}
	cfg.applyDefaults()

	require.NotNil(t, cfg.LLM.Temperature)
	assert.Zero(t, *cfg.LLM.Temperature, "an explicit temperature of 0 must survive defaulting")
}

func validTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "summary_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:            "localhost",
			Port:            5672,
			Exchange:        ExchangeConfig{Name: "summary_exchange", Type: "direct"},
			Queue:           "summary_jobs",
			DeadLetterQueue: "summary_dead_letter",
		},
		Worker: WorkerConfig{
			Concurrency:     1,
			JobTimeout:      2 * time.Minute,
			RateLimitMax:    10,
			RateLimitWindow: time.Minute,
		},
		Pipeline: PipelineConfig{
			MaxAttempts:  3,
			BackoffBase:  5 * time.Second,
			MinTextChars: 80,
			MaxTextChars: 16000,
		},
		LLM: LLMConfig{Model: "gemini-2.0-flash"},
	}
}

func TestValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name:      "empty dead letter queue name",
			mutate:    func(c *Config) { c.RabbitMQ.DeadLetterQueue = "" },
			wantErr:   true,
			errString: "dead letter queue name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr:   true,
			errString: "concurrency must be greater than 0",
		},
		{
			name:      "zero job timeout",
			mutate:    func(c *Config) { c.Worker.JobTimeout = 0 },
			wantErr:   true,
			errString: "job_timeout must be greater than 0",
		},
		{
			name:      "zero rate limit",
			mutate:    func(c *Config) { c.Worker.RateLimitMax = 0 },
			wantErr:   true,
			errString: "rate limit must be greater than 0",
		},
		{
			name:      "zero max attempts",
			mutate:    func(c *Config) { c.Pipeline.MaxAttempts = 0 },
			wantErr:   true,
			errString: "max_attempts must be greater than 0",
		},
		{
			name:      "missing llm model",
			mutate:    func(c *Config) { c.LLM.Model = "" },
			wantErr:   true,
			errString: "llm model is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})
}
