// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the forwarder.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultSearchBatchSize bounds how many page fetches run concurrently.
const defaultSearchBatchSize = 3

// defaultSearchBatchDelay is the pause between fetch batches.
const defaultSearchBatchDelay = 500 * time.Millisecond

// Config holds the complete application configuration.
type Config struct {
	Region    string          `yaml:"region"`
	Sender    string          `yaml:"sender"`
	AWS       AWSCredentials  `yaml:"aws"`
	Routing   RoutingConfig   `yaml:"routing"`
	Store     StoreConfig     `yaml:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AWSCredentials holds optional static credentials. When unset the default
// provider chain applies.
type AWSCredentials struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// RoutingConfig holds the identity rewrites and the forwarding table applied
// to every inbound message.
type RoutingConfig struct {
	FromEmail      string              `yaml:"from_email"`
	SubjectPrefix  string              `yaml:"subject_prefix"`
	ToEmail        string              `yaml:"to_email"`
	CcEmail        string              `yaml:"cc_email"`
	BccEmail       string              `yaml:"bcc_email"`
	ForwardMapping map[string][]string `yaml:"forward_mapping"`
}

// StoreConfig holds the S3 location where SES stores inbound messages.
type StoreConfig struct {
	Bucket    string `yaml:"bucket"`
	KeyPrefix string `yaml:"key_prefix"`
}

// AnthropicConfig holds the completion API credentials and model selection.
type AnthropicConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	InstantModel string `yaml:"instant_model"`
	Signature    string `yaml:"signature"`
}

// SearchConfig holds the web search endpoint and content-fetch tuning knobs.
type SearchConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	BatchSize  int           `yaml:"batch_size"`
	BatchDelay time.Duration `yaml:"batch_delay"`
}

// UnmarshalYAML accepts batch_delay as a Go duration string ("500ms", "2s").
func (s *SearchConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Endpoint   string `yaml:"endpoint"`
		BatchSize  int    `yaml:"batch_size"`
		BatchDelay string `yaml:"batch_delay"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.Endpoint != "" {
		s.Endpoint = aux.Endpoint
	}
	if aux.BatchSize > 0 {
		s.BatchSize = aux.BatchSize
	}
	if aux.BatchDelay != "" {
		d, err := time.ParseDuration(aux.BatchDelay)
		if err != nil {
			return fmt.Errorf("invalid batch_delay: %w", err)
		}
		s.BatchDelay = d
	}
	return nil
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AnthropicConfigured returns true if the completion API key is set.
func (c *Config) AnthropicConfigured() bool {
	return c.Anthropic.APIKey != ""
}

// applyDefaults sets sensible default values for all configuration fields.
// The routing defaults mirror the production maila.ai deployment.
func (c *Config) applyDefaults() {
	c.Region = "eu-west-1"
	c.Sender = "ses"
	c.Routing.FromEmail = "noreply@bot.maila.ai"
	c.Routing.ForwardMapping = map[string][]string{
		"@bot.maila.ai":  {"kevin@maila.ai"},
		"@auto.maila.ai": {"service@maila.ai"},
	}
	c.Store.Bucket = "maila-ai"
	c.Store.KeyPrefix = "emails/"
	c.Anthropic.BaseURL = "https://api.anthropic.com"
	c.Anthropic.Model = "claude-v1-100k"
	c.Anthropic.InstantModel = "claude-instant-v1"
	c.Anthropic.Signature = "Kevin A. Smith"
	c.Search.BatchSize = defaultSearchBatchSize
	c.Search.BatchDelay = defaultSearchBatchDelay
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("SENDER"); v != "" {
		c.Sender = strings.ToLower(v)
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.AWS.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.AWS.SecretAccessKey = v
	}

	if v := os.Getenv("FROM_EMAIL"); v != "" {
		c.Routing.FromEmail = v
	}
	if v := os.Getenv("SUBJECT_PREFIX"); v != "" {
		c.Routing.SubjectPrefix = v
	}
	if v := os.Getenv("TO_EMAIL"); v != "" {
		c.Routing.ToEmail = v
	}
	if v := os.Getenv("CC_EMAIL"); v != "" {
		c.Routing.CcEmail = v
	}
	if v := os.Getenv("BCC_EMAIL"); v != "" {
		c.Routing.BccEmail = v
	}
	if v := os.Getenv("FORWARD_MAPPING"); v != "" {
		mapping := map[string][]string{}
		if err := json.Unmarshal([]byte(v), &mapping); err != nil {
			return fmt.Errorf("failed to parse FORWARD_MAPPING: %w", err)
		}
		c.Routing.ForwardMapping = mapping
	}

	if v := os.Getenv("EMAIL_BUCKET"); v != "" {
		c.Store.Bucket = v
	}
	if v := os.Getenv("EMAIL_KEY_PREFIX"); v != "" {
		c.Store.KeyPrefix = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Anthropic.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		c.Anthropic.BaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" {
		c.Anthropic.Model = v
	}
	if v := os.Getenv("ANTHROPIC_INSTANT_MODEL"); v != "" {
		c.Anthropic.InstantModel = v
	}
	if v := os.Getenv("REPLY_SIGNATURE"); v != "" {
		c.Anthropic.Signature = v
	}

	if v := os.Getenv("SEARCH_ENDPOINT"); v != "" {
		c.Search.Endpoint = v
	}
	if v := os.Getenv("SEARCH_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.BatchSize = n
		}
	}
	if v := os.Getenv("SEARCH_BATCH_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Search.BatchDelay = d
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	return nil
}
