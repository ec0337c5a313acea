package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig   `json:"database"   envPrefix:"ASKDB_"`
	LLM        LLMConfig        `json:"llm"        envPrefix:"ASKDB_"`
	Preprocess PreprocessConfig `json:"preprocess" envPrefix:"ASKDB_"`
	Mappings   MappingsConfig   `json:"mappings"   envPrefix:"ASKDB_"`
	Templates  TemplatesConfig  `json:"templates"  envPrefix:"ASKDB_"`
	QueryLog   QueryLogConfig   `json:"query_log"  envPrefix:"ASKDB_"`
	Logging    LoggingConfig    `json:"logging"    envPrefix:"ASKDB_"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path            string `json:"path"               env:"DB_PATH"               envDefault:"~/.config/askdb/database.db"`
	MaxConnections  int    `json:"max_connections"    env:"DB_MAX_CONNECTIONS"    envDefault:"10"`
	MaxIdleConns    int    `json:"max_idle_conns"     env:"DB_MAX_IDLE_CONNS"     envDefault:"5"`
	ConnMaxLifetime string `json:"conn_max_lifetime"  env:"DB_CONN_MAX_LIFETIME"  envDefault:"30m"`
	QueryTimeout    string `json:"query_timeout"      env:"DB_QUERY_TIMEOUT"      envDefault:"30s"`
	MaxResultRows   int    `json:"max_result_rows"    env:"DB_MAX_RESULT_ROWS"    envDefault:"1000"`
}

// LLMConfig represents text-generation service configuration
type LLMConfig struct {
	Provider      string  `json:"provider"       env:"LLM_PROVIDER"       envDefault:"openai"` // openai, ollama
	Model         string  `json:"model"          env:"LLM_MODEL"          envDefault:"gpt-4"`
	APIKey        string  `json:"api_key"        env:"LLM_API_KEY"`
	BaseURL       string  `json:"base_url"       env:"LLM_BASE_URL"`
	Temperature   float64 `json:"temperature"    env:"LLM_TEMPERATURE"    envDefault:"0.1"`
	Timeout       string  `json:"timeout"        env:"LLM_TIMEOUT"        envDefault:"60s"`
	RetryAttempts int     `json:"retry_attempts" env:"LLM_RETRY_ATTEMPTS" envDefault:"2"`
	RetryDelay    string  `json:"retry_delay"    env:"LLM_RETRY_DELAY"    envDefault:"2s"`
}

// PreprocessConfig represents question-preprocessing configuration
type PreprocessConfig struct {
	Enabled bool `json:"enabled" env:"PREPROCESS_ENABLED" envDefault:"true"`
}

// MappingsConfig locates the field-mapping document
type MappingsConfig struct {
	Path string `json:"path" env:"MAPPINGS_PATH" envDefault:"field_mappings.json"`
}

// TemplatesConfig locates the query template library
type TemplatesConfig struct {
	Path string `json:"path" env:"TEMPLATES_PATH" envDefault:"templates.yaml"`
}

// QueryLogConfig represents interaction-log configuration
type QueryLogConfig struct {
	Directory string `json:"directory" env:"QUERY_LOG_DIR" envDefault:"~/.config/askdb/query_logs"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/askdb/logs/app.log"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides (also sets defaults). The
	// ASKDB_ prefix comes from the envPrefix struct tags.
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validProviders := map[string]bool{
		"openai": true, "ollama": true,
	}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf("invalid LLM provider: %s (must be openai or ollama)", config.LLM.Provider)
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	if _, err := time.ParseDuration(config.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid LLM timeout: %s", config.LLM.Timeout)
	}

	if _, err := time.ParseDuration(config.LLM.RetryDelay); err != nil {
		return fmt.Errorf("invalid LLM retry delay: %s", config.LLM.RetryDelay)
	}

	if config.Database.MaxConnections <= 0 {
		return fmt.Errorf(
			"database max connections must be positive: %d",
			config.Database.MaxConnections,
		)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("ASKDB_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "askdb", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Database.Path = expandPath(c.Database.Path)
	c.Mappings.Path = expandPath(c.Mappings.Path)
	c.Templates.Path = expandPath(c.Templates.Path)
	c.QueryLog.Directory = expandPath(c.QueryLog.Directory)
	c.Logging.File = expandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Database.Path),
		c.QueryLog.Directory,
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
