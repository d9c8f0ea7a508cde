// Package config provides application configuration management with support for
// command-line flags, environment variables, .env files and a YAML config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/faithconnect/bookstack-sync/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Server      ServerConfig
	Source      InstanceConfig
	Destination InstanceConfig
	HTTP        HTTPConfig
	Sync        SyncConfig
	Store       StoreConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds configuration for the service's own HTTP API.
type ServerConfig struct {
	Port               string        // Server port (default: 8080)
	ReadTimeout        time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout       time.Duration // HTTP write timeout (default: 5m, inline syncs can be slow)
	IdleTimeout        time.Duration // HTTP idle timeout (default: 60s)
	CORSAllowedOrigins []string      // Browser origins allowed to call the API (default: none)
	RateLimit          int           // API requests per minute per client, 0 disables (default: 120)
}

// InstanceConfig addresses one BookStack instance.
type InstanceConfig struct {
	BaseURL     string `json:"base_url" validate:"required,http_url"`
	TokenID     string `json:"token_id" validate:"required"`
	TokenSecret string `json:"token_secret" validate:"required"`
}

// HTTPConfig tunes outbound requests to both instances.
type HTTPConfig struct {
	Timeout           time.Duration `json:"timeout" validate:"gt=0"`
	ReadRetries       int           `json:"read_retries" validate:"gte=0,lte=10"`
	RetryBackoff      time.Duration `json:"retry_backoff" validate:"gte=0"`
	RequestsPerSecond float64       `json:"requests_per_second" validate:"gte=0"`
	RequestBurst      int           `json:"request_burst" validate:"gte=1"`
}

// SyncConfig tunes how books are copied.
type SyncConfig struct {
	PageWorkers    int  `json:"page_workers" validate:"gte=1,lte=16"`
	MarkdownBodies bool `json:"markdown_bodies"`
}

// StoreConfig holds run journal storage configuration.
type StoreConfig struct {
	// DataPath is the journal directory. Empty keeps the journal in memory.
	DataPath string
}

// Flags holds the raw command-line values. Empty strings mean "not set" so that
// lower-precedence sources can fill them in.
type Flags struct {
	ConfigFile string
	EnvFile    string

	Env      string
	LogLevel string

	Port         string
	ReadTimeout  string
	WriteTimeout string
	IdleTimeout  string
	CORSOrigins  string
	RateLimit    string

	SourceURL         string
	SourceTokenID     string
	SourceTokenSecret string
	DestURL           string
	DestTokenID       string
	DestTokenSecret   string

	HTTPTimeout       string
	ReadRetries       string
	RetryBackoff      string
	RequestsPerSecond string
	RequestBurst      string

	PageWorkers    string
	MarkdownBodies string

	DataPath string
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}

	fs.StringVar(&f.ConfigFile, "config", "", "Path to YAML config file")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Path to .env file")

	fs.StringVar(&f.Env, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Server flags
	fs.StringVar(&f.Port, "port", "", "Server port (default: 8080)")
	fs.StringVar(&f.ReadTimeout, "read-timeout", "", "HTTP read timeout (default: 15s)")
	fs.StringVar(&f.WriteTimeout, "write-timeout", "", "HTTP write timeout (default: 5m)")
	fs.StringVar(&f.IdleTimeout, "idle-timeout", "", "HTTP idle timeout (default: 60s)")
	fs.StringVar(&f.CORSOrigins, "cors-origins", "", "Comma-separated browser origins allowed to call the API")
	fs.StringVar(&f.RateLimit, "rate-limit", "", "API requests per minute per client, 0 disables (default: 120)")

	// Instance flags
	fs.StringVar(&f.SourceURL, "source-url", "", "Source BookStack base URL")
	fs.StringVar(&f.SourceTokenID, "source-token-id", "", "Source API token id")
	fs.StringVar(&f.SourceTokenSecret, "source-token-secret", "", "Source API token secret")
	fs.StringVar(&f.DestURL, "destination-url", "", "Destination BookStack base URL")
	fs.StringVar(&f.DestTokenID, "destination-token-id", "", "Destination API token id")
	fs.StringVar(&f.DestTokenSecret, "destination-token-secret", "", "Destination API token secret")

	// Outbound HTTP flags
	fs.StringVar(&f.HTTPTimeout, "http-timeout", "", "Per-request timeout against instances (default: 30s)")
	fs.StringVar(&f.ReadRetries, "read-retries", "", "Retries for reads that fail in transport (default: 2)")
	fs.StringVar(&f.RetryBackoff, "retry-backoff", "", "Delay before the first read retry (default: 500ms)")
	fs.StringVar(&f.RequestsPerSecond, "requests-per-second", "", "Request rate per instance, 0 disables (default: 3)")
	fs.StringVar(&f.RequestBurst, "request-burst", "", "Request burst per instance (default: 5)")

	// Sync flags
	fs.StringVar(&f.PageWorkers, "page-workers", "", "Concurrent page copies within a chapter (default: 1)")
	fs.StringVar(&f.MarkdownBodies, "markdown-bodies", "", "Convert HTML-only pages to markdown (default: false)")

	fs.StringVar(&f.DataPath, "data-path", "", "Run journal directory, empty for in-memory")

	return f
}

// fileConfig is the YAML config file layout. Values are strings so they pass
// through the same parsing as flags and environment variables.
type fileConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	Server   struct {
		Port         string   `yaml:"port"`
		ReadTimeout  string   `yaml:"read_timeout"`
		WriteTimeout string   `yaml:"write_timeout"`
		IdleTimeout  string   `yaml:"idle_timeout"`
		CORSOrigins  []string `yaml:"cors_allowed_origins"`
		RateLimit    string   `yaml:"rate_limit"`
	} `yaml:"server"`
	Source      fileInstance `yaml:"source"`
	Destination fileInstance `yaml:"destination"`
	HTTP        struct {
		Timeout           string `yaml:"timeout"`
		ReadRetries       string `yaml:"read_retries"`
		RetryBackoff      string `yaml:"retry_backoff"`
		RequestsPerSecond string `yaml:"requests_per_second"`
		RequestBurst      string `yaml:"request_burst"`
	} `yaml:"http"`
	Sync struct {
		PageWorkers    string `yaml:"page_workers"`
		MarkdownBodies string `yaml:"markdown_bodies"`
	} `yaml:"sync"`
	DataPath string `yaml:"data_path"`
}

type fileInstance struct {
	BaseURL     string `yaml:"base_url"`
	TokenID     string `yaml:"token_id"`
	TokenSecret string `yaml:"token_secret"`
}

// values flattens the file into environment variable keys.
func (fc *fileConfig) values() map[string]string {
	return map[string]string{
		"ENV":                      fc.Env,
		"LOG_LEVEL":                fc.LogLevel,
		"SERVER_PORT":              fc.Server.Port,
		"SERVER_READ_TIMEOUT":      fc.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":     fc.Server.WriteTimeout,
		"SERVER_IDLE_TIMEOUT":      fc.Server.IdleTimeout,
		"CORS_ALLOWED_ORIGINS":     strings.Join(fc.Server.CORSOrigins, ","),
		"SERVER_RATE_LIMIT":        fc.Server.RateLimit,
		"SOURCE_BASE_URL":          fc.Source.BaseURL,
		"SOURCE_TOKEN_ID":          fc.Source.TokenID,
		"SOURCE_TOKEN_SECRET":      fc.Source.TokenSecret,
		"DESTINATION_BASE_URL":     fc.Destination.BaseURL,
		"DESTINATION_TOKEN_ID":     fc.Destination.TokenID,
		"DESTINATION_TOKEN_SECRET": fc.Destination.TokenSecret,
		"HTTP_TIMEOUT":             fc.HTTP.Timeout,
		"READ_RETRIES":             fc.HTTP.ReadRetries,
		"RETRY_BACKOFF":            fc.HTTP.RetryBackoff,
		"REQUESTS_PER_SECOND":      fc.HTTP.RequestsPerSecond,
		"REQUEST_BURST":            fc.HTTP.RequestBurst,
		"PAGE_WORKERS":             fc.Sync.PageWorkers,
		"MARKDOWN_BODIES":          fc.Sync.MarkdownBodies,
		"DATA_PATH":                fc.DataPath,
	}
}

// loadFile reads the YAML config file. A missing path yields no values.
func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc.values(), nil
}

// loader resolves values with precedence flag > env (including .env) > file > default.
type loader struct {
	file map[string]string
	errs []error
}

// getConfigValue returns the first non-empty value from flag, env var, config file, or default.
func (l *loader) getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable (.env entries never override real ones).
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Config file.
	if fileValue := l.file[envKey]; fileValue != "" {
		return fileValue
	}

	// Priority 4: Default value.
	return defaultValue
}

func (l *loader) getDuration(flagValue, envKey, defaultValue string) time.Duration {
	s := l.getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q: %w", envKey, s, err))
	}
	return d
}

func (l *loader) getInt(flagValue, envKey string, defaultValue int) int {
	s := l.getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q: must be an integer", envKey, s))
		return defaultValue
	}
	return v
}

func (l *loader) getFloat(flagValue, envKey string, defaultValue float64) float64 {
	s := l.getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q: must be a number", envKey, s))
		return defaultValue
	}
	return v
}

// getBool accepts "true", "1", "yes" (case-insensitive) as true; anything else is false.
func (l *loader) getBool(flagValue, envKey string, defaultValue bool) bool {
	s := l.getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue
	}
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}

func (l *loader) getList(flagValue, envKey string) []string {
	s := l.getConfigValue(flagValue, envKey, "")
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load builds the configuration from parsed flags. flags may be nil when the
// caller registers none, in which case only env, .env, file and defaults apply.
func Load(flags *Flags) (*Config, error) {
	if flags == nil {
		flags = &Flags{EnvFile: ".env"}
	}

	// Load .env file if it exists (silently ignore if not found).
	if flags.EnvFile != "" {
		_ = godotenv.Load(flags.EnvFile)
	}

	configFile := flags.ConfigFile
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	file, err := loadFile(configFile)
	if err != nil {
		return nil, err
	}

	l := &loader{file: file}

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: l.getConfigValue(flags.Env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: l.getConfigValue(flags.LogLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:               l.getConfigValue(flags.Port, "SERVER_PORT", "8080"),
			ReadTimeout:        l.getDuration(flags.ReadTimeout, "SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout:       l.getDuration(flags.WriteTimeout, "SERVER_WRITE_TIMEOUT", "5m"),
			IdleTimeout:        l.getDuration(flags.IdleTimeout, "SERVER_IDLE_TIMEOUT", "60s"),
			CORSAllowedOrigins: l.getList(flags.CORSOrigins, "CORS_ALLOWED_ORIGINS"),
			RateLimit:          l.getInt(flags.RateLimit, "SERVER_RATE_LIMIT", 120),
		},
		Source: InstanceConfig{
			BaseURL:     strings.TrimRight(l.getConfigValue(flags.SourceURL, "SOURCE_BASE_URL", ""), "/"),
			TokenID:     l.getConfigValue(flags.SourceTokenID, "SOURCE_TOKEN_ID", ""),
			TokenSecret: l.getConfigValue(flags.SourceTokenSecret, "SOURCE_TOKEN_SECRET", ""),
		},
		Destination: InstanceConfig{
			BaseURL:     strings.TrimRight(l.getConfigValue(flags.DestURL, "DESTINATION_BASE_URL", ""), "/"),
			TokenID:     l.getConfigValue(flags.DestTokenID, "DESTINATION_TOKEN_ID", ""),
			TokenSecret: l.getConfigValue(flags.DestTokenSecret, "DESTINATION_TOKEN_SECRET", ""),
		},
		HTTP: HTTPConfig{
			Timeout:           l.getDuration(flags.HTTPTimeout, "HTTP_TIMEOUT", "30s"),
			ReadRetries:       l.getInt(flags.ReadRetries, "READ_RETRIES", 2),
			RetryBackoff:      l.getDuration(flags.RetryBackoff, "RETRY_BACKOFF", "500ms"),
			RequestsPerSecond: l.getFloat(flags.RequestsPerSecond, "REQUESTS_PER_SECOND", 3),
			RequestBurst:      l.getInt(flags.RequestBurst, "REQUEST_BURST", 5),
		},
		Sync: SyncConfig{
			PageWorkers:    l.getInt(flags.PageWorkers, "PAGE_WORKERS", 1),
			MarkdownBodies: l.getBool(flags.MarkdownBodies, "MARKDOWN_BODIES", false),
		},
		Store: StoreConfig{
			DataPath: l.getConfigValue(flags.DataPath, "DATA_PATH", ""),
		},
	}

	if len(l.errs) > 0 {
		return nil, errors.Join(l.errs...)
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid server rate limit: %d (must be 0 or more)", c.Server.RateLimit)
	}

	v := validation.New()
	if err := v.Validate(c.Source); err != nil {
		return fmt.Errorf("source instance: %w", err)
	}
	if err := v.Validate(c.Destination); err != nil {
		return fmt.Errorf("destination instance: %w", err)
	}
	if strings.EqualFold(c.Source.BaseURL, c.Destination.BaseURL) {
		return fmt.Errorf("source and destination must be different instances (both are %s)", c.Source.BaseURL)
	}
	if err := v.Validate(c.HTTP); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := v.Validate(c.Sync); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	return nil
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands the journal path, leaving it empty for in-memory use.
func (c *Config) expandDataPath() error {
	if c.Store.DataPath == "" {
		return nil
	}
	expanded, err := expandPath(c.Store.DataPath)
	if err != nil {
		return err
	}
	c.Store.DataPath = expanded
	return nil
}
