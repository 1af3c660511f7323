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
	"gopkg.in/yaml.v3"
)

const envPrefix = "FAMILYALBUM_"

// Config holds all configuration options for the album downloader
type Config struct {
	// Album identity and credentials
	Album AlbumConfig `yaml:"album" json:"album"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// HTTP client settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Rate limiting for listing requests
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry behaviour for idempotent requests
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Pagination safety settings
	Pagination PaginationConfig `yaml:"pagination" json:"pagination"`

	// Metadata tagging
	Exif ExifConfig `yaml:"exif" json:"exif"`

	// Optional movie re-encoding
	Video VideoConfig `yaml:"video" json:"video"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AlbumConfig identifies the album and how to reach it
type AlbumConfig struct {
	IDToken  string `yaml:"id_token" json:"id_token"`
	Password string `yaml:"password" json:"-"`
	BaseURL  string `yaml:"base_url" json:"base_url"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language" json:"accept_language"`
}

// RateLimitConfig holds rate limiting configuration. Zero requests per minute disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry configuration for GET requests
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// PaginationConfig caps the listing walk. MaxPages 0 means unbounded.
type PaginationConfig struct {
	MaxPages int `yaml:"max_pages" json:"max_pages"`
}

// ExifConfig controls metadata tagging and exiftool acquisition
type ExifConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ToolDir    string `yaml:"tool_dir" json:"tool_dir"`
	BinaryPath string `yaml:"binary_path" json:"binary_path"`
	ArchiveURL string `yaml:"archive_url" json:"archive_url"`
}

// VideoConfig controls re-encoding of downloaded movies with ffmpeg. When Compress is
// set, movies are downloaded to a staging file and replaced by the encoded copy.
type VideoConfig struct {
	Compress   bool   `yaml:"compress" json:"compress"`
	FFmpegPath string `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	CRF        int    `yaml:"crf" json:"crf"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Album: AlbumConfig{
			BaseURL: "https://mitene.us",
		},
		HTTP: HTTPConfig{
			Timeout:        2 * time.Minute,
			UserAgent:      "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:144.0) Gecko/20100101 Firefox/144.0",
			AcceptLanguage: "en-GB,en;q=0.5",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Exif: ExifConfig{
			Enabled: true,
		},
		Video: VideoConfig{
			CRF: 28,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from FAMILYALBUM_* environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(envPrefix + "ID_TOKEN"); v != "" {
		c.Album.IDToken = v
	}
	if v := os.Getenv(envPrefix + "PASSWORD"); v != "" {
		c.Album.Password = v
	}
	if v := os.Getenv(envPrefix + "BASE_URL"); v != "" {
		c.Album.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "OUTPUT_DIRECTORY"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv(envPrefix + "USER_AGENT"); v != "" {
		c.HTTP.UserAgent = v
	}
	if v := os.Getenv(envPrefix + "REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sREQUESTS_PER_MINUTE: %w", envPrefix, err)
		}
		c.RateLimit.RequestsPerMinute = n
	}
	if v := os.Getenv(envPrefix + "MAX_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_PAGES: %w", envPrefix, err)
		}
		c.Pagination.MaxPages = n
	}
	if v := os.Getenv(envPrefix + "EXIF_ENABLED"); v != "" {
		c.Exif.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(envPrefix + "EXIFTOOL_PATH"); v != "" {
		c.Exif.BinaryPath = v
	}
	if v := os.Getenv(envPrefix + "COMPRESS_VIDEOS"); v != "" {
		c.Video.Compress = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(envPrefix + "FFMPEG_PATH"); v != "" {
		c.Video.FFmpegPath = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".familyalbum.yaml",
		".familyalbum.yml",
		filepath.Join(home, ".config", "familyalbum", "config.yaml"),
		filepath.Join(home, ".config", "familyalbum", "config.yml"),
		filepath.Join(home, ".familyalbum.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// MergeCommandLineFlags merges explicitly set command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["id-token"].(string); ok && v != "" {
		c.Album.IDToken = v
	}
	if v, ok := flags["password"].(string); ok && v != "" {
		c.Album.Password = v
	}
	if v, ok := flags["output-directory"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Album.BaseURL = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["max-pages"].(int); ok {
		c.Pagination.MaxPages = v
	}
	if v, ok := flags["exif"].(bool); ok {
		c.Exif.Enabled = v
	}
	if v, ok := flags["exiftool-path"].(string); ok && v != "" {
		c.Exif.BinaryPath = v
	}
	if v, ok := flags["compress-videos"].(bool); ok {
		c.Video.Compress = v
	}
	if v, ok := flags["ffmpeg-path"].(string); ok && v != "" {
		c.Video.FFmpegPath = v
	}
}

// ValidationError reports configuration that cannot be used for a run
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "configuration validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks that the configuration is usable for a download run
func (c *Config) Validate() error {
	var errs []error

	if c.Album.IDToken == "" {
		errs = append(errs, errors.New("album id token is required (--id-token)"))
	}
	if c.Album.Password == "" {
		errs = append(errs, errors.New("album password is required (--password)"))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required (--output-directory)"))
	}
	if c.Album.BaseURL == "" {
		errs = append(errs, errors.New("album base url is required"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}
	if c.Pagination.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}
	if c.Video.Compress && (c.Video.CRF < 0 || c.Video.CRF > 51) {
		errs = append(errs, fmt.Errorf("video crf must be between 0 and 51, got %d", c.Video.CRF))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return &ValidationError{Err: errors.Join(errs...)}
	}
	return nil
}

// Save saves the configuration to a file. The password is never written.
func (c *Config) Save(path string) error {
	out := *c
	out.Album.Password = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load builds configuration from all sources without validating it.
// Precedence: command line flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".familyalbum.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	return config, nil
}
