package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"namewise/internal/errors"
	"namewise/pkg/types"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration structure.
type Config struct {
	Analyzer struct {
		Endpoint      string `yaml:"endpoint"`       // OpenAI-compatible chat completions URL
		Model         string `yaml:"model"`          // Model name sent with every request
		APIKeyEnv     string `yaml:"api_key_env"`    // Environment variable holding the API key
		Timeout       int    `yaml:"timeout"`        // Request timeout in seconds
		MaxTokens     int    `yaml:"max_tokens"`     // Completion token cap
		MaxTextBytes  int    `yaml:"max_text_bytes"` // Bytes of text content sent for textual analysis
		PromptVisual  string `yaml:"prompt_visual"`  // Instruction for images and video frames
		PromptTextual string `yaml:"prompt_textual"` // Instruction for documents
	} `yaml:"analyzer"`
	Pipeline struct {
		Workers    int      `yaml:"workers"` // Concurrent analysis and rename tasks
		Extensions struct {
			Image       []string `yaml:"image"`
			Video       []string `yaml:"video"`
			Document    []string `yaml:"document"`
			Spreadsheet []string `yaml:"spreadsheet"`
		} `yaml:"extensions"`
		Ignore []string `yaml:"ignore"` // Glob patterns for names that are never candidates
	} `yaml:"pipeline"`
	Thumbnail struct {
		MaxDimension int    `yaml:"max_dimension"` // Longest edge in pixels
		JPEGQuality  int    `yaml:"jpeg_quality"`  // 1-100
		FFmpegPath   string `yaml:"ffmpeg_path"`   // ffmpeg binary for video frames
		FrameOffset  string `yaml:"frame_offset"`  // Position of the extracted video frame, e.g. "1s"
	} `yaml:"thumbnail"`
	Rename struct {
		DryRun    bool   `yaml:"dry_run"`    // If true, validate but do not move files
		HistoryDB string `yaml:"history_db"` // SQLite journal path, empty disables history
	} `yaml:"rename"`
	Watch struct {
		Directories []string `yaml:"directories"` // Directories to watch
		Debounce    int      `yaml:"debounce"`    // Seconds to wait for more files before starting a batch
	} `yaml:"watch"`
	Metrics struct {
		Listen string `yaml:"listen"` // Address for /metrics, empty = disabled
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// DefaultPath returns ~/.config/namewise/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "namewise", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location
func LoadConfig() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(configPath)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewConfigError("error reading config file", path, errors.InvalidConfig, err)
	}

	// Unmarshal on top of the defaults so unset fields keep their default values
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError("error parsing config file", path, errors.InvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}

	return cfg, nil
}

// defaultConfig returns the default configuration with safe defaults.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Analyzer.Endpoint = "https://api.openai.com/v1/chat/completions"
	cfg.Analyzer.Model = "gpt-4o-mini"
	cfg.Analyzer.APIKeyEnv = "NAMEWISE_API_KEY"
	cfg.Analyzer.Timeout = 30
	cfg.Analyzer.MaxTokens = 60
	cfg.Analyzer.MaxTextBytes = 4096
	cfg.Analyzer.PromptVisual = "Suggest a short, descriptive filename for this image. " +
		"Use 2-6 words separated by underscores. Reply with the filename only, without extension."
	cfg.Analyzer.PromptTextual = "Suggest a short, descriptive filename for a file with the details below. " +
		"Use 2-6 words separated by underscores. Reply with the filename only, without extension."

	cfg.Pipeline.Workers = 4
	cfg.Pipeline.Extensions.Image = []string{".jpg", ".jpeg", ".png", ".gif", ".heic", ".heif", ".webp", ".bmp", ".tif", ".tiff"}
	cfg.Pipeline.Extensions.Video = []string{".mov", ".mp4", ".m4v", ".avi", ".mkv", ".webm"}
	cfg.Pipeline.Extensions.Document = []string{".pdf", ".txt", ".md", ".rtf", ".doc", ".docx", ".pages", ".odt"}
	cfg.Pipeline.Extensions.Spreadsheet = []string{".xls", ".xlsx", ".csv", ".numbers", ".ods"}
	cfg.Pipeline.Ignore = []string{}

	cfg.Thumbnail.MaxDimension = 1024
	cfg.Thumbnail.JPEGQuality = 80
	cfg.Thumbnail.FFmpegPath = "ffmpeg"
	cfg.Thumbnail.FrameOffset = "1s"

	cfg.Rename.DryRun = false
	if home, err := os.UserHomeDir(); err == nil {
		cfg.Rename.HistoryDB = filepath.Join(home, ".config", "namewise", "history.db")
	}

	cfg.Watch.Directories = []string{}
	cfg.Watch.Debounce = 3

	cfg.Log.Level = "info"

	return cfg
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewFileError("failed to create config directory", dir, errors.FileOperationFailed, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewConfigError("failed to marshal config", "", errors.InvalidConfig, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewFileError("failed to write config file", path, errors.FileOperationFailed, err)
	}

	return nil
}

// invalid reports a bad value for the YAML key param
func invalid(param, msg string, err error) error {
	return errors.NewConfigError(msg, param, errors.InvalidConfig, err)
}

// Validate checks if the configuration is valid. Failures are
// *errors.ConfigError values whose Param is the offending YAML key.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrInvalidConfig
	}

	if c.Analyzer.Endpoint == "" {
		return invalid("analyzer.endpoint", "analyzer endpoint is required", nil)
	}
	if c.Analyzer.Timeout < 1 {
		return invalid("analyzer.timeout", "analyzer timeout must be >= 1 second", nil)
	}
	if c.Analyzer.MaxTextBytes < 0 {
		return invalid("analyzer.max_text_bytes", "analyzer text sample size must be >= 0", nil)
	}

	if c.Pipeline.Workers < 1 {
		return invalid("pipeline.workers", "worker count must be >= 1", nil)
	}
	for i, pattern := range c.Pipeline.Ignore {
		if _, err := glob.Compile(pattern); err != nil {
			return invalid(fmt.Sprintf("pipeline.ignore[%d]", i), fmt.Sprintf("ignore pattern %d (%q) does not compile", i, pattern), err)
		}
	}
	for _, ext := range c.allExtensions() {
		if !strings.HasPrefix(ext, ".") {
			return invalid("pipeline.extensions", fmt.Sprintf("extension %q must start with a dot", ext), nil)
		}
	}

	if c.Thumbnail.MaxDimension < 64 {
		return invalid("thumbnail.max_dimension", "thumbnail size must be >= 64", nil)
	}
	if c.Thumbnail.JPEGQuality < 1 || c.Thumbnail.JPEGQuality > 100 {
		return invalid("thumbnail.jpeg_quality", "thumbnail quality must be between 1 and 100", nil)
	}
	if _, err := time.ParseDuration(c.Thumbnail.FrameOffset); err != nil {
		return invalid("thumbnail.frame_offset", "video frame offset is not a duration", err)
	}

	if c.Watch.Debounce < 0 {
		return invalid("watch.debounce", "watch debounce must be >= 0 seconds", nil)
	}

	return nil
}

func (c *Config) allExtensions() []string {
	var all []string
	all = append(all, c.Pipeline.Extensions.Image...)
	all = append(all, c.Pipeline.Extensions.Video...)
	all = append(all, c.Pipeline.Extensions.Document...)
	all = append(all, c.Pipeline.Extensions.Spreadsheet...)
	return all
}

// KindOf classifies a file extension (with dot, any case) into a content family.
func (c *Config) KindOf(ext string) types.FileKind {
	ext = strings.ToLower(ext)
	switch {
	case containsFold(c.Pipeline.Extensions.Image, ext):
		return types.KindImage
	case containsFold(c.Pipeline.Extensions.Video, ext):
		return types.KindVideo
	case containsFold(c.Pipeline.Extensions.Document, ext):
		return types.KindDocument
	case containsFold(c.Pipeline.Extensions.Spreadsheet, ext):
		return types.KindSpreadsheet
	default:
		return types.KindUnsupported
	}
}

// IsSupported reports whether entry may enter a batch: files only, with a
// supported extension, not matched by any ignore pattern.
func (c *Config) IsSupported(entry types.FileEntry) bool {
	if entry.IsDir {
		return false
	}
	if c.KindOf(entry.Ext()) == types.KindUnsupported {
		return false
	}
	for _, pattern := range c.Pipeline.Ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		if g.Match(entry.Name) {
			return false
		}
	}
	return true
}

// AnalyzerTimeout returns the request timeout as a duration
func (c *Config) AnalyzerTimeout() time.Duration {
	return time.Duration(c.Analyzer.Timeout) * time.Second
}

// FrameOffsetDuration returns the parsed video frame offset
func (c *Config) FrameOffsetDuration() time.Duration {
	d, err := time.ParseDuration(c.Thumbnail.FrameOffset)
	if err != nil {
		return time.Second
	}
	return d
}

// DebounceDuration returns the watch debounce window
func (c *Config) DebounceDuration() time.Duration {
	return time.Duration(c.Watch.Debounce) * time.Second
}

func containsFold(list []string, ext string) bool {
	for _, e := range list {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// NewTestConfig creates a configuration instance for testing purposes.
func NewTestConfig() *Config {
	cfg := defaultConfig()
	cfg.Analyzer.Endpoint = "http://127.0.0.1:0/v1/chat/completions"
	cfg.Pipeline.Workers = 2
	cfg.Rename.HistoryDB = ""
	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}
