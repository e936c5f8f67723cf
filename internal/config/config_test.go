package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"namewise/internal/config"
	"namewise/internal/errors"
	"namewise/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary YAML config file
func createTestYAML(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	err = tmpFile.Close()
	require.NoError(t, err)
	return tmpFile.Name()
}

const (
	validYAML = `
analyzer:
  endpoint: "http://localhost:11434/v1/chat/completions"
  model: "llava"
  timeout: 10
pipeline:
  workers: 8
  ignore: ["*.partial", "keep_*"]
rename:
  dry_run: true
  history_db: ""
watch:
  directories: ["/home/test/Desktop"]
  debounce: 5
`
	invalidSyntaxYAML = `
analyzer:
  endpoint: "http://localhost
pipeline: # Missing closing quote
  workers: lots
`
	invalidWorkersYAML = `
pipeline:
  workers: 0
`
	invalidGlobYAML = `
pipeline:
  ignore: ["[unclosed"]
`
)

func TestLoadConfigFile(t *testing.T) {
	t.Run("load valid config", func(t *testing.T) {
		configFile := createTestYAML(t, validYAML)
		cfg, err := config.LoadConfigFile(configFile)

		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "http://localhost:11434/v1/chat/completions", cfg.Analyzer.Endpoint)
		assert.Equal(t, "llava", cfg.Analyzer.Model)
		assert.Equal(t, 10*time.Second, cfg.AnalyzerTimeout())
		assert.Equal(t, 8, cfg.Pipeline.Workers)
		assert.Equal(t, []string{"*.partial", "keep_*"}, cfg.Pipeline.Ignore)
		assert.True(t, cfg.Rename.DryRun)
		assert.Empty(t, cfg.Rename.HistoryDB)
		assert.Equal(t, []string{"/home/test/Desktop"}, cfg.Watch.Directories)
		assert.Equal(t, 5*time.Second, cfg.DebounceDuration())

		// Unset sections keep their defaults
		assert.Equal(t, 1024, cfg.Thumbnail.MaxDimension)
		assert.NotEmpty(t, cfg.Pipeline.Extensions.Image)
		assert.Equal(t, "NAMEWISE_API_KEY", cfg.Analyzer.APIKeyEnv)
	})

	t.Run("load non-existent file", func(t *testing.T) {
		nonExistentPath := filepath.Join(t.TempDir(), "does_not_exist.yaml")
		cfg, err := config.LoadConfigFile(nonExistentPath)

		require.NoError(t, err, "Loading non-existent file should return default config, not an error")
		require.NotNil(t, cfg)
		assert.Equal(t, 4, cfg.Pipeline.Workers)
		assert.False(t, cfg.Rename.DryRun)
	})

	t.Run("load invalid syntax", func(t *testing.T) {
		configFile := createTestYAML(t, invalidSyntaxYAML)
		_, err := config.LoadConfigFile(configFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error parsing config file")
	})

	t.Run("load invalid workers", func(t *testing.T) {
		configFile := createTestYAML(t, invalidWorkersYAML)
		_, err := config.LoadConfigFile(configFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workers")
	})

	t.Run("load invalid glob", func(t *testing.T) {
		configFile := createTestYAML(t, invalidGlobYAML)
		_, err := config.LoadConfigFile(configFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ignore pattern 0")
	})
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := config.New()
	cfg.Pipeline.Workers = 3
	cfg.Analyzer.Model = "custom-model"
	require.NoError(t, config.SaveConfig(cfg, path))

	loaded, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Pipeline.Workers)
	assert.Equal(t, "custom-model", loaded.Analyzer.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"empty endpoint", func(c *config.Config) { c.Analyzer.Endpoint = "" }, "endpoint"},
		{"zero timeout", func(c *config.Config) { c.Analyzer.Timeout = 0 }, "timeout"},
		{"bad extension", func(c *config.Config) { c.Pipeline.Extensions.Image = []string{"jpg"} }, "must start with a dot"},
		{"tiny thumbnail", func(c *config.Config) { c.Thumbnail.MaxDimension = 10 }, "max_dimension"},
		{"bad quality", func(c *config.Config) { c.Thumbnail.JPEGQuality = 101 }, "jpeg_quality"},
		{"bad offset", func(c *config.Config) { c.Thumbnail.FrameOffset = "soon" }, "frame_offset"},
		{"negative debounce", func(c *config.Config) { c.Watch.Debounce = -1 }, "debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	var nilCfg *config.Config
	assert.Error(t, nilCfg.Validate())
}

func TestValidateReportsConfigKey(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		param  string
	}{
		{"timeout", func(c *config.Config) { c.Analyzer.Timeout = 0 }, "analyzer.timeout"},
		{"workers", func(c *config.Config) { c.Pipeline.Workers = 0 }, "pipeline.workers"},
		{"glob", func(c *config.Config) { c.Pipeline.Ignore = []string{"ok", "[bad"} }, "pipeline.ignore[1]"},
		{"quality", func(c *config.Config) { c.Thumbnail.JPEGQuality = 0 }, "thumbnail.jpeg_quality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalidConfig(err))

			var configErr *errors.ConfigError
			require.True(t, errors.As(err, &configErr))
			assert.Equal(t, tt.param, configErr.Param())
		})
	}

	var nilCfg *config.Config
	assert.True(t, errors.IsInvalidConfig(nilCfg.Validate()))
}

func TestLoadConfigFileErrorsAreConfigErrors(t *testing.T) {
	_, err := config.LoadConfigFile(createTestYAML(t, invalidWorkersYAML))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))

	_, err = config.LoadConfigFile(createTestYAML(t, invalidSyntaxYAML))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestKindOfAndSupport(t *testing.T) {
	cfg := config.New()
	cfg.Pipeline.Ignore = []string{"*.part.*", "keep_*"}

	assert.Equal(t, types.KindImage, cfg.KindOf(".JPG"))
	assert.Equal(t, types.KindVideo, cfg.KindOf(".mov"))
	assert.Equal(t, types.KindDocument, cfg.KindOf(".pdf"))
	assert.Equal(t, types.KindSpreadsheet, cfg.KindOf(".xlsx"))
	assert.Equal(t, types.KindUnsupported, cfg.KindOf(".exe"))

	assert.True(t, cfg.IsSupported(types.FileEntry{Name: "IMG_1234.jpg", Path: "/p/IMG_1234.jpg"}))
	assert.False(t, cfg.IsSupported(types.FileEntry{Name: "photos", Path: "/p/photos", IsDir: true}))
	assert.False(t, cfg.IsSupported(types.FileEntry{Name: "setup.exe", Path: "/p/setup.exe"}))
	assert.False(t, cfg.IsSupported(types.FileEntry{Name: "keep_me.png", Path: "/p/keep_me.png"}))
	assert.False(t, cfg.IsSupported(types.FileEntry{Name: "movie.part.mp4", Path: "/p/movie.part.mp4"}))
}
