package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pii-redactor/internal/imaging"
	"github.com/ironsheep/pii-redactor/internal/pii"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 0.35, cfg.Threshold)
	assert.Empty(t, cfg.Entities)
	assert.Equal(t, 0, cfg.SampleSize)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 1000, cfg.MaxFindings)
	assert.Positive(t, cfg.Workers)
	assert.Equal(t, "#000000", cfg.MaskColor)
	assert.Equal(t, "fill", cfg.MaskStyle)
	assert.Equal(t, 2, cfg.MaskPadding)
	assert.Equal(t, "eng", cfg.OCRLanguage)
	assert.Equal(t, 256, cfg.NERSeqLen)
	assert.Equal(t, 10*time.Second, cfg.NERTimeout)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "downloaded", cfg.DownloadDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PII_THRESHOLD", "0.6")
	t.Setenv("PII_ENTITIES", "person, email_address")
	t.Setenv("PII_MASK_STYLE", "blur")
	t.Setenv("PII_NER_URL", "http://ner:8001")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Threshold)
	assert.Equal(t, []string{"PERSON", "EMAIL_ADDRESS"}, cfg.Entities)
	assert.Equal(t, "blur", cfg.MaskStyle)
	assert.Equal(t, "http://ner:8001", cfg.NERURL)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
threshold: 0.5
entities: [PERSON, URL]
seed: 7
mask:
  color: "#ff0000"
  padding: 4
ner:
  seq_len: 128
`), 0o644))

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Threshold)
	assert.Equal(t, []string{"PERSON", "URL"}, cfg.Entities)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, 4, cfg.MaskPadding)
	assert.Equal(t, 128, cfg.NERSeqLen)

	mask, err := cfg.Mask()
	require.NoError(t, err)
	assert.Equal(t, imaging.StyleFill, mask.Style)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, mask.Color)
}

func TestReadFile_Missing(t *testing.T) {
	err := ReadFile(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicit file must exist")

	t.Chdir(t.TempDir())
	assert.NoError(t, ReadFile(New(), ""), "no default file is fine")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PII_SAMPLE_SIZE=25\n"), 0o644))
	t.Setenv("PII_SAMPLE_SIZE", "")
	os.Unsetenv("PII_SAMPLE_SIZE")

	require.NoError(t, LoadDotEnv(path))
	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.SampleSize)

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(New())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Threshold = 1.2 }},
		{"negative sample", func(c *Config) { c.SampleSize = -1 }},
		{"negative max findings", func(c *Config) { c.MaxFindings = -5 }},
		{"negative padding", func(c *Config) { c.MaskPadding = -1 }},
		{"unknown style", func(c *Config) { c.MaskStyle = "pixelate" }},
		{"bad color", func(c *Config) { c.MaskColor = "#12" }},
		{"translucent color", func(c *Config) { c.MaskColor = "#00000080" }},
		{"short sequence", func(c *Config) { c.NERSeqLen = 2 }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, pii.IsInputError(err))
		})
	}
}
