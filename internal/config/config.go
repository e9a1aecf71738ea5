// Package config resolves pii-redactor settings.
//
// Sources, lowest precedence first: built-in defaults, the YAML config file
// (pii-redactor.yaml in the working directory or ~/.pii-redactor, or the
// file named by --config), a .env file, PII_* environment variables, and
// finally command-line flags bound by the CLI. Nested keys map to env vars
// with underscores: mask.color is PII_MASK_COLOR.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/ironsheep/pii-redactor/internal/geometry"
	"github.com/ironsheep/pii-redactor/internal/imaging"
	"github.com/ironsheep/pii-redactor/internal/ocr"
	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/tabular"
)

// Viper keys.
const (
	KeyThreshold    = "threshold"
	KeyEntities     = "entities"
	KeySampleSize   = "sample_size"
	KeySeed         = "seed"
	KeyMaxFindings  = "max_findings"
	KeyWorkers      = "workers"
	KeyPatternsFile = "patterns_file"
	KeyMaskColor    = "mask.color"
	KeyMaskStyle    = "mask.style"
	KeyMaskPadding  = "mask.padding"
	KeyOCRLanguage  = "ocr.language"
	KeyNERModelDir  = "ner.model_dir"
	KeyNERLibrary   = "ner.library_path"
	KeyNERSeqLen    = "ner.seq_len"
	KeyNERSessions  = "ner.sessions"
	KeyNERURL       = "ner.url"
	KeyNERTimeout   = "ner.timeout"
	KeyHTTPAddr     = "http.addr"
	KeyDownloadDir  = "download_dir"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
)

// Defaults.
const (
	EnvPrefix          = "PII"
	ConfigName         = "pii-redactor"
	DefaultMaskColor   = "#000000"
	DefaultNERSeqLen   = 256
	DefaultNERTimeout  = 10 * time.Second
	DefaultHTTPAddr    = ":8000"
	DefaultDownloadDir = "downloaded"
)

// Config is the resolved configuration.
type Config struct {
	Threshold    float64
	Entities     []string
	SampleSize   int
	Seed         uint64
	MaxFindings  int
	Workers      int
	PatternsFile string

	MaskColor   string
	MaskStyle   string
	MaskPadding int

	OCRLanguage string

	NERModelDir    string
	NERLibraryPath string
	NERSeqLen      int
	NERSessions    int
	NERURL         string
	NERTimeout     time.Duration

	HTTPAddr    string
	DownloadDir string

	LogLevel  string
	LogFormat string
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyThreshold, pii.DefaultThreshold)
	v.SetDefault(KeyEntities, []string{})
	v.SetDefault(KeySampleSize, 0)
	v.SetDefault(KeySeed, tabular.DefaultSeed)
	v.SetDefault(KeyMaxFindings, tabular.DefaultMaxFindings)
	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeyPatternsFile, "")
	v.SetDefault(KeyMaskColor, DefaultMaskColor)
	v.SetDefault(KeyMaskStyle, string(imaging.StyleFill))
	v.SetDefault(KeyMaskPadding, geometry.DefaultPadding)
	v.SetDefault(KeyOCRLanguage, ocr.DefaultLanguage)
	v.SetDefault(KeyNERModelDir, "")
	v.SetDefault(KeyNERLibrary, "")
	v.SetDefault(KeyNERSeqLen, DefaultNERSeqLen)
	v.SetDefault(KeyNERSessions, 1)
	v.SetDefault(KeyNERURL, "")
	v.SetDefault(KeyNERTimeout, DefaultNERTimeout)
	v.SetDefault(KeyHTTPAddr, DefaultHTTPAddr)
	v.SetDefault(KeyDownloadDir, DefaultDownloadDir)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads the config file into v. An explicit path must exist; when
// path is empty the default locations are searched and a missing file is
// not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+ConfigName))
		}
		v.AddConfigPath(".")
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	log.Debug().Str("file", v.ConfigFileUsed()).Msg("config file loaded")
	return nil
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load resolves v into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Threshold:      v.GetFloat64(KeyThreshold),
		Entities:       splitList(v.GetStringSlice(KeyEntities)),
		SampleSize:     v.GetInt(KeySampleSize),
		Seed:           v.GetUint64(KeySeed),
		MaxFindings:    v.GetInt(KeyMaxFindings),
		Workers:        v.GetInt(KeyWorkers),
		PatternsFile:   v.GetString(KeyPatternsFile),
		MaskColor:      v.GetString(KeyMaskColor),
		MaskStyle:      v.GetString(KeyMaskStyle),
		MaskPadding:    v.GetInt(KeyMaskPadding),
		OCRLanguage:    v.GetString(KeyOCRLanguage),
		NERModelDir:    v.GetString(KeyNERModelDir),
		NERLibraryPath: v.GetString(KeyNERLibrary),
		NERSeqLen:      v.GetInt(KeyNERSeqLen),
		NERSessions:    v.GetInt(KeyNERSessions),
		NERURL:         v.GetString(KeyNERURL),
		NERTimeout:     v.GetDuration(KeyNERTimeout),
		HTTPAddr:       v.GetString(KeyHTTPAddr),
		DownloadDir:    v.GetString(KeyDownloadDir),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if err := pii.ValidateThreshold(c.Threshold); err != nil {
		return err
	}
	if c.SampleSize < 0 {
		return pii.NewInputError(KeySampleSize, "%d is negative", c.SampleSize)
	}
	if c.MaxFindings < 0 {
		return pii.NewInputError(KeyMaxFindings, "%d is negative", c.MaxFindings)
	}
	if c.MaskPadding < 0 {
		return pii.NewInputError(KeyMaskPadding, "%d is negative", c.MaskPadding)
	}
	if c.NERSeqLen < 3 {
		return pii.NewInputError(KeyNERSeqLen, "%d is too short", c.NERSeqLen)
	}
	if _, err := c.Mask(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return pii.NewInputError(KeyLogFormat, "%q is not console or json", c.LogFormat)
	}
	return nil
}

// Mask returns the parsed occlusion settings.
func (c *Config) Mask() (imaging.MaskOptions, error) {
	style, err := imaging.ParseStyle(c.MaskStyle)
	if err != nil {
		return imaging.MaskOptions{}, err
	}
	color, err := imaging.ParseColor(c.MaskColor)
	if err != nil {
		return imaging.MaskOptions{}, err
	}
	return imaging.MaskOptions{Style: style, Color: color, BlurRadius: imaging.DefaultBlurRadius}, nil
}

// splitList accepts both YAML lists and comma-separated strings (as env
// vars deliver them).
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
