// Package config loads assettag settings from a YAML file, ASSETTAG_*
// environment variables and built-in defaults, in that order of precedence
// below explicit command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (ASSETTAG_PRINTER_NAME).
const EnvPrefix = "ASSETTAG"

// Config holds all application configuration.
type Config struct {
	Label   LabelConfig   `mapstructure:"label"`
	Output  OutputConfig  `mapstructure:"output"`
	Printer PrinterConfig `mapstructure:"printer"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
}

// LabelConfig controls composition.
type LabelConfig struct {
	Template   string `mapstructure:"template"`   // empty = built-in
	AssetsDir  string `mapstructure:"assets_dir"` // base for relative font/logo paths
	Compress   bool   `mapstructure:"compress"`
	StrictUUID bool   `mapstructure:"strict_uuid"`
	Parallel   int    `mapstructure:"parallel" validate:"gte=1,lte=64"`
}

// OutputConfig holds the fixed output paths.
type OutputConfig struct {
	PDFPath     string  `mapstructure:"pdf_path" validate:"required"`
	PNGPath     string  `mapstructure:"png_path" validate:"required"`
	RasterScale float64 `mapstructure:"raster_scale" validate:"gt=0,lte=16"`
}

// PrinterConfig selects the printer and its transport.
type PrinterConfig struct {
	Name        string        `mapstructure:"name" validate:"required"`
	ContentType string        `mapstructure:"content_type" validate:"oneof=PDF PNG RAW"`
	Transport   string        `mapstructure:"transport" validate:"oneof=ipp device"`
	URI         string        `mapstructure:"uri" validate:"required_if=Transport ipp"`
	Device      string        `mapstructure:"device" validate:"required_if=Transport device"`
	User        string        `mapstructure:"user"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Wait        bool          `mapstructure:"wait"`
}

// StorageConfig configures the S3-compatible object sink.
type StorageConfig struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// CacheConfig configures the Redis cache of rendered labels.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// HTTPConfig configures the HTTP service.
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=console json"`
	Output     string `mapstructure:"output"` // stdout, stderr, or file path
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

var defaults = map[string]any{
	"label.template":         "",
	"label.assets_dir":       ".",
	"label.compress":         false,
	"label.strict_uuid":      false,
	"label.parallel":         4,
	"output.pdf_path":        "./example/assetLabel.pdf",
	"output.png_path":        "./example/assetLabel.png",
	"output.raster_scale":    4.0,
	"printer.name":           "_PM_241_BT",
	"printer.content_type":   "PDF",
	"printer.transport":      "ipp",
	"printer.uri":            "http://localhost:631",
	"printer.device":         "",
	"printer.user":           "assettag",
	"printer.timeout":        "30s",
	"printer.wait":           false,
	"storage.bucket":         "",
	"storage.prefix":         "labels",
	"storage.region":         "us-east-1",
	"storage.endpoint":       "",
	"storage.access_key":     "",
	"storage.secret_key":     "",
	"storage.use_path_style": true,
	"cache.enabled":          false,
	"cache.addr":             "localhost:6379",
	"cache.password":         "",
	"cache.db":               0,
	"cache.ttl":              "24h",
	"http.addr":              ":8080",
	"http.read_timeout":      "10s",
	"http.write_timeout":     "30s",
	"log.level":              "info",
	"log.format":             "console",
	"log.output":             "stderr",
	"log.max_size_mb":        50,
	"log.max_backups":        3,
	"log.max_age_days":       28,
	"log.compress":           true,
}

// New returns a viper instance with defaults and environment overrides set.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (path, or assettag.yaml in the working
// directory or $HOME/.config/assettag), then unmarshals and validates.
// A missing default config file is not an error; a missing explicit one is.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("assettag")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "assettag"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
