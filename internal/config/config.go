package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	OCR     OCRConfig     `yaml:"ocr" mapstructure:"ocr"`
	PDF     PDFConfig     `yaml:"pdf" mapstructure:"pdf"`
	Process ProcessConfig `yaml:"process" mapstructure:"process"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the history store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OCRConfig configures the text recognition engine.
type OCRConfig struct {
	Provider      string   `yaml:"provider" mapstructure:"provider"`
	TesseractPath string   `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	Languages     []string `yaml:"languages" mapstructure:"languages"`
}

// PDFConfig configures PDF rasterization.
type PDFConfig struct {
	PdfToPpmPath string `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	DPI          int    `yaml:"dpi" mapstructure:"dpi"`
}

// ProcessConfig configures upload validation and pipeline behavior.
type ProcessConfig struct {
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes" mapstructure:"max_file_size_bytes"`
	AcceptedFormats  []string `yaml:"accepted_formats" mapstructure:"accepted_formats"`
	PageWorkers      int      `yaml:"page_workers" mapstructure:"page_workers"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	EngineRetries    int      `yaml:"engine_retries" mapstructure:"engine_retries"`
}

// ServerConfig configures the upload server.
type ServerConfig struct {
	Port             int     `yaml:"port" mapstructure:"port"`
	UploadRatePerSec float64 `yaml:"upload_rate_per_sec" mapstructure:"upload_rate_per_sec"`
	UploadBurst      int     `yaml:"upload_burst" mapstructure:"upload_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTELLISCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "intelliscan.db")
	v.SetDefault("ocr.provider", "gosseract")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("pdf.pdftoppm_path", "pdftoppm")
	v.SetDefault("pdf.dpi", 200)
	v.SetDefault("process.max_file_size_bytes", 16*1024*1024)
	v.SetDefault("process.accepted_formats", []string{"png", "jpeg", "pdf", "tiff", "bmp"})
	v.SetDefault("process.page_workers", 4)
	v.SetDefault("process.timeout_secs", 120)
	v.SetDefault("process.engine_retries", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.upload_rate_per_sec", 5)
	v.SetDefault("server.upload_burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// AcceptsFormat reports whether the given format tag is in the accepted set.
// Matching is case-insensitive; "jpg" and "jpeg" are treated as the same tag,
// as are "tif" and "tiff".
func (c ProcessConfig) AcceptsFormat(format string) bool {
	canon := func(s string) string {
		s = strings.ToLower(s)
		switch s {
		case "jpg":
			return "jpeg"
		case "tif":
			return "tiff"
		}
		return s
	}
	want := canon(format)
	for _, f := range c.AcceptedFormats {
		if canon(f) == want {
			return true
		}
	}
	return false
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
