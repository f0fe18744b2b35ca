package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Parser   ParserConfig   `yaml:"parser" mapstructure:"parser"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	Viewport ViewportConfig `yaml:"viewport" mapstructure:"viewport"`
	Basemap  BasemapConfig  `yaml:"basemap" mapstructure:"basemap"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
}

// ServerConfig configures the session HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ParserConfig configures the remote notice parsing service.
type ParserConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the parse-service call timeout.
func (c ParserConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// OCRConfig configures image text recognition.
type OCRConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"`
	MistralKey   string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
	TesseractURL string `yaml:"tesseract_url" mapstructure:"tesseract_url"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the OCR call timeout.
func (c OCRConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ViewportConfig configures camera fitting behavior.
type ViewportConfig struct {
	PaddingPx int `yaml:"padding_px" mapstructure:"padding_px"`
	MaxZoom   int `yaml:"max_zoom" mapstructure:"max_zoom"`
}

// BasemapConfig configures the tile style catalog, tile proxy, and the
// boundary overlay dataset loaded at startup.
type BasemapConfig struct {
	CatalogPath      string  `yaml:"catalog_path" mapstructure:"catalog_path"`
	BoundaryPath     string  `yaml:"boundary_path" mapstructure:"boundary_path"`
	CacheEntries     int     `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLHours    int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	CachePath        string  `yaml:"cache_path" mapstructure:"cache_path"`
	UpstreamQPS      float64 `yaml:"upstream_qps" mapstructure:"upstream_qps"`
	UpstreamBurst    int     `yaml:"upstream_burst" mapstructure:"upstream_burst"`
	FetchTimeoutSecs int     `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
}

// CacheTTL returns the tile cache entry lifetime.
func (c BasemapConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// FetchTimeout returns the upstream tile fetch timeout.
func (c BasemapConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// ExportConfig configures the snapshot render substrate.
type ExportConfig struct {
	RendererURL string `yaml:"renderer_url" mapstructure:"renderer_url"`
	PixelRatio  int    `yaml:"pixel_ratio" mapstructure:"pixel_ratio"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the snapshot capture timeout.
func (c ExportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NOTAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("parser.base_url", "http://localhost:8001")
	v.SetDefault("parser.timeout_secs", 30)
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.tesseract_url", "http://localhost:8884")
	v.SetDefault("ocr.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("ocr.timeout_secs", 60)
	v.SetDefault("viewport.padding_px", 50)
	v.SetDefault("viewport.max_zoom", 8)
	v.SetDefault("basemap.cache_entries", 2048)
	v.SetDefault("basemap.cache_ttl_hours", 24)
	v.SetDefault("basemap.upstream_qps", 10.0)
	v.SetDefault("basemap.upstream_burst", 20)
	v.SetDefault("basemap.fetch_timeout_secs", 30)
	v.SetDefault("export.renderer_url", "http://localhost:8002")
	v.SetDefault("export.pixel_ratio", 3)
	v.SetDefault("export.timeout_secs", 60)

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
