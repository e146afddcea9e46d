package config

import (
	"errors"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration (config.yaml + env).
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Gemini   GeminiConfig   `yaml:"gemini" mapstructure:"gemini"`
	Scraper  ScraperConfig  `yaml:"scraper" mapstructure:"scraper"`
	Vendors  VendorsConfig  `yaml:"vendors" mapstructure:"vendors"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Client   ClientConfig   `yaml:"client" mapstructure:"client"`
	Embed    EmbedConfig    `yaml:"embed" mapstructure:"embed"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the query/vendor HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PublicURL      string   `yaml:"public_url" mapstructure:"public_url"`
}

// StoreConfig points at the SQLite product store.
type StoreConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	APIKey         string  `yaml:"api_key" mapstructure:"api_key"`
	ChatModel      string  `yaml:"chat_model" mapstructure:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model" mapstructure:"embedding_model"`
	Temperature    float32 `yaml:"temperature" mapstructure:"temperature"`
}

// ScraperConfig configures page fetching and extraction.
type ScraperConfig struct {
	SelectorsPath string `yaml:"selectors_path" mapstructure:"selectors_path"`
	RetailHost    string `yaml:"retail_host" mapstructure:"retail_host"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// VendorsConfig configures the vendor catalog.
type VendorsConfig struct {
	// CatalogPath points at a YAML catalog; empty uses the built-in Hyderabad table.
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// OverpassConfig configures the nearby-vendor search.
type OverpassConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DefaultRadius int    `yaml:"default_radius" mapstructure:"default_radius"`
}

// ClientConfig points the chat client at a query server.
type ClientConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EmbedConfig configures the embedding pass.
type EmbedConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ECOBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Plain names kept for existing deployments.
	_ = v.BindEnv("gemini.api_key", "ECOBUDDY_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("store.db_path", "ECOBUDDY_STORE_DB_PATH", "DB_PATH")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"https://*", "http://*", "chrome-extension://*"})
	v.SetDefault("server.timeout_secs", 60)
	v.SetDefault("server.public_url", "")
	v.SetDefault("store.db_path", "./local-data/eco.db")
	v.SetDefault("gemini.chat_model", "gemini-1.5-flash")
	v.SetDefault("gemini.embedding_model", "text-embedding-004")
	v.SetDefault("gemini.temperature", 0.4)
	v.SetDefault("scraper.selectors_path", "selectors.yaml")
	v.SetDefault("scraper.retail_host", "amazon")
	v.SetDefault("scraper.timeout_secs", 90)
	v.SetDefault("vendors.catalog_path", "")
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_secs", 30)
	v.SetDefault("overpass.default_radius", 5000)
	v.SetDefault("client.base_url", "http://127.0.0.1:8000")
	v.SetDefault("embed.requests_per_minute", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
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

// Selectors holds the CSS selectors used to read a product page (from YAML).
type Selectors struct {
	Title                string   `yaml:"title"`
	Price                string   `yaml:"price"`
	Currency             string   `yaml:"currency"`
	Description          []string `yaml:"description"`
	Rating               string   `yaml:"rating"`
	ReviewCount          string   `yaml:"review_count"`
	SustainabilityPhrase string   `yaml:"sustainability_phrase"`
	SustainabilityItems  string   `yaml:"sustainability_items"`
	CookieButton         string   `yaml:"cookie_button"`
	ProductReady         string   `yaml:"product_ready"`
}

// DefaultSelectors returns the selectors for Amazon product pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:                "#productTitle",
		Price:                ".a-price-whole",
		Currency:             ".a-price-symbol",
		Description:          []string{"#productDescription", "#feature-bullets"},
		Rating:               ".a-icon-alt",
		ReviewCount:          "#acrCustomerReviewText",
		SustainabilityPhrase: "sustainability features",
		SustainabilityItems:  "li, p",
		CookieButton:         "#sp-cc-accept",
		ProductReady:         "#productTitle",
	}
}

// LoadSelectors reads the YAML selector file. A missing file yields the
// defaults; keys left empty in the file keep their default value.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sel, nil
		}
		return sel, eris.Wrapf(err, "config: read selectors file at '%s'", path)
	}

	var file Selectors
	if err := yaml.Unmarshal(data, &file); err != nil {
		return sel, eris.Wrap(err, "config: parse selectors YAML")
	}

	return merge(sel, file), nil
}

func merge(base, over Selectors) Selectors {
	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&base.Title, over.Title)
	pick(&base.Price, over.Price)
	pick(&base.Currency, over.Currency)
	pick(&base.Rating, over.Rating)
	pick(&base.ReviewCount, over.ReviewCount)
	pick(&base.SustainabilityPhrase, over.SustainabilityPhrase)
	pick(&base.SustainabilityItems, over.SustainabilityItems)
	pick(&base.CookieButton, over.CookieButton)
	pick(&base.ProductReady, over.ProductReady)
	if len(over.Description) > 0 {
		base.Description = over.Description
	}
	return base
}
