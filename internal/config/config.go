package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":8080"
	defaultAppLogPath        = "data/logs/tradesync.log"
	defaultStorePath         = "data/db/trades.db"
	defaultBrokerBaseURL     = "https://paper-api.alpaca.markets"
	defaultBrokerTimeout     = 10
	defaultClassifierAPIURL  = "https://api.openai.com/v1"
	defaultClassifierModel   = "gpt-4o-mini"
	defaultClassifierTimeout = 10
	defaultClassifierRetries = 2
	defaultDispatchMinCash   = 50
	defaultDispatchTimeout   = 10
)

// Load 读取 YAML 配置，应用默认值与环境变量覆盖，并做基础校验。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultAppHTTPAddr
	}
	if c.App.LogPath == "" {
		c.App.LogPath = defaultAppLogPath
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Broker.BaseURL == "" {
		c.Broker.BaseURL = defaultBrokerBaseURL
	}
	if c.Broker.TimeoutSeconds <= 0 {
		c.Broker.TimeoutSeconds = defaultBrokerTimeout
	}
	if c.Classifier.APIURL == "" {
		c.Classifier.APIURL = defaultClassifierAPIURL
	}
	if c.Classifier.Model == "" {
		c.Classifier.Model = defaultClassifierModel
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		c.Classifier.TimeoutSeconds = defaultClassifierTimeout
	}
	if c.Classifier.MaxRetries < 0 {
		c.Classifier.MaxRetries = defaultClassifierRetries
	}
	if c.Dispatch.MinCashUSD <= 0 {
		c.Dispatch.MinCashUSD = defaultDispatchMinCash
	}
	if c.Dispatch.TimeoutSeconds <= 0 {
		c.Dispatch.TimeoutSeconds = defaultDispatchTimeout
	}
}

// applyEnvOverrides 让密钥优先来自环境（.env 由入口加载）。
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Broker.APIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		c.Broker.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		c.Broker.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Classifier.APIKey = v
	}
}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if strings.TrimSpace(c.Broker.APIKey) == "" || strings.TrimSpace(c.Broker.APISecret) == "" {
		return fmt.Errorf("broker.api_key and broker.api_secret are required (or ALPACA_API_KEY / ALPACA_SECRET_KEY)")
	}
	if c.Classifier.Enabled && strings.TrimSpace(c.Classifier.APIKey) == "" {
		return fmt.Errorf("classifier.api_key is required when classifier.enabled (or OPENAI_API_KEY)")
	}
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", c.App.LogLevel)
	}
	return nil
}
