package config

// Config 是 TradeSync 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app"`
	Store      StoreConfig      `toml:"store"`
	Broker     BrokerConfig     `toml:"broker"`
	Classifier ClassifierConfig `toml:"classifier"`
	Dispatch   DispatchConfig   `toml:"dispatch"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

type StoreConfig struct {
	Path string `toml:"path"`
	// AuditPath 原始告警审计库，留空则关闭审计
	AuditPath string `toml:"audit_path"`
}

// BrokerConfig 券商接入。密钥可被 ALPACA_API_KEY / ALPACA_SECRET_KEY 覆盖。
type BrokerConfig struct {
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
	BaseURL        string `toml:"base_url"`
	DataBaseURL    string `toml:"data_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ClassifierConfig LLM 结构化抽取。关闭时走纯规则解析。
type ClassifierConfig struct {
	Enabled        bool   `toml:"enabled"`
	APIURL         string `toml:"api_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

type DispatchConfig struct {
	MinCashUSD     float64 `toml:"min_cash_usd"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}
