package model

import "time"

// Config holds the full application configuration
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	HTTP        HTTPConfig        `yaml:"http"`
	Template    TemplateConfig    `yaml:"template"`
	Cache       CacheConfig       `yaml:"cache"`
	Server      ServerConfig      `yaml:"server"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Site        SiteConfig        `yaml:"site"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LLMConfig configures the completion provider
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // groq, openai, anthropic, ollama
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Timeout     int     `yaml:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty"`
	NoProxy     string  `yaml:"no_proxy,omitempty"`
}

// HTTPConfig configures outbound template fetches
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty"`
	NoProxy      string        `yaml:"no_proxy,omitempty"`
}

// TemplateConfig selects the template and injection policy
type TemplateConfig struct {
	Source      string `yaml:"source"` // file path or http(s) URL
	TemplateID  string `yaml:"template_id"`
	Strict      bool   `yaml:"strict"`
	PhoneRegion string `yaml:"phone_region"`
}

// CacheConfig configures the template cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl"` // 0 keeps entries until invalidated
	DiskDir   string        `yaml:"disk_dir,omitempty"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
	Layered   bool          `yaml:"layered"`
}

// ServerConfig configures the HTTP endpoint
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// ExtractionConfig configures the extraction engine
type ExtractionConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	LocalFallback bool          `yaml:"local_fallback"`
}

// ConcurrencyConfig configures batch processing
type ConcurrencyConfig struct {
	Workers           int     `yaml:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "groq",
			Model:       "llama-3.3-70b-versatile",
			Timeout:     10,
			MaxTokens:   1000,
			Temperature: 0.1,
		},
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "InstaWeb/0.1 (+https://github.com/ppiankov/instaweb)",
			MaxBodyBytes: 2_000_000,
		},
		Template: TemplateConfig{
			Source:      "templates/landwind/index.html",
			TemplateID:  DefaultTemplateID,
			PhoneRegion: "EG",
		},
		Cache: CacheConfig{
			Enabled: true,
			DiskTTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerSecond: 1.0,
			BurstSize:         3,
			ShutdownTimeout:   10 * time.Second,
		},
		Extraction: ExtractionConfig{
			Timeout:    10 * time.Second,
			RetryDelay: 2 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           4,
			RequestsPerSecond: 0.5,
			BurstSize:         1,
		},
		Site: DefaultSiteConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
