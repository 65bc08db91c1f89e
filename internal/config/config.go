package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the shopqa service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Cache      CacheConfig      `yaml:"cache"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Rewrite    RewriteConfig    `yaml:"rewrite"`
	Rerank     RerankConfig     `yaml:"rerank"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Security   SecurityConfig   `yaml:"security"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// GatewayConfig holds input gateway settings.
type GatewayConfig struct {
	MaxQueryLength int     `yaml:"max_query_length"` // runes
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`   // per client IP, 0 = disabled
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	QueryLogPath   string  `yaml:"query_log_path"` // bbolt file, empty = disabled
	// TrustedProxies lists CIDRs whose X-Forwarded-For is honored by the rate limiter.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// CacheConfig holds answer and embedding cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, none (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds document index settings.
type IndexConfig struct {
	Path         string `yaml:"path"`
	MaxDocuments int    `yaml:"max_documents"`
	ScanLimit    int    `yaml:"scan_limit"`
	Watch        bool   `yaml:"watch"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // local, openai (default: local)
	Dimensions          int    `yaml:"dimensions"`
	Model               string `yaml:"model"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// GenerationConfig holds generation backend settings.
type GenerationConfig struct {
	Provider    string       `yaml:"provider"` // openai, anthropic, none (default: none)
	APIKey      string       `yaml:"api_key"`
	BaseURL     string       `yaml:"base_url"`
	Model       string       `yaml:"model"`
	MaxTokens   int          `yaml:"max_tokens"`
	Temperature float64      `yaml:"temperature"`
	TimeoutMS   int          `yaml:"timeout_ms"`
	Budget      BudgetConfig `yaml:"budget"`
}

// RewriteConfig holds query rewriter settings. It shares the generation backend.
type RewriteConfig struct {
	Model          string `yaml:"model"` // empty = generation.model
	TimeoutMS      int    `yaml:"timeout_ms"`
	ClearQueryLen  int    `yaml:"clear_query_length"` // queries longer than this skip rewriting
	MaxTokens      int    `yaml:"max_tokens"`
	DisableRewrite bool   `yaml:"disabled"`
}

// RerankConfig holds re-ranking backend settings. Empty api_key disables the stage.
type RerankConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	TimeoutMS int    `yaml:"timeout_ms"`
	MaxPairs  int    `yaml:"max_pairs"`
}

// RetrievalConfig holds hybrid scoring settings.
type RetrievalConfig struct {
	Fusion           string  `yaml:"fusion"` // bonus, rrf (default: bonus)
	WordBonus        float64 `yaml:"word_bonus"`
	DualChannelBonus float64 `yaml:"dual_channel_bonus"`
	RRFK             int     `yaml:"rrf_k"`
	TopK             int     `yaml:"top_k"`
	MinScore         float64 `yaml:"min_score"`
}

// SecurityConfig holds prompt signing settings.
type SecurityConfig struct {
	SigningSecret      string `yaml:"signing_secret"`
	SignatureMaxAgeSec int    `yaml:"signature_max_age_sec"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	OverallTimeoutMS int `yaml:"overall_timeout_ms"`
	ContextChars     int `yaml:"context_chars"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, substitutes ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 15
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	c.applyGatewayDefaults()
	c.applyCacheDefaults()
	c.applyIndexDefaults()
	c.applyBackendDefaults()
	c.applyRetrievalDefaults()
	if c.Security.SignatureMaxAgeSec <= 0 {
		c.Security.SignatureMaxAgeSec = 300
	}
	if c.Pipeline.OverallTimeoutMS <= 0 {
		c.Pipeline.OverallTimeoutMS = 10000
	}
	if c.Pipeline.ContextChars <= 0 {
		c.Pipeline.ContextChars = 4000
	}
}

func (c *Config) applyGatewayDefaults() {
	if c.Gateway.MaxQueryLength <= 0 {
		c.Gateway.MaxQueryLength = 500
	}
	if c.Gateway.RateLimitBurst <= 0 {
		c.Gateway.RateLimitBurst = 10
	}
}

func (c *Config) applyCacheDefaults() {
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "shopqa:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

func (c *Config) applyIndexDefaults() {
	if c.Index.Path == "" {
		c.Index.Path = "data/index.json"
	}
	if c.Index.MaxDocuments <= 0 {
		c.Index.MaxDocuments = 1000
	}
	if c.Index.ScanLimit <= 0 {
		c.Index.ScanLimit = 500
	}
}

func (c *Config) applyBackendDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "local"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 512
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "none"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 500
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = 0.3
	}
	if c.Generation.TimeoutMS <= 0 {
		c.Generation.TimeoutMS = 10000
	}
	if c.Rewrite.TimeoutMS <= 0 {
		c.Rewrite.TimeoutMS = 3000
	}
	if c.Rewrite.ClearQueryLen <= 0 {
		c.Rewrite.ClearQueryLen = 60
	}
	if c.Rewrite.MaxTokens <= 0 {
		c.Rewrite.MaxTokens = 60
	}
	if c.Rerank.TimeoutMS <= 0 {
		c.Rerank.TimeoutMS = 3000
	}
	if c.Rerank.MaxPairs <= 0 {
		c.Rerank.MaxPairs = 20
	}
}

func (c *Config) applyRetrievalDefaults() {
	if c.Retrieval.Fusion == "" {
		c.Retrieval.Fusion = "bonus"
	}
	if c.Retrieval.WordBonus == 0 {
		c.Retrieval.WordBonus = 0.15
	}
	if c.Retrieval.DualChannelBonus == 0 {
		c.Retrieval.DualChannelBonus = 0.2
	}
	if c.Retrieval.RRFK <= 0 {
		c.Retrieval.RRFK = 60
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 8
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Cache.Driver {
	case "memory", "none":
	case "redis", "valkey":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be memory, redis, valkey or none, got %q", c.Cache.Driver)
	}
	switch c.Embedding.Provider {
	case "local", "openai":
	default:
		return fmt.Errorf("embedding.provider must be local or openai, got %q", c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "openai", "anthropic", "none":
	default:
		return fmt.Errorf("generation.provider must be openai, anthropic or none, got %q", c.Generation.Provider)
	}
	switch c.Generation.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"generation.budget.action must be \"warn\" or \"reject\", got %q",
			c.Generation.Budget.Action,
		)
	}
	switch c.Retrieval.Fusion {
	case "bonus", "rrf":
	default:
		return fmt.Errorf("retrieval.fusion must be bonus or rrf, got %q", c.Retrieval.Fusion)
	}
	if c.Retrieval.WordBonus < 0 || c.Retrieval.DualChannelBonus < 0 {
		return fmt.Errorf("retrieval bonuses must be non-negative")
	}
	if c.Index.ScanLimit > c.Index.MaxDocuments {
		return fmt.Errorf("index.scan_limit (%d) must not exceed index.max_documents (%d)",
			c.Index.ScanLimit, c.Index.MaxDocuments)
	}
	if c.Security.SigningSecret == "" {
		return fmt.Errorf("security.signing_secret is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
