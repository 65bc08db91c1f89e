package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{Security: SecurityConfig{SigningSecret: "s3cret"}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Generation.Budget = BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `generation.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Generation.Budget.Action = action
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_RedisRequiresAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Driver = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing cache addrs")
	}
	cfg.Cache.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingSigningSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Security.SigningSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing signing secret")
	}
}

func TestValidate_Enums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"generation provider", func(c *Config) { c.Generation.Provider = "llama" }},
		{"fusion", func(c *Config) { c.Retrieval.Fusion = "max" }},
		{"cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"negative bonus", func(c *Config) { c.Retrieval.WordBonus = -1 }},
		{"scan over cap", func(c *Config) { c.Index.ScanLimit = c.Index.MaxDocuments + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Index.MaxDocuments != 1000 || cfg.Index.ScanLimit != 500 {
		t.Errorf("unexpected index defaults: %+v", cfg.Index)
	}
	if cfg.Retrieval.TopK != 8 {
		t.Errorf("expected TopK=8, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.WordBonus != 0.15 || cfg.Retrieval.DualChannelBonus != 0.2 {
		t.Errorf("unexpected bonus defaults: %+v", cfg.Retrieval)
	}
	if cfg.Rewrite.TimeoutMS != 3000 || cfg.Rerank.TimeoutMS != 3000 || cfg.Generation.TimeoutMS != 10000 {
		t.Errorf("unexpected stage timeouts: rewrite=%d rerank=%d gen=%d",
			cfg.Rewrite.TimeoutMS, cfg.Rerank.TimeoutMS, cfg.Generation.TimeoutMS)
	}
	if cfg.Pipeline.OverallTimeoutMS != 10000 {
		t.Errorf("expected OverallTimeoutMS=10000, got %d", cfg.Pipeline.OverallTimeoutMS)
	}
	if cfg.Cache.Driver != "memory" || cfg.Cache.KeyPrefix != "shopqa:" {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Embedding.Provider != "local" || cfg.Generation.Provider != "none" {
		t.Errorf("unexpected provider defaults: %q %q", cfg.Embedding.Provider, cfg.Generation.Provider)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 9000, ReadTimeoutSec: 30},
		Index:     IndexConfig{MaxDocuments: 200, ScanLimit: 100},
		Retrieval: RetrievalConfig{WordBonus: 0.3, Fusion: "rrf"},
		Cache:     CacheConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Index.MaxDocuments != 200 || cfg.Index.ScanLimit != 100 {
		t.Errorf("index overridden: %+v", cfg.Index)
	}
	if cfg.Retrieval.WordBonus != 0.3 || cfg.Retrieval.Fusion != "rrf" {
		t.Errorf("retrieval overridden: %+v", cfg.Retrieval)
	}
	if cfg.Cache.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Cache.KeyPrefix)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("SHOPQA_TEST_SECRET", "from-env")

	cfg, err := Parse([]byte(`
security:
  signing_secret: ${SHOPQA_TEST_SECRET}
generation:
  provider: ${SHOPQA_TEST_PROVIDER:-openai}
  api_key: ${SHOPQA_TEST_UNSET}
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Security.SigningSecret != "from-env" {
		t.Errorf("expected secret from env, got %q", cfg.Security.SigningSecret)
	}
	if cfg.Generation.Provider != "openai" {
		t.Errorf("expected default provider, got %q", cfg.Generation.Provider)
	}
	if cfg.Generation.APIKey != "" {
		t.Errorf("expected empty api key, got %q", cfg.Generation.APIKey)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("http: [unclosed"))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Index.Path == "" {
		t.Error("expected index path")
	}
}
