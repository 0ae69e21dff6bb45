// Package config loads the self-query engine's configuration from the
// environment, following the same load-once, fail-fast-on-required-vars
// convention used across the rest of this codebase.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all settings for one Engine instance. It is immutable after
// Load returns and is safe to share across goroutines.
type Config struct {
	// Endpoint
	SPARQLEndpoint string
	TimeoutSec     int

	// Retrieval shape
	TopK            int
	QueryCandidates int
	MaxRows         int
	MaxTriples      int

	// Planner
	PlannerTimeoutSec int
	PlannerMaxTokens  int

	// Schema context
	SchemaGraphURI       string
	IncludeFullSchemaTTL bool
	SchemaTTLMaxChars    int

	// Query shapes
	AllowDescribe  bool
	MaxQueryChars  int

	// Lexical candidates
	EnableLexicalSearch     bool
	LexicalMatchLiterals    bool
	LexicalMatchLabels      bool
	LexicalMatchIRILocal    bool
	LexicalMatchPredicates  bool
	LexicalMaxTokens        int
	LexicalMaxCandidates    int

	// Iteration control
	MaxIterations               int
	MinIterationsBeforeEarlyStop int
	MinScoreImprovement         float64
	GlobalTimeBudgetSec         int

	// Progress shaping
	ProgressOutputMode string // "events" | "text" | "both"

	// LLM
	LLMProvider      string
	LLMBaseURL       string
	LLMAPIKey        string
	LLMDefaultModel  string

	// Optional persistence
	DatabaseURL string
	RedisAddr   string
}

// Load reads Config from the environment. SPARQL_BASE_URL and LLM_PROVIDER
// are required; everything else falls back to the defaults the retrieval
// prototype this engine was built from ships with.
func Load() (*Config, error) {
	endpoint := os.Getenv("SPARQL_BASE_URL")
	if endpoint == "" {
		return nil, fmt.Errorf("config.Load: SPARQL_BASE_URL is required")
	}
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		return nil, fmt.Errorf("config.Load: LLM_PROVIDER is required")
	}

	cfg := &Config{
		SPARQLEndpoint: endpoint,
		TimeoutSec:     envInt("SPARQL_TIMEOUT_SEC", 20),

		TopK:            envInt("SELFQUERY_TOP_K", 3),
		QueryCandidates: envInt("SELFQUERY_QUERY_CANDIDATES", 3),
		MaxRows:         envInt("SELFQUERY_MAX_ROWS", 100),
		MaxTriples:      envInt("SELFQUERY_MAX_TRIPLES", 30),

		PlannerTimeoutSec: envInt("SELFQUERY_PLANNER_TIMEOUT_SEC", 45),
		PlannerMaxTokens:  envInt("SELFQUERY_PLANNER_MAX_TOKENS", -1),

		SchemaGraphURI:       envStr("SELFQUERY_SCHEMA_GRAPH_URI", ""),
		IncludeFullSchemaTTL: envBool("SELFQUERY_INCLUDE_FULL_SCHEMA_TTL", true),
		SchemaTTLMaxChars:    envInt("SELFQUERY_SCHEMA_TTL_MAX_CHARS", -1),

		AllowDescribe: envBool("SELFQUERY_ALLOW_DESCRIBE", true),
		MaxQueryChars: envInt("SELFQUERY_MAX_QUERY_CHARS", 8000),

		EnableLexicalSearch:    envBool("SELFQUERY_ENABLE_LEXICAL_SEARCH", true),
		LexicalMatchLiterals:   envBool("SELFQUERY_LEXICAL_MATCH_LITERALS", true),
		LexicalMatchLabels:     envBool("SELFQUERY_LEXICAL_MATCH_LABELS", true),
		LexicalMatchIRILocal:   envBool("SELFQUERY_LEXICAL_MATCH_IRI_LOCAL_NAMES", true),
		LexicalMatchPredicates: envBool("SELFQUERY_LEXICAL_MATCH_PREDICATES", true),
		LexicalMaxTokens:       envInt("SELFQUERY_LEXICAL_MAX_TOKENS", 6),
		LexicalMaxCandidates:   envInt("SELFQUERY_LEXICAL_MAX_CANDIDATES", 4),

		MaxIterations:                envInt("SELFQUERY_MAX_ITERATIONS", 5),
		MinIterationsBeforeEarlyStop: envInt("SELFQUERY_MIN_ITERATIONS_BEFORE_EARLY_STOP", 3),
		MinScoreImprovement:          envFloat("SELFQUERY_MIN_SCORE_IMPROVEMENT", 0.02),
		GlobalTimeBudgetSec:          envInt("SELFQUERY_GLOBAL_TIME_BUDGET_SEC", 90),

		ProgressOutputMode: envStr("SELFQUERY_PROGRESS_OUTPUT_MODE", "events"),

		LLMProvider:     provider,
		LLMBaseURL:      envStr("LLM_BASE_URL", ""),
		LLMAPIKey:       envStr("LLM_API_KEY", ""),
		LLMDefaultModel: envStr("LLM_DEFAULT_MODEL", ""),

		DatabaseURL: envStr("DATABASE_URL", ""),
		RedisAddr:   envStr("REDIS_ADDR", ""),
	}

	clamp(cfg)
	return cfg, nil
}

// clamp enforces floor/ceiling rules on iteration and candidate counts, so
// a misconfigured deployment degrades instead of producing nonsensical
// iteration counts.
func clamp(cfg *Config) {
	if cfg.LexicalMaxTokens < 1 {
		cfg.LexicalMaxTokens = 1
	}
	if cfg.LexicalMaxCandidates < 1 {
		cfg.LexicalMaxCandidates = 1
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 1
	}
	if cfg.MinIterationsBeforeEarlyStop < 1 {
		cfg.MinIterationsBeforeEarlyStop = 1
	}
	if cfg.MinIterationsBeforeEarlyStop > cfg.MaxIterations {
		cfg.MinIterationsBeforeEarlyStop = cfg.MaxIterations
	}
	if cfg.MinScoreImprovement < 0 {
		cfg.MinScoreImprovement = 0
	}
	if cfg.GlobalTimeBudgetSec < 1 {
		cfg.GlobalTimeBudgetSec = 1
	}
	if cfg.MaxQueryChars < 256 {
		cfg.MaxQueryChars = 256
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
