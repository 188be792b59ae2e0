package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `json:"server"`
	Redis     RedisConfig     `json:"redis"`
	Providers ProvidersConfig `json:"providers"`
	Engine    EngineConfig    `json:"engine"`
	Log       LogConfig       `json:"log"`
	Security  SecurityConfig  `json:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	IdleTimeout  int    `json:"idle_timeout"`
}

// RedisConfig holds Redis configuration. Addr empty means the file cache
// store is used instead.
type RedisConfig struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	HashKey      string        `json:"hash_key"`
}

// ProvidersConfig holds the lookup provider chain configuration
type ProvidersConfig struct {
	CNPJaBaseURL        string        `json:"cnpja_base_url"`
	MinhaReceitaBaseURL string        `json:"minha_receita_base_url"`
	BrasilAPIBaseURL    string        `json:"brasil_api_base_url"`
	ReceitaWSBaseURL    string        `json:"receita_ws_base_url"`
	RequestTimeout      time.Duration `json:"request_timeout"`
	MaxRetries          int           `json:"max_retries"`
	FloorInterval       time.Duration `json:"floor_interval"`
}

// EngineConfig holds enrichment engine defaults
type EngineConfig struct {
	Workers         int     `json:"workers"`
	DelaySeconds    float64 `json:"delay_seconds"`
	ReprocessRounds int     `json:"reprocess_rounds"`
	CachePath       string  `json:"cache_path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `json:"rate_limit"`
	CORS      CORSConfig      `json:"cors"`
}

// RateLimitConfig holds client rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvAsInt("IDLE_TIMEOUT", 60),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			DialTimeout:  time.Duration(getEnvAsInt("REDIS_DIAL_TIMEOUT", 5)) * time.Second,
			ReadTimeout:  time.Duration(getEnvAsInt("REDIS_READ_TIMEOUT", 3)) * time.Second,
			WriteTimeout: time.Duration(getEnvAsInt("REDIS_WRITE_TIMEOUT", 3)) * time.Second,
			HashKey:      getEnv("REDIS_HASH_KEY", "simples:cache"),
		},
		Providers: ProvidersConfig{
			CNPJaBaseURL:        getEnv("CNPJA_BASE_URL", "https://open.cnpja.com/office"),
			MinhaReceitaBaseURL: getEnv("MINHA_RECEITA_BASE_URL", "https://minhareceita.org"),
			BrasilAPIBaseURL:    getEnv("BRASIL_API_BASE_URL", "https://brasilapi.com.br/api/cnpj/v1"),
			ReceitaWSBaseURL:    getEnv("RECEITA_WS_BASE_URL", "https://receitaws.com.br/v1/cnpj"),
			RequestTimeout:      time.Duration(getEnvAsInt("PROVIDER_TIMEOUT", 30)) * time.Second,
			MaxRetries:          getEnvAsInt("PROVIDER_MAX_RETRIES", 2),
			FloorInterval:       time.Duration(getEnvAsInt("PROVIDER_FLOOR_INTERVAL_MS", 500)) * time.Millisecond,
		},
		Engine: EngineConfig{
			Workers:         getEnvAsInt("ENGINE_WORKERS", 4),
			DelaySeconds:    getEnvAsFloat("ENGINE_DELAY_SECONDS", 2.0),
			ReprocessRounds: getEnvAsInt("ENGINE_REPROCESS_ROUNDS", 2),
			CachePath:       getEnv("ENGINE_CACHE_PATH", "simples_cache.json"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 100),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
				CleanupInterval:   time.Duration(getEnvAsInt("RATE_LIMIT_CLEANUP", 60)) * time.Second,
			},
			CORS: CORSConfig{
				AllowedOrigins:   []string{"*"},
				AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: false,
			},
		},
	}

	if cfg.Engine.Workers < 1 || cfg.Engine.Workers > 32 {
		return nil, fmt.Errorf("ENGINE_WORKERS must be between 1 and 32, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.ReprocessRounds < 0 || cfg.Engine.ReprocessRounds > 10 {
		return nil, fmt.Errorf("ENGINE_REPROCESS_ROUNDS must be between 0 and 10, got %d", cfg.Engine.ReprocessRounds)
	}
	if cfg.Engine.DelaySeconds <= 0 {
		return nil, fmt.Errorf("ENGINE_DELAY_SECONDS must be positive, got %v", cfg.Engine.DelaySeconds)
	}

	return cfg, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
