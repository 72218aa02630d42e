package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	PokeAPIBaseURL string
	DBPath         string
	ServerPort     string
	LogLevel       string
	CacheTTL       time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		PokeAPIBaseURL: getEnv("POKEAPI_BASE_URL", "https://pokeapi.co/api/v2"),
		DBPath:         getEnv("DB_PATH", "pokedex.db"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CacheTTL:       24 * time.Hour,
	}

	if raw := os.Getenv("CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			logger.Warn().Err(err).Str("cache_ttl", raw).Msg("invalid CACHE_TTL, keeping default")
		} else {
			cfg.CacheTTL = ttl
		}
	}

	logger.Info().
		Str("pokeapi_base_url", cfg.PokeAPIBaseURL).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
