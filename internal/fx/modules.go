package fx

import (
	"pokedex-core/internal/api"
	"pokedex-core/internal/cache"
	"pokedex-core/internal/config"
	"pokedex-core/internal/database"
	"pokedex-core/internal/logger"
	"pokedex-core/internal/repository"
	"pokedex-core/internal/server"
	"pokedex-core/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideTieredCache(store cache.Store, cfg *config.Config, log zerolog.Logger) *cache.Tiered {
	return cache.New(store, cfg.CacheTTL, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// persistent-store boundary
	fx.Provide(repository.NewKVRepository),
	fx.Provide(func(repo *repository.KVRepository) cache.Store { return repo }),
	fx.Provide(func(repo *repository.KVRepository) service.DocumentStore { return repo }),
	// cache + remote source
	fx.Provide(ProvideTieredCache),
	fx.Provide(api.NewClient),
	fx.Provide(func(client *api.Client) service.PokeAPI { return client }),
	// svc
	fx.Provide(service.NewEffectivenessService),
	fx.Provide(service.NewPokemonService),
	fx.Provide(service.NewTeamService),
	fx.Provide(service.NewRecommendationService),
	// server
	fx.Provide(server.NewServer),
	fx.Invoke(func(cfg *config.Config, log zerolog.Logger) {
		logger.SetLevel(cfg.LogLevel, log)
	}),
)
