package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"pokedex-core/internal/config"
	"pokedex-core/internal/constants"
	fxmodules "pokedex-core/internal/fx"
	"pokedex-core/internal/middleware"
	"pokedex-core/internal/server"
	"pokedex-core/internal/service"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	srv *server.Server,
	pokemonSvc *service.PokemonService,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))
	e.Use(middleware.RequestID(logger))

	srv.RegisterRoutes(e)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", addr).Msg("server starting")
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()

			// Populate the aggregate roster key so first searches hit cache.
			go pokemonSvc.WarmCache(context.Background())

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			if err := e.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
