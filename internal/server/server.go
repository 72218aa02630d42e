package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pokedex-core/internal/api"
	"pokedex-core/internal/domain"
	"pokedex-core/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Server exposes the data core as a JSON surface for the mobile client.
type Server struct {
	pokemonSvc   *service.PokemonService
	effectSvc    *service.EffectivenessService
	teamSvc      *service.TeamService
	recommendSvc *service.RecommendationService
	logger       zerolog.Logger
}

func NewServer(
	pokemonSvc *service.PokemonService,
	effectSvc *service.EffectivenessService,
	teamSvc *service.TeamService,
	recommendSvc *service.RecommendationService,
	logger zerolog.Logger,
) *Server {
	return &Server{
		pokemonSvc:   pokemonSvc,
		effectSvc:    effectSvc,
		teamSvc:      teamSvc,
		recommendSvc: recommendSvc,
		logger:       logger,
	}
}

func (s *Server) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/api/v1")

	v1.GET("/pokemon", s.searchPokemon)
	v1.GET("/pokemon/page", s.pokemonPage)
	v1.GET("/pokemon/:id", s.pokemonDetails)
	v1.GET("/pokemon/:id/summary", s.pokemonSummary)
	v1.GET("/types", s.listTypes)
	v1.GET("/effectiveness", s.classify)
	v1.POST("/cache/warm", s.warmCache)
	v1.DELETE("/cache", s.clearCache)

	v1.GET("/teams", s.listTeams)
	v1.POST("/teams", s.createTeam)
	v1.GET("/teams/stats", s.teamStats)
	v1.GET("/teams/export", s.exportTeams)
	v1.POST("/teams/import", s.importTeams)
	v1.GET("/teams/main", s.mainTeam)
	v1.GET("/teams/:id", s.getTeam)
	v1.PATCH("/teams/:id", s.renameTeam)
	v1.DELETE("/teams/:id", s.deleteTeam)
	v1.POST("/teams/:id/main", s.setMainTeam)
	v1.POST("/teams/:id/members", s.addMember)
	v1.DELETE("/teams/:id/members/:pokemonId", s.removeMember)
	v1.POST("/teams/:id/recommend", s.recommend)
}

func (s *Server) searchPokemon(c echo.Context) error {
	filters := service.Filters{
		Types:      splitParam(c.QueryParam("type")),
		Generation: intParam(c.QueryParam("generation"), 0),
		Limit:      intParam(c.QueryParam("limit"), 0),
	}

	results, err := s.pokemonSvc.Search(c.Request().Context(), c.QueryParam("q"), filters)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) pokemonPage(c echo.Context) error {
	limit := intParam(c.QueryParam("limit"), 0)
	offset := intParam(c.QueryParam("offset"), 0)

	page, err := s.pokemonSvc.Page(c.Request().Context(), limit, offset)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) pokemonSummary(c echo.Context) error {
	summary, err := s.pokemonSvc.GetSummary(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) pokemonDetails(c echo.Context) error {
	details, err := s.pokemonSvc.GetDetails(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, details)
}

func (s *Server) listTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.AllTypes)
}

func (s *Server) classify(c echo.Context) error {
	types := splitParam(c.QueryParam("types"))
	if len(types) == 0 || len(types) > 2 {
		return echo.NewHTTPError(http.StatusBadRequest, "types must list one or two type tags")
	}

	profile, err := s.effectSvc.Classify(c.Request().Context(), types)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) warmCache(c echo.Context) error {
	// Fire-and-forget: the caller only wants the aggregate key populated,
	// so the load must outlive the request context.
	go s.pokemonSvc.WarmCache(context.Background())
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) clearCache(c echo.Context) error {
	if err := s.pokemonSvc.ClearCache(c.Request().Context()); err != nil {
		return s.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listTeams(c echo.Context) error {
	teams, err := s.teamSvc.List(c.Request().Context())
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, teams)
}

type createTeamRequest struct {
	Name   string `json:"name"`
	IsMain bool   `json:"isMain"`
}

func (s *Server) createTeam(c echo.Context) error {
	var req createTeamRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	team, err := s.teamSvc.Create(c.Request().Context(), req.Name, req.IsMain)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusCreated, team)
}

func (s *Server) teamStats(c echo.Context) error {
	stats, err := s.teamSvc.Stats(c.Request().Context())
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) exportTeams(c echo.Context) error {
	data, err := s.teamSvc.Export(c.Request().Context())
	if err != nil {
		return s.httpError(err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

func (s *Server) importTeams(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
	}
	if err := s.teamSvc.Import(c.Request().Context(), data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) mainTeam(c echo.Context) error {
	team, err := s.teamSvc.GetMain(c.Request().Context())
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, team)
}

func (s *Server) getTeam(c echo.Context) error {
	team, err := s.teamSvc.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, team)
}

type renameTeamRequest struct {
	Name string `json:"name"`
}

func (s *Server) renameTeam(c echo.Context) error {
	var req renameTeamRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	team, err := s.teamSvc.Rename(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, team)
}

func (s *Server) deleteTeam(c echo.Context) error {
	if err := s.teamSvc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) setMainTeam(c echo.Context) error {
	if err := s.teamSvc.SetMain(c.Request().Context(), c.Param("id")); err != nil {
		return s.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) addMember(c echo.Context) error {
	var member domain.TeamPokemon
	if err := c.Bind(&member); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if member.ID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "pokemon id is required")
	}

	team, err := s.teamSvc.AddMember(c.Request().Context(), c.Param("id"), member)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, team)
}

func (s *Server) removeMember(c echo.Context) error {
	pokemonID, err := strconv.Atoi(c.Param("pokemonId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid pokemon id")
	}

	team, err := s.teamSvc.RemoveMember(c.Request().Context(), c.Param("id"), pokemonID)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, team)
}

type recommendRequest struct {
	OpponentTypes []string `json:"opponentTypes"`
}

func (s *Server) recommend(c echo.Context) error {
	var req recommendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	recommendation, err := s.recommendSvc.Recommend(c.Request().Context(), req.OpponentTypes, c.Param("id"))
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, recommendation)
}

// httpError maps the domain error taxonomy onto HTTP statuses.
func (s *Server) httpError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTeamFull), errors.Is(err, domain.ErrDuplicateMember):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSourceUnavailable), errors.Is(err, api.ErrUnreachable):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error().Err(err).Msg("unhandled error")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
