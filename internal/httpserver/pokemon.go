package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/pokedex/internal/middleware"
	"github.com/Skotchmaster/pokedex/internal/service"
	"github.com/Skotchmaster/pokedex/internal/util"
	"github.com/Skotchmaster/pokedex/pkg/logging"
)

type PokedexHTTP struct {
	Svc *service.PokedexService
}

// GetAllPokemon returns the whole catalog ordered by id. With page or size
// in the query it returns one page plus the pagination meta.
func (h *PokedexHTTP) GetAllPokemon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pokemon.get_all")

	pageParam, sizeParam := c.QueryParam("page"), c.QueryParam("size")
	if pageParam == "" && sizeParam == "" {
		_, items, err := h.Svc.List(ctx, 0, 0)
		if err != nil {
			return fail(l, "get_all_pokemon_error", err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"results": toPokemonResponses(items),
		})
	}

	page, offset, limit := util.Calculate(
		util.ParseIntDefault(pageParam, 1),
		util.ParseIntDefault(sizeParam, util.DefaultPageSize),
	)
	total, items, err := h.Svc.List(ctx, offset, limit)
	if err != nil {
		return fail(l, "get_all_pokemon_error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"results": toPokemonResponses(items),
		"meta":    util.NewMeta(page, offset, limit, total),
	})
}

func (h *PokedexHTTP) GetPokemon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pokemon.get_one")

	id, err := parseID(c)
	if err != nil {
		return fail(l, "get_pokemon_failed", err)
	}

	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_pokemon_failed", fmt.Errorf("%w: there is no pokemon with id %d", err, id))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"results": toPokemonResponse(p),
	})
}

func (h *PokedexHTTP) FindPokemon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pokemon.find")

	page, offset, limit := util.Calculate(
		util.ParseIntDefault(c.QueryParam("page"), 1),
		util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
	)
	total, items, err := h.Svc.Find(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "find_pokemon_error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"results": toPokemonResponses(items),
		"meta":    util.NewMeta(page, offset, limit, total),
	})
}

// SearchSpecies looks a name up in the species API without storing it.
func (h *PokedexHTTP) SearchSpecies(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pokemon.search")

	sp, err := h.Svc.SearchSpecies(ctx, c.QueryParam("pokemon_name"))
	if err != nil {
		return fail(l, "search_pokemon_failed", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"result": sp,
	})
}

func (h *PokedexHTTP) AddPokemon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pokemon.add")

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(l, "add_pokemon_failed", service.ErrUnauthenticated)
	}

	p, err := h.Svc.Add(ctx, c.Param("pokemon_name"), id.User)
	if err != nil {
		return fail(l, "add_pokemon_failed", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"result": toPokemonResponse(p),
	})
}

func (h *PokedexHTTP) EditPokemon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pokemon.edit")

	id, err := parseID(c)
	if err != nil {
		return fail(l, "edit_pokemon_failed", err)
	}

	rating, err := strconv.ParseFloat(c.QueryParam("rating"), 64)
	if err != nil {
		return fail(l, "edit_pokemon_failed", fmt.Errorf("%w: rating must be a number", service.ErrValidation))
	}

	p, err := h.Svc.EditRating(ctx, id, rating)
	if err != nil {
		return fail(l, "edit_pokemon_failed", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"result": toPokemonResponse(p),
	})
}

func (h *PokedexHTTP) DeletePokemon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pokemon.delete")

	id, err := parseID(c)
	if err != nil {
		return fail(l, "delete_pokemon_failed", err)
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "delete_pokemon_failed", err)
	}

	return c.NoContent(http.StatusNoContent)
}
