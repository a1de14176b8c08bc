package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Skotchmaster/pokedex/internal/es"
	"github.com/Skotchmaster/pokedex/internal/models"
	"github.com/Skotchmaster/pokedex/internal/mykafka"
	"github.com/Skotchmaster/pokedex/internal/repo"
	"github.com/Skotchmaster/pokedex/internal/species"
	"github.com/Skotchmaster/pokedex/pkg/logging"
)

const (
	MinRating = 0
	MaxRating = 10
)

type SearchIndex interface {
	Put(ctx context.Context, doc es.Document) error
	Remove(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []uint, error)
}

type PokedexService struct {
	Repo    *repo.GormRepo
	Species species.Fetcher
	Events  mykafka.Publisher
	// Index is optional; without it text search runs against the database.
	Index SearchIndex
}

func (s *PokedexService) List(ctx context.Context, offset, limit int) (int64, []models.Pokemon, error) {
	return s.Repo.ListPokemon(ctx, offset, limit)
}

func (s *PokedexService) Get(ctx context.Context, id uint) (*models.Pokemon, error) {
	p, err := s.Repo.GetPokemon(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// SearchSpecies looks the name up upstream without storing anything.
func (s *PokedexService) SearchSpecies(ctx context.Context, name string) (*species.Species, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: pokemon_name is required", ErrValidation)
	}
	sp, err := s.Species.Fetch(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: there is no pokemon named %s", ErrNotFound, name)
	}
	return sp, nil
}

// Add fetches the species and stores it with rating 0. The fetch happens
// before any write, so a failed lookup leaves the catalog untouched.
func (s *PokedexService) Add(ctx context.Context, name string, creator *models.User) (*models.Pokemon, error) {
	l := logging.FromContext(ctx).With("svc", "pokedex.add", "pokemon_name", name)

	sp, err := s.SearchSpecies(ctx, name)
	if err != nil {
		l.Warn("add_pokemon_failed", "status", 404, "reason", "species lookup failed", "error", err)
		return nil, err
	}

	p := &models.Pokemon{
		Name:      sp.Name,
		Abilities: strings.Join(sp.Abilities, ", "),
		Types:     strings.Join(sp.Types, ", "),
		Rating:    0,
		Image:     sp.Image,
	}
	if creator != nil {
		id := creator.ID
		p.CreatorID = &id
	}

	if err := s.Repo.CreatePokemon(ctx, p); err != nil {
		if errors.Is(err, repo.ErrPokemonExists) {
			l.Warn("add_pokemon_failed", "status", 409, "reason", "pokemon already exists")
			return nil, ErrPokemonExists
		}
		l.Error("add_pokemon_failed", "status", 500, "reason", "cannot add pokemon to db", "error", err)
		return nil, err
	}

	s.index(ctx, p)
	publish(ctx, s.Events, mykafka.TopicPokemonEvents, p.ID, map[string]any{
		"type":      "pokemon_added",
		"pokemonID": p.ID,
		"name":      p.Name,
		"creatorID": p.CreatorID,
	})
	l.Info("add_pokemon_success", "pokemon_id", p.ID)
	return p, nil
}

func (s *PokedexService) EditRating(ctx context.Context, id uint, rating float64) (*models.Pokemon, error) {
	l := logging.FromContext(ctx).With("svc", "pokedex.edit_rating", "pokemon_id", id)

	if math.IsNaN(rating) || rating < MinRating || rating > MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, MinRating, MaxRating)
	}

	p, err := s.Repo.UpdateRating(ctx, id, rating)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		l.Error("edit_pokemon_failed", "status", 500, "error", err)
		return nil, err
	}

	s.index(ctx, p)
	publish(ctx, s.Events, mykafka.TopicPokemonEvents, p.ID, map[string]any{
		"type":      "pokemon_rating_changed",
		"pokemonID": p.ID,
		"rating":    p.Rating,
	})
	l.Info("edit_pokemon_success", "rating", rating)
	return p, nil
}

func (s *PokedexService) Delete(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "pokedex.delete", "pokemon_id", id)

	if err := s.Repo.DeletePokemon(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		l.Error("delete_pokemon_failed", "status", 500, "error", err)
		return err
	}

	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			l.Warn("search_index_error", "reason", "cannot remove document", "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicPokemonEvents, id, map[string]any{
		"type":      "pokemon_deleted",
		"pokemonID": id,
	})
	l.Info("delete_pokemon_success")
	return nil
}

// Find runs a text search over the catalog. The search index is preferred;
// when it is missing or failing the database answers instead.
func (s *PokedexService) Find(ctx context.Context, q string, offset, limit int) (int64, []models.Pokemon, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, []models.Pokemon{}, nil
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			items, err := s.Repo.PokemonByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			return total, items, nil
		}
		logging.FromContext(ctx).Warn("search_index_error", "reason", "falling back to database", "error", err)
	}
	return s.Repo.FindPokemon(ctx, q, offset, limit)
}

func (s *PokedexService) index(ctx context.Context, p *models.Pokemon) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Put(ctx, es.DocumentFrom(p)); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "reason", "cannot index document", "pokemon_id", p.ID, "error", err)
	}
}
