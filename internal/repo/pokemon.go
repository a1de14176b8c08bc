package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/pokedex/internal/models"
)

// ListPokemon returns the total count and one page ordered by id. A limit
// of zero or less returns every row.
func (r *GormRepo) ListPokemon(ctx context.Context, offset, limit int) (int64, []models.Pokemon, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Pokemon{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	q := r.DB.WithContext(ctx).Model(&models.Pokemon{}).Order("id ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	items := make([]models.Pokemon, 0)
	if err := q.Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetPokemon(ctx context.Context, id uint) (*models.Pokemon, error) {
	var p models.Pokemon
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *GormRepo) CreatePokemon(ctx context.Context, p *models.Pokemon) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if taken, err := exists(tx, &models.Pokemon{}, "LOWER(name) = ?", strings.ToLower(p.Name)); err != nil {
			return err
		} else if taken {
			return ErrPokemonExists
		}
		if err := tx.Create(p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrPokemonExists
			}
			return err
		}
		return nil
	})
}

func (r *GormRepo) UpdateRating(ctx context.Context, id uint, rating float64) (*models.Pokemon, error) {
	var p models.Pokemon
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return notFound(err)
		}
		p.Rating = rating
		return tx.Model(&p).Update("rating", rating).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) DeletePokemon(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Pokemon{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindPokemon matches q case-insensitively against name, types and
// abilities.
func (r *GormRepo) FindPokemon(ctx context.Context, q string, offset, limit int) (int64, []models.Pokemon, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	where := "LOWER(name) LIKE ? OR LOWER(types) LIKE ? OR LOWER(abilities) LIKE ?"

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Pokemon{}).
		Where(where, like, like, like).
		Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Pokemon, 0)
	if err := r.DB.WithContext(ctx).Model(&models.Pokemon{}).
		Where(where, like, like, like).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// PokemonByIDs keeps the order of ids and skips ids that are gone.
func (r *GormRepo) PokemonByIDs(ctx context.Context, ids []uint) ([]models.Pokemon, error) {
	items := make([]models.Pokemon, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	var rows []models.Pokemon
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Pokemon, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			items = append(items, p)
		}
	}
	return items, nil
}
