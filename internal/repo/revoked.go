package repo

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/pokedex/internal/models"
)

// Revoke stores the token id. Revoking the same jti again is a no-op.
func (r *GormRepo) Revoke(ctx context.Context, t *models.RevokedToken) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(t).Error
}

func (r *GormRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return exists(r.DB.WithContext(ctx), &models.RevokedToken{}, "jti = ?", jti)
}

// PruneRevoked drops entries for tokens that expired before now; those can
// never verify again.
func (r *GormRepo) PruneRevoked(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
