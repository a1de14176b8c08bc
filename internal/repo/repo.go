package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/pokedex/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrNameTaken     = errors.New("name already registered")
	ErrRoleNotFound  = errors.New("role not found")
	ErrPokemonExists = errors.New("pokemon already exists")
)

type GormRepo struct {
	DB *gorm.DB
}

// Migrate creates or updates every table, registering user_roles as the
// explicit join model for User.Roles.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.UserRole{},
		&models.Pokemon{},
		&models.RevokedToken{},
	)
}

func exists(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
