package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/pokedex/internal/models"
)

// CreateUserWithRole inserts u and links it to the role with roleSlug in one
// transaction. Nothing is written when the email or name is taken or the
// role is missing.
func (r *GormRepo) CreateUserWithRole(ctx context.Context, u *models.User, roleSlug string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if taken, err := exists(tx, &models.User{}, "email = ?", u.Email); err != nil {
			return err
		} else if taken {
			return ErrEmailTaken
		}
		if taken, err := exists(tx, &models.User{}, "name = ?", u.Name); err != nil {
			return err
		} else if taken {
			return ErrNameTaken
		}

		var role models.Role
		if err := tx.Where("slug = ?", roleSlug).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return err
		}

		u.Roles = nil
		if err := tx.Omit(clause.Associations).Create(u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}
		if err := tx.Create(&models.UserRole{UserID: u.ID, RoleID: role.ID}).Error; err != nil {
			return err
		}
		u.Roles = []models.Role{role}
		return nil
	})
}

func (r *GormRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Roles").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Preload("Roles").Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormRepo) UpdatePasswordHash(ctx context.Context, userID uint, digest string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password_hash", digest)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user with its role links and detaches the pokemon it
// created.
func (r *GormRepo) DeleteUser(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Pokemon{}).
			Where("creator_id = ?", userID).
			Update("creator_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
