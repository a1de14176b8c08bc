package models

import (
	"slices"
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"          json:"id"`
	Name         string    `gorm:"uniqueIndex;not null;size:100"     json:"name"`
	Email        string    `gorm:"uniqueIndex;not null;size:100"     json:"email"`
	PasswordHash string    `gorm:"not null;size:255"                 json:"-"`
	Roles        []Role    `gorm:"many2many:user_roles;"             json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasRole reports whether at least one of the loaded roles carries slug.
// A user without roles has none.
func (u *User) HasRole(slug string) bool {
	if u == nil {
		return false
	}
	return slices.ContainsFunc(u.Roles, func(r Role) bool { return r.Slug == slug })
}

func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"      json:"id"`
	Name string `gorm:"not null;size:100"             json:"name"`
	Slug string `gorm:"uniqueIndex;not null;size:100" json:"slug"`
}

type UserRole struct {
	UserID    uint `gorm:"primaryKey"`
	RoleID    uint `gorm:"primaryKey"`
	CreatedAt time.Time
}

type Pokemon struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"      json:"id"`
	CreatorID *uint   `gorm:"index"                         json:"creator_id"`
	Name      string  `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Abilities string  `gorm:"size:500"                      json:"abilities"`
	Types     string  `gorm:"size:100"                      json:"types"`
	Rating    float64 `gorm:"not null;default:0"            json:"rating"`
	Image     string  `gorm:"size:500"                      json:"image"`
}

type RevokedToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	JTI       string    `gorm:"uniqueIndex;not null;size:64"  json:"jti"`
	UserID    uint      `gorm:"index;not null"                json:"user_id"`
	RevokedAt time.Time `gorm:"not null"                      json:"revoked_at"`
	ExpiresAt time.Time `gorm:"index;not null"                json:"expires_at"`
}
