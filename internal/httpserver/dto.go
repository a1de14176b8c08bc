package httpserver

import (
	"strings"
	"time"

	"github.com/Skotchmaster/pokedex/internal/models"
)

type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,max=64"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,max=128"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type UserResponse struct {
	ID    uint     `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type PokemonResponse struct {
	ID        uint     `json:"id"`
	CreatorID *uint    `json:"creator_id"`
	Name      string   `json:"name"`
	Abilities []string `json:"abilities"`
	Types     []string `json:"types"`
	Rating    float64  `json:"rating"`
	Image     string   `json:"poke_img"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Roles: u.RoleNames()}
}

func toUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out
}

func toPokemonResponse(p *models.Pokemon) PokemonResponse {
	return PokemonResponse{
		ID:        p.ID,
		CreatorID: p.CreatorID,
		Name:      p.Name,
		Abilities: splitList(p.Abilities),
		Types:     splitList(p.Types),
		Rating:    p.Rating,
		Image:     p.Image,
	}
}

func toPokemonResponses(items []models.Pokemon) []PokemonResponse {
	out := make([]PokemonResponse, 0, len(items))
	for i := range items {
		out = append(out, toPokemonResponse(&items[i]))
	}
	return out
}

// splitList undoes the ", " join used when a pokemon is stored.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
