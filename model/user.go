package model

import (
	"time"

	"github.com/muhammadheryan/catalog-api/constant"
)

// UserEntity represents the users table joined with its role name
type UserEntity struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"hashed_password" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	RoleID       *string    `db:"role_id" json:"-"`
	RoleName     *string    `db:"role_name" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// EffectiveRole is the role used for tokens and display; a user without a
// role shows as "user".
func (u *UserEntity) EffectiveRole() string {
	if u.RoleName == nil || *u.RoleName == "" {
		return constant.RoleUser
	}
	return *u.RoleName
}

// UserFilter for querying users
type UserFilter struct {
	ID    string
	Email string
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,max=50"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// MeResponse is returned by GET /users/me.
type MeResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
	Role     string `json:"role"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// LoginResult carries both tokens; only the access token goes in the body.
type LoginResult struct {
	Token        TokenResponse
	RefreshToken string
}

type DashboardResponse struct {
	Message string `json:"message"`
}

func NewUserResponse(u *UserEntity) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		IsActive:  u.IsActive,
		Role:      u.EffectiveRole(),
		CreatedAt: u.CreatedAt,
	}
}
