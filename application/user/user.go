package user

import (
	"context"
	"fmt"
	"time"

	"github.com/muhammadheryan/catalog-api/cmd/config"
	"github.com/muhammadheryan/catalog-api/constant"
	"github.com/muhammadheryan/catalog-api/model"
	redisrepo "github.com/muhammadheryan/catalog-api/repository/redis"
	rolerepo "github.com/muhammadheryan/catalog-api/repository/role"
	userrepo "github.com/muhammadheryan/catalog-api/repository/user"
	"github.com/muhammadheryan/catalog-api/utils/errors"
	"github.com/muhammadheryan/catalog-api/utils/logger"
	"github.com/muhammadheryan/catalog-api/utils/password"
	"github.com/muhammadheryan/catalog-api/utils/token"
	"go.uber.org/zap"
)

const tokenTypeBearer = "bearer"

type UserApp interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.UserResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*model.UserEntity, error)
	Authorize(user *model.UserEntity, role string) error
	Me(user *model.UserEntity) *model.MeResponse
	Dashboard(user *model.UserEntity) *model.DashboardResponse
	AssignRole(ctx context.Context, userID string, req *model.AssignRoleRequest) (*model.UserResponse, error)
	EnsureAdmin(ctx context.Context) error
}

type UserAppImpl struct {
	config    *config.Config
	tokens    *token.Service
	userRepo  userrepo.UserRepository
	roleRepo  rolerepo.RoleRepository
	redisRepo redisrepo.Repository
}

func NewUserApp(config *config.Config, tokens *token.Service, userRepo userrepo.UserRepository, roleRepo rolerepo.RoleRepository, redisRepo redisrepo.Repository) UserApp {
	return &UserAppImpl{
		config:    config,
		tokens:    tokens,
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		redisRepo: redisRepo,
	}
}

func (s *UserAppImpl) Register(ctx context.Context, req *model.RegisterRequest) (*model.UserResponse, error) {
	existingUser, err := s.userRepo.Get(ctx, &model.UserFilter{Email: req.Email})
	if err != nil {
		logger.Error("[Register] err userRepo.Get email", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	if existingUser != nil {
		return nil, errors.SetCustomErrorMessage(constant.ErrCredentialExists, "Email already registered")
	}

	role, err := s.roleRepo.GetByName(ctx, constant.RoleUser)
	if err != nil {
		logger.Error("[Register] err roleRepo.GetByName", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	hashedPassword, err := password.Hash(req.Password, s.config.Auth.BcryptCost)
	if err != nil {
		logger.Error("[Register] err password.Hash", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	userEntity := &model.UserEntity{
		Email:        req.Email,
		PasswordHash: hashedPassword,
		IsActive:     true,
	}
	if role != nil {
		userEntity.RoleID = &role.ID
		userEntity.RoleName = &role.Name
	}

	userEntity, err = s.userRepo.Create(ctx, userEntity)
	if err != nil {
		// lost a race with a concurrent registration
		if errors.IsDuplicateEntry(err) {
			return nil, errors.SetCustomErrorMessage(constant.ErrCredentialExists, "Email already registered")
		}
		logger.Error("[Register] err userRepo.Create", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	return model.NewUserResponse(userEntity), nil
}

func (s *UserAppImpl) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResult, error) {
	user, err := s.userRepo.Get(ctx, &model.UserFilter{Email: req.Email})
	if err != nil {
		logger.Error("[Login] err userRepo.Get", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	// unknown email and wrong password look the same to the caller
	if user == nil || !password.Verify(user.PasswordHash, req.Password) {
		return nil, errors.SetCustomErrorMessage(constant.ErrInvalidCredentials, "Incorrect email or password")
	}
	if !user.IsActive {
		return nil, errors.SetCustomErrorMessage(constant.ErrUnauthorize, "Inactive user")
	}

	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email, user.EffectiveRole())
	if err != nil {
		logger.Error("[Login] err tokens.IssueAccess", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	refreshToken, _, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		logger.Error("[Login] err tokens.IssueRefresh", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	return &model.LoginResult{
		Token:        s.tokenResponse(accessToken),
		RefreshToken: refreshToken,
	}, nil
}

// Refresh mints a new access token from a refresh token. The refresh token
// itself is not rotated.
func (s *UserAppImpl) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	if refreshToken == "" {
		return nil, errors.SetCustomErrorMessage(constant.ErrUnauthorize, "Missing refresh token")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, errors.SetCustomError(constant.ErrUnauthorize)
	}

	revoked, err := s.redisRepo.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		logger.Error("[Refresh] err redisRepo.IsTokenRevoked", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	if revoked {
		return nil, errors.SetCustomError(constant.ErrUnauthorize)
	}

	user, err := s.activeUser(ctx, claims.Subject, "[Refresh]")
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email, user.EffectiveRole())
	if err != nil {
		logger.Error("[Refresh] err tokens.IssueAccess", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}

	resp := s.tokenResponse(accessToken)
	return &resp, nil
}

// Logout denylists the refresh token until it would have expired anyway.
// An absent or already invalid token is not an error.
func (s *UserAppImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.redisRepo.RevokeToken(ctx, claims.ID, ttl); err != nil {
		logger.Error("[Logout] err redisRepo.RevokeToken", zap.String("error", err.Error()))
		return errors.SetCustomError(constant.ErrInternal)
	}
	return nil
}

// Authenticate resolves a bearer access token to an active user.
func (s *UserAppImpl) Authenticate(ctx context.Context, accessToken string) (*model.UserEntity, error) {
	if accessToken == "" {
		return nil, errors.SetCustomError(constant.ErrUnauthorize)
	}

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, errors.SetCustomError(constant.ErrUnauthorize)
	}

	return s.activeUser(ctx, claims.Subject, "[Authenticate]")
}

// Authorize checks the stored role name against role exactly. An empty role
// admits any authenticated user; a user without a role never passes a
// named role check.
func (s *UserAppImpl) Authorize(user *model.UserEntity, role string) error {
	if user == nil {
		return errors.SetCustomError(constant.ErrUnauthorize)
	}
	if role == "" {
		return nil
	}
	if user.RoleName == nil || *user.RoleName != role {
		return errors.SetCustomError(constant.ErrForbidden)
	}
	return nil
}

func (s *UserAppImpl) Me(user *model.UserEntity) *model.MeResponse {
	return &model.MeResponse{
		ID:       user.ID,
		Email:    user.Email,
		IsActive: user.IsActive,
		Role:     user.EffectiveRole(),
	}
}

func (s *UserAppImpl) Dashboard(user *model.UserEntity) *model.DashboardResponse {
	return &model.DashboardResponse{Message: fmt.Sprintf("Welcome admin %s!", user.Email)}
}

func (s *UserAppImpl) AssignRole(ctx context.Context, userID string, req *model.AssignRoleRequest) (*model.UserResponse, error) {
	role, err := s.roleRepo.GetByName(ctx, req.Role)
	if err != nil {
		logger.Error("[AssignRole] err roleRepo.GetByName", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	if role == nil {
		return nil, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, fmt.Sprintf("unknown role: %s", req.Role))
	}

	updated, err := s.userRepo.UpdateRole(ctx, userID, role.ID)
	if err != nil {
		logger.Error("[AssignRole] err userRepo.UpdateRole", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	if !updated {
		return nil, errors.SetCustomErrorMessage(constant.ErrNotFound, "User not found")
	}

	user, err := s.userRepo.Get(ctx, &model.UserFilter{ID: userID})
	if err != nil {
		logger.Error("[AssignRole] err userRepo.Get", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	if user == nil {
		return nil, errors.SetCustomErrorMessage(constant.ErrNotFound, "User not found")
	}
	return model.NewUserResponse(user), nil
}

// EnsureAdmin creates or promotes the bootstrap administrator named by
// ADMIN_EMAIL. It does nothing when no admin credentials are configured.
func (s *UserAppImpl) EnsureAdmin(ctx context.Context) error {
	email, plain := s.config.Auth.AdminEmail, s.config.Auth.AdminPassword
	if email == "" || plain == "" {
		return nil
	}

	role, err := s.roleRepo.GetByName(ctx, constant.RoleAdmin)
	if err != nil {
		return fmt.Errorf("get admin role: %w", err)
	}
	if role == nil {
		return fmt.Errorf("admin role is not seeded")
	}

	existing, err := s.userRepo.Get(ctx, &model.UserFilter{Email: email})
	if err != nil {
		return fmt.Errorf("get admin user: %w", err)
	}
	if existing != nil {
		if existing.RoleName != nil && *existing.RoleName == constant.RoleAdmin {
			return nil
		}
		if _, err := s.userRepo.UpdateRole(ctx, existing.ID, role.ID); err != nil {
			return fmt.Errorf("promote admin user: %w", err)
		}
		logger.Info("[EnsureAdmin] promoted existing user", zap.String("email", email))
		return nil
	}

	hashedPassword, err := password.Hash(plain, s.config.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = s.userRepo.Create(ctx, &model.UserEntity{
		Email:        email,
		PasswordHash: hashedPassword,
		IsActive:     true,
		RoleID:       &role.ID,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.Info("[EnsureAdmin] created admin user", zap.String("email", email))
	return nil
}

func (s *UserAppImpl) activeUser(ctx context.Context, userID, op string) (*model.UserEntity, error) {
	user, err := s.userRepo.Get(ctx, &model.UserFilter{ID: userID})
	if err != nil {
		logger.Error(op+" err userRepo.Get", zap.String("error", err.Error()))
		return nil, errors.SetCustomError(constant.ErrInternal)
	}
	if user == nil || !user.IsActive {
		return nil, errors.SetCustomError(constant.ErrUnauthorize)
	}
	return user, nil
}

func (s *UserAppImpl) tokenResponse(accessToken string) model.TokenResponse {
	return model.TokenResponse{
		AccessToken: accessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.tokens.AccessTTL().Seconds()),
	}
}
