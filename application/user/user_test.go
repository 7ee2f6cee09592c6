package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	appuser "github.com/muhammadheryan/catalog-api/application/user"
	"github.com/muhammadheryan/catalog-api/cmd/config"
	"github.com/muhammadheryan/catalog-api/constant"
	redismocks "github.com/muhammadheryan/catalog-api/mocks/repository/redis"
	rolemocks "github.com/muhammadheryan/catalog-api/mocks/repository/role"
	usermocks "github.com/muhammadheryan/catalog-api/mocks/repository/user"
	"github.com/muhammadheryan/catalog-api/model"
	cerr "github.com/muhammadheryan/catalog-api/utils/errors"
	"github.com/muhammadheryan/catalog-api/utils/password"
	"github.com/muhammadheryan/catalog-api/utils/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
			BcryptCost:    4,
		},
	}
}

type fields struct {
	config    *config.Config
	userRepo  *usermocks.UserRepository
	roleRepo  *rolemocks.RoleRepository
	redisRepo *redismocks.RedisRepository
}

func newFields(t *testing.T) fields {
	return fields{
		config:    testConfig(),
		userRepo:  usermocks.NewUserRepository(t),
		roleRepo:  rolemocks.NewRoleRepository(t),
		redisRepo: redismocks.NewRedisRepository(t),
	}
}

func (f fields) app() appuser.UserApp {
	return appuser.NewUserApp(f.config, token.NewService(f.config.Auth), f.userRepo, f.roleRepo, f.redisRepo)
}

func assertErrCode(t *testing.T, err error, want constant.ErrorType) {
	t.Helper()
	var ce cerr.CustomError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want CustomError", err)
	}
	if ce.ErrorCode() != constant.ErrorTypeCode[want] {
		t.Fatalf("error code = %s, want %s", ce.ErrorCode(), constant.ErrorTypeCode[want])
	}
}

func strPtr(s string) *string { return &s }

func hashed(t *testing.T, plain string) string {
	h, err := password.Hash(plain, 4)
	require.NoError(t, err)
	return h
}

func TestUserApp_Register(t *testing.T) {
	userRole := &model.RoleEntity{ID: "role-user", Name: constant.RoleUser}

	tests := []struct {
		name     string
		req      *model.RegisterRequest
		mockCall func(f fields)
		want     *model.UserResponse
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name: "success: register new user with user role",
			req:  &model.RegisterRequest{Email: "new@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.
					On("Get", mock.Anything, &model.UserFilter{Email: "new@example.com"}).
					Return(nil, nil).
					Once()
				f.roleRepo.
					On("GetByName", mock.Anything, constant.RoleUser).
					Return(userRole, nil).
					Once()
				f.userRepo.
					On("Create", mock.Anything, mock.MatchedBy(func(ent *model.UserEntity) bool {
						return ent.Email == "new@example.com" &&
							ent.IsActive &&
							ent.RoleID != nil && *ent.RoleID == "role-user" &&
							password.Verify(ent.PasswordHash, "password123")
					})).
					Return(func(_ context.Context, ent *model.UserEntity) (*model.UserEntity, error) {
						ent.ID = "u-1"
						ent.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
						return ent, nil
					}).
					Once()
			},
			want: &model.UserResponse{
				ID:        "u-1",
				Email:     "new@example.com",
				IsActive:  true,
				Role:      constant.RoleUser,
				CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "error: email already exists",
			req:  &model.RegisterRequest{Email: "taken@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.
					On("Get", mock.Anything, &model.UserFilter{Email: "taken@example.com"}).
					Return(&model.UserEntity{ID: "u-0", Email: "taken@example.com"}, nil).
					Once()
			},
			wantErr: true,
			errCode: constant.ErrCredentialExists,
		},
		{
			name: "error: repository Get returns error",
			req:  &model.RegisterRequest{Email: "new@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.
					On("Get", mock.Anything, mock.Anything).
					Return(nil, errors.New("db error")).
					Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
		},
		{
			name: "error: duplicate entry on insert",
			req:  &model.RegisterRequest{Email: "race@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.On("Get", mock.Anything, mock.Anything).Return(nil, nil).Once()
				f.roleRepo.On("GetByName", mock.Anything, constant.RoleUser).Return(userRole, nil).Once()
				f.userRepo.
					On("Create", mock.Anything, mock.AnythingOfType("*model.UserEntity")).
					Return(nil, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}).
					Once()
			},
			wantErr: true,
			errCode: constant.ErrCredentialExists,
		},
		{
			name: "error: repository Create returns error",
			req:  &model.RegisterRequest{Email: "new@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.On("Get", mock.Anything, mock.Anything).Return(nil, nil).Once()
				f.roleRepo.On("GetByName", mock.Anything, constant.RoleUser).Return(nil, nil).Once()
				f.userRepo.
					On("Create", mock.Anything, mock.AnythingOfType("*model.UserEntity")).
					Return(nil, errors.New("create failed")).
					Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			got, err := f.app().Register(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserApp_Login(t *testing.T) {
	hash := hashed(t, "password123")

	tests := []struct {
		name     string
		req      *model.LoginRequest
		mockCall func(f fields)
		wantRole string
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name: "success: admin gets admin role claim",
			req:  &model.LoginRequest{Email: "admin@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.
					On("Get", mock.Anything, &model.UserFilter{Email: "admin@example.com"}).
					Return(&model.UserEntity{ID: "u-1", Email: "admin@example.com", PasswordHash: hash, IsActive: true, RoleName: strPtr("admin")}, nil).
					Once()
			},
			wantRole: "admin",
		},
		{
			name: "success: user without role is issued user",
			req:  &model.LoginRequest{Email: "plain@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.
					On("Get", mock.Anything, &model.UserFilter{Email: "plain@example.com"}).
					Return(&model.UserEntity{ID: "u-2", Email: "plain@example.com", PasswordHash: hash, IsActive: true}, nil).
					Once()
			},
			wantRole: "user",
		},
		{
			name: "error: unknown email",
			req:  &model.LoginRequest{Email: "nobody@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.On("Get", mock.Anything, mock.Anything).Return(nil, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrInvalidCredentials,
		},
		{
			name: "error: wrong password",
			req:  &model.LoginRequest{Email: "admin@example.com", Password: "nope"},
			mockCall: func(f fields) {
				f.userRepo.
					On("Get", mock.Anything, mock.Anything).
					Return(&model.UserEntity{ID: "u-1", PasswordHash: hash, IsActive: true}, nil).
					Once()
			},
			wantErr: true,
			errCode: constant.ErrInvalidCredentials,
		},
		{
			name: "error: inactive user",
			req:  &model.LoginRequest{Email: "off@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.
					On("Get", mock.Anything, mock.Anything).
					Return(&model.UserEntity{ID: "u-3", PasswordHash: hash, IsActive: false}, nil).
					Once()
			},
			wantErr: true,
			errCode: constant.ErrUnauthorize,
		},
		{
			name: "error: repository Get returns error",
			req:  &model.LoginRequest{Email: "admin@example.com", Password: "password123"},
			mockCall: func(f fields) {
				f.userRepo.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			got, err := f.app().Login(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Login() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
				return
			}

			assert.Equal(t, "bearer", got.Token.TokenType)
			assert.Equal(t, int64(900), got.Token.ExpiresIn)
			assert.NotEmpty(t, got.RefreshToken)

			claims, err := token.NewService(f.config.Auth).VerifyAccess(got.Token.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, claims.Role)
		})
	}
}

func TestUserApp_Refresh(t *testing.T) {
	cfg := testConfig()
	tokens := token.NewService(cfg.Auth)
	refresh, jti, err := tokens.IssueRefresh("u-1")
	require.NoError(t, err)
	access, err := tokens.IssueAccess("u-1", "a@example.com", "user")
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		mockCall func(f fields)
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name:  "success: new access token",
			token: refresh,
			mockCall: func(f fields) {
				f.redisRepo.On("IsTokenRevoked", mock.Anything, jti).Return(false, nil).Once()
				f.userRepo.
					On("Get", mock.Anything, &model.UserFilter{ID: "u-1"}).
					Return(&model.UserEntity{ID: "u-1", Email: "a@example.com", IsActive: true}, nil).
					Once()
			},
		},
		{
			name:     "error: missing cookie",
			token:    "",
			mockCall: func(f fields) {},
			wantErr:  true,
			errCode:  constant.ErrUnauthorize,
		},
		{
			name:     "error: access token is not a refresh token",
			token:    access,
			mockCall: func(f fields) {},
			wantErr:  true,
			errCode:  constant.ErrUnauthorize,
		},
		{
			name:  "error: revoked",
			token: refresh,
			mockCall: func(f fields) {
				f.redisRepo.On("IsTokenRevoked", mock.Anything, jti).Return(true, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrUnauthorize,
		},
		{
			name:  "error: user deactivated",
			token: refresh,
			mockCall: func(f fields) {
				f.redisRepo.On("IsTokenRevoked", mock.Anything, jti).Return(false, nil).Once()
				f.userRepo.
					On("Get", mock.Anything, &model.UserFilter{ID: "u-1"}).
					Return(&model.UserEntity{ID: "u-1", IsActive: false}, nil).
					Once()
			},
			wantErr: true,
			errCode: constant.ErrUnauthorize,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			got, err := f.app().Refresh(context.Background(), tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Refresh() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
				return
			}
			claims, err := tokens.VerifyAccess(got.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, "u-1", claims.Subject)
			assert.Equal(t, "user", claims.Role)
		})
	}
}

func TestUserApp_Logout(t *testing.T) {
	cfg := testConfig()
	refresh, jti, err := token.NewService(cfg.Auth).IssueRefresh("u-1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		mockCall func(f fields)
		wantErr  bool
	}{
		{
			name:  "revokes jti for the remaining lifetime",
			token: refresh,
			mockCall: func(f fields) {
				f.redisRepo.
					On("RevokeToken", mock.Anything, jti, mock.MatchedBy(func(ttl time.Duration) bool {
						return ttl > 23*time.Hour && ttl <= 24*time.Hour
					})).
					Return(nil).
					Once()
			},
		},
		{
			name:     "no cookie is a no-op",
			token:    "",
			mockCall: func(f fields) {},
		},
		{
			name:     "garbage token is a no-op",
			token:    "not-a-jwt",
			mockCall: func(f fields) {},
		},
		{
			name:  "store failure",
			token: refresh,
			mockCall: func(f fields) {
				f.redisRepo.On("RevokeToken", mock.Anything, jti, mock.Anything).Return(errors.New("redis down")).Once()
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			err := f.app().Logout(context.Background(), tt.token)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestUserApp_Authenticate(t *testing.T) {
	cfg := testConfig()
	tokens := token.NewService(cfg.Auth)
	valid, err := tokens.IssueAccess("u-1", "a@example.com", "admin")
	require.NoError(t, err)

	expiredCfg := cfg.Auth
	expiredCfg.AccessTTL = -time.Minute
	expired, err := token.NewService(expiredCfg).IssueAccess("u-1", "a@example.com", "admin")
	require.NoError(t, err)

	forgedCfg := cfg.Auth
	forgedCfg.AccessSecret = "someone-else"
	forged, err := token.NewService(forgedCfg).IssueAccess("u-1", "a@example.com", "admin")
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		mockCall func(f fields)
		wantID   string
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name:  "success",
			token: valid,
			mockCall: func(f fields) {
				f.userRepo.
					On("Get", mock.Anything, &model.UserFilter{ID: "u-1"}).
					Return(&model.UserEntity{ID: "u-1", IsActive: true}, nil).
					Once()
			},
			wantID: "u-1",
		},
		{name: "missing token", token: "", mockCall: func(f fields) {}, wantErr: true, errCode: constant.ErrUnauthorize},
		{name: "expired token", token: expired, mockCall: func(f fields) {}, wantErr: true, errCode: constant.ErrUnauthorize},
		{name: "forged token", token: forged, mockCall: func(f fields) {}, wantErr: true, errCode: constant.ErrUnauthorize},
		{name: "tampered token", token: valid + "x", mockCall: func(f fields) {}, wantErr: true, errCode: constant.ErrUnauthorize},
		{
			name:  "user no longer exists",
			token: valid,
			mockCall: func(f fields) {
				f.userRepo.On("Get", mock.Anything, mock.Anything).Return(nil, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrUnauthorize,
		},
		{
			name:  "inactive user",
			token: valid,
			mockCall: func(f fields) {
				f.userRepo.On("Get", mock.Anything, mock.Anything).Return(&model.UserEntity{ID: "u-1"}, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrUnauthorize,
		},
		{
			name:  "store failure",
			token: valid,
			mockCall: func(f fields) {
				f.userRepo.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
			errCode: constant.ErrInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			got, err := f.app().Authenticate(context.Background(), tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
				return
			}
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestUserApp_Authorize(t *testing.T) {
	tests := []struct {
		name    string
		user    *model.UserEntity
		role    string
		wantErr bool
		errCode constant.ErrorType
	}{
		{name: "admin passes admin", user: &model.UserEntity{RoleName: strPtr("admin")}, role: "admin"},
		{name: "user fails admin", user: &model.UserEntity{RoleName: strPtr("user")}, role: "admin", wantErr: true, errCode: constant.ErrForbidden},
		{name: "case sensitive", user: &model.UserEntity{RoleName: strPtr("Admin")}, role: "admin", wantErr: true, errCode: constant.ErrForbidden},
		{name: "nil role fails admin", user: &model.UserEntity{}, role: "admin", wantErr: true, errCode: constant.ErrForbidden},
		{name: "blank role admits anyone", user: &model.UserEntity{}, role: ""},
		{name: "no user", user: nil, role: "admin", wantErr: true, errCode: constant.ErrUnauthorize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newFields(t).app().Authorize(tt.user, tt.role)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
			}
		})
	}
}

func TestUserApp_MeAndDashboard(t *testing.T) {
	app := newFields(t).app()
	u := &model.UserEntity{ID: "u-1", Email: "boss@example.com", IsActive: true, RoleName: strPtr("admin")}

	assert.Equal(t, &model.MeResponse{ID: "u-1", Email: "boss@example.com", IsActive: true, Role: "admin"}, app.Me(u))
	assert.Equal(t, "Welcome admin boss@example.com!", app.Dashboard(u).Message)
}

func TestUserApp_AssignRole(t *testing.T) {
	adminRole := &model.RoleEntity{ID: "role-admin", Name: "admin"}

	tests := []struct {
		name     string
		userID   string
		req      *model.AssignRoleRequest
		mockCall func(f fields)
		wantRole string
		wantErr  bool
		errCode  constant.ErrorType
	}{
		{
			name:   "success",
			userID: "u-2",
			req:    &model.AssignRoleRequest{Role: "admin"},
			mockCall: func(f fields) {
				f.roleRepo.On("GetByName", mock.Anything, "admin").Return(adminRole, nil).Once()
				f.userRepo.On("UpdateRole", mock.Anything, "u-2", "role-admin").Return(true, nil).Once()
				f.userRepo.
					On("Get", mock.Anything, &model.UserFilter{ID: "u-2"}).
					Return(&model.UserEntity{ID: "u-2", RoleName: strPtr("admin")}, nil).
					Once()
			},
			wantRole: "admin",
		},
		{
			name:   "unknown role",
			userID: "u-2",
			req:    &model.AssignRoleRequest{Role: "owner"},
			mockCall: func(f fields) {
				f.roleRepo.On("GetByName", mock.Anything, "owner").Return(nil, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrInvalidRequest,
		},
		{
			name:   "unknown user",
			userID: "missing",
			req:    &model.AssignRoleRequest{Role: "admin"},
			mockCall: func(f fields) {
				f.roleRepo.On("GetByName", mock.Anything, "admin").Return(adminRole, nil).Once()
				f.userRepo.On("UpdateRole", mock.Anything, "missing", "role-admin").Return(false, nil).Once()
			},
			wantErr: true,
			errCode: constant.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			tt.mockCall(f)

			got, err := f.app().AssignRole(context.Background(), tt.userID, tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AssignRole() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assertErrCode(t, err, tt.errCode)
				return
			}
			assert.Equal(t, tt.wantRole, got.Role)
		})
	}
}

func TestUserApp_EnsureAdmin(t *testing.T) {
	adminRole := &model.RoleEntity{ID: "role-admin", Name: "admin"}

	tests := []struct {
		name     string
		email    string
		mockCall func(f fields)
		wantErr  bool
	}{
		{
			name:     "not configured",
			email:    "",
			mockCall: func(f fields) {},
		},
		{
			name:  "creates admin",
			email: "root@example.com",
			mockCall: func(f fields) {
				f.roleRepo.On("GetByName", mock.Anything, "admin").Return(adminRole, nil).Once()
				f.userRepo.On("Get", mock.Anything, &model.UserFilter{Email: "root@example.com"}).Return(nil, nil).Once()
				f.userRepo.
					On("Create", mock.Anything, mock.MatchedBy(func(ent *model.UserEntity) bool {
						return ent.Email == "root@example.com" && *ent.RoleID == "role-admin" && ent.IsActive
					})).
					Return(&model.UserEntity{ID: "u-root"}, nil).
					Once()
			},
		},
		{
			name:  "promotes existing user",
			email: "root@example.com",
			mockCall: func(f fields) {
				f.roleRepo.On("GetByName", mock.Anything, "admin").Return(adminRole, nil).Once()
				f.userRepo.
					On("Get", mock.Anything, mock.Anything).
					Return(&model.UserEntity{ID: "u-root", RoleName: strPtr("user")}, nil).
					Once()
				f.userRepo.On("UpdateRole", mock.Anything, "u-root", "role-admin").Return(true, nil).Once()
			},
		},
		{
			name:  "already admin",
			email: "root@example.com",
			mockCall: func(f fields) {
				f.roleRepo.On("GetByName", mock.Anything, "admin").Return(adminRole, nil).Once()
				f.userRepo.
					On("Get", mock.Anything, mock.Anything).
					Return(&model.UserEntity{ID: "u-root", RoleName: strPtr("admin")}, nil).
					Once()
			},
		},
		{
			name:  "roles not seeded",
			email: "root@example.com",
			mockCall: func(f fields) {
				f.roleRepo.On("GetByName", mock.Anything, "admin").Return(nil, nil).Once()
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFields(t)
			f.config.Auth.AdminEmail = tt.email
			f.config.Auth.AdminPassword = "bootstrap-pass"
			tt.mockCall(f)

			err := f.app().EnsureAdmin(context.Background())
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
