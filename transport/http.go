package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	productapp "github.com/muhammadheryan/catalog-api/application/product"
	uploadapp "github.com/muhammadheryan/catalog-api/application/upload"
	userapp "github.com/muhammadheryan/catalog-api/application/user"
	"github.com/muhammadheryan/catalog-api/cmd/config"
	"github.com/muhammadheryan/catalog-api/constant"
	"github.com/muhammadheryan/catalog-api/model"
	redisrepo "github.com/muhammadheryan/catalog-api/repository/redis"
	utilsContext "github.com/muhammadheryan/catalog-api/utils/context"
	"github.com/muhammadheryan/catalog-api/utils/errors"
	validatorx "github.com/muhammadheryan/catalog-api/utils/validator"
	httpSwagger "github.com/swaggo/http-swagger"
)

const refreshCookieName = "refresh_token"

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RestHandler struct {
	Config     *config.Config
	UserApp    userapp.UserApp
	ProductApp productapp.ProductApp
	UploadApp  uploadapp.UploadApp
	RedisRepo  redisrepo.Repository
	DB         Pinger
}

func NewTransport(rh *RestHandler) http.Handler {
	router := mux.NewRouter()

	// Swagger UI
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	api := router
	if root := strings.TrimSuffix(rh.Config.Server.APIRoot, "/"); root != "" {
		api = router.PathPrefix(root).Subrouter()
	}

	authed := func(role string, h http.HandlerFunc) http.Handler {
		return AuthMiddleware(rh.UserApp)(RoleMiddleware(rh.UserApp, role)(h))
	}
	limited := func(scope string, h http.HandlerFunc) http.Handler {
		return RateLimitMiddleware(rh.RedisRepo, rh.Config.RateLimit, scope)(h)
	}
	writeRole := rh.Config.Auth.ProductWriteRole

	// Public routes
	api.HandleFunc("/health", rh.Health).Methods(http.MethodGet)
	api.Handle("/auth/register", limited("register", rh.Register)).Methods(http.MethodPost)
	api.Handle("/auth/login", limited("login", rh.Login)).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", rh.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", rh.Logout).Methods(http.MethodPost)
	api.HandleFunc("/products", rh.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/search", rh.SearchProducts).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", rh.GetProduct).Methods(http.MethodGet)
	api.HandleFunc("/upload/{filename}", rh.GetUpload).Methods(http.MethodGet)

	// protected routes
	api.Handle("/users/me", authed("", rh.Me)).Methods(http.MethodGet)
	api.Handle("/admin/dashboard", authed(constant.RoleAdmin, rh.Dashboard)).Methods(http.MethodGet)
	api.Handle("/admin/users/{id}/role", authed(constant.RoleAdmin, rh.AssignRole)).Methods(http.MethodPut)
	api.Handle("/products", authed(writeRole, rh.CreateProduct)).Methods(http.MethodPost)
	api.Handle("/products/{id}", authed(writeRole, rh.UpdateProduct)).Methods(http.MethodPut)
	api.Handle("/products/{id}", authed(writeRole, rh.DeleteProduct)).Methods(http.MethodDelete)
	api.Handle("/products/{id}/images", authed(writeRole, rh.AttachImages)).Methods(http.MethodPost)
	api.Handle("/products/{id}/images", authed(writeRole, rh.RemoveImage)).Methods(http.MethodDelete)
	api.Handle("/upload/image", authed("", rh.UploadImage)).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.SetCustomErrorMessage(constant.ErrNotFound, "route not found"))
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.SetCustomError(constant.ErrMethodNotAllowed))
	})
	router.MethodNotAllowedHandler = methodNotAllowed
	api.MethodNotAllowedHandler = methodNotAllowed

	// middleware wraps the whole router so unmatched routes are logged and recovered too
	var handler http.Handler = router
	handler = CORSMiddleware(rh.Config.Server.CORSOrigins)(handler)
	handler = LoggingMiddleware()(handler)
	handler = RecoveryMiddleware()(handler)

	return handler
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handler
// @Summary Health check
// @Description Reports database and Redis reachability
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (s *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	res := HealthResponse{Status: "ok", Checks: map[string]string{"database": "ok", "redis": "disabled"}}
	status := http.StatusOK

	if err := s.DB.PingContext(ctx); err != nil {
		res.Checks["database"] = "unreachable"
		res.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	if s.RedisRepo.Enabled() {
		res.Checks["redis"] = "ok"
		if err := s.RedisRepo.Ping(ctx); err != nil {
			res.Checks["redis"] = "unreachable"
			res.Status = "degraded"
		}
	}

	writeSuccessStatus(w, status, res)
}

// Register handler
// @Summary Register user
// @Description Register a new user with the "user" role
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Register Request"
// @Success 201 {object} model.UserResponse
// @Failure 400 {object} Response
// @Failure 429 {object} Response
// @Router /auth/register [post]
func (s *RestHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := s.UserApp.Register(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccessStatus(w, http.StatusCreated, res)
}

// Login handler
// @Summary Login user
// @Description Returns an access token and sets the refresh token cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login Request"
// @Success 200 {object} model.TokenResponse
// @Failure 401 {object} Response
// @Failure 429 {object} Response
// @Router /auth/login [post]
func (s *RestHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := s.UserApp.Login(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, s.refreshCookie(res.RefreshToken, int(s.Config.Auth.RefreshTTL.Seconds())))
	writeSuccess(w, res.Token)
}

// Refresh handler
// @Summary Refresh access token
// @Description Mints a new access token from the refresh token cookie
// @Tags Auth
// @Produce json
// @Success 200 {object} model.TokenResponse
// @Failure 401 {object} Response
// @Router /auth/refresh [post]
func (s *RestHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.UserApp.Refresh(r.Context(), readRefreshCookie(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// Logout handler
// @Summary Logout
// @Description Clears the refresh cookie and revokes the refresh token when Redis is enabled
// @Tags Auth
// @Produce json
// @Success 200 {object} Response
// @Router /auth/logout [post]
func (s *RestHandler) Logout(w http.ResponseWriter, r *http.Request) {
	err := s.UserApp.Logout(r.Context(), readRefreshCookie(r))
	http.SetCookie(w, s.refreshCookie("", -1))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, nil)
}

// Me handler
// @Summary Current user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MeResponse
// @Failure 401 {object} Response
// @Router /users/me [get]
func (s *RestHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := utilsContext.GetUser(r.Context())
	writeSuccess(w, s.UserApp.Me(u))
}

// Dashboard handler
// @Summary Admin dashboard
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.DashboardResponse
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Router /admin/dashboard [get]
func (s *RestHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	u, _ := utilsContext.GetUser(r.Context())
	writeSuccess(w, s.UserApp.Dashboard(u))
}

// AssignRole handler
// @Summary Assign a role to a user
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body model.AssignRoleRequest true "Role"
// @Success 200 {object} model.UserResponse
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /admin/users/{id}/role [put]
func (s *RestHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req model.AssignRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := s.UserApp.AssignRole(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, res)
}

// refreshCookie builds the refresh cookie; maxAge < 0 deletes it.
func (s *RestHandler) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     s.Config.Server.APIRoot,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
}

func readRefreshCookie(r *http.Request) string {
	c, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// decodeAndValidate writes a ValidationError and returns false when the body
// is not valid JSON for v or fails its validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, "invalid JSON body"))
		return false
	}
	if err := validatorx.ValidateStruct(v); err != nil {
		writeError(w, errors.SetCustomErrorMessage(constant.ErrInvalidRequest, validatorx.Message(err)))
		return false
	}
	return true
}
