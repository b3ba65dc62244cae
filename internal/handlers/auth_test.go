package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/croswell/taskmaster-api/internal/auth"
	"github.com/croswell/taskmaster-api/internal/database"
	"github.com/croswell/taskmaster-api/internal/dto"
	apierrors "github.com/croswell/taskmaster-api/internal/errors"
	"github.com/croswell/taskmaster-api/internal/middleware"
	"github.com/croswell/taskmaster-api/internal/models"
	"github.com/croswell/taskmaster-api/internal/repository"
	"github.com/croswell/taskmaster-api/internal/services"
)

type testEnv struct {
	db          *gorm.DB
	router      *gin.Engine
	codec       *auth.TokenCodec
	authService *services.AuthService
	taskService *services.TaskService
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Task{},
	)
	require.NoError(t, err)

	database.SetDB(db)

	codec, err := auth.NewTokenCodec("test-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	authService := services.NewAuthService(userRepo, codec)
	taskService := services.NewTaskService(taskRepo)
	analyticsService := services.NewAnalyticsService(taskRepo)

	authHandler := NewAuthHandler(authService)
	userHandler := NewUserHandler(authService)
	taskHandler := NewTaskHandler(taskService)
	analyticsHandler := NewAnalyticsHandler(analyticsService)

	requireAuth := middleware.RequireAuth(codec, userRepo)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", requireAuth, authHandler.GetCurrentUser)

	users := api.Group("/users", requireAuth)
	users.GET("/me", userHandler.GetMe)
	users.PUT("/me", userHandler.UpdateMe)
	users.DELETE("/me", userHandler.DeleteMe)

	tasks := api.Group("/tasks", requireAuth)
	tasks.GET("", taskHandler.ListTasks)
	tasks.POST("", taskHandler.CreateTask)
	tasks.GET("/stats/summary", taskHandler.GetStats)
	tasks.GET("/:id", taskHandler.GetTask)
	tasks.PUT("/:id", taskHandler.UpdateTask)
	tasks.DELETE("/:id", taskHandler.DeleteTask)

	analytics := api.Group("/analytics", requireAuth)
	analytics.GET("/dashboard", analyticsHandler.GetDashboard)
	analytics.GET("/overview", analyticsHandler.GetOverview)
	analytics.GET("/trends", analyticsHandler.GetTrends)
	analytics.GET("/productivity/hourly", analyticsHandler.GetHourlyProductivity)
	analytics.GET("/productivity/weekly", analyticsHandler.GetWeekdayProductivity)
	analytics.GET("/insights", analyticsHandler.GetInsights)

	// No model server in tests; the handler must answer 503 on its own.
	aiHandler := NewAIHandler(nil)
	ai := api.Group("/ai", requireAuth)
	ai.GET("/health", aiHandler.Health)
	ai.POST("/chat", aiHandler.Chat)
	ai.POST("/suggest", aiHandler.Suggest)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return testEnv{
		db:          db,
		router:      r,
		codec:       codec,
		authService: authService,
		taskService: taskService,
	}
}

func (env testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env testEnv) register(t *testing.T, email, username, password string) dto.UserDTO {
	t.Helper()

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     email,
		"username":  username,
		"full_name": "Test User",
		"password":  password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var user dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	return user
}

func (env testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var token dto.TokenDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))
	require.Equal(t, "bearer", token.TokenType)
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func TestAuthHandler_Register(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     "a@x.com",
		"username":  "alice",
		"full_name": "Alice",
		"password":  "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "a@x.com", response.Email)
	require.Equal(t, "alice", response.Username)
	require.NotZero(t, response.ID)
	require.True(t, response.IsActive)

	// The password hash must never appear in any response shape.
	require.NotContains(t, w.Body.String(), "password")
	require.NotContains(t, w.Body.String(), "secret123")
}

func TestAuthHandler_RegisterDuplicateEmail(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "a@x.com", "alice", "secret123")

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "a@x.com",
		"username": "other",
		"password": "secret123",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	require.Equal(t, apierrors.ErrCodeConflict, apiErr.Code)
}

func TestAuthHandler_RegisterDuplicateUsername(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "a@x.com", "alice", "secret123")

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "b@x.com",
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_RegisterShortPassword(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "a@x.com",
		"username": "alice",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_LoginAndResolveIdentity(t *testing.T) {
	env := setupTestEnv(t)
	registered := env.register(t, "a@x.com", "alice", "secret123")

	token := env.login(t, "a@x.com", "secret123")

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.Equal(t, registered.ID, me.ID)
	require.Equal(t, "alice", me.Username)
}

func TestAuthHandler_LoginFailuresAreIndistinguishable(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "a@x.com", "alice", "secret123")

	wrongPassword := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "a@x.com",
		"password": "wrong-password",
	})
	unknownEmail := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "nobody@x.com",
		"password": "secret123",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	// Identical bodies: no signal about which check failed.
	require.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestAuthHandler_TamperedTokenRejected(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "a@x.com", "alice", "secret123")
	token := env.login(t, "a@x.com", "secret123")

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", token[:len(token)-1], nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_MissingTokenRejected(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ExpiredTokenRejected(t *testing.T) {
	env := setupTestEnv(t)
	user := env.register(t, "a@x.com", "alice", "secret123")

	expiredCodec, err := auth.NewTokenCodec("test-secret", "HS256", 0)
	require.NoError(t, err)
	expired, err := expiredCodec.Issue(user.ID)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", expired, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_InactiveAccount(t *testing.T) {
	env := setupTestEnv(t)
	user := env.register(t, "a@x.com", "alice", "secret123")
	token := env.login(t, "a@x.com", "secret123")

	require.NoError(t, env.db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("is_active", false).Error)

	// Resolver rejects the still-valid token once the account is inactive.
	w := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// And new logins are rejected as well.
	loginResp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusForbidden, loginResp.Code)
}

func TestAuthHandler_DeletedAccountTokenRejected(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "a@x.com", "alice", "secret123")
	token := env.login(t, "a@x.com", "secret123")

	w := env.do(t, http.MethodDelete, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// The token is still signed and unexpired, but its subject is gone.
	w = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "a@x.com", "alice", "secret123")
	env.register(t, "b@x.com", "bob", "secret123")
	token := env.login(t, "a@x.com", "secret123")

	// Taking another user's email is a conflict.
	w := env.do(t, http.MethodPut, "/api/v1/users/me", token, map[string]string{
		"email": "b@x.com",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// Changing name and password works and the new password logs in.
	w = env.do(t, http.MethodPut, "/api/v1/users/me", token, map[string]string{
		"full_name": "Alice Updated",
		"password":  "newsecret123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, "Alice Updated", updated.FullName)

	env.login(t, "a@x.com", "newsecret123")

	old := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusUnauthorized, old.Code)
}
