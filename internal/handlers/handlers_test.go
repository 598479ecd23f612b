package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/booking"
	"medconnect-server/internal/config"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/middleware"
	"medconnect-server/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testConfig = &config.Config{
	Environment:               "development",
	JWTSecret:                 "access-secret",
	JWTRefreshSecret:          "refresh-secret",
	JWTExpirationMinutes:      15,
	JWTRefreshExpirationHours: 24,
}

type memAuthRepo struct {
	users   map[string]*models.User
	tokens  map[string]*models.RefreshToken
	created int
}

func newMemAuthRepo() *memAuthRepo {
	return &memAuthRepo{users: map[string]*models.User{}, tokens: map[string]*models.RefreshToken{}}
}

func (m *memAuthRepo) GetUser(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (m *memAuthRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperr.NotFound("User not found")
}

func (m *memAuthRepo) CreateUser(_ context.Context, u *models.User) error {
	m.created++
	u.ID = fmt.Sprintf("user-%d", m.created)
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *memAuthRepo) SaveUser(_ context.Context, u *models.User) error {
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *memAuthRepo) CreateRefreshToken(_ context.Context, t *models.RefreshToken) error {
	m.tokens[t.TokenHash] = t
	return nil
}

func (m *memAuthRepo) GetActiveRefreshToken(_ context.Context, token, userID string) (*models.RefreshToken, error) {
	t, ok := m.tokens[models.HashToken(token)]
	if !ok || !t.Active(time.Now()) || t.UserID != userID {
		return nil, apperr.NotFound("Refresh token not found")
	}
	return t, nil
}

func (m *memAuthRepo) RevokeRefreshToken(_ context.Context, token, userID string) error {
	if t, ok := m.tokens[models.HashToken(token)]; ok && t.UserID == userID {
		t.IsRevoked = true
	}
	return nil
}

func authRouter(repo *memAuthRepo) *gin.Engine {
	h := NewAuthHandler(repo, testConfig, logger.Discard())
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh-token", h.RefreshToken)
	private := r.Group("", middleware.AuthMiddleware(testConfig))
	private.POST("/auth/logout", h.Logout)
	private.GET("/auth/profile", h.GetProfile)
	private.PUT("/auth/profile", h.UpdateProfile)
	return r
}

type envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
	Data    json.RawMessage   `json:"data"`
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func register(t *testing.T, r http.Handler, email, role string) {
	t.Helper()
	w, _ := doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"firstName": "Asha", "lastName": "Patel", "email": email, "password": "correct-horse", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

func login(t *testing.T, r http.Handler, email string) LoginResponse {
	t.Helper()
	w, env := doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	var out LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestRegister(t *testing.T) {
	repo := newMemAuthRepo()
	r := authRouter(repo)

	register(t, r, "asha@example.com", "")
	assert.Equal(t, models.RolePatient, repo.users["asha@example.com"].Role)
	assert.NotEqual(t, "correct-horse", repo.users["asha@example.com"].Password)

	w, env := doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"firstName": "A", "lastName": "B", "email": "asha@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, env.Error, "already exists")

	w, env = doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"firstName": "A", "lastName": "B", "email": "root@example.com", "password": "correct-horse", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Fields, "role")

	w, env = doJSON(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"firstName": "A", "lastName": "B", "email": "not-an-email", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Fields, "email")
	assert.Contains(t, env.Fields, "password")
}

func TestLogin(t *testing.T) {
	repo := newMemAuthRepo()
	r := authRouter(repo)
	register(t, r, "dr.rao@example.com", "doctor")

	out := login(t, r, "dr.rao@example.com")
	assert.NotEmpty(t, out.AccessToken)
	assert.Equal(t, models.RoleDoctor, out.User.Role)
	assert.Contains(t, repo.tokens, models.HashToken(out.RefreshToken))

	w, env := doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]string{"email": "dr.rao@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", env.Error)

	w, _ = doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshToken_RotatesAndRejectsReuse(t *testing.T) {
	repo := newMemAuthRepo()
	r := authRouter(repo)
	register(t, r, "asha@example.com", "")
	first := login(t, r, "asha@example.com")

	w, env := doJSON(t, r, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": first.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	var rotated RefreshTokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	assert.NotEqual(t, first.RefreshToken, rotated.RefreshToken)
	assert.True(t, repo.tokens[models.HashToken(first.RefreshToken)].IsRevoked)

	w, _ = doJSON(t, r, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": first.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutAndProfile(t *testing.T) {
	repo := newMemAuthRepo()
	r := authRouter(repo)
	register(t, r, "asha@example.com", "")
	session := login(t, r, "asha@example.com")

	w, _ := doJSON(t, r, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := doJSON(t, r, http.MethodPut, "/auth/profile", session.AccessToken, map[string]string{"dateOfBirth": "12/01/1990"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Fields, "dateOfBirth")

	w, _ = doJSON(t, r, http.MethodPut, "/auth/profile", session.AccessToken, map[string]string{"phoneNumber": "+91 90000 00000", "dateOfBirth": "1990-01-12"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+91 90000 00000", repo.users["asha@example.com"].PhoneNumber)
	require.NotNil(t, repo.users["asha@example.com"].DateOfBirth)

	w, _ = doJSON(t, r, http.MethodPost, "/auth/logout", session.AccessToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/auth/logout", session.AccessToken, map[string]string{"refreshToken": session.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, repo.tokens[models.HashToken(session.RefreshToken)].IsRevoked)
}

func TestLogout_IgnoresAnotherUsersToken(t *testing.T) {
	repo := newMemAuthRepo()
	r := authRouter(repo)
	register(t, r, "asha@example.com", "")
	register(t, r, "ravi@example.com", "")
	asha := login(t, r, "asha@example.com")
	ravi := login(t, r, "ravi@example.com")

	w, _ := doJSON(t, r, http.MethodPost, "/auth/logout", asha.AccessToken, map[string]string{"refreshToken": ravi.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, repo.tokens[models.HashToken(ravi.RefreshToken)].IsRevoked)

	w, _ = doJSON(t, r, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": ravi.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWizard(t *testing.T) {
	h := NewAppointmentHandler(nil, nil)
	r := gin.New()
	r.POST("/appointments/wizard", h.Wizard)

	start := booking.NewWizard("doc-1")

	w, env := doJSON(t, r, http.MethodPost, "/appointments/wizard", "", WizardRequest{Wizard: start, Action: "next"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Fields, "date")
	assert.Contains(t, env.Fields, "timeSlot")

	start.Date = "2030-05-01"
	start.TimeSlot = "09:30 AM"
	w, env = doJSON(t, r, http.MethodPost, "/appointments/wizard", "", WizardRequest{Wizard: start, Action: "next"})
	require.Equal(t, http.StatusOK, w.Code)
	var out WizardResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, booking.StepPatientDetails, out.Step)
	assert.Equal(t, "patient_details", out.StepName)
	assert.False(t, out.CanContinue)

	w, env = doJSON(t, r, http.MethodPost, "/appointments/wizard", "", WizardRequest{Wizard: out.Wizard, Action: "back"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, booking.StepSlotSelection, out.Step)
	assert.True(t, out.CanContinue)

	w, _ = doJSON(t, r, http.MethodPost, "/appointments/wizard", "", WizardRequest{Wizard: start, Action: "skip"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
