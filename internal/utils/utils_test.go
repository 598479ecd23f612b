package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/config"
	"medconnect-server/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 1,
	}
}

func TestTokens_RoundTrip(t *testing.T) {
	cfg := testConfig()
	user := &models.User{BaseModel: models.BaseModel{ID: "u-1"}, Email: "asha@example.com", FirstName: "Asha", LastName: "Rao", Role: models.RolePatient}

	access, refresh, err := GenerateTokens(user, cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(access, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{ID: "u-1", Email: "asha@example.com", Name: "Asha Rao", Role: models.RolePatient}, claims.Actor())
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Minute)

	_, err = ValidateToken(access, cfg.JWTRefreshSecret)
	assert.Error(t, err, "access token must not validate as a refresh token")

	rc, err := ValidateToken(refresh, cfg.JWTRefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, "u-1", rc.UserID)
	assert.Empty(t, rc.Email)

	_, second, err := GenerateTokens(user, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, refresh, second)
}

func respond(t *testing.T, handler gin.HandlerFunc) (int, ResponseData) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)
	var body ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHandleError_MapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.Unauthorized("who"), http.StatusUnauthorized},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Conflict("taken"), http.StatusConflict},
		{apperr.Internal("database error", errors.New("dial tcp")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, body := respond(t, func(c *gin.Context) { HandleError(c, tc.err) })
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.code, body.Status)
		assert.NotContains(t, body.Error, "dial tcp")
	}
}

func TestHandleError_ValidationFields(t *testing.T) {
	err := apperr.ValidationFields("cannot continue", map[string]string{"date": "select a date"})
	code, body := respond(t, func(c *gin.Context) { HandleError(c, err) })
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "select a date", body.Fields["date"])
}

type signup struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func TestBindAndValidate(t *testing.T) {
	run := func(payload string) (bool, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		c.Request.Header.Set("Content-Type", "application/json")
		var req signup
		return BindAndValidate(c, &req), w
	}

	ok, _ := run(`{"email":"a@b.co","password":"longenough"}`)
	assert.True(t, ok)

	ok, w := run(`{"email":"nope","password":"short"}`)
	assert.False(t, ok)
	var body ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "must be a valid email address", body.Fields["email"])
	assert.Equal(t, "must be at least 8", body.Fields["password"])

	ok, w = run(`{not json`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
