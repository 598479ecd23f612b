package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"medconnect-server/internal/config"
	"medconnect-server/internal/integrations"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
	"medconnect-server/internal/notifications"
	"medconnect-server/internal/store"
	"medconnect-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testConfig = &config.Config{
	Origin:                    "http://localhost:5173",
	Environment:               "test",
	JWTSecret:                 "access-secret",
	JWTRefreshSecret:          "refresh-secret",
	JWTExpirationMinutes:      15,
	JWTRefreshExpirationHours: 24,
	Emergency:                 config.EmergencyConfig{MaxHospitals: 3},
}

func setupRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		DisableAutomaticPing:   true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	st := store.New(db)
	m := metrics.New()
	log := logger.Discard()
	router := NewRouter(Deps{
		Config:       testConfig,
		Store:        st,
		Logger:       log,
		Metrics:      m,
		Notifier:     notifications.NewService(st, notifications.NewBroadcaster(), m, log),
		Integrations: integrations.NewMock(time.Millisecond, st, log),
	})
	return router, mock
}

func tokenFor(t *testing.T, role models.Role) string {
	t.Helper()
	user := &models.User{Email: string(role) + "@example.com", FirstName: "Test", Role: role}
	user.ID = "u-" + string(role)
	access, _, err := utils.GenerateTokens(user, testConfig)
	require.NoError(t, err)
	return access
}

func request(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectPing()
	w := request(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())

	mock.ExpectPing().WillReturnError(assert.AnError)
	w = request(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessControl(t *testing.T) {
	router, _ := setupRouter(t)
	patient := tokenFor(t, models.RolePatient)
	doctor := tokenFor(t, models.RoleDoctor)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"appointments need a token", http.MethodGet, "/api/v1/appointments", "", http.StatusUnauthorized},
		{"entities are admin only", http.MethodGet, "/api/v1/entities", patient, http.StatusForbidden},
		{"stats are admin only", http.MethodGet, "/api/v1/admin/stats", doctor, http.StatusForbidden},
		{"user admin is admin only", http.MethodGet, "/api/v1/users", doctor, http.StatusForbidden},
		{"patients cannot issue prescriptions", http.MethodPost, "/api/v1/prescriptions", patient, http.StatusForbidden},
		{"doctors have no cart", http.MethodGet, "/api/v1/cart/medicine", doctor, http.StatusForbidden},
		{"patients cannot dispatch emergencies", http.MethodPatch, "/api/v1/emergency/e-1/status", patient, http.StatusForbidden},
		{"doctor profile is doctor only", http.MethodPut, "/api/v1/doctors/me/profile", patient, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := request(router, tc.method, tc.path, tc.token)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestEntityNames(t *testing.T) {
	router, _ := setupRouter(t)

	w := request(router, http.MethodGet, "/api/v1/entities", tokenFor(t, models.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Doctor")
	assert.Contains(t, w.Body.String(), "Medicine")
}

func TestMetricsAndCORS(t *testing.T) {
	router, _ := setupRouter(t)

	request(router, http.MethodGet, "/api/v1/appointments", "")
	w := request(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/appointments", nil)
	req.Header.Set("Origin", testConfig.Origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, testConfig.Origin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}
