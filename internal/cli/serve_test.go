package cli

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medconnect-server/internal/config"
	"medconnect-server/internal/handlers"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/middleware"
	"medconnect-server/internal/models"
	"medconnect-server/internal/notifications"
	"medconnect-server/internal/utils"
)

func TestShutdown_EndsOpenNotificationStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWTSecret: "access-secret", JWTRefreshSecret: "refresh-secret", JWTExpirationMinutes: 5, JWTRefreshExpirationHours: 1}

	svc := notifications.NewService(nil, notifications.NewBroadcaster(), nil, logger.Discard())
	router := gin.New()
	router.GET("/stream", middleware.AuthMiddleware(cfg), handlers.NewNotificationHandler(svc).Stream)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := newHTTPServer(ln.Addr().String(), router)
	go func() { _ = srv.Serve(ln) }()

	user := &models.User{Email: "asha@example.com", Role: models.RolePatient}
	user.ID = "pat-1"
	token, _, err := utils.GenerateTokens(user, cfg)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://"+ln.Addr().String()+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "event:"), line)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Less(t, time.Since(start), time.Second)
}
