// Package handlers adapts HTTP requests to the domain services.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/middleware"
	"medconnect-server/internal/models"
	"medconnect-server/internal/utils"
)

// currentActor returns the authenticated caller or writes a 401.
func currentActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return models.Actor{}, false
	}
	return actor, true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		utils.BadRequest(c, "Invalid "+key+" parameter")
		return 0, false
	}
	return n, true
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}

func sanitizeAll(users []models.User) []models.UserSanitized {
	out := make([]models.UserSanitized, len(users))
	for i := range users {
		out[i] = users[i].Sanitize()
	}
	return out
}
