// internal/handlers/handlers.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecobazar/marketplace-backend/internal/models"
	"github.com/ecobazar/marketplace-backend/internal/services"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

// actorFromContext rebuilds the authenticated principal set by the auth
// middleware. ok is false when the request is anonymous.
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	idStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		return services.Actor{}, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return services.Actor{}, false
	}
	role, _ := utils.GetUserRoleFromContext(c)
	return services.Actor{ID: id, Role: models.UserRole(role)}, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}
