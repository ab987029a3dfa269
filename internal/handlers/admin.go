// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ecobazar/marketplace-backend/internal/i18n"
	"github.com/ecobazar/marketplace-backend/internal/models"
	"github.com/ecobazar/marketplace-backend/internal/services"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

// AdminHandler groups the administrative surface: user directory,
// product status levers, and the moderation queue lives in
// ReviewHandler.
type AdminHandler struct {
	adminService   *services.AdminService
	userService    *services.UserService
	productService *services.ProductService
}

func NewAdminHandler(adminService *services.AdminService, userService *services.UserService, productService *services.ProductService) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		userService:    userService,
		productService: productService,
	}
}

func (h *AdminHandler) DashboardStats(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	stats, err := h.adminService.GetDashboardStats(actor)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, stats)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var filter services.ListUsersFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}
	params := utils.GetPaginationParams(c)

	users, total, err := h.userService.ListUsers(filter, params, actor)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}

func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	user, err := h.userService.UpdateStatus(id, models.UserStatus(req.Status), actor)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyUserStatusUpdated),
		"user":    user,
	})
}

func (h *AdminHandler) UpdateProductStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	product, err := h.productService.SetStatus(id, models.ProductStatus(req.Status), actor)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyProductUpdated),
		"product": product,
	})
}
