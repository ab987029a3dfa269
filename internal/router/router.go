// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/config"
	"github.com/ecobazar/marketplace-backend/internal/handlers"
	"github.com/ecobazar/marketplace-backend/internal/middleware"
	"github.com/ecobazar/marketplace-backend/internal/services"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Services
	policy := services.NewPolicy(cfg.Policy)
	notificationService := services.NewNotificationService(cfg.Email, cfg.Frontend.BaseURL)
	storageService := services.NewStorageService(cfg.AWS)

	authService := services.NewAuthService(db, cfg.JWT, notificationService)
	userService := services.NewUserService(db, policy)
	productService := services.NewProductService(db, policy)
	categoryService := services.NewCategoryService(db, policy)
	orderService := services.NewOrderService(db, policy, notificationService)
	reviewService := services.NewReviewService(db, policy, notificationService)
	adminService := services.NewAdminService(db, policy)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService, storageService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	orderHandler := handlers.NewOrderHandler(orderService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	adminHandler := handlers.NewAdminHandler(adminService, userService, productService)

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Locale())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.POST("/verify-email", authHandler.VerifyEmail)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
			users.PUT("/password", userHandler.ChangePassword)
		}

		products := v1.Group("/products")
		{
			products.GET("", productHandler.Search)
			products.GET("/featured", productHandler.Featured)
			products.GET("/:id", middleware.OptionalAuth(), productHandler.Get)
			products.GET("/:id/reviews", reviewHandler.ListForProduct)
			products.GET("/:id/reviews/statistics", reviewHandler.Statistics)

			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", productHandler.Create)
				protected.PUT("/:id", productHandler.Update)
				protected.DELETE("/:id", productHandler.Delete)
				protected.GET("/mine", productHandler.MyProducts)
				protected.POST("/upload", middleware.UploadRateLimit(), productHandler.UploadImage)
			}
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", categoryHandler.Tree)
			categories.GET("/:slug", categoryHandler.GetBySlug)
		}

		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", orderHandler.Create)
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.POST("/:id/status", orderHandler.Transition)
			orders.POST("/:id/cancel", orderHandler.Cancel)
			orders.POST("/:id/items/:item_id/status", orderHandler.TransitionItem)
		}

		reviews := v1.Group("/reviews")
		{
			reviews.GET("/:id", reviewHandler.Get)

			protected := reviews.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", reviewHandler.Submit)
				protected.POST("/:id/vote", reviewHandler.Vote)
			}
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.DashboardStats)
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
			admin.PUT("/products/:id/status", adminHandler.UpdateProductStatus)
			admin.GET("/reviews/pending", reviewHandler.ListPending)
			admin.PUT("/reviews/:id/moderate", reviewHandler.Moderate)

			categories := admin.Group("/categories")
			{
				categories.POST("", categoryHandler.Create)
				categories.PUT("/:id", categoryHandler.Update)
				categories.DELETE("/:id", categoryHandler.Delete)
			}
		}
	}

	return r
}
