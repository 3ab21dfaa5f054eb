package api

import (
	"net/http"

	"evofit/meal-planner/internal/domain"
	"evofit/meal-planner/internal/ratelimit"
	"evofit/meal-planner/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	limiter ratelimit.Limiter,
	authService service.AuthService,
	trainerService service.TrainerService,
	customerService service.CustomerService,
) {
	authHandler := NewAuthHandler(authService)
	trainerHandler := NewTrainerHandler(trainerService)
	customerHandler := NewCustomerHandler(customerService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret), RateLimitMiddleware(limiter))
	{
		protected.GET("/me", func(c *gin.Context) {
			user, err := currentUser(c)
			if err != nil {
				respondError(c, http.StatusUnauthorized, "Unable to identify user from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": user.ID.Hex(), "role": user.Role})
		})

		// --- Trainer routes ---
		trainerGroup := protected.Group("/trainers")
		trainerGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			trainerGroup.GET("/customers", trainerHandler.ListCustomers)
			trainerGroup.POST("/customers", trainerHandler.AddCustomer)
			trainerGroup.GET("/customers/:customerId", trainerHandler.GetCustomer)
			trainerGroup.DELETE("/customers/:customerId", trainerHandler.RemoveCustomer)

			trainerGroup.POST("/customers/:customerId/meal-plans", trainerHandler.AssignMealPlan)
			trainerGroup.GET("/customers/:customerId/meal-plans", trainerHandler.GetCustomerMealPlans)
			trainerGroup.PUT("/customers/:customerId/progress", trainerHandler.RecordProgress)
			trainerGroup.GET("/customers/:customerId/progress", trainerHandler.GetCustomerProgress)
			trainerGroup.GET("/customers/:customerId/photos", trainerHandler.GetCustomerPhotos)

			trainerGroup.POST("/meal-plans", trainerHandler.CreateMealPlan)
			trainerGroup.GET("/meal-plans", trainerHandler.GetMealPlans)
		}

		// --- Customer routes ---
		customerGroup := protected.Group("/customers/me")
		customerGroup.Use(RoleMiddleware(domain.RoleCustomer))
		{
			customerGroup.GET("/trainer", customerHandler.GetMyTrainer)
			customerGroup.GET("/meal-plans", customerHandler.GetMyMealPlans)
			customerGroup.GET("/progress", customerHandler.GetMyProgress)
			customerGroup.PUT("/progress", customerHandler.RecordMyProgress)
			customerGroup.POST("/photos", customerHandler.RequestPhotoUpload)
			customerGroup.GET("/photos", customerHandler.GetMyPhotos)
			customerGroup.DELETE("/photos/:photoId", customerHandler.DeleteMyPhoto)
		}
	}
}
