package api

import (
	"errors"
	"log"
	"net/http"

	"evofit/meal-planner/internal/repository"
	"evofit/meal-planner/internal/service"

	"github.com/gin-gonic/gin"
)

// Every error leaving this API has the shape {success:false, error:...} or,
// for validation failures, {success:false, errors:[...]}. Internal detail is
// logged server-side and never reaches the client.

func respondError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "error": message})
}

func respondValidation(c *gin.Context, violations []string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "errors": violations})
}

// mapServiceError converts service-layer failures into HTTP outcomes.
//
// Single-resource ownership failures and genuinely missing resources produce
// byte-identical 404 bodies: a trainer probing for another trainer's customer
// IDs cannot distinguish "exists but not yours" from "does not exist".
// Unmapped errors are storage-level; they get logged in full and surface only
// as the caller-supplied generic message.
func mapServiceError(c *gin.Context, err error, fallback string) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondValidation(c, validationErr.Violations)
	case errors.Is(err, service.ErrCustomerNotOwned),
		errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, repository.ErrNotFound):
		respondError(c, http.StatusNotFound, "Customer not found")
	case errors.Is(err, service.ErrMealPlanNotFound),
		errors.Is(err, service.ErrMealPlanAccessDenied):
		respondError(c, http.StatusNotFound, "Meal plan not found")
	case errors.Is(err, service.ErrNoActiveTrainer):
		respondError(c, http.StatusNotFound, "No trainer assigned")
	case errors.Is(err, service.ErrPhotoNotFound):
		respondError(c, http.StatusNotFound, "Photo not found")
	case errors.Is(err, service.ErrInvalidContentType):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCustomerNotRole):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrCustomerAlreadyAssigned):
		respondError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
