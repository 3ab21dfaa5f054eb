package api

import (
	"fmt"
	"net/http"

	"evofit/meal-planner/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

type PhotoUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

// GetMyTrainer returns the customer's currently assigned trainer.
func (h *CustomerHandler) GetMyTrainer(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify customer from token")
		return
	}

	trainer, err := h.customerService.GetMyTrainer(c.Request.Context(), user.ID)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve trainer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "trainer": MapUserToResponse(trainer)})
}

// GetMyMealPlans returns the meal plans assigned to the calling customer.
func (h *CustomerHandler) GetMyMealPlans(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify customer from token")
		return
	}

	assignments, err := h.customerService.GetMyMealPlans(c.Request.Context(), user.ID)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve meal plans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "mealPlans": MapMealPlanAssignmentsToResponse(assignments)})
}

// GetMyProgress returns the calling customer's progress entries.
func (h *CustomerHandler) GetMyProgress(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify customer from token")
		return
	}

	entries, err := h.customerService.GetMyProgress(c.Request.Context(), user.ID)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "progress": MapProgressEntriesToResponse(entries)})
}

// RecordMyProgress appends a self-recorded progress entry.
func (h *CustomerHandler) RecordMyProgress(c *gin.Context) {
	var update service.ProgressUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondValidation(c, []string{"request body must be a JSON object"})
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify customer from token")
		return
	}

	entry, err := h.customerService.RecordMyProgress(c.Request.Context(), user.ID, update)
	if err != nil {
		mapServiceError(c, err, "Failed to record progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entry": ProgressEntryResponse{
			ID:           entry.ID.Hex(),
			WeightKg:     entry.WeightKg,
			Measurements: entry.Measurements,
			Notes:        entry.Notes,
			RecordedAt:   entry.RecordedAt,
		},
	})
}

// RequestPhotoUpload creates a photo record and returns a presigned upload URL.
func (h *CustomerHandler) RequestPhotoUpload(c *gin.Context) {
	var req PhotoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify customer from token")
		return
	}

	upload, err := h.customerService.RequestPhotoUpload(c.Request.Context(), user.ID, req.ContentType)
	if err != nil {
		mapServiceError(c, err, "Failed to prepare photo upload")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"photoId":   upload.Photo.ID.Hex(),
		"uploadUrl": upload.UploadURL,
	})
}

// DeleteMyPhoto removes one of the calling customer's progress photos. A
// malformed photo ID cannot match any photo and yields the same 404 as an
// unknown one.
func (h *CustomerHandler) DeleteMyPhoto(c *gin.Context) {
	photoID, err := primitive.ObjectIDFromHex(c.Param("photoId"))
	if err != nil {
		respondError(c, http.StatusNotFound, "Photo not found")
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify customer from token")
		return
	}

	if err := h.customerService.DeleteMyPhoto(c.Request.Context(), user.ID, photoID); err != nil {
		mapServiceError(c, err, "Failed to delete photo")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Photo deleted"})
}

// GetMyPhotos returns the calling customer's progress photos with download URLs.
func (h *CustomerHandler) GetMyPhotos(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify customer from token")
		return
	}

	photos, err := h.customerService.GetMyPhotos(c.Request.Context(), user.ID)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve photos")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "photos": MapPhotosToResponse(photos)})
}
