package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"evofit/meal-planner/internal/domain"
	"evofit/meal-planner/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TrainerHandler struct {
	trainerService service.TrainerService
}

func NewTrainerHandler(trainerService service.TrainerService) *TrainerHandler {
	return &TrainerHandler{trainerService: trainerService}
}

// --- DTOs ---

type AddCustomerRequest struct {
	CustomerEmail string `json:"customerEmail" binding:"required,email"`
}

type AssignMealPlanRequest struct {
	MealPlanID string     `json:"mealPlanId" binding:"required"`
	StartDate  *time.Time `json:"startDate"`
}

type CreateMealPlanRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	DailyCalories int    `json:"dailyCalories" binding:"omitempty,min=0"`
	Days          int    `json:"days" binding:"omitempty,min=1"`
}

type MealPlanResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	DailyCalories int       `json:"dailyCalories,omitempty"`
	Days          int       `json:"days"`
	CreatedAt     time.Time `json:"createdAt"`
}

type MealPlanAssignmentResponse struct {
	ID         string    `json:"id"`
	MealPlanID string    `json:"mealPlanId"`
	StartDate  time.Time `json:"startDate"`
	AssignedAt time.Time `json:"assignedAt"`
}

type ProgressEntryResponse struct {
	ID           string               `json:"id"`
	WeightKg     float64              `json:"weightKg"`
	Measurements *domain.Measurements `json:"measurements,omitempty"`
	Notes        string               `json:"notes,omitempty"`
	RecordedAt   time.Time            `json:"recordedAt"`
}

type PhotoResponse struct {
	ID          string    `json:"id"`
	ContentType string    `json:"contentType"`
	UploadedAt  time.Time `json:"uploadedAt"`
	DownloadURL string    `json:"downloadUrl"`
}

func MapMealPlanToResponse(p *domain.MealPlan) MealPlanResponse {
	if p == nil {
		return MealPlanResponse{}
	}
	return MealPlanResponse{
		ID:            p.ID.Hex(),
		Name:          p.Name,
		Description:   p.Description,
		DailyCalories: p.DailyCalories,
		Days:          p.Days,
		CreatedAt:     p.CreatedAt,
	}
}

func MapMealPlansToResponse(plans []domain.MealPlan) []MealPlanResponse {
	responses := make([]MealPlanResponse, len(plans))
	for i := range plans {
		responses[i] = MapMealPlanToResponse(&plans[i])
	}
	return responses
}

func MapMealPlanAssignmentToResponse(a *domain.MealPlanAssignment) MealPlanAssignmentResponse {
	if a == nil {
		return MealPlanAssignmentResponse{}
	}
	return MealPlanAssignmentResponse{
		ID:         a.ID.Hex(),
		MealPlanID: a.MealPlanID.Hex(),
		StartDate:  a.StartDate,
		AssignedAt: a.AssignedAt,
	}
}

func MapMealPlanAssignmentsToResponse(assignments []domain.MealPlanAssignment) []MealPlanAssignmentResponse {
	responses := make([]MealPlanAssignmentResponse, len(assignments))
	for i := range assignments {
		responses[i] = MapMealPlanAssignmentToResponse(&assignments[i])
	}
	return responses
}

func MapProgressEntriesToResponse(entries []domain.ProgressEntry) []ProgressEntryResponse {
	responses := make([]ProgressEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = ProgressEntryResponse{
			ID:           e.ID.Hex(),
			WeightKg:     e.WeightKg,
			Measurements: e.Measurements,
			Notes:        e.Notes,
			RecordedAt:   e.RecordedAt,
		}
	}
	return responses
}

func MapPhotosToResponse(photos []service.PhotoWithURL) []PhotoResponse {
	responses := make([]PhotoResponse, len(photos))
	for i, p := range photos {
		responses[i] = PhotoResponse{
			ID:          p.Photo.ID.Hex(),
			ContentType: p.Photo.ContentType,
			UploadedAt:  p.Photo.UploadedAt,
			DownloadURL: p.DownloadURL,
		}
	}
	return responses
}

// customerIDFromPath parses the :customerId path segment. A malformed ID
// cannot match any customer, so it yields the same 404 body as an unknown or
// unowned one rather than a distinct error path.
func customerIDFromPath(c *gin.Context) (primitive.ObjectID, bool) {
	customerID, err := primitive.ObjectIDFromHex(c.Param("customerId"))
	if err != nil {
		respondError(c, http.StatusNotFound, "Customer not found")
		return primitive.NilObjectID, false
	}
	return customerID, true
}

// --- Customer roster ---

// AddCustomer links an existing customer account to the calling trainer.
func (h *TrainerHandler) AddCustomer(c *gin.Context) {
	var req AddCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	customer, err := h.trainerService.AddCustomerByEmail(c.Request.Context(), user.ID, req.CustomerEmail)
	if err != nil {
		mapServiceError(c, err, "Failed to add customer")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "customer": MapUserToResponse(customer)})
}

// ListCustomers returns the page of customers assigned to the calling trainer.
func (h *TrainerHandler) ListCustomers(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	page, err := h.trainerService.ListCustomers(c.Request.Context(), user.ID, offset, limit)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve customers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"customers": MapUsersToResponse(page.Customers),
		"total":     page.Total,
	})
}

// GetCustomer returns a single customer assigned to the calling trainer.
func (h *TrainerHandler) GetCustomer(c *gin.Context) {
	customerID, ok := customerIDFromPath(c)
	if !ok {
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	detail, err := h.trainerService.GetCustomer(c.Request.Context(), user.ID, customerID)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"customer":     MapUserToResponse(&detail.Customer),
		"assignedDate": detail.AssignedDate,
	})
}

// RemoveCustomer unassigns a customer from the calling trainer.
func (h *TrainerHandler) RemoveCustomer(c *gin.Context) {
	customerID, ok := customerIDFromPath(c)
	if !ok {
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	if err := h.trainerService.RemoveCustomer(c.Request.Context(), user.ID, customerID); err != nil {
		mapServiceError(c, err, "Failed to remove customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Customer unassigned"})
}

// --- Meal plan library ---

// CreateMealPlan adds a meal plan to the calling trainer's library.
func (h *TrainerHandler) CreateMealPlan(c *gin.Context) {
	var req CreateMealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	plan, err := h.trainerService.CreateMealPlan(c.Request.Context(), user.ID, req.Name, req.Description, req.DailyCalories, req.Days)
	if err != nil {
		mapServiceError(c, err, "Failed to create meal plan")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "mealPlan": MapMealPlanToResponse(plan)})
}

// GetMealPlans returns the calling trainer's meal plan library.
func (h *TrainerHandler) GetMealPlans(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	plans, err := h.trainerService.GetMealPlans(c.Request.Context(), user.ID)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve meal plans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "mealPlans": MapMealPlansToResponse(plans)})
}

// --- Customer-scoped operations ---

// AssignMealPlan assigns one of the trainer's meal plans to an owned customer.
func (h *TrainerHandler) AssignMealPlan(c *gin.Context) {
	customerID, ok := customerIDFromPath(c)
	if !ok {
		return
	}

	var req AssignMealPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	// A malformed plan ID gets the same treatment as an unknown one.
	mealPlanID, err := primitive.ObjectIDFromHex(req.MealPlanID)
	if err != nil {
		respondError(c, http.StatusNotFound, "Meal plan not found")
		return
	}

	var startDate time.Time
	if req.StartDate != nil {
		startDate = *req.StartDate
	}

	assignment, err := h.trainerService.AssignMealPlan(c.Request.Context(), user.ID, customerID, mealPlanID, startDate)
	if err != nil {
		mapServiceError(c, err, "Failed to assign meal plan")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "assignment": MapMealPlanAssignmentToResponse(assignment)})
}

// GetCustomerMealPlans returns the meal plans assigned to an owned customer.
func (h *TrainerHandler) GetCustomerMealPlans(c *gin.Context) {
	customerID, ok := customerIDFromPath(c)
	if !ok {
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	assignments, err := h.trainerService.GetCustomerMealPlans(c.Request.Context(), user.ID, customerID)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve meal plans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "mealPlans": MapMealPlanAssignmentsToResponse(assignments)})
}

// RecordProgress appends a weight/measurement entry for an owned customer.
func (h *TrainerHandler) RecordProgress(c *gin.Context) {
	customerID, ok := customerIDFromPath(c)
	if !ok {
		return
	}

	var update service.ProgressUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondValidation(c, []string{"request body must be a JSON object"})
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	entry, err := h.trainerService.RecordProgress(c.Request.Context(), user.ID, customerID, update)
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

// GetCustomerProgress returns progress entries for an owned customer.
func (h *TrainerHandler) GetCustomerProgress(c *gin.Context) {
	customerID, ok := customerIDFromPath(c)
	if !ok {
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	entries, err := h.trainerService.GetCustomerProgress(c.Request.Context(), user.ID, customerID)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "progress": MapProgressEntriesToResponse(entries)})
}

// GetCustomerPhotos returns an owned customer's progress photos with download URLs.
func (h *TrainerHandler) GetCustomerPhotos(c *gin.Context) {
	customerID, ok := customerIDFromPath(c)
	if !ok {
		return
	}

	user, err := currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unable to identify trainer from token")
		return
	}

	photos, err := h.trainerService.GetCustomerPhotos(c.Request.Context(), user.ID, customerID)
	if err != nil {
		mapServiceError(c, err, "Failed to retrieve photos")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "photos": MapPhotosToResponse(photos)})
}
