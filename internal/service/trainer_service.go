package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"evofit/meal-planner/internal/cache"
	"evofit/meal-planner/internal/domain"
	"evofit/meal-planner/internal/repository"
	"evofit/meal-planner/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrCustomerNotRole         = errors.New("user found but is not a customer")
	ErrCustomerAlreadyAssigned = errors.New("customer is already assigned to another trainer")
	// ErrCustomerNotOwned covers both "no such customer" and "customer belongs
	// to someone else"; the API layer maps both to the same 404 so a trainer
	// probing foreign IDs learns nothing.
	ErrCustomerNotOwned     = errors.New("customer is not assigned to this trainer")
	ErrMealPlanNotFound     = errors.New("meal plan not found")
	ErrMealPlanAccessDenied = errors.New("access denied to this meal plan")
)

// PhotoWithURL pairs photo metadata with a short-lived presigned download URL.
type PhotoWithURL struct {
	Photo       domain.ProgressPhoto
	DownloadURL string
}

// CustomerDetail is a single owned customer together with when the link was
// established.
type CustomerDetail struct {
	Customer     domain.User
	AssignedDate time.Time
}

type TrainerService interface {
	// Customer roster
	AddCustomerByEmail(ctx context.Context, trainerID primitive.ObjectID, customerEmail string) (*domain.User, error)
	ListCustomers(ctx context.Context, trainerID primitive.ObjectID, offset, limit int64) (*repository.CustomerPage, error)
	GetCustomer(ctx context.Context, trainerID, customerID primitive.ObjectID) (*CustomerDetail, error)
	RemoveCustomer(ctx context.Context, trainerID, customerID primitive.ObjectID) error

	// Meal plan library
	CreateMealPlan(ctx context.Context, trainerID primitive.ObjectID, name, description string, dailyCalories, days int) (*domain.MealPlan, error)
	GetMealPlans(ctx context.Context, trainerID primitive.ObjectID) ([]domain.MealPlan, error)

	// Customer-scoped operations, all guarded by the ownership check
	AssignMealPlan(ctx context.Context, trainerID, customerID, mealPlanID primitive.ObjectID, startDate time.Time) (*domain.MealPlanAssignment, error)
	GetCustomerMealPlans(ctx context.Context, trainerID, customerID primitive.ObjectID) ([]domain.MealPlanAssignment, error)
	RecordProgress(ctx context.Context, trainerID, customerID primitive.ObjectID, update ProgressUpdate) (*domain.ProgressEntry, error)
	GetCustomerProgress(ctx context.Context, trainerID, customerID primitive.ObjectID) ([]domain.ProgressEntry, error)
	GetCustomerPhotos(ctx context.Context, trainerID, customerID primitive.ObjectID) ([]PhotoWithURL, error)
}

// trainerService implements the TrainerService interface.
type trainerService struct {
	userRepo       repository.UserRepository
	assignmentRepo repository.AssignmentRepository
	mealPlanRepo   repository.MealPlanRepository
	progressRepo   repository.ProgressRepository
	photoRepo      repository.PhotoRepository
	fileStorage    storage.FileStorage
	listCache      cache.Cache
	listCacheTTL   time.Duration
}

// NewTrainerService creates a new instance of trainerService.
func NewTrainerService(
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	mealPlanRepo repository.MealPlanRepository,
	progressRepo repository.ProgressRepository,
	photoRepo repository.PhotoRepository,
	fileStorage storage.FileStorage,
	listCache cache.Cache,
	listCacheTTL time.Duration,
) TrainerService {
	return &trainerService{
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		mealPlanRepo:   mealPlanRepo,
		progressRepo:   progressRepo,
		photoRepo:      photoRepo,
		fileStorage:    fileStorage,
		listCache:      listCache,
		listCacheTTL:   listCacheTTL,
	}
}

// requireOwnership is the pre-check in front of every customer-scoped
// operation. It goes to storage on every call; a revoked assignment takes
// effect on the very next request, and a storage error denies rather than
// allows.
func (s *trainerService) requireOwnership(ctx context.Context, trainerID, customerID primitive.ObjectID) error {
	if trainerID == primitive.NilObjectID || customerID == primitive.NilObjectID {
		return ErrCustomerNotOwned
	}
	owned, err := s.assignmentRepo.IsOwner(ctx, trainerID, customerID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrCustomerNotOwned
	}
	return nil
}

func (s *trainerService) customerListPrefix(trainerID primitive.ObjectID) string {
	return "trainer:" + trainerID.Hex() + ":customers:"
}

// === Customer roster ===

// AddCustomerByEmail finds a customer by email and links them to the trainer.
func (s *trainerService) AddCustomerByEmail(ctx context.Context, trainerID primitive.ObjectID, customerEmail string) (*domain.User, error) {
	if trainerID == primitive.NilObjectID || customerEmail == "" {
		return nil, errors.New("trainer ID and customer email are required")
	}

	customer, err := s.userRepo.GetByEmail(ctx, customerEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	if customer.Role != domain.RoleCustomer {
		return nil, ErrCustomerNotRole
	}

	_, err = s.assignmentRepo.Upsert(ctx, trainerID, customer.ID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCustomerAlreadyAssigned
		}
		return nil, err
	}

	// The cached roster shape changed.
	s.listCache.DeletePrefix(ctx, s.customerListPrefix(trainerID))

	customer.PasswordHash = ""
	return customer, nil
}

// ListCustomers returns the page of customers with an active link to the
// trainer. Results are served read-through from the listing cache; the cache
// holds result shapes only, never authorization decisions.
func (s *trainerService) ListCustomers(ctx context.Context, trainerID primitive.ObjectID, offset, limit int64) (*repository.CustomerPage, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	key := fmt.Sprintf("%s%d:%d", s.customerListPrefix(trainerID), offset, limit)
	if raw, ok := s.listCache.Get(ctx, key); ok {
		var page repository.CustomerPage
		if err := json.Unmarshal(raw, &page); err == nil {
			return &page, nil
		}
		// A corrupt entry degrades to a storage read.
	}

	page, err := s.assignmentRepo.ListOwnedCustomers(ctx, trainerID, offset, limit)
	if err != nil {
		return nil, err
	}
	for i := range page.Customers {
		page.Customers[i].PasswordHash = ""
	}

	if raw, err := json.Marshal(page); err == nil {
		s.listCache.Set(ctx, key, raw, s.listCacheTTL)
	}

	return page, nil
}

// GetCustomer returns a single owned customer with the assignment date. The
// active-assignment lookup doubles as the ownership check here since the
// detail view needs the row anyway; an unowned and a nonexistent customer are
// indistinguishable to the caller.
func (s *trainerService) GetCustomer(ctx context.Context, trainerID, customerID primitive.ObjectID) (*CustomerDetail, error) {
	if trainerID == primitive.NilObjectID || customerID == primitive.NilObjectID {
		return nil, ErrCustomerNotOwned
	}

	assignment, err := s.assignmentRepo.GetActive(ctx, trainerID, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotOwned
		}
		return nil, err
	}

	customer, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Active assignment to a deleted user; treat as unowned.
			return nil, ErrCustomerNotOwned
		}
		return nil, err
	}

	customer.PasswordHash = ""
	return &CustomerDetail{Customer: *customer, AssignedDate: assignment.AssignedDate}, nil
}

// RemoveCustomer flips the assignment to inactive. The historical row stays.
func (s *trainerService) RemoveCustomer(ctx context.Context, trainerID, customerID primitive.ObjectID) error {
	if err := s.requireOwnership(ctx, trainerID, customerID); err != nil {
		return err
	}

	if err := s.assignmentRepo.Deactivate(ctx, trainerID, customerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Revoked between check and write; same outcome for the caller.
			return ErrCustomerNotOwned
		}
		return err
	}

	s.listCache.DeletePrefix(ctx, s.customerListPrefix(trainerID))
	return nil
}

// === Meal plan library ===

// CreateMealPlan adds a plan to the trainer's library.
func (s *trainerService) CreateMealPlan(ctx context.Context, trainerID primitive.ObjectID, name, description string, dailyCalories, days int) (*domain.MealPlan, error) {
	if trainerID == primitive.NilObjectID || name == "" {
		return nil, errors.New("trainer ID and plan name are required")
	}
	if days <= 0 {
		days = 7
	}

	plan := &domain.MealPlan{
		TrainerID:     trainerID,
		Name:          name,
		Description:   description,
		DailyCalories: dailyCalories,
		Days:          days,
	}

	planID, err := s.mealPlanRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = planID
	return plan, nil
}

// GetMealPlans retrieves the trainer's meal plan library.
func (s *trainerService) GetMealPlans(ctx context.Context, trainerID primitive.ObjectID) ([]domain.MealPlan, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	return s.mealPlanRepo.GetByTrainerID(ctx, trainerID)
}

// === Customer-scoped operations ===

// AssignMealPlan links a meal plan to a customer. The trainer must own the
// customer (active assignment) AND the plan; the ownership check runs on this
// call even if the same trainer was verified moments ago.
func (s *trainerService) AssignMealPlan(ctx context.Context, trainerID, customerID, mealPlanID primitive.ObjectID, startDate time.Time) (*domain.MealPlanAssignment, error) {
	if mealPlanID == primitive.NilObjectID {
		return nil, ErrMealPlanNotFound
	}

	if err := s.requireOwnership(ctx, trainerID, customerID); err != nil {
		return nil, err
	}

	plan, err := s.mealPlanRepo.GetByID(ctx, mealPlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMealPlanNotFound
		}
		return nil, err
	}
	if plan.TrainerID != trainerID {
		return nil, ErrMealPlanAccessDenied
	}

	assignment := &domain.MealPlanAssignment{
		MealPlanID: mealPlanID,
		CustomerID: customerID,
		TrainerID:  trainerID,
		StartDate:  startDate,
	}

	assignmentID, err := s.mealPlanRepo.CreateAssignment(ctx, assignment)
	if err != nil {
		return nil, err
	}
	assignment.ID = assignmentID
	return assignment, nil
}

// GetCustomerMealPlans retrieves meal plan assignments for an owned customer.
func (s *trainerService) GetCustomerMealPlans(ctx context.Context, trainerID, customerID primitive.ObjectID) ([]domain.MealPlanAssignment, error) {
	if err := s.requireOwnership(ctx, trainerID, customerID); err != nil {
		return nil, err
	}
	return s.mealPlanRepo.GetAssignmentsByCustomer(ctx, customerID)
}

// RecordProgress appends a progress entry for an owned customer. Validation
// runs after the ownership check and reports every violation at once.
func (s *trainerService) RecordProgress(ctx context.Context, trainerID, customerID primitive.ObjectID, update ProgressUpdate) (*domain.ProgressEntry, error) {
	if err := s.requireOwnership(ctx, trainerID, customerID); err != nil {
		return nil, err
	}

	measurements, err := validateProgressUpdate(update)
	if err != nil {
		return nil, err
	}

	entry := &domain.ProgressEntry{
		CustomerID:   customerID,
		TrainerID:    trainerID,
		WeightKg:     *update.Weight,
		Measurements: measurements,
		Notes:        update.Notes,
	}

	entryID, err := s.progressRepo.Create(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.ID = entryID
	return entry, nil
}

// GetCustomerProgress retrieves progress entries for an owned customer.
func (s *trainerService) GetCustomerProgress(ctx context.Context, trainerID, customerID primitive.ObjectID) ([]domain.ProgressEntry, error) {
	if err := s.requireOwnership(ctx, trainerID, customerID); err != nil {
		return nil, err
	}
	return s.progressRepo.GetByCustomerID(ctx, customerID)
}

// GetCustomerPhotos retrieves an owned customer's progress photos with
// presigned download URLs. A URL that fails to generate drops that photo from
// the result rather than failing the whole listing.
func (s *trainerService) GetCustomerPhotos(ctx context.Context, trainerID, customerID primitive.ObjectID) ([]PhotoWithURL, error) {
	if err := s.requireOwnership(ctx, trainerID, customerID); err != nil {
		return nil, err
	}

	photos, err := s.photoRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	result := make([]PhotoWithURL, 0, len(photos))
	for _, photo := range photos {
		url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, photo.ObjectKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			log.Printf("WARN: presign download for photo %s: %v", photo.ID.Hex(), err)
			continue
		}
		result = append(result, PhotoWithURL{Photo: photo, DownloadURL: url})
	}
	return result, nil
}
