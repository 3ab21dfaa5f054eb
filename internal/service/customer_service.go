package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"evofit/meal-planner/internal/domain"
	"evofit/meal-planner/internal/repository"
	"evofit/meal-planner/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNoActiveTrainer     = errors.New("no active trainer assigned")
	ErrInvalidContentType  = errors.New("content type must be an image type")
	ErrUploadURLGeneration = errors.New("failed to generate upload URL")
	// ErrPhotoNotFound covers both "no such photo" and "photo belongs to
	// another customer".
	ErrPhotoNotFound = errors.New("photo not found")
)

// PhotoUpload is a presigned upload slot plus the metadata recorded for it.
type PhotoUpload struct {
	Photo     domain.ProgressPhoto
	UploadURL string
}

// CustomerService covers the customer's own, self-scoped view. Everything here
// is keyed by the caller's own ID from the token; there is no cross-customer
// access to guard.
type CustomerService interface {
	GetMyTrainer(ctx context.Context, customerID primitive.ObjectID) (*domain.User, error)
	GetMyMealPlans(ctx context.Context, customerID primitive.ObjectID) ([]domain.MealPlanAssignment, error)
	GetMyProgress(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProgressEntry, error)
	RecordMyProgress(ctx context.Context, customerID primitive.ObjectID, update ProgressUpdate) (*domain.ProgressEntry, error)
	RequestPhotoUpload(ctx context.Context, customerID primitive.ObjectID, contentType string) (*PhotoUpload, error)
	GetMyPhotos(ctx context.Context, customerID primitive.ObjectID) ([]PhotoWithURL, error)
	DeleteMyPhoto(ctx context.Context, customerID, photoID primitive.ObjectID) error
}

// customerService implements the CustomerService interface.
type customerService struct {
	userRepo       repository.UserRepository
	assignmentRepo repository.AssignmentRepository
	mealPlanRepo   repository.MealPlanRepository
	progressRepo   repository.ProgressRepository
	photoRepo      repository.PhotoRepository
	fileStorage    storage.FileStorage
}

// NewCustomerService creates a new instance of customerService.
func NewCustomerService(
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	mealPlanRepo repository.MealPlanRepository,
	progressRepo repository.ProgressRepository,
	photoRepo repository.PhotoRepository,
	fileStorage storage.FileStorage,
) CustomerService {
	return &customerService{
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		mealPlanRepo:   mealPlanRepo,
		progressRepo:   progressRepo,
		photoRepo:      photoRepo,
		fileStorage:    fileStorage,
	}
}

// GetMyTrainer returns the customer's currently assigned trainer, if any.
func (s *customerService) GetMyTrainer(ctx context.Context, customerID primitive.ObjectID) (*domain.User, error) {
	assignment, err := s.assignmentRepo.GetByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveTrainer
		}
		return nil, err
	}
	if !assignment.IsActive() {
		return nil, ErrNoActiveTrainer
	}

	trainer, err := s.userRepo.GetByID(ctx, assignment.TrainerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveTrainer
		}
		return nil, err
	}

	trainer.PasswordHash = ""
	return trainer, nil
}

// GetMyMealPlans retrieves the customer's own meal plan assignments.
func (s *customerService) GetMyMealPlans(ctx context.Context, customerID primitive.ObjectID) ([]domain.MealPlanAssignment, error) {
	if customerID == primitive.NilObjectID {
		return nil, errors.New("customer ID is required")
	}
	return s.mealPlanRepo.GetAssignmentsByCustomer(ctx, customerID)
}

// GetMyProgress retrieves the customer's own progress entries.
func (s *customerService) GetMyProgress(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProgressEntry, error) {
	if customerID == primitive.NilObjectID {
		return nil, errors.New("customer ID is required")
	}
	return s.progressRepo.GetByCustomerID(ctx, customerID)
}

// RecordMyProgress appends a self-recorded progress entry. Self-recorded
// entries carry no trainer stamp.
func (s *customerService) RecordMyProgress(ctx context.Context, customerID primitive.ObjectID, update ProgressUpdate) (*domain.ProgressEntry, error) {
	if customerID == primitive.NilObjectID {
		return nil, errors.New("customer ID is required")
	}

	measurements, err := validateProgressUpdate(update)
	if err != nil {
		return nil, err
	}

	entry := &domain.ProgressEntry{
		CustomerID:   customerID,
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

// RequestPhotoUpload issues a presigned PUT URL and records the photo metadata.
// Object keys are uuid-based so customers cannot guess or collide with each
// other's keys.
func (s *customerService) RequestPhotoUpload(ctx context.Context, customerID primitive.ObjectID, contentType string) (*PhotoUpload, error) {
	if customerID == primitive.NilObjectID {
		return nil, errors.New("customer ID is required")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidContentType
	}

	objectKey := fmt.Sprintf("progress-photos/%s/%s", customerID.Hex(), uuid.NewString())

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLGeneration
	}

	photo := &domain.ProgressPhoto{
		CustomerID:  customerID,
		ObjectKey:   objectKey,
		ContentType: contentType,
	}
	photoID, err := s.photoRepo.Create(ctx, photo)
	if err != nil {
		return nil, err
	}
	photo.ID = photoID

	return &PhotoUpload{Photo: *photo, UploadURL: uploadURL}, nil
}

// DeleteMyPhoto removes one of the caller's own photos, object bytes first so
// a storage failure leaves the metadata in place for a retry. A photo owned by
// another customer is reported exactly like a missing one.
func (s *customerService) DeleteMyPhoto(ctx context.Context, customerID, photoID primitive.ObjectID) error {
	if customerID == primitive.NilObjectID || photoID == primitive.NilObjectID {
		return ErrPhotoNotFound
	}

	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPhotoNotFound
		}
		return err
	}
	if photo.CustomerID != customerID {
		return ErrPhotoNotFound
	}

	if err := s.fileStorage.DeleteObject(ctx, photo.ObjectKey); err != nil {
		return err
	}

	if err := s.photoRepo.Delete(ctx, photoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPhotoNotFound
		}
		return err
	}
	return nil
}

// GetMyPhotos retrieves the customer's own photos with download URLs.
func (s *customerService) GetMyPhotos(ctx context.Context, customerID primitive.ObjectID) ([]PhotoWithURL, error) {
	if customerID == primitive.NilObjectID {
		return nil, errors.New("customer ID is required")
	}

	photos, err := s.photoRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	result := make([]PhotoWithURL, 0, len(photos))
	for _, photo := range photos {
		url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, photo.ObjectKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			continue
		}
		result = append(result, PhotoWithURL{Photo: photo, DownloadURL: url})
	}
	return result, nil
}
