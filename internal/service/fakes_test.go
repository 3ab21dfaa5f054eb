package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"evofit/meal-planner/internal/domain"
	"evofit/meal-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes for the repository ports. They mirror the persistence
// semantics the services rely on: assignment rows survive deactivation, and
// roster listings sort by assignedDate descending with customerId ascending
// as the tie-break.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]domain.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]domain.User)}
}

func (r *fakeUserRepo) add(user domain.User) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == primitive.NilObjectID {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if r.err != nil {
		return primitive.NilObjectID, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	r.users[user.ID] = *user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := user
	return &u, nil
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments []domain.CustomerAssignment
	err         error
	isOwnerErr  error

	isOwnerCalls int
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{}
}

func (r *fakeAssignmentRepo) findActive(trainerID, customerID primitive.ObjectID) *domain.CustomerAssignment {
	for i := range r.assignments {
		a := &r.assignments[i]
		if a.TrainerID == trainerID && a.CustomerID == customerID && a.Status == domain.StatusActive {
			return a
		}
	}
	return nil
}

func (r *fakeAssignmentRepo) IsOwner(ctx context.Context, trainerID, customerID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isOwnerCalls++
	if r.isOwnerErr != nil {
		return false, r.isOwnerErr
	}
	if r.err != nil {
		return false, r.err
	}
	return r.findActive(trainerID, customerID) != nil, nil
}

func (r *fakeAssignmentRepo) GetActive(ctx context.Context, trainerID, customerID primitive.ObjectID) (*domain.CustomerAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findActive(trainerID, customerID); a != nil {
		found := *a
		return &found, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAssignmentRepo) GetByCustomer(ctx context.Context, customerID primitive.ObjectID) (*domain.CustomerAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.CustomerAssignment
	for i := range r.assignments {
		a := &r.assignments[i]
		if a.CustomerID != customerID || a.Status != domain.StatusActive {
			continue
		}
		if latest == nil || a.AssignedDate.After(latest.AssignedDate) {
			latest = a
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	found := *latest
	return &found, nil
}

func (r *fakeAssignmentRepo) ListOwnedCustomers(ctx context.Context, trainerID primitive.ObjectID, offset, limit int64) (*repository.CustomerPage, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var active []domain.CustomerAssignment
	for _, a := range r.assignments {
		if a.TrainerID == trainerID && a.Status == domain.StatusActive {
			active = append(active, a)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].AssignedDate.Equal(active[j].AssignedDate) {
			return active[i].AssignedDate.After(active[j].AssignedDate)
		}
		return active[i].CustomerID.Hex() < active[j].CustomerID.Hex()
	})

	page := &repository.CustomerPage{Customers: []domain.User{}, Total: int64(len(active))}
	if offset >= int64(len(active)) {
		return page, nil
	}
	end := offset + limit
	if end > int64(len(active)) {
		end = int64(len(active))
	}
	for _, a := range active[offset:end] {
		page.Customers = append(page.Customers, domain.User{ID: a.CustomerID, Role: domain.RoleCustomer})
	}
	return page, nil
}

func (r *fakeAssignmentRepo) Upsert(ctx context.Context, trainerID, customerID primitive.ObjectID) (*domain.CustomerAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.assignments {
		a := &r.assignments[i]
		if a.CustomerID == customerID && a.Status == domain.StatusActive && a.TrainerID != trainerID {
			return nil, repository.ErrDuplicate
		}
	}
	for i := range r.assignments {
		a := &r.assignments[i]
		if a.TrainerID == trainerID && a.CustomerID == customerID {
			a.Status = domain.StatusActive
			a.AssignedDate = time.Now()
			found := *a
			return &found, nil
		}
	}
	assignment := domain.CustomerAssignment{
		ID:           primitive.NewObjectID(),
		TrainerID:    trainerID,
		CustomerID:   customerID,
		AssignedDate: time.Now(),
		Status:       domain.StatusActive,
	}
	r.assignments = append(r.assignments, assignment)
	return &assignment, nil
}

func (r *fakeAssignmentRepo) Deactivate(ctx context.Context, trainerID, customerID primitive.ObjectID) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findActive(trainerID, customerID); a != nil {
		a.Status = domain.StatusInactive
		return nil
	}
	return repository.ErrNotFound
}

type fakeMealPlanRepo struct {
	mu          sync.Mutex
	plans       map[primitive.ObjectID]domain.MealPlan
	assignments []domain.MealPlanAssignment
	err         error
}

func newFakeMealPlanRepo() *fakeMealPlanRepo {
	return &fakeMealPlanRepo{plans: make(map[primitive.ObjectID]domain.MealPlan)}
}

func (r *fakeMealPlanRepo) Create(ctx context.Context, plan *domain.MealPlan) (primitive.ObjectID, error) {
	if r.err != nil {
		return primitive.NilObjectID, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	plan.ID = primitive.NewObjectID()
	plan.CreatedAt = time.Now()
	r.plans[plan.ID] = *plan
	return plan.ID, nil
}

func (r *fakeMealPlanRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MealPlan, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := plan
	return &p, nil
}

func (r *fakeMealPlanRepo) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.MealPlan, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var plans []domain.MealPlan
	for _, plan := range r.plans {
		if plan.TrainerID == trainerID {
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

func (r *fakeMealPlanRepo) CreateAssignment(ctx context.Context, assignment *domain.MealPlanAssignment) (primitive.ObjectID, error) {
	if r.err != nil {
		return primitive.NilObjectID, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment.ID = primitive.NewObjectID()
	assignment.AssignedAt = time.Now()
	if assignment.StartDate.IsZero() {
		assignment.StartDate = assignment.AssignedAt
	}
	r.assignments = append(r.assignments, *assignment)
	return assignment.ID, nil
}

func (r *fakeMealPlanRepo) GetAssignmentsByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]domain.MealPlanAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MealPlanAssignment
	for _, a := range r.assignments {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeProgressRepo struct {
	mu      sync.Mutex
	entries []domain.ProgressEntry
	err     error
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{}
}

func (r *fakeProgressRepo) Create(ctx context.Context, entry *domain.ProgressEntry) (primitive.ObjectID, error) {
	if r.err != nil {
		return primitive.NilObjectID, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = primitive.NewObjectID()
	entry.RecordedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return entry.ID, nil
}

func (r *fakeProgressRepo) GetByCustomerID(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProgressEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ProgressEntry
	for _, e := range r.entries {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePhotoRepo struct {
	mu     sync.Mutex
	photos []domain.ProgressPhoto
	err    error
}

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{}
}

func (r *fakePhotoRepo) Create(ctx context.Context, photo *domain.ProgressPhoto) (primitive.ObjectID, error) {
	if r.err != nil {
		return primitive.NilObjectID, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	photo.ID = primitive.NewObjectID()
	photo.UploadedAt = time.Now()
	r.photos = append(r.photos, *photo)
	return photo.ID, nil
}

func (r *fakePhotoRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgressPhoto, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.photos {
		if p.ID == id {
			photo := p
			return &photo, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePhotoRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.photos {
		if p.ID == id {
			r.photos = append(r.photos[:i], r.photos[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakePhotoRepo) GetByCustomerID(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProgressPhoto, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ProgressPhoto
	for _, p := range r.photos {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeFileStorage struct {
	presignErr error
	deleteErr  error

	deletedKeys []string
}

func (s *fakeFileStorage) GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://storage.test/upload/" + objectKey, nil
}

func (s *fakeFileStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://storage.test/download/" + objectKey, nil
}

func (s *fakeFileStorage) DeleteObject(ctx context.Context, objectKey string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedKeys = append(s.deletedKeys, objectKey)
	return nil
}
