package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"evofit/meal-planner/internal/cache"
	"evofit/meal-planner/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type trainerServiceFixture struct {
	users       *fakeUserRepo
	assignments *fakeAssignmentRepo
	mealPlans   *fakeMealPlanRepo
	progress    *fakeProgressRepo
	photos      *fakePhotoRepo
	storage     *fakeFileStorage
	service     TrainerService
}

func newTrainerServiceFixture() *trainerServiceFixture {
	f := &trainerServiceFixture{
		users:       newFakeUserRepo(),
		assignments: newFakeAssignmentRepo(),
		mealPlans:   newFakeMealPlanRepo(),
		progress:    newFakeProgressRepo(),
		photos:      newFakePhotoRepo(),
		storage:     &fakeFileStorage{},
	}
	f.service = NewTrainerService(f.users, f.assignments, f.mealPlans, f.progress, f.photos, f.storage, cache.NewInMemory(), time.Minute)
	return f
}

func (f *trainerServiceFixture) addCustomer(email string) domain.User {
	return f.users.add(domain.User{
		Name:  "Customer " + email,
		Email: email,
		Role:  domain.RoleCustomer,
	})
}

func (f *trainerServiceFixture) assign(trainerID, customerID primitive.ObjectID) {
	if _, err := f.assignments.Upsert(context.Background(), trainerID, customerID); err != nil {
		panic(err)
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestAddCustomerByEmail(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")

	got, err := f.service.AddCustomerByEmail(context.Background(), trainerID, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, got.ID)
	assert.Empty(t, got.PasswordHash)

	owned, err := f.assignments.IsOwner(context.Background(), trainerID, customer.ID)
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestAddCustomerByEmailUnknownEmail(t *testing.T) {
	f := newTrainerServiceFixture()

	_, err := f.service.AddCustomerByEmail(context.Background(), primitive.NewObjectID(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestAddCustomerByEmailRejectsNonCustomer(t *testing.T) {
	f := newTrainerServiceFixture()
	f.users.add(domain.User{Email: "coach@example.com", Role: domain.RoleTrainer})

	_, err := f.service.AddCustomerByEmail(context.Background(), primitive.NewObjectID(), "coach@example.com")
	assert.ErrorIs(t, err, ErrCustomerNotRole)
}

func TestAddCustomerByEmailAlreadyAssignedElsewhere(t *testing.T) {
	f := newTrainerServiceFixture()
	customer := f.addCustomer("anna@example.com")
	f.assign(primitive.NewObjectID(), customer.ID)

	_, err := f.service.AddCustomerByEmail(context.Background(), primitive.NewObjectID(), "anna@example.com")
	assert.ErrorIs(t, err, ErrCustomerAlreadyAssigned)
}

// A trainer can only see and act on customers with an active assignment to
// them. Another trainer working against the same customer ID gets the same
// answer as for a customer that does not exist.
func TestCrossTrainerAccessDenied(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerA := primitive.NewObjectID()
	trainerB := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerA, customer.ID)

	_, err := f.service.GetCustomer(context.Background(), trainerA, customer.ID)
	require.NoError(t, err)

	_, err = f.service.GetCustomer(context.Background(), trainerB, customer.ID)
	assert.ErrorIs(t, err, ErrCustomerNotOwned)

	_, err = f.service.GetCustomer(context.Background(), trainerB, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrCustomerNotOwned)

	_, err = f.service.RecordProgress(context.Background(), trainerB, customer.ID, ProgressUpdate{Weight: floatPtr(80)})
	assert.ErrorIs(t, err, ErrCustomerNotOwned)
	assert.Empty(t, f.progress.entries, "denied write must not reach storage")
}

// Revoking the assignment takes effect on the next call; the row itself is
// kept for history.
func TestGetCustomerIncludesAssignmentDate(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	detail, err := f.service.GetCustomer(context.Background(), trainerID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.ID, detail.Customer.ID)
	assert.Empty(t, detail.Customer.PasswordHash)
	assert.False(t, detail.AssignedDate.IsZero())
}

func TestRemoveCustomerRevokesAccess(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	require.NoError(t, f.service.RemoveCustomer(context.Background(), trainerID, customer.ID))

	_, err := f.service.GetCustomer(context.Background(), trainerID, customer.ID)
	assert.ErrorIs(t, err, ErrCustomerNotOwned)

	require.Len(t, f.assignments.assignments, 1)
	assert.Equal(t, domain.StatusInactive, f.assignments.assignments[0].Status)
}

func TestRemoveCustomerNotOwned(t *testing.T) {
	f := newTrainerServiceFixture()
	customer := f.addCustomer("anna@example.com")

	err := f.service.RemoveCustomer(context.Background(), primitive.NewObjectID(), customer.ID)
	assert.ErrorIs(t, err, ErrCustomerNotOwned)
}

// A storage failure during the ownership check denies the operation instead
// of letting it through.
func TestOwnershipCheckFailsClosed(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	f.assignments.isOwnerErr = errors.New("connection reset")

	_, err := f.service.RecordProgress(context.Background(), trainerID, customer.ID, ProgressUpdate{Weight: floatPtr(80)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCustomerNotOwned)
	assert.Empty(t, f.progress.entries)
}

// The check runs against storage on every mutation; it is never cached from
// an earlier call in the same session.
func TestOwnershipRecheckedPerCall(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	before := f.assignments.isOwnerCalls
	_, err := f.service.RecordProgress(context.Background(), trainerID, customer.ID, ProgressUpdate{Weight: floatPtr(80)})
	require.NoError(t, err)
	_, err = f.service.RecordProgress(context.Background(), trainerID, customer.ID, ProgressUpdate{Weight: floatPtr(81)})
	require.NoError(t, err)

	assert.Equal(t, before+2, f.assignments.isOwnerCalls)
}

func TestListCustomersEmpty(t *testing.T) {
	f := newTrainerServiceFixture()

	page, err := f.service.ListCustomers(context.Background(), primitive.NewObjectID(), 0, 20)
	require.NoError(t, err)
	assert.NotNil(t, page.Customers)
	assert.Empty(t, page.Customers)
	assert.Zero(t, page.Total)
}

func TestListCustomersPagination(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		customer := f.addCustomer(string(rune('a'+i)) + "@example.com")
		f.assign(trainerID, customer.ID)
	}

	first, err := f.service.ListCustomers(context.Background(), trainerID, 0, 3)
	require.NoError(t, err)
	assert.Len(t, first.Customers, 3)
	assert.EqualValues(t, 5, first.Total)

	second, err := f.service.ListCustomers(context.Background(), trainerID, 3, 3)
	require.NoError(t, err)
	assert.Len(t, second.Customers, 2)
	assert.EqualValues(t, 5, second.Total)

	seen := make(map[primitive.ObjectID]bool)
	for _, c := range append(first.Customers, second.Customers...) {
		assert.False(t, seen[c.ID], "customer repeated across pages")
		seen[c.ID] = true
	}
}

// Listing order is stable: assignedDate descending, then customerId ascending
// for assignments created at the same instant, and repeated calls return the
// identical sequence.
func TestListCustomersDeterministicOrder(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newest := f.addCustomer("newest@example.com")
	f.assignments.assignments = append(f.assignments.assignments, domain.CustomerAssignment{
		ID:           primitive.NewObjectID(),
		TrainerID:    trainerID,
		CustomerID:   newest.ID,
		AssignedDate: base.Add(time.Hour),
		Status:       domain.StatusActive,
	})

	var tiedIDs []string
	for i := 0; i < 3; i++ {
		customer := f.addCustomer(fmt.Sprintf("tied%d@example.com", i))
		f.assignments.assignments = append(f.assignments.assignments, domain.CustomerAssignment{
			ID:           primitive.NewObjectID(),
			TrainerID:    trainerID,
			CustomerID:   customer.ID,
			AssignedDate: base,
			Status:       domain.StatusActive,
		})
		tiedIDs = append(tiedIDs, customer.ID.Hex())
	}
	sort.Strings(tiedIDs)

	first, err := f.service.ListCustomers(context.Background(), trainerID, 0, 20)
	require.NoError(t, err)
	require.Len(t, first.Customers, 4)

	assert.Equal(t, newest.ID, first.Customers[0].ID, "most recent assignment comes first")
	for i, wantHex := range tiedIDs {
		assert.Equal(t, wantHex, first.Customers[i+1].ID.Hex(), "tied assignments sort by customer ID ascending")
	}

	second, err := f.service.ListCustomers(context.Background(), trainerID, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, first.Customers, second.Customers)
}

func TestListCustomersClampsBadRange(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	page, err := f.service.ListCustomers(context.Background(), trainerID, -10, -5)
	require.NoError(t, err)
	assert.Len(t, page.Customers, 1)
}

func TestListCustomersMissesCacheAfterRosterChange(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	first := f.addCustomer("anna@example.com")
	f.assign(trainerID, first.ID)

	page, err := f.service.ListCustomers(context.Background(), trainerID, 0, 20)
	require.NoError(t, err)
	require.Len(t, page.Customers, 1)

	second := f.addCustomer("ben@example.com")
	_, err = f.service.AddCustomerByEmail(context.Background(), trainerID, second.Email)
	require.NoError(t, err)

	page, err = f.service.ListCustomers(context.Background(), trainerID, 0, 20)
	require.NoError(t, err)
	assert.Len(t, page.Customers, 2)
}

func TestAssignMealPlan(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	plan, err := f.service.CreateMealPlan(context.Background(), trainerID, "Cut 1800", "", 1800, 14)
	require.NoError(t, err)

	assignment, err := f.service.AssignMealPlan(context.Background(), trainerID, customer.ID, plan.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, plan.ID, assignment.MealPlanID)
	assert.Equal(t, customer.ID, assignment.CustomerID)
	assert.False(t, assignment.StartDate.IsZero())
}

// Assigning another trainer's plan fails even when the customer is owned, and
// leaves no assignment behind.
func TestAssignMealPlanRequiresPlanOwnership(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerA := primitive.NewObjectID()
	trainerB := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerB, customer.ID)

	plan, err := f.service.CreateMealPlan(context.Background(), trainerA, "Bulk 3000", "", 3000, 7)
	require.NoError(t, err)

	_, err = f.service.AssignMealPlan(context.Background(), trainerB, customer.ID, plan.ID, time.Time{})
	assert.ErrorIs(t, err, ErrMealPlanAccessDenied)
	assert.Empty(t, f.mealPlans.assignments)
}

func TestAssignMealPlanToUnownedCustomer(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")

	plan, err := f.service.CreateMealPlan(context.Background(), trainerID, "Cut 1800", "", 1800, 7)
	require.NoError(t, err)

	_, err = f.service.AssignMealPlan(context.Background(), trainerID, customer.ID, plan.ID, time.Time{})
	assert.ErrorIs(t, err, ErrCustomerNotOwned)
	assert.Empty(t, f.mealPlans.assignments)
}

func TestRecordProgress(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	update := ProgressUpdate{
		Weight:       floatPtr(72.5),
		Measurements: json.RawMessage(`{"waistCm": 74, "chestCm": 96}`),
		Notes:        "steady progress",
	}
	entry, err := f.service.RecordProgress(context.Background(), trainerID, customer.ID, update)
	require.NoError(t, err)
	assert.Equal(t, 72.5, entry.WeightKg)
	assert.Equal(t, trainerID, entry.TrainerID)
	require.NotNil(t, entry.Measurements)
	require.NotNil(t, entry.Measurements.WaistCm)
	assert.Equal(t, 74.0, *entry.Measurements.WaistCm)
	assert.Len(t, f.progress.entries, 1)
}

// An invalid payload reports every violation at once and writes nothing.
func TestRecordProgressReportsAllViolations(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	update := ProgressUpdate{
		Weight:       floatPtr(-50),
		Measurements: json.RawMessage(`"not an object"`),
	}
	_, err := f.service.RecordProgress(context.Background(), trainerID, customer.ID, update)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.GreaterOrEqual(t, len(validationErr.Violations), 2)
	assert.Contains(t, validationErr.Violations, "weight must be a positive number")
	assert.Contains(t, validationErr.Violations, "measurements must be an object")
	assert.Empty(t, f.progress.entries)
}

// Ownership is checked before validation: an unowned customer never learns
// whether the payload was valid.
func TestRecordProgressOwnershipBeforeValidation(t *testing.T) {
	f := newTrainerServiceFixture()
	customer := f.addCustomer("anna@example.com")

	_, err := f.service.RecordProgress(context.Background(), primitive.NewObjectID(), customer.ID, ProgressUpdate{Weight: floatPtr(-50)})
	assert.ErrorIs(t, err, ErrCustomerNotOwned)
}

func TestGetCustomerPhotos(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	_, err := f.photos.Create(context.Background(), &domain.ProgressPhoto{
		CustomerID:  customer.ID,
		ObjectKey:   "progress-photos/" + customer.ID.Hex() + "/one.jpg",
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	photos, err := f.service.GetCustomerPhotos(context.Background(), trainerID, customer.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Contains(t, photos[0].DownloadURL, "https://storage.test/download/")
}

func TestGetCustomerPhotosSkipsFailedPresign(t *testing.T) {
	f := newTrainerServiceFixture()
	trainerID := primitive.NewObjectID()
	customer := f.addCustomer("anna@example.com")
	f.assign(trainerID, customer.ID)

	_, err := f.photos.Create(context.Background(), &domain.ProgressPhoto{CustomerID: customer.ID, ObjectKey: "k", ContentType: "image/jpeg"})
	require.NoError(t, err)
	f.storage.presignErr = errors.New("presign unavailable")

	photos, err := f.service.GetCustomerPhotos(context.Background(), trainerID, customer.ID)
	require.NoError(t, err)
	assert.Empty(t, photos)
}
