package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MealPlan is a reusable plan in a trainer's library. It is owned by the trainer
// who created it; assigning it to a customer requires ownership of both the plan
// and the customer.
type MealPlan struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID     primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	DailyCalories int                `bson:"dailyCalories,omitempty" json:"dailyCalories,omitempty"`
	Days          int                `bson:"days" json:"days"` // Plan length in days
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MealPlanAssignment links a MealPlan to a Customer, stamped with the assigning
// trainer. The trainerId here must match an active CustomerAssignment at creation
// time; the service layer revalidates that on every mutating call rather than
// trusting the stamp.
type MealPlanAssignment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MealPlanID primitive.ObjectID `bson:"mealPlanId" json:"mealPlanId"`
	CustomerID primitive.ObjectID `bson:"customerId" json:"customerId"`
	TrainerID  primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	StartDate  time.Time          `bson:"startDate" json:"startDate"`
	AssignedAt time.Time          `bson:"assignedAt" json:"assignedAt"`
}
