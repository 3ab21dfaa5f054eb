package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentStatus type for the trainer-customer link lifecycle
type AssignmentStatus string

const (
	StatusActive   AssignmentStatus = "active"
	StatusInactive AssignmentStatus = "inactive" // Unassigned; kept for the audit trail
)

// CustomerAssignment links a Customer to a Trainer. A pair with status=active is
// the sole authorization source for all trainer-side customer operations.
// Rows are never hard-deleted; unassignment flips the status to inactive.
type CustomerAssignment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID    primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	CustomerID   primitive.ObjectID `bson:"customerId" json:"customerId"`
	AssignedDate time.Time          `bson:"assignedDate" json:"assignedDate"`
	Status       AssignmentStatus   `bson:"status" json:"status"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (a *CustomerAssignment) IsActive() bool {
	return a.Status == StatusActive
}
