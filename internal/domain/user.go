package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleTrainer  Role = "trainer"
	RoleCustomer Role = "customer"
)

// User represents any account in the system (admin, trainer or customer).
// Trainer-customer relationships are NOT stored on the user itself; the
// CustomerAssignment collection is the sole authorization source, which lets a
// customer move between trainers while keeping the full history.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

func (u *User) IsCustomer() bool {
	return u.Role == RoleCustomer
}
