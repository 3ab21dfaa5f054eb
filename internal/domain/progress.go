package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Measurements holds body measurements in centimeters. All fields are optional;
// a present field must be a positive number.
type Measurements struct {
	ChestCm *float64 `bson:"chestCm,omitempty" json:"chestCm,omitempty"`
	WaistCm *float64 `bson:"waistCm,omitempty" json:"waistCm,omitempty"`
	HipsCm  *float64 `bson:"hipsCm,omitempty" json:"hipsCm,omitempty"`
	ThighCm *float64 `bson:"thighCm,omitempty" json:"thighCm,omitempty"`
	ArmCm   *float64 `bson:"armCm,omitempty" json:"armCm,omitempty"`
}

// ProgressEntry is an append-only weight/measurement record. Entries are stamped
// with the trainer who recorded them (or NilObjectID for self-recorded entries)
// so the audit trail survives reassignment.
type ProgressEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID   primitive.ObjectID `bson:"customerId" json:"customerId"`
	TrainerID    primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`
	WeightKg     float64            `bson:"weightKg" json:"weightKg"`
	Measurements *Measurements      `bson:"measurements,omitempty" json:"measurements,omitempty"`
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
	RecordedAt   time.Time          `bson:"recordedAt" json:"recordedAt"`
}

// ProgressPhoto is metadata for a photo stored in object storage; the bytes live
// in S3 and move through presigned URLs only.
type ProgressPhoto struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID  primitive.ObjectID `bson:"customerId" json:"customerId"`
	ObjectKey   string             `bson:"objectKey" json:"-"`
	ContentType string             `bson:"contentType" json:"contentType"`
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
