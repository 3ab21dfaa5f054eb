package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"evofit/meal-planner/internal/domain"
)

const (
	maxWeightKg   = 300.0
	maxNotesChars = 1000
)

// ValidationError carries every violation found in a payload, not just the
// first. Handlers surface the full list to the client.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// ProgressUpdate is the raw payload for recording a progress entry.
// Measurements stays raw JSON so a malformed shape is reported as a violation
// alongside the others instead of failing the bind.
type ProgressUpdate struct {
	Weight       *float64        `json:"weight"`
	Measurements json.RawMessage `json:"measurements"`
	Notes        string          `json:"notes"`
}

// validateProgressUpdate checks the whole payload and returns the parsed
// measurements. The returned error, if any, is always a *ValidationError
// listing every violation.
func validateProgressUpdate(update ProgressUpdate) (*domain.Measurements, error) {
	var violations []string

	switch {
	case update.Weight == nil:
		violations = append(violations, "weight is required")
	case *update.Weight <= 0:
		violations = append(violations, "weight must be a positive number")
	case *update.Weight > maxWeightKg:
		violations = append(violations, fmt.Sprintf("weight must not exceed %g kg", maxWeightKg))
	}

	measurements, measurementViolations := parseMeasurements(update.Measurements)
	violations = append(violations, measurementViolations...)

	if len(update.Notes) > maxNotesChars {
		violations = append(violations, fmt.Sprintf("notes must not exceed %d characters", maxNotesChars))
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return measurements, nil
}

// parseMeasurements accepts a missing or null measurements field, and otherwise
// requires a structured object with positive values. Scalars, arrays and
// unknown fields all count as violations.
func parseMeasurements(raw json.RawMessage) (*domain.Measurements, []string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] != '{' {
		return nil, []string{"measurements must be an object"}
	}

	var m domain.Measurements
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&m); err != nil {
		return nil, []string{"measurements is malformed"}
	}

	var violations []string
	fields := []struct {
		name  string
		value *float64
	}{
		{"chestCm", m.ChestCm},
		{"waistCm", m.WaistCm},
		{"hipsCm", m.HipsCm},
		{"thighCm", m.ThighCm},
		{"armCm", m.ArmCm},
	}
	for _, f := range fields {
		if f.value != nil && *f.value <= 0 {
			violations = append(violations, fmt.Sprintf("measurements.%s must be a positive number", f.name))
		}
	}
	if len(violations) > 0 {
		return nil, violations
	}
	return &m, nil
}
