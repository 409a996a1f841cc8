package domain

import (
	"errors"
	"strings"
)

// ExerciseType is a selectable workout category with a pre-fill intensity.
type ExerciseType struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	DefaultIntensity Intensity `json:"default_intensity"`
}

// TypeDraft carries the caller-supplied fields for a new exercise type.
type TypeDraft struct {
	Name             string    `json:"name"`
	DefaultIntensity Intensity `json:"default_intensity"`
}

// Validate ensures draft correctness.
func (d TypeDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name is required")
	}
	if !d.DefaultIntensity.Valid() {
		return ErrInvalidIntensity
	}
	return nil
}

// BuiltinTypes returns the fixed set of exercise types that exists for every
// user. User-defined types are appended after these, never in place of them.
func BuiltinTypes() []ExerciseType {
	return []ExerciseType{
		{ID: "builtin-1", Name: "Running", DefaultIntensity: IntensityMedium},
		{ID: "builtin-2", Name: "Gym", DefaultIntensity: IntensityHigh},
		{ID: "builtin-3", Name: "Yoga", DefaultIntensity: IntensityLow},
		{ID: "builtin-4", Name: "Cycling", DefaultIntensity: IntensityMedium},
		{ID: "builtin-5", Name: "Swimming", DefaultIntensity: IntensityHigh},
		{ID: "builtin-6", Name: "Walking", DefaultIntensity: IntensityLow},
	}
}
