// Package domain defines the core types for the exercise log.
package domain

import (
	"errors"
	"strings"
	"time"
)

// Intensity is the effort level of an exercise record. Exactly three levels exist.
type Intensity int

const (
	IntensityLow    Intensity = 1
	IntensityMedium Intensity = 2
	IntensityHigh   Intensity = 3
)

// Valid reports whether the intensity is one of the three defined levels.
func (i Intensity) Valid() bool {
	return i >= IntensityLow && i <= IntensityHigh
}

// Label returns the display label for the intensity.
func (i Intensity) Label() string {
	switch i {
	case IntensityLow:
		return "low"
	case IntensityMedium:
		return "medium"
	case IntensityHigh:
		return "high"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidMinutes is returned when a record duration is not a positive integer.
	ErrInvalidMinutes = errors.New("minutes must be > 0")
	// ErrInvalidIntensity is returned when an intensity is outside the defined levels.
	ErrInvalidIntensity = errors.New("intensity must be 1, 2 or 3")
	// ErrInvalidDate is returned when a calendar date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
)

// Record is a single logged exercise against a calendar day.
type Record struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD, timezone-naive UTC calendar day
	Type      string    `json:"type"`
	Minutes   int       `json:"minutes"`
	Intensity Intensity `json:"intensity"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordDraft carries the caller-supplied fields for a new record.
type RecordDraft struct {
	Date      string    `json:"date"`
	Type      string    `json:"type"`
	Minutes   int       `json:"minutes"`
	Intensity Intensity `json:"intensity"`
	Memo      string    `json:"memo,omitempty"`
}

// Validate ensures draft correctness.
func (d RecordDraft) Validate() error {
	if _, err := time.Parse("2006-01-02", d.Date); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(d.Type) == "" {
		return errors.New("type is required")
	}
	if d.Minutes <= 0 {
		return ErrInvalidMinutes
	}
	if !d.Intensity.Valid() {
		return ErrInvalidIntensity
	}
	return nil
}

// RecordPatch carries a partial update. Nil fields are left unchanged.
type RecordPatch struct {
	Date      *string    `json:"date,omitempty"`
	Type      *string    `json:"type,omitempty"`
	Minutes   *int       `json:"minutes,omitempty"`
	Intensity *Intensity `json:"intensity,omitempty"`
	Memo      *string    `json:"memo,omitempty"`
}

// Apply merges the patch into a copy of the record. ID and CreatedAt never change.
func (p RecordPatch) Apply(r Record) Record {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Minutes != nil {
		r.Minutes = *p.Minutes
	}
	if p.Intensity != nil {
		r.Intensity = *p.Intensity
	}
	if p.Memo != nil {
		r.Memo = *p.Memo
	}
	return r
}

// Validate rejects patches that would move a record into an invalid state.
func (p RecordPatch) Validate() error {
	if p.Date != nil {
		if _, err := time.Parse("2006-01-02", *p.Date); err != nil {
			return ErrInvalidDate
		}
	}
	if p.Minutes != nil && *p.Minutes <= 0 {
		return ErrInvalidMinutes
	}
	if p.Intensity != nil && !p.Intensity.Valid() {
		return ErrInvalidIntensity
	}
	return nil
}
