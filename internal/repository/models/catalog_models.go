package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ShiftMode string

const (
	ShiftModeManual    ShiftMode = "manual"
	ShiftModeScheduled ShiftMode = "scheduled"
)

func (m ShiftMode) Valid() bool {
	return m == ShiftModeManual || m == ShiftModeScheduled
}

// TimeOfDay is a wall-clock time expressed as seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// NewTimeOfDay builds a TimeOfDay from its clock components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// TimeOfDayFrom extracts the clock part of t in t's own location.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return NewTimeOfDay(h, m, s)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(v string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return TimeOfDayFrom(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", v)
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return (int(t) % 3600) / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < secondsPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// OnDate places the time of day on the calendar date of d, in d's location.
func (t TimeOfDay) OnDate(d time.Time) time.Time {
	y, mo, day := d.Date()
	return time.Date(y, mo, day, t.Hour(), t.Minute(), t.Second(), 0, d.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Venue struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type Cafeteria struct {
	ID        int64  `json:"id"`
	VenueID   int64  `json:"venue_id"`
	VenueName string `json:"venue_name,omitempty"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Active    bool   `json:"active"`
}

// DisplayName matches how staff refer to a cafeteria: "<venue> - <cafeteria>".
func (c Cafeteria) DisplayName() string {
	if c.VenueName == "" {
		return c.Name
	}
	return c.VenueName + " - " + c.Name
}

type Shift struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Mode   ShiftMode  `json:"mode"`
	Start  *TimeOfDay `json:"start_time,omitempty"`
	End    *TimeOfDay `json:"end_time,omitempty"`
	Active bool       `json:"active"`
}

// Covers reports whether a scheduled shift's [Start, End) window contains tod.
func (s Shift) Covers(tod TimeOfDay) bool {
	if s.Mode != ShiftModeScheduled || s.Start == nil || s.End == nil {
		return false
	}
	return *s.Start <= tod && tod < *s.End
}

type CapturePoint struct {
	ID             int64  `json:"id"`
	Identifier     string `json:"identifier"`
	CafeteriaID    int64  `json:"cafeteria_id"`
	DefaultShiftID *int64 `json:"default_shift_id"`
	Active         bool   `json:"active"`

	// Populated by joined reads.
	Cafeteria    *Cafeteria `json:"cafeteria,omitempty"`
	DefaultShift *Shift     `json:"default_shift,omitempty"`
}

const MainSurveyConfigName = "configuracion_principal"

type SurveyConfig struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	WelcomeText         string `json:"welcome_text"`
	InstructionsText    string `json:"instructions_text"`
	ThanksText          string `json:"thanks_text"`
	OpenQuestionEnabled bool   `json:"open_question_enabled"`
}

// DefaultSurveyConfig is the row created on first access.
func DefaultSurveyConfig() SurveyConfig {
	return SurveyConfig{
		Name:                MainSurveyConfigName,
		WelcomeText:         "Bienvenido a la encuesta.",
		InstructionsText:    "Seleccione una opcion del 1 al 5 para cada pregunta.",
		ThanksText:          "Gracias por tu respuesta.",
		OpenQuestionEnabled: true,
	}
}

type StaffUser struct {
	ID           int64
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}
