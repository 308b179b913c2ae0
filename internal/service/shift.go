package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

// ShiftContext is the shift state of the capture form at one instant.
type ShiftContext struct {
	// Automatic is the scheduled shift covering the instant, if any.
	Automatic *models.Shift
	// ManualRequired is set when no shift is automatic but some shift is
	// active; the respondent then has to pick one of Choices.
	ManualRequired bool
	Choices        []models.Shift
}

// ResolveShiftContext evaluates the active shifts at now. now must already be
// in the venue's local time zone. Among overlapping scheduled shifts the
// earliest start wins, then the lower id.
func ResolveShiftContext(now time.Time, active []models.Shift) ShiftContext {
	tod := models.TimeOfDayFrom(now)

	var auto *models.Shift
	var choices []models.Shift
	for i := range active {
		s := active[i]
		if !s.Active {
			continue
		}
		choices = append(choices, s)

		if !s.Covers(tod) {
			continue
		}
		if auto == nil || *s.Start < *auto.Start || (*s.Start == *auto.Start && s.ID < auto.ID) {
			auto = &s
		}
	}

	if auto != nil {
		return ShiftContext{Automatic: auto}
	}
	if len(choices) > 0 {
		return ShiftContext{ManualRequired: true, Choices: choices}
	}
	return ShiftContext{}
}

// AttributeShift picks the shift a submission is recorded under: the
// automatic shift, else the manual choice, else the active default shift.
// manualChoice is the raw submitted shift id and is ignored unless a manual
// selection is required.
func AttributeShift(sc ShiftContext, manualChoice string, defaultShift *models.Shift) (*models.Shift, error) {
	if sc.Automatic != nil {
		return sc.Automatic, nil
	}

	if sc.ManualRequired {
		manualChoice = strings.TrimSpace(manualChoice)
		if manualChoice == "" {
			return nil, NewValidationError(FieldShift, msgSelectShift)
		}
		id, err := strconv.ParseInt(manualChoice, 10, 64)
		if err != nil {
			return nil, NewValidationError(FieldShift, msgInvalidChoice)
		}
		for i := range sc.Choices {
			if sc.Choices[i].ID == id {
				s := sc.Choices[i]
				return &s, nil
			}
		}
		return nil, NewValidationError(FieldShift, msgInvalidChoice)
	}

	if defaultShift != nil && defaultShift.Active {
		s := *defaultShift
		return &s, nil
	}
	return nil, nil
}
