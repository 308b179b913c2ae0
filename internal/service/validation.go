package service

import (
	"strconv"
	"strings"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

// Form field names shared by the capture form, the CSV header and the JSON API.
const (
	FieldOverallSatisfaction = "satisfaccion_general"
	FieldFoodQuality         = "calidad_comida"
	FieldMenuVariety         = "variedad_menu"
	FieldCleanliness         = "limpieza_comedor"
	FieldQueueTime           = "tiempo_atencion_fila"
	FieldShift               = "turno"
	FieldComment             = "comentario"
)

type RatingField struct {
	Name  string
	Label string
}

// RatingFields lists the five rating questions in display order.
var RatingFields = []RatingField{
	{Name: FieldOverallSatisfaction, Label: "Satisfaccion general"},
	{Name: FieldFoodQuality, Label: "Calidad de la comida"},
	{Name: FieldMenuVariety, Label: "Variedad del menu"},
	{Name: FieldCleanliness, Label: "Limpieza del comedor"},
	{Name: FieldQueueTime, Label: "Tiempo de atencion/fila"},
}

const (
	msgRatingRange        = "El valor debe estar entre 1 y 5."
	msgScheduledNeedsBoth = "Los turnos por horario requieren hora de inicio y fin."
	msgStartBeforeEnd     = "La hora de inicio debe ser menor que la hora de fin."
	msgManualBothOrNone   = "Si ingresa horario en modo manual, debe completar inicio y fin."
	msgInvalidMode        = "Modo de asignacion invalido."
	msgDefaultInactive    = "El turno por defecto debe estar activo."
	msgVenueMismatch      = "El comedor seleccionado no pertenece a la sede indicada."
)

func ratingPointer(r *models.Ratings, field string) *int {
	switch field {
	case FieldOverallSatisfaction:
		return &r.OverallSatisfaction
	case FieldFoodQuality:
		return &r.FoodQuality
	case FieldMenuVariety:
		return &r.MenuVariety
	case FieldCleanliness:
		return &r.Cleanliness
	case FieldQueueTime:
		return &r.QueueTime
	}
	return nil
}

// ParseRatings reads the five rating fields from raw form values. A missing
// value, a non-integer or a value outside 1..5 is a field error.
func ParseRatings(raw map[string]string) (models.Ratings, error) {
	var (
		out  models.Ratings
		verr ValidationError
	)
	for _, f := range RatingFields {
		v := strings.TrimSpace(raw[f.Name])
		if v == "" {
			verr.Add(f.Name, msgRequired)
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < models.RatingMin || n > models.RatingMax {
			verr.Add(f.Name, msgInvalidChoice)
			continue
		}
		*ratingPointer(&out, f.Name) = n
	}
	return out, verr.OrNil()
}

// ValidateRatings checks every rating is within 1..5.
func ValidateRatings(r models.Ratings) error {
	var verr ValidationError
	for _, f := range RatingFields {
		v := *ratingPointer(&r, f.Name)
		if v < models.RatingMin || v > models.RatingMax {
			verr.Add(f.Name, msgRatingRange)
		}
	}
	return verr.OrNil()
}

// ValidateShift enforces the time rules of a shift. Scheduled shifts need
// start < end; manual shifts take both times or neither.
func ValidateShift(s models.Shift) error {
	var verr ValidationError
	if strings.TrimSpace(s.Name) == "" {
		verr.Add("name", msgRequired)
	}

	switch s.Mode {
	case models.ShiftModeScheduled:
		switch {
		case s.Start == nil || s.End == nil:
			verr.Add(NonFieldErrors, msgScheduledNeedsBoth)
		case *s.Start >= *s.End:
			verr.Add(NonFieldErrors, msgStartBeforeEnd)
		}
	case models.ShiftModeManual:
		if (s.Start == nil) != (s.End == nil) {
			verr.Add(NonFieldErrors, msgManualBothOrNone)
		}
	default:
		verr.Add("mode", msgInvalidMode)
	}

	for field, t := range map[string]*models.TimeOfDay{"start_time": s.Start, "end_time": s.End} {
		if t != nil && !t.Valid() {
			verr.Add(field, msgInvalidChoice)
		}
	}
	return verr.OrNil()
}

// ValidateResponseConsistency checks the ratings and that the cafeteria
// belongs to the response's venue.
func ValidateResponseConsistency(resp models.SurveyResponse, cafeteria models.Cafeteria) error {
	var verr ValidationError
	verr.Merge(ValidateRatings(resp.Ratings))
	if cafeteria.ID != resp.CafeteriaID || cafeteria.VenueID != resp.VenueID {
		verr.Add(NonFieldErrors, msgVenueMismatch)
	}
	return verr.OrNil()
}

// ValidateCapturePointDefaultShift rejects an inactive default shift. A nil
// shift is allowed.
func ValidateCapturePointDefaultShift(shift *models.Shift) error {
	if shift != nil && !shift.Active {
		return NewValidationError("default_shift_id", msgDefaultInactive)
	}
	return nil
}
