package models

import "time"

const (
	RatingMin = 1
	RatingMax = 5
)

// Ratings holds the five 1..5 scores of a survey response.
type Ratings struct {
	OverallSatisfaction int `json:"satisfaccion_general"`
	FoodQuality         int `json:"calidad_comida"`
	MenuVariety         int `json:"variedad_menu"`
	Cleanliness         int `json:"limpieza_comedor"`
	QueueTime           int `json:"tiempo_atencion_fila"`
}

type SurveyResponse struct {
	ID           int64
	VenueID      int64
	CafeteriaID  int64
	ShiftID      *int64
	RegisteredAt time.Time
	Ratings
	Comment string
}

// ResponseRow is a response joined with its catalog names.
type ResponseRow struct {
	ID            int64
	RegisteredAt  time.Time
	VenueName     string
	CafeteriaName string
	ShiftName     string
	Ratings
	Comment string
}

// RatingAverages are nil when no response matched.
type RatingAverages struct {
	OverallSatisfaction *float64
	FoodQuality         *float64
	MenuVariety         *float64
	Cleanliness         *float64
	QueueTime           *float64
}

func (a RatingAverages) HasData() bool {
	return a.OverallSatisfaction != nil
}

type CafeteriaRanking struct {
	CafeteriaID         int64
	CafeteriaName       string
	VenueName           string
	AverageSatisfaction float64
	ResponseCount       int64
}

type ShiftSelectorKind int

const (
	AnyShift ShiftSelectorKind = iota
	NoShift
	SpecificShift
)

// ShiftSelector distinguishes "any shift" from "responses without a shift".
type ShiftSelector struct {
	Kind    ShiftSelectorKind
	ShiftID int64
}

// ResponseFilter is the single filter value shared by every report view.
// From is inclusive, To is exclusive; both are absolute instants.
type ResponseFilter struct {
	VenueID     *int64
	CafeteriaID *int64
	Shift       ShiftSelector
	From        *time.Time
	To          *time.Time
}
