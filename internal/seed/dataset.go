package seed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

const BatchSize = 1000

var (
	datasetShifts = []ShiftDef{
		{Name: "Desayuno", Mode: "scheduled", Start: "06:30", End: "09:30"},
		{Name: "Almuerzo", Mode: "scheduled", Start: "12:00", End: "15:00"},
		{Name: "Merienda", Mode: "scheduled", Start: "16:30", End: "19:30"},
	}
	shiftWeights = []float64{0.26, 0.56, 0.18}

	datasetVenues       = []string{"Planta Norte", "Planta Sur", "Oficinas Centrales", "Centro Logistico", "Campus Innovacion"}
	cafeteriaSuffixes   = []string{"Principal", "Express", "Ejecutivo"}
	datasetDefaultShift = "Almuerzo"

	positiveComments = []string{
		"Excelente atencion del personal.",
		"Buen sabor y buena temperatura de la comida.",
		"Servicio rapido y ordenado.",
		"Comedor limpio y agradable.",
		"Buena variedad para el almuerzo.",
	}
	improvementComments = []string{
		"La fila estuvo larga en este horario.",
		"Falto variedad en el menu de hoy.",
		"Se puede mejorar la temperatura de la comida.",
		"La limpieza puede mejorar en mesas.",
		"Atencion un poco lenta para el volumen.",
	}
)

// ratingNoise is the offset from the cafeteria base and the standard
// deviation of each rating, in Ratings field order.
var ratingNoise = [5]struct{ offset, stddev float64 }{
	{0, 0.65},
	{0, 0.75},
	{-0.15, 0.85},
	{0.1, 0.6},
	{-0.2, 0.8},
}

var ErrInvalidTotal = errors.New("total must be greater than zero")

type DatasetOptions struct {
	Total    int
	Seed     int64
	Year     int
	Reset    bool
	Location *time.Location
	// Progress, when set, is called after every committed batch.
	Progress func(inserted, total int)
}

type DatasetResult struct {
	Deleted  int64
	Inserted int
}

type cafeteriaProfile struct {
	cafeteria models.Cafeteria
	base      float64
	weight    float64
}

// weighted picks indexes with probability proportional to their weight.
type weighted struct {
	cumulative []float64
}

func newWeighted(weights []float64) weighted {
	w := weighted{cumulative: make([]float64, len(weights))}
	var sum float64
	for i, v := range weights {
		sum += v
		w.cumulative[i] = sum
	}
	return w
}

func (w weighted) pick(rng *rand.Rand) int {
	target := rng.Float64() * w.cumulative[len(w.cumulative)-1]
	i := sort.Search(len(w.cumulative), func(i int) bool { return w.cumulative[i] > target })
	return min(i, len(w.cumulative)-1)
}

// GenerateDataset ensures the dataset catalog and inserts opts.Total synthetic
// responses dated within opts.Year. The same seed yields the same responses.
func (s *Seeder) GenerateDataset(ctx context.Context, opts DatasetOptions) (DatasetResult, error) {
	if opts.Total <= 0 {
		return DatasetResult{}, ErrInvalidTotal
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Year)))

	var result DatasetResult
	yearStart := time.Date(opts.Year, time.January, 1, 0, 0, 0, 0, loc)
	if opts.Reset {
		deleted, err := s.responses.DeleteResponsesBetween(ctx, yearStart, yearStart.AddDate(1, 0, 0))
		if err != nil {
			return DatasetResult{}, fmt.Errorf("reset %d responses: %w", opts.Year, err)
		}
		result.Deleted = deleted
		s.logger.Info("responses reset", zap.Int("year", opts.Year), zap.Int64("deleted", deleted))
	}

	shifts, cafeterias, err := s.ensureDatasetCatalog(ctx)
	if err != nil {
		return result, err
	}

	profiles := make([]cafeteriaProfile, len(cafeterias))
	cafeteriaWeights := make([]float64, len(cafeterias))
	for i, c := range cafeterias {
		profiles[i] = cafeteriaProfile{
			cafeteria: c,
			base:      uniform(rng, 3.3, 4.6),
			weight:    uniform(rng, 0.8, 1.4),
		}
		cafeteriaWeights[i] = profiles[i].weight
	}

	days, dayWeights := yearDays(yearStart)
	pickCafeteria := newWeighted(cafeteriaWeights)
	pickShift := newWeighted(shiftWeights)
	pickDay := newWeighted(dayWeights)

	batch := make([]models.SurveyResponse, 0, BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.responses.InsertResponsesBatch(ctx, batch); err != nil {
			return fmt.Errorf("insert batch at %d: %w", result.Inserted, err)
		}
		result.Inserted += len(batch)
		batch = batch[:0]
		if opts.Progress != nil {
			opts.Progress(result.Inserted, opts.Total)
		}
		return nil
	}

	for range opts.Total {
		profile := profiles[pickCafeteria.pick(rng)]
		shift := shifts[pickShift.pick(rng)]
		day := days[pickDay.pick(rng)]

		ratings := randomRatings(rng, profile.base)
		batch = append(batch, models.SurveyResponse{
			VenueID:      profile.cafeteria.VenueID,
			CafeteriaID:  profile.cafeteria.ID,
			ShiftID:      &shift.ID,
			RegisteredAt: timeInShift(rng, day, shift),
			Ratings:      ratings,
			Comment:      randomComment(rng, ratingMean(ratings)),
		})

		if len(batch) == BatchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := flush(); err != nil {
		return result, err
	}

	s.logger.Info("dataset generated",
		zap.Int("year", opts.Year),
		zap.Int64("seed", opts.Seed),
		zap.Int("inserted", result.Inserted))
	return result, nil
}

// ensureDatasetCatalog upserts the three dataset shifts and the venue x
// cafeteria grid, each cafeteria with one capture point.
func (s *Seeder) ensureDatasetCatalog(ctx context.Context) ([]models.Shift, []models.Cafeteria, error) {
	shifts := make([]models.Shift, 0, len(datasetShifts))
	var defaultShift *int64
	for _, def := range datasetShifts {
		sh, err := s.ensureShift(ctx, def, true)
		if err != nil {
			return nil, nil, err
		}
		if sh.Name == datasetDefaultShift {
			defaultShift = &sh.ID
		}
		shifts = append(shifts, sh)
	}

	var cafeterias []models.Cafeteria
	for _, venueName := range datasetVenues {
		venue, err := s.ensureVenue(ctx, venueName)
		if err != nil {
			return nil, nil, err
		}
		for _, suffix := range cafeteriaSuffixes {
			caf, err := s.ensureCafeteria(ctx, venue, CafeteriaDef{
				Name:     "Comedor " + suffix,
				Location: venueName + " - Zona " + suffix,
			})
			if err != nil {
				return nil, nil, err
			}
			if _, err := s.ensureCapturePoint(ctx, capturePointIdentifier(venueName, caf.Name), caf.ID, defaultShift); err != nil {
				return nil, nil, err
			}
			cafeterias = append(cafeterias, caf)
		}
	}

	demo, err := LoadDemoCatalog()
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.catalog.GetOrCreateSurveyConfig(ctx, demo.SurveyConfig.SurveyConfig()); err != nil {
		return nil, nil, fmt.Errorf("ensure survey config: %w", err)
	}
	return shifts, cafeterias, nil
}

func capturePointIdentifier(venue, cafeteria string) string {
	slug := func(s string) string { return strings.ReplaceAll(strings.ToLower(s), " ", "-") }
	return "tablet-" + slug(venue) + "-" + slug(cafeteria)
}

// yearDays lists every day of the year starting at yearStart, weighted by
// weekday: weekdays 1.0, Saturday 0.55, Sunday 0.4.
func yearDays(yearStart time.Time) ([]time.Time, []float64) {
	end := yearStart.AddDate(1, 0, 0)
	var (
		days    []time.Time
		weights []float64
	)
	for d := yearStart; d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
		switch d.Weekday() {
		case time.Saturday:
			weights = append(weights, 0.55)
		case time.Sunday:
			weights = append(weights, 0.4)
		default:
			weights = append(weights, 1.0)
		}
	}
	return days, weights
}

// timeInShift picks a second uniformly within the shift's [start, end) window
// on day, in day's location.
func timeInShift(rng *rand.Rand, day time.Time, shift models.Shift) time.Time {
	start, end := *shift.Start, *shift.End
	if end <= start {
		end = start + 60
	}
	tod := start + models.TimeOfDay(rng.IntN(int(end-start)))
	return tod.OnDate(day)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func score(v float64) int {
	r := int(math.RoundToEven(v))
	return max(models.RatingMin, min(models.RatingMax, r))
}

func randomRatings(rng *rand.Rand, base float64) models.Ratings {
	var v [5]int
	for i, n := range ratingNoise {
		v[i] = score(base + n.offset + rng.NormFloat64()*n.stddev)
	}
	return models.Ratings{
		OverallSatisfaction: v[0],
		FoodQuality:         v[1],
		MenuVariety:         v[2],
		Cleanliness:         v[3],
		QueueTime:           v[4],
	}
}

func ratingMean(r models.Ratings) float64 {
	return float64(r.OverallSatisfaction+r.FoodQuality+r.MenuVariety+r.Cleanliness+r.QueueTime) / 5
}

// commentProbability grows as the mean score drops.
func commentProbability(mean float64) float64 {
	switch {
	case mean <= 2.4:
		return 0.55
	case mean <= 3.2:
		return 0.42
	case mean >= 4.4:
		return 0.25
	default:
		return 0.3
	}
}

func randomComment(rng *rand.Rand, mean float64) string {
	if rng.Float64() > commentProbability(mean) {
		return ""
	}
	if mean >= 3.6 {
		return positiveComments[rng.IntN(len(positiveComments))]
	}
	return improvementComments[rng.IntN(len(improvementComments))]
}
