package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/repository/models"
)

// Query parameter names of the report filter.
const (
	ParamStartDate = "fecha_inicio"
	ParamEndDate   = "fecha_fin"
	ParamVenue     = "sede"
	ParamCafeteria = "comedor"
	ParamShift     = "turno"

	// NoShiftValue selects responses recorded without a shift.
	NoShiftValue = "sin_turno"

	dateLayout   = "2006-01-02"
	exportLayout = "2006-01-02 15:04:05"

	exportTimeout = 60 * time.Second
)

// ExportHeader is the first row of the CSV export.
var ExportHeader = []string{
	"fecha_hora_registro", "sede", "comedor", "turno",
	FieldOverallSatisfaction, FieldFoodQuality, FieldMenuVariety, FieldCleanliness, FieldQueueTime,
	FieldComment,
}

// ReportFilter is the staff-facing filter. Dates are calendar days in the
// report time zone and both ends are inclusive.
type ReportFilter struct {
	VenueID     *int64
	CafeteriaID *int64
	Shift       models.ShiftSelector
	StartDate   *time.Time
	EndDate     *time.Time
}

// ParseReportFilter reads the filter from query values. Values that do not
// parse are treated as absent.
func ParseReportFilter(values url.Values, loc *time.Location) ReportFilter {
	var f ReportFilter
	f.VenueID = parseID(values.Get(ParamVenue))
	f.CafeteriaID = parseID(values.Get(ParamCafeteria))
	f.StartDate = parseDate(values.Get(ParamStartDate), loc)
	f.EndDate = parseDate(values.Get(ParamEndDate), loc)

	switch v := strings.TrimSpace(values.Get(ParamShift)); v {
	case "":
	case NoShiftValue:
		f.Shift = models.ShiftSelector{Kind: models.NoShift}
	default:
		if id := parseID(v); id != nil {
			f.Shift = models.ShiftSelector{Kind: models.SpecificShift, ShiftID: *id}
		}
	}
	return f
}

func parseID(v string) *int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func parseDate(v string, loc *time.Location) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		return nil
	}
	return &d
}

// ResponseFilter converts calendar days into the half-open instant range
// [start 00:00, day after end 00:00) in loc.
func (f ReportFilter) ResponseFilter(loc *time.Location) models.ResponseFilter {
	out := models.ResponseFilter{
		VenueID:     f.VenueID,
		CafeteriaID: f.CafeteriaID,
		Shift:       f.Shift,
	}
	if f.StartDate != nil {
		y, m, d := f.StartDate.Date()
		from := time.Date(y, m, d, 0, 0, 0, 0, loc)
		out.From = &from
	}
	if f.EndDate != nil {
		y, m, d := f.EndDate.Date()
		to := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		out.To = &to
	}
	return out
}

// Values renders the filter back into query parameters.
func (f ReportFilter) Values() url.Values {
	v := url.Values{}
	if f.StartDate != nil {
		v.Set(ParamStartDate, f.StartDate.Format(dateLayout))
	}
	if f.EndDate != nil {
		v.Set(ParamEndDate, f.EndDate.Format(dateLayout))
	}
	if f.VenueID != nil {
		v.Set(ParamVenue, strconv.FormatInt(*f.VenueID, 10))
	}
	if f.CafeteriaID != nil {
		v.Set(ParamCafeteria, strconv.FormatInt(*f.CafeteriaID, 10))
	}
	switch f.Shift.Kind {
	case models.NoShift:
		v.Set(ParamShift, NoShiftValue)
	case models.SpecificShift:
		v.Set(ParamShift, strconv.FormatInt(f.Shift.ShiftID, 10))
	}
	return v
}

// Portal is one consistent read of every report view for a filter.
type Portal struct {
	Filter   ReportFilter
	Total    int64
	Averages models.RatingAverages
	Ranking  []models.CafeteriaRanking
	Comments []models.ResponseRow

	Venues     []models.Venue
	Cafeterias []models.Cafeteria
	Shifts     []models.Shift
}

// ReportingService computes the staff reports. All views derive from the
// same models.ResponseFilter.
type ReportingService struct {
	responses ResponseRepository
	catalog   CatalogLister
	loc       *time.Location
	logger    *zap.Logger
}

func NewReportingService(responses ResponseRepository, catalog CatalogLister, loc *time.Location, logger *zap.Logger) *ReportingService {
	if responses == nil || catalog == nil {
		panic("reporting dependencies must not be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{responses: responses, catalog: catalog, loc: loc, logger: logger}
}

func (s *ReportingService) Location() *time.Location {
	return s.loc
}

func (s *ReportingService) ParseFilter(values url.Values) ReportFilter {
	return ParseReportFilter(values, s.loc)
}

// Portal loads the active option lists, then runs count, averages, ranking
// and comments inside one snapshot.
func (s *ReportingService) Portal(ctx context.Context, f ReportFilter) (Portal, error) {
	out := Portal{Filter: f}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var err error
	if out.Venues, err = s.catalog.ListVenues(dbCtx, true); err != nil {
		return Portal{}, storageFailure(err)
	}
	if out.Cafeterias, err = s.catalog.ListCafeterias(dbCtx, true); err != nil {
		return Portal{}, storageFailure(err)
	}
	if out.Shifts, err = s.catalog.ListShifts(dbCtx, true); err != nil {
		return Portal{}, storageFailure(err)
	}

	rf := f.ResponseFilter(s.loc)
	err = s.responses.Snapshot(dbCtx, func(r repository.ResponseReader) error {
		var err error
		if out.Total, err = r.Count(dbCtx, rf); err != nil {
			return err
		}
		if out.Averages, err = r.Averages(dbCtx, rf); err != nil {
			return err
		}
		if out.Ranking, err = r.RankingByCafeteria(dbCtx, rf); err != nil {
			return err
		}
		out.Comments, err = r.CommentedResponses(dbCtx, rf)
		return err
	})
	if err != nil {
		s.logger.Error("failed to build report portal", zap.Error(err))
		return Portal{}, storageFailure(err)
	}

	s.logger.Debug("report portal built",
		zap.Int64("total", out.Total),
		zap.Int("ranking_rows", len(out.Ranking)),
		zap.Int("comments", len(out.Comments)))
	return out, nil
}

// Summary returns the response count and the rating averages.
func (s *ReportingService) Summary(ctx context.Context, f ReportFilter) (int64, models.RatingAverages, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rf := f.ResponseFilter(s.loc)
	var (
		total int64
		avg   models.RatingAverages
	)
	err := s.responses.Snapshot(dbCtx, func(r repository.ResponseReader) error {
		var err error
		if total, err = r.Count(dbCtx, rf); err != nil {
			return err
		}
		avg, err = r.Averages(dbCtx, rf)
		return err
	})
	if err != nil {
		return 0, models.RatingAverages{}, storageFailure(err)
	}
	return total, avg, nil
}

func (s *ReportingService) Ranking(ctx context.Context, f ReportFilter) ([]models.CafeteriaRanking, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.responses.RankingByCafeteria(dbCtx, f.ResponseFilter(s.loc))
	if err != nil {
		return nil, storageFailure(err)
	}
	return rows, nil
}

func (s *ReportingService) Comments(ctx context.Context, f ReportFilter) ([]models.ResponseRow, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.responses.CommentedResponses(dbCtx, f.ResponseFilter(s.loc))
	if err != nil {
		return nil, storageFailure(err)
	}
	return rows, nil
}

// Export streams every matching response, newest first, as CSV records in
// ExportHeader order. Errors returned by fn stop the export and are passed
// through unchanged.
func (s *ReportingService) Export(ctx context.Context, f ReportFilter, fn func(record []string) error) error {
	dbCtx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	var fnErr error
	err := s.responses.StreamResponses(dbCtx, f.ResponseFilter(s.loc), false, func(row models.ResponseRow) error {
		if err := fn(s.ExportRecord(row)); err != nil {
			fnErr = err
			return err
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return storageFailure(err)
	}
	return nil
}

// ExportRecord formats one row; the timestamp is shown in local time.
func (s *ReportingService) ExportRecord(row models.ResponseRow) []string {
	return []string{
		row.RegisteredAt.In(s.loc).Format(exportLayout),
		row.VenueName,
		row.CafeteriaName,
		row.ShiftName,
		strconv.Itoa(row.OverallSatisfaction),
		strconv.Itoa(row.FoodQuality),
		strconv.Itoa(row.MenuVariety),
		strconv.Itoa(row.Cleanliness),
		strconv.Itoa(row.QueueTime),
		row.Comment,
	}
}

// FormatAverage renders an average with two decimals, or "Sin datos".
func FormatAverage(v *float64) string {
	if v == nil {
		return "Sin datos"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
