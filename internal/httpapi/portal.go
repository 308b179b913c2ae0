package httpapi

import (
	"context"
	"encoding/csv"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
)

const exportFilename = "reporte_encuestas.csv"

type portalPage struct {
	Portal    service.Portal
	NoShift   bool
	ShiftID   *int64
	ExportURL template.URL
}

func (h *Handler) portalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := h.reporter.ParseFilter(r.URL.Query())

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		portal, err := h.reporter.Portal(ctx, f)
		if err != nil {
			h.pageError(w, r, err)
			return
		}

		page := portalPage{
			Portal:  portal,
			NoShift: f.Shift.Kind == models.NoShift,
		}
		if f.Shift.Kind == models.SpecificShift {
			id := f.Shift.ShiftID
			page.ShiftID = &id
		}

		// The export link carries the same filter.
		export := "/portal/exportar.csv"
		if q := r.URL.Query().Encode(); q != "" {
			export += "?" + q
		}
		page.ExportURL = template.URL(export)

		h.render(w, r, http.StatusOK, "portal.html", page)
	}
}

func (h *Handler) exportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := h.reporter.ParseFilter(r.URL.Query())

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)

		cw := csv.NewWriter(w)
		if err := cw.Write(service.ExportHeader); err != nil {
			h.logger.Warn("csv export aborted", zap.Error(err))
			return
		}

		rows := 0
		err := h.reporter.Export(r.Context(), f, func(record []string) error {
			rows++
			return cw.Write(record)
		})
		cw.Flush()
		if err == nil {
			err = cw.Error()
		}
		if err != nil {
			// Headers are already sent; the truncated body is all we can do.
			h.logger.Error("csv export failed", zap.Int("rows", rows), zap.Error(err))
			return
		}
		h.logger.Info("csv export completed", zap.Int("rows", rows))
	}
}
