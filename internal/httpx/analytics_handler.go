package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/analytics"
	"github.com/go-chi/chi/v5"
)

const maxSeriesDays = 90

type AnalyticsReader interface {
	Daily(ctx context.Context, day time.Time) (analytics.DailySummary, error)
	Series(ctx context.Context, end time.Time, days int) ([]analytics.DayPoint, error)
}

type AnalyticsHandler struct {
	Analytics AnalyticsReader
	Loc       *time.Location
	Now       func() time.Time
	Log       *slog.Logger
}

func (h *AnalyticsHandler) Register(r *chi.Mux) {
	r.Get("/analytics/daily", h.daily)
	r.Get("/analytics/series", h.series)
}

func (h *AnalyticsHandler) today() time.Time {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	if h.Loc != nil {
		now = now.In(h.Loc)
	}
	return now
}

// day reads ?date=YYYY-MM-DD in the shop's zone, defaulting to today.
func (h *AnalyticsHandler) day(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("date")
	if s == "" {
		return h.today(), nil
	}
	loc := h.Loc
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, invalid("date must be YYYY-MM-DD")
	}
	return d, nil
}

func (h *AnalyticsHandler) daily(w http.ResponseWriter, r *http.Request) {
	day, err := h.day(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.Analytics.Daily(ctx, day)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *AnalyticsHandler) series(w http.ResponseWriter, r *http.Request) {
	days := 7
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxSeriesDays {
			writeError(w, r, h.Log, invalid("days must be between 1 and %d", maxSeriesDays))
			return
		}
		days = n
	}
	end, err := h.day(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pts, err := h.Analytics.Series(ctx, end, days)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, pts)
}
