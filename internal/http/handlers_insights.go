package http

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"expensetracker/internal/chart"
	"expensetracker/internal/insights"
	"expensetracker/internal/services"
)

// insightView loads the view for the requested period. A stale result
// is retried once and then served as is.
func (s *Server) insightView(r *http.Request) (services.InsightView, error) {
	period, err := ParsePeriod(r.URL.Query())
	if err != nil {
		return services.InsightView{}, err
	}
	v, err := s.insights.Insights(r.Context(), userFrom(r), period)
	if errors.Is(err, services.ErrStaleResult) {
		v, err = s.insights.Insights(r.Context(), userFrom(r), period)
	}
	if errors.Is(err, services.ErrStaleResult) {
		return v, nil
	}
	return v, err
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	v, err := s.insightView(r)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewResponse().JSON(toInsightsJSON(v)).Write(w)
}

func (s *Server) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	v, err := s.insightView(r)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderTrend(&buf, v.Data, s.clock()); err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewResponse().Bytes("image/png", buf.Bytes()).Write(w)
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	v, err := s.insightView(r)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderCategories(&buf, v.Data); err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewResponse().Bytes("image/png", buf.Bytes()).Write(w)
}

// handleAxis returns the y-axis ticks for ?max=.
func (s *Server) handleAxis(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("max"))
	top, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(top, 0) || math.IsNaN(top) {
		BadRequestError("max must be a number").Write(w)
		return
	}
	if math.Abs(top) > insights.MaxAxisValue {
		BadRequestError("max is out of range").Write(w)
		return
	}
	NewResponse().JSON(axisJSON{Max: top, Ticks: insights.AxisTicks(top)}).Write(w)
}
