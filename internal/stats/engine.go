// Package stats aggregates activities into summary statistics and
// breakdowns. Every function here is pure.
package stats

import (
	"fmt"

	"github.com/shopspring/decimal"

	"courtstats/internal/catalog"
	"courtstats/internal/core"
)

// Engine computes statistics using the health ladder and exercise constants
// of a catalog.
type Engine struct {
	health   catalog.Health
	exercise catalog.Exercise
}

func NewEngine(c catalog.Catalog) *Engine {
	return &Engine{health: c.Health, exercise: c.Exercise}
}

// Compute summarises activities. It fails with core.ErrEmptyInput when there
// is nothing to summarise. TotalOrders and OrderActivityRatio are left for
// the caller, which knows the raw batch.
func (e *Engine) Compute(activities []core.Activity, netSpent, totalOutgoing, totalIncoming decimal.Decimal) (core.Statistics, error) {
	n := len(activities)
	if n == 0 {
		return core.Statistics{}, fmt.Errorf("compute statistics: %w", core.ErrEmptyInput)
	}

	bases := make(map[string]struct{}, n)
	days := make(map[string]struct{}, n)
	minAmt, maxAmt := activities[0].Amount, activities[0].Amount
	groupBookings := 0
	for _, a := range activities {
		bases[a.BaseID()] = struct{}{}
		days[a.StartTime.Format("2006-01-02")] = struct{}{}
		if a.Amount.LessThan(minAmt) {
			minAmt = a.Amount
		}
		if a.Amount.GreaterThan(maxAmt) {
			maxAmt = a.Amount
		}
		if a.IsGroupBooking {
			groupBookings++
		}
	}

	s := core.Statistics{
		TotalOutgoing:          totalOutgoing,
		TotalIncoming:          totalIncoming,
		NetSpent:               netSpent,
		TotalActivities:        n,
		EffectiveActivityCount: len(bases),
		TotalParticipations:    n,
		GroupBookingCount:      groupBookings,
		AverageSlotMultiplier:  float64(n) / float64(len(bases)),
		AveragePerActivity:     core.DivInt(netSpent, n),
		MaxAmount:              maxAmt,
		MinAmount:              minAmt,
		ActiveDays:             len(days),
		HighestSpendAmount:     decimal.Zero,
	}

	// Strict comparisons keep the earliest month on ties.
	for _, m := range Monthly(activities) {
		if m.Count > s.MostActiveMonthCount {
			s.MostActiveMonth, s.MostActiveMonthCount = m.Month, m.Count
		}
		if s.HighestSpendMonth == "" || m.TotalSpend.GreaterThan(s.HighestSpendAmount) {
			s.HighestSpendMonth, s.HighestSpendAmount = m.Month, m.TotalSpend
		}
	}

	s.AvgPerWeek = float64(n) / e.health.WeeksPerYear
	level := e.health.LevelFor(s.AvgPerWeek)
	s.HealthLevel, s.HealthComment = level.Level, level.Comment

	s.TotalHours = float64(n) * e.exercise.HoursPerActivity
	s.TotalCalories = s.TotalHours * e.exercise.CaloriesPerHour
	s.FatBurnedKg = s.TotalCalories / e.exercise.CaloriesPerKgFat

	return s, nil
}

// Gauge places a weekly frequency on the health dial.
func (e *Engine) Gauge(avgPerWeek float64) core.HealthGauge {
	l := e.health.LevelFor(avgPerWeek)
	return core.HealthGauge{
		Level:     l.Level,
		Value:     l.Gauge,
		Comment:   l.Comment,
		WeeklyAvg: avgPerWeek,
	}
}
