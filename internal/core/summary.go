package core

import "github.com/shopspring/decimal"

const (
	HealthExcellent        HealthLevel = "优秀"
	HealthGood             HealthLevel = "良好"
	HealthPass             HealthLevel = "及格"
	HealthNeedsImprovement HealthLevel = "待提高"
)

// Weekdays lists weekday labels in display order, Monday first.
var Weekdays = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

type HealthLevel string

// Statistics is the aggregate summary of one batch of activities.
type Statistics struct {
	TotalOrders            int             `json:"total_orders"`
	TotalOutgoing          decimal.Decimal `json:"total_outgoing"`
	TotalIncoming          decimal.Decimal `json:"total_incoming"`
	NetSpent               decimal.Decimal `json:"net_spent"`
	TotalActivities        int             `json:"total_activities"`
	EffectiveActivityCount int             `json:"effective_activity_count"`
	TotalParticipations    int             `json:"total_participations"`
	GroupBookingCount      int             `json:"group_booking_count"`
	AverageSlotMultiplier  float64         `json:"average_slot_multiplier"`
	OrderActivityRatio     float64         `json:"order_activity_ratio"`
	AveragePerActivity     decimal.Decimal `json:"average_per_activity"`
	MaxAmount              decimal.Decimal `json:"max_amount"`
	MinAmount              decimal.Decimal `json:"min_amount"`
	ActiveDays             int             `json:"active_days"`
	MostActiveMonth        string          `json:"most_active_month"`
	MostActiveMonthCount   int             `json:"most_active_month_count"`
	HighestSpendMonth      string          `json:"highest_spend_month"`
	HighestSpendAmount     decimal.Decimal `json:"highest_spend_amount"`
	AvgPerWeek             float64         `json:"avg_per_week"`
	HealthLevel            HealthLevel     `json:"health_level"`
	HealthComment          string          `json:"health_comment"`
	TotalHours             float64         `json:"total_hours"`
	TotalCalories          float64         `json:"total_calories"`
	FatBurnedKg            float64         `json:"fat_burned_kg"`
}

type (
	MonthlyStat struct {
		Month      string          `json:"month"` // YYYY-MM
		Count      int             `json:"count"`
		TotalSpend decimal.Decimal `json:"total_spend"`
		Average    decimal.Decimal `json:"average"`
	}

	QuarterlyStat struct {
		Quarter    string          `json:"quarter"` // YYYYQn
		Count      int             `json:"count"`
		TotalSpend decimal.Decimal `json:"total_spend"`
		Average    decimal.Decimal `json:"average"`
	}

	VenueStat struct {
		Venue      string          `json:"venue"`
		Count      int             `json:"count"`
		TotalSpend decimal.Decimal `json:"total_spend"`
		Average    decimal.Decimal `json:"average"`
		Percent    float64         `json:"percent"`
	}

	WeekdayStat struct {
		Weekday    string          `json:"weekday"`
		Count      int             `json:"count"`
		TotalSpend decimal.Decimal `json:"total_spend"`
		Average    decimal.Decimal `json:"average"`
		Percent    float64         `json:"percent"`
	}

	// HealthGauge maps the weekly frequency onto a 0-100 dial.
	HealthGauge struct {
		Level     HealthLevel `json:"level"`
		Value     int         `json:"value"`
		Comment   string      `json:"comment"`
		WeeklyAvg float64     `json:"weekly_avg"`
	}
)

// Report is the full result of analysing one export.
type Report struct {
	Statistics Statistics      `json:"statistics"`
	Monthly    []MonthlyStat   `json:"monthly"`
	Quarterly  []QuarterlyStat `json:"quarterly"`
	Venues     []VenueStat     `json:"venues"`
	Weekdays   []WeekdayStat   `json:"weekdays"`
	Health     HealthGauge     `json:"health"`
	Activities []Activity      `json:"activities"`
	Orders     []OrderRow      `json:"orders,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
}
