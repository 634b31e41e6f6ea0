package stats

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"courtstats/internal/core"
)

// bucket accumulates count and spend for one key.
type bucket struct {
	key   string
	count int
	spend decimal.Decimal
}

func (b bucket) average() decimal.Decimal {
	if b.count == 0 {
		return decimal.Zero
	}
	return core.DivInt(b.spend, b.count)
}

// buckets groups activities by key, preserving first-seen key order.
func buckets(activities []core.Activity, keyOf func(core.Activity) string) []bucket {
	out := make([]bucket, 0)
	index := make(map[string]int)
	for _, a := range activities {
		k := keyOf(a)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, bucket{key: k, spend: decimal.Zero})
		}
		out[i].count++
		out[i].spend = out[i].spend.Add(a.Amount)
	}
	return out
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// Monthly groups by YYYY-MM, ascending.
func Monthly(activities []core.Activity) []core.MonthlyStat {
	bs := buckets(activities, func(a core.Activity) string {
		return a.StartTime.Format("2006-01")
	})
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].key < bs[j].key })

	out := make([]core.MonthlyStat, len(bs))
	for i, b := range bs {
		out[i] = core.MonthlyStat{Month: b.key, Count: b.count, TotalSpend: b.spend, Average: b.average()}
	}
	return out
}

// Quarterly groups by YYYYQn, ascending.
func Quarterly(activities []core.Activity) []core.QuarterlyStat {
	bs := buckets(activities, func(a core.Activity) string {
		return fmt.Sprintf("%dQ%d", a.StartTime.Year(), (int(a.StartTime.Month())-1)/3+1)
	})
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].key < bs[j].key })

	out := make([]core.QuarterlyStat, len(bs))
	for i, b := range bs {
		out[i] = core.QuarterlyStat{Quarter: b.key, Count: b.count, TotalSpend: b.spend, Average: b.average()}
	}
	return out
}

// Venues groups by venue, most frequent first. Ties keep first-seen order.
// Activities without a venue count towards fallback.
func Venues(activities []core.Activity, fallback string) []core.VenueStat {
	bs := buckets(activities, func(a core.Activity) string {
		if a.Venue == "" {
			return fallback
		}
		return a.Venue
	})
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].count > bs[j].count })

	out := make([]core.VenueStat, len(bs))
	for i, b := range bs {
		out[i] = core.VenueStat{
			Venue:      b.key,
			Count:      b.count,
			TotalSpend: b.spend,
			Average:    b.average(),
			Percent:    percent(b.count, len(activities)),
		}
	}
	return out
}

// Weekdays groups by weekday in 周一…周日 order. Days without activities
// are omitted.
func Weekdays(activities []core.Activity) []core.WeekdayStat {
	var counts [7]int
	var spend [7]decimal.Decimal
	for i := range spend {
		spend[i] = decimal.Zero
	}
	for _, a := range activities {
		d := weekdayIndex(a)
		counts[d]++
		spend[d] = spend[d].Add(a.Amount)
	}

	out := make([]core.WeekdayStat, 0, 7)
	for d, label := range core.Weekdays {
		if counts[d] == 0 {
			continue
		}
		b := bucket{key: label, count: counts[d], spend: spend[d]}
		out = append(out, core.WeekdayStat{
			Weekday:    label,
			Count:      b.count,
			TotalSpend: b.spend,
			Average:    b.average(),
			Percent:    percent(b.count, len(activities)),
		})
	}
	return out
}

// weekdayIndex maps Monday to 0 and Sunday to 6.
func weekdayIndex(a core.Activity) int {
	return (int(a.StartTime.Weekday()) + 6) % 7
}
