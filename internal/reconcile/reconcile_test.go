package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtstats/internal/catalog"
	"courtstats/internal/core"
	"courtstats/internal/venue"
)

var base = time.Date(2024, 3, 9, 19, 30, 0, 0, time.UTC)

func order(title string, start time.Time, amount string, method core.PaymentMethod) core.OrderRow {
	return core.OrderRow{
		Title:      title,
		Amount:     decimal.RequireFromString(amount),
		Method:     method,
		Direction:  core.DirectionOutgoing,
		Settlement: core.SettlementCompleted,
		StartTime:  start,
		PaidAt:     start.Add(-24 * time.Hour),
		Organizer:  "张三",
	}
}

func newMerger() *Merger {
	return NewMerger(venue.NewClassifier(catalog.Default()), nil)
}

func TestFilter(t *testing.T) {
	refund := order("周末局", base, "30", core.MethodSignup)
	refund.Settlement = core.SettlementRefunded
	income := order("周末局", base, "12.5", core.MethodSignup)
	income.Direction = core.DirectionIncoming

	rows := []core.OrderRow{
		order("周末局", base, "50", core.MethodSignup),
		refund,
		income,
		order("夜场", base.Add(time.Hour), "20", core.MethodSupplement),
	}

	res := Filter(rows)
	assert.Len(t, res.Completed, 3)
	assert.Len(t, res.Outgoing, 2)
	assert.Len(t, res.Incoming, 1)
	assert.True(t, res.TotalOutgoing.Equal(decimal.NewFromInt(70)))
	assert.True(t, res.TotalIncoming.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, res.NetSpent.Equal(decimal.RequireFromString("57.5")))

	res.Outgoing[0].Title = "changed"
	assert.Equal(t, "周末局", rows[0].Title, "filter output must not alias input")
}

func TestFilterEmpty(t *testing.T) {
	res := Filter(nil)
	assert.Empty(t, res.Completed)
	assert.Empty(t, res.Outgoing)
	assert.Empty(t, res.Incoming)
	assert.True(t, res.NetSpent.IsZero())
}

func TestMergeSignupPlusSupplement(t *testing.T) {
	acts := newMerger().Merge(context.Background(), []core.OrderRow{
		order("【张三·建安羽毛球馆】周末局", base, "50", core.MethodSignup),
		order("【张三·建安羽毛球馆】周末局", base, "10", core.MethodSupplement),
	})

	require.Len(t, acts, 1)
	a := acts[0]
	assert.True(t, a.Amount.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, 1, a.TotalSlotsInGroup)
	assert.False(t, a.IsGroupBooking)
	assert.Equal(t, 2, a.SourceRowCount)
	assert.True(t, a.IncludesSignupPayment)
	assert.True(t, a.IncludesSupplementPayment)
	assert.Equal(t, []string{"报名支付", "少补支付"}, a.PaymentMethods)
	assert.Equal(t, "建安", a.Venue)
	assert.Equal(t, "【张三·建安羽毛球馆】周末局_202403091930_张三_slot1", a.ID)
}

func TestMergeGroupBooking(t *testing.T) {
	acts := newMerger().Merge(context.Background(), []core.OrderRow{
		order("周末局", base, "50", core.MethodSignup),
		order("周末局", base, "50", core.MethodSignup),
		order("周末局", base, "10", core.MethodSupplement),
		order("周末局", base, "10", core.MethodSupplement),
	})

	require.Len(t, acts, 2)
	for i, a := range acts {
		assert.True(t, a.Amount.Equal(decimal.NewFromInt(60)))
		assert.Equal(t, 2, a.TotalSlotsInGroup)
		assert.True(t, a.IsGroupBooking)
		assert.Equal(t, fmt.Sprintf("周末局_202403091930_张三_slot%d", i+1), a.ID)
		assert.Equal(t, "周末局_202403091930_张三", a.BaseID())
	}
}

func TestMergeSupplementOnly(t *testing.T) {
	acts := newMerger().Merge(context.Background(), []core.OrderRow{
		order("加场", base, "15", core.MethodSupplement),
		order("加场", base, "15", core.MethodSupplement),
		order("加场", base, "15", core.MethodSupplement),
	})
	require.Len(t, acts, 3)
	assert.True(t, acts[0].Amount.Equal(decimal.NewFromInt(15)))
}

func TestMergeUnknownMethodStillOneSlot(t *testing.T) {
	acts := newMerger().Merge(context.Background(), []core.OrderRow{
		order("其他", base, "8", core.PaymentMethod("转账")),
	})
	require.Len(t, acts, 1)
	assert.Equal(t, 1, acts[0].TotalSlotsInGroup)
	assert.Equal(t, "其他活动", acts[0].Venue)
}

func TestMergeEarliestPaymentAndOrdering(t *testing.T) {
	late := order("夜场", base.Add(48*time.Hour), "20", core.MethodSignup)
	early := order("晨练", base, "20", core.MethodSignup)
	early2 := early
	early2.PaidAt = early.PaidAt.Add(-time.Hour)
	early2.Method = core.MethodSupplement

	acts := newMerger().Merge(context.Background(), []core.OrderRow{late, early, early2})
	require.Len(t, acts, 2)
	assert.Equal(t, "晨练", acts[0].Title)
	assert.Equal(t, "夜场", acts[1].Title)
	assert.True(t, acts[0].EarliestPaymentTime.Equal(early2.PaidAt))
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, newMerger().Merge(context.Background(), nil))
}

// randomOrders generates a reproducible batch of orders that collide on
// group keys often enough to exercise multi-slot groups.
func randomOrders(seed uint64, n int) []core.OrderRow {
	f := gofakeit.New(seed)
	titles := []string{"【张三·建安】周末局", "海润夜场", "RUN+ 夜跑", "公园晨练"}
	organizers := []string{"张三", "李四"}
	rows := make([]core.OrderRow, n)
	for i := range rows {
		start := base.Add(time.Duration(f.IntRange(0, 30)) * 24 * time.Hour)
		method := core.MethodSignup
		if f.Bool() {
			method = core.MethodSupplement
		}
		dir := core.DirectionOutgoing
		if f.IntRange(0, 9) == 0 {
			dir = core.DirectionIncoming
		}
		settle := core.SettlementCompleted
		if f.IntRange(0, 9) == 0 {
			settle = core.SettlementRefunded
		}
		rows[i] = core.OrderRow{
			Title:      titles[f.IntRange(0, len(titles)-1)],
			Amount:     decimal.NewFromFloat(f.Float64Range(0, 200)).Round(2),
			Method:     method,
			Direction:  dir,
			Settlement: settle,
			StartTime:  start,
			PaidAt:     start.Add(-time.Duration(f.IntRange(1, 72)) * time.Hour),
			Organizer:  organizers[f.IntRange(0, 1)],
		}
	}
	return rows
}

func TestFilterPartitionCompleteness(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		rows := randomOrders(seed, 120)
		res := Filter(rows)

		assert.Equal(t, len(res.Completed), len(res.Outgoing)+len(res.Incoming))
		assert.True(t, res.NetSpent.Equal(res.TotalOutgoing.Sub(res.TotalIncoming)))
	}
}

func TestMergeSlotConservationAndBounds(t *testing.T) {
	tolerance := decimal.New(1, -8)
	for seed := uint64(1); seed <= 20; seed++ {
		outgoing := Filter(randomOrders(seed, 150)).Outgoing
		acts := newMerger().Merge(context.Background(), outgoing)

		groupTotals := map[string]decimal.Decimal{}
		groupRows := map[string]int{}
		for _, r := range outgoing {
			k := r.GroupKey()
			groupTotals[k] = groupTotals[k].Add(r.Amount)
			groupRows[k]++
		}

		slotSums := map[string]decimal.Decimal{}
		slotCounts := map[string]int{}
		for _, a := range acts {
			slotSums[a.BaseID()] = slotSums[a.BaseID()].Add(a.Amount)
			slotCounts[a.BaseID()]++
			assert.GreaterOrEqual(t, a.TotalSlotsInGroup, 1)
			assert.Equal(t, a.TotalSlotsInGroup > 1, a.IsGroupBooking)
		}

		require.Len(t, slotSums, len(groupTotals))
		for k, total := range groupTotals {
			diff := slotSums[k].Sub(total).Abs()
			assert.True(t, diff.LessThanOrEqual(tolerance), "group %s: slots %s vs total %s", k, slotSums[k], total)
			assert.LessOrEqual(t, slotCounts[k], groupRows[k])
			assert.GreaterOrEqual(t, slotCounts[k], 1)
		}

		for i := 1; i < len(acts); i++ {
			assert.False(t, acts[i].StartTime.Before(acts[i-1].StartTime), "activities must be sorted")
		}
	}
}
