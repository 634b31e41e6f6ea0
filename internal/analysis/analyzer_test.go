package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtstats/internal/catalog"
	"courtstats/internal/core"
	"courtstats/internal/ingest"
	applog "courtstats/internal/log"
)

var cst = time.FixedZone("CST", 8*3600)

var header = []string{"活动标题", "金额", "支付方式", "出款/入款", "支付状态", "结算状态", "活动开始时间", "支付时间", "发布者"}

func line(title, amount, method, dir, settle, start, organizer string) []string {
	return []string{title, amount, method, dir, "已支付", settle, start, start, organizer}
}

func sampleTable() ingest.Table {
	return ingest.NewTable([][]string{
		header,
		line("【张三·建安羽毛球馆】周末局", "50", "报名支付", "出款(-)", "已完成", "2024-03-09 19:30", "张三"),
		line("【张三·建安羽毛球馆】周末局", "10", "少补支付", "出款(-)", "已完成", "2024-03-09 19:30", "张三"),
		line("海润夜场", "50", "报名支付", "出款(-)", "已完成", "2024-03-11 20:00", "李四"),
		line("海润夜场", "50", "报名支付", "出款(-)", "已完成", "2024-03-11 20:00", "李四"),
		line("海润夜场", "20", "少补支付", "出款(-)", "已完成", "2024-03-11 20:00", "李四"),
		line("海润夜场", "20", "报名支付", "入款(+)", "已完成", "2024-03-11 20:00", "李四"),
		line("公园晨练", "30", "报名支付", "出款(-)", "已退款", "2024-04-01 07:00", "王五"),
		line("坏行", "x", "报名支付", "出款(-)", "已完成", "2024-04-01 07:00", "王五"),
	})
}

func TestAnalyzeTable(t *testing.T) {
	a := New(catalog.Default(), WithLocation(cst))
	r, err := a.AnalyzeTable(context.Background(), sampleTable())
	require.NoError(t, err)

	assert.Equal(t, []string{"第9行: 金额格式无效"}, r.Warnings)

	s := r.Statistics
	assert.Equal(t, 7, s.TotalOrders)
	assert.True(t, s.TotalOutgoing.Equal(decimal.NewFromInt(180)))
	assert.True(t, s.TotalIncoming.Equal(decimal.NewFromInt(20)))
	assert.True(t, s.NetSpent.Equal(decimal.NewFromInt(160)))

	// 周末局 is one slot of 60; 海润夜场 is two slots of 60.
	require.Len(t, r.Activities, 3)
	assert.Equal(t, 3, s.TotalActivities)
	assert.Equal(t, 2, s.EffectiveActivityCount)
	assert.Equal(t, 2, s.GroupBookingCount)
	assert.InDelta(t, 1.5, s.AverageSlotMultiplier, 1e-9)
	assert.InDelta(t, 5.0/3, s.OrderActivityRatio, 1e-9)
	for _, act := range r.Activities {
		assert.True(t, act.Amount.Equal(decimal.NewFromInt(60)), act.ID)
	}
	assert.Equal(t, "建安", r.Activities[0].Venue)
	assert.Equal(t, "润羽", r.Activities[1].Venue)

	require.Len(t, r.Venues, 2)
	assert.Equal(t, "润羽", r.Venues[0].Venue)
	assert.Equal(t, 2, r.Venues[0].Count)

	require.Len(t, r.Weekdays, 2)
	assert.Equal(t, "周一", r.Weekdays[0].Weekday)
	assert.Equal(t, "周六", r.Weekdays[1].Weekday)

	require.Len(t, r.Monthly, 1)
	assert.Equal(t, "2024-03", r.Monthly[0].Month)
	assert.Equal(t, core.HealthNeedsImprovement, r.Health.Level)
	assert.Equal(t, 25, r.Health.Value)
	assert.Nil(t, r.Orders)
}

func TestAnalyzeWithOrders(t *testing.T) {
	a := New(catalog.Default(), WithLocation(cst), WithOrders(true))
	r, err := a.AnalyzeTable(context.Background(), sampleTable())
	require.NoError(t, err)
	assert.Len(t, r.Orders, 7)
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := New(catalog.Default(), WithLocation(cst))
	r1, err := a.AnalyzeTable(context.Background(), sampleTable())
	require.NoError(t, err)
	r2, err := a.AnalyzeTable(context.Background(), sampleTable())
	require.NoError(t, err)

	j1, err := json.Marshal(r1)
	require.NoError(t, err)
	j2, err := json.Marshal(r2)
	require.NoError(t, err)
	assert.JSONEq(t, string(j1), string(j2))
}

func TestAnalyzeErrors(t *testing.T) {
	a := New(catalog.Default(), WithLocation(cst))

	_, err := a.Analyze(context.Background(), nil)
	assert.True(t, errors.Is(err, core.ErrNoOutgoingOrders))
	assert.True(t, IsInputError(err))

	onlyIncoming := ingest.NewTable([][]string{
		header,
		line("退款", "20", "报名支付", "入款(+)", "已完成", "2024-03-11 20:00", "李四"),
	})
	_, err = a.AnalyzeTable(context.Background(), onlyIncoming)
	assert.True(t, errors.Is(err, core.ErrNoOutgoingOrders))

	_, err = a.AnalyzeTable(context.Background(), ingest.NewTable([][]string{header}))
	assert.True(t, errors.Is(err, ingest.ErrEmptyTable))

	_, err = a.AnalyzeTable(context.Background(), ingest.NewTable([][]string{{"活动标题"}, {"x"}}))
	assert.True(t, errors.Is(err, ingest.ErrMissingColumns))
	assert.True(t, IsInputError(err))

	assert.False(t, IsInputError(errors.New("disk on fire")))
}

func TestAnalyzeHealthScenario(t *testing.T) {
	// 130 single-slot activities in a year average 2.5 per week.
	orders := make([]core.OrderRow, 130)
	start := time.Date(2024, 1, 1, 19, 0, 0, 0, cst)
	for i := range orders {
		st := start.Add(time.Duration(i) * 48 * time.Hour)
		orders[i] = core.OrderRow{
			Title: "夜场", Amount: decimal.NewFromInt(40), Method: core.MethodSignup,
			Direction: core.DirectionOutgoing, Settlement: core.SettlementCompleted,
			StartTime: st, PaidAt: st, Organizer: "张三",
		}
	}
	r, err := New(catalog.Default()).Analyze(context.Background(), orders)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, r.Statistics.AvgPerWeek, 1e-12)
	assert.Equal(t, core.HealthGood, r.Statistics.HealthLevel)
	assert.Equal(t, 75, r.Health.Value)
}

func TestIncludingOrders(t *testing.T) {
	a := New(catalog.Default(), WithLocation(cst))
	assert.Same(t, a, a.IncludingOrders(false))

	withRows := a.IncludingOrders(true)
	r, err := withRows.AnalyzeTable(context.Background(), sampleTable())
	require.NoError(t, err)
	assert.Len(t, r.Orders, 7)

	r, err = a.AnalyzeTable(context.Background(), sampleTable())
	require.NoError(t, err)
	assert.Nil(t, r.Orders, "original analyzer is unchanged")
}

func TestAnalyzeTableLogsWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Format: applog.FormatJSON})
	a := New(catalog.Default(), WithLocation(cst), WithLogger(logger))

	_, err := a.AnalyzeTable(context.Background(), sampleTable())
	require.NoError(t, err)

	var completed map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		if rec["msg"] == "Analysis completed" {
			completed = rec
		}
	}
	require.NotNil(t, completed, buf.String())
	assert.Equal(t, float64(1), completed[applog.FieldWarnings])
	assert.Equal(t, float64(7), completed[applog.FieldOrders])
	assert.Equal(t, float64(3), completed[applog.FieldActivities])
}
