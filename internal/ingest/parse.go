package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"courtstats/internal/core"
)

// Export column headers.
const (
	ColTitle         = "活动标题"
	ColAmount        = "金额"
	ColMethod        = "支付方式"
	ColDirection     = "出款/入款"
	ColPaymentStatus = "支付状态"
	ColSettlement    = "结算状态"
	ColStartTime     = "活动开始时间"
	ColOrganizer     = "发布者"
	ColPaidAt        = "支付时间"
	ColOrderNo       = "订单编号"
	ColRegistrant    = "报名者"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	ColTitle, ColAmount, ColMethod, ColDirection, ColPaymentStatus,
	ColSettlement, ColStartTime, ColOrganizer, ColPaidAt,
}

var (
	ErrEmptyTable     = errors.New("Excel文件为空")
	ErrMissingColumns = errors.New("缺少必需列")
)

// MissingColumnsError lists required headers absent from a table.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "缺少必需列: " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// ParseResult holds accepted orders and a warning per rejected row.
type ParseResult struct {
	Orders   []core.OrderRow `json:"orders"`
	Warnings []string        `json:"warnings,omitempty"`
}

// ParseOrders converts a table into order rows. Table-level problems abort
// with an error; row-level problems skip the row and add a warning of the
// form "第<row>行: <reason>".
func ParseOrders(t Table, loc *time.Location) (ParseResult, error) {
	rows := make([][]string, 0, len(t.Rows))
	numbers := make([]int, 0, len(t.Rows))
	for i, r := range t.Rows {
		if blank(r) {
			continue
		}
		rows = append(rows, r)
		numbers = append(numbers, t.rowNumber(i))
	}
	if len(rows) == 0 {
		return ParseResult{}, ErrEmptyTable
	}

	cols := make(map[string]int, len(RequiredColumns)+2)
	var missing []string
	for _, name := range RequiredColumns {
		idx := t.Column(name)
		if idx < 0 {
			missing = append(missing, name)
		}
		cols[name] = idx
	}
	if len(missing) > 0 {
		return ParseResult{}, &MissingColumnsError{Columns: missing}
	}
	cols[ColOrderNo] = t.Column(ColOrderNo)
	cols[ColRegistrant] = t.Column(ColRegistrant)

	res := ParseResult{Orders: make([]core.OrderRow, 0, len(rows))}
	for i, r := range rows {
		o, reason := parseRow(r, cols, loc)
		if reason != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("第%d行: %s", numbers[i], reason))
			continue
		}
		o.SourceRow = numbers[i]
		res.Orders = append(res.Orders, o)
	}
	return res, nil
}

// parseRow returns the order or a non-empty rejection reason.
func parseRow(r []string, cols map[string]int, loc *time.Location) (core.OrderRow, string) {
	amount, err := core.ParseAmount(cell(r, cols[ColAmount]))
	if err != nil {
		return core.OrderRow{}, "金额格式无效"
	}

	start, errStart := ParseTime(cell(r, cols[ColStartTime]), loc)
	paid, errPaid := ParseTime(cell(r, cols[ColPaidAt]), loc)
	if errStart != nil || errPaid != nil {
		return core.OrderRow{}, "日期格式无效"
	}

	dir := core.Direction(cell(r, cols[ColDirection]))
	if !dir.IsValid() {
		return core.OrderRow{}, "出款/入款字段值无效: " + string(dir)
	}

	o := core.OrderRow{
		OrderNo:       cell(r, cols[ColOrderNo]),
		Title:         cell(r, cols[ColTitle]),
		Amount:        amount,
		Method:        core.PaymentMethod(cell(r, cols[ColMethod])),
		Direction:     dir,
		Settlement:    core.SettlementStatus(cell(r, cols[ColSettlement])),
		PaymentStatus: cell(r, cols[ColPaymentStatus]),
		StartTime:     start,
		PaidAt:        paid,
		Organizer:     cell(r, cols[ColOrganizer]),
		Registrant:    cell(r, cols[ColRegistrant]),
	}
	if o.Title == "" || o.Organizer == "" {
		return core.OrderRow{}, "缺少活动标题或发布者"
	}
	if err := o.Validate(); err != nil {
		return core.OrderRow{}, err.Error()
	}
	return o, ""
}
