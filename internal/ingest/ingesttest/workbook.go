// Package ingesttest builds order workbooks for tests.
package ingesttest

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// Header is the column row of a full order export.
var Header = []any{"订单编号", "活动标题", "金额", "支付方式", "出款/入款", "支付状态", "结算状态", "活动开始时间", "支付时间", "发布者"}

// SampleRows is a small export: one group booking at 润羽 (two signups and a
// supplement), one solo session at 建安, one refund and one cancelled order.
func SampleRows() [][]any {
	return [][]any{
		{"A1", "【张三·建安羽毛球馆】周末局", 50, "报名支付", "出款(-)", "已支付", "已完成", "2024-03-09 19:30", "2024-03-08 09:00", "张三"},
		{"A2", "海润夜场", 50, "报名支付", "出款(-)", "已支付", "已完成", "2024-03-11 20:00", "2024-03-10 09:00", "李四"},
		{"A3", "海润夜场", 50, "报名支付", "出款(-)", "已支付", "已完成", "2024-03-11 20:00", "2024-03-10 09:05", "李四"},
		{"A4", "海润夜场", 20, "少补支付", "出款(-)", "已支付", "已完成", "2024-03-11 20:00", "2024-03-11 22:00", "李四"},
		{"A5", "海润夜场", 20, "报名支付", "入款(+)", "已支付", "已完成", "2024-03-11 20:00", "2024-03-12 10:00", "李四"},
		{"A6", "公园晨练", 30, "报名支付", "出款(-)", "已支付", "已退款", "2024-04-01 07:00", "2024-03-30 10:00", "王五"},
	}
}

// Workbook renders header plus rows as an xlsx file.
func Workbook(t testing.TB, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	all := append([][]any{Header}, rows...)
	for i, r := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
