package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"45.50", "45.5", true},
		{"0", "0", true},
		{" 2.50 ", "2.5", true},
		{"¥12", "12", true},
		{"￥1,234.56", "1234.56", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"¥", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDivInt(t *testing.T) {
	got := DivInt(decimal.NewFromInt(100), 3)
	back := got.Mul(decimal.NewFromInt(3))
	if back.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(decimal.New(1, -10)) {
		t.Fatalf("100/3*3 drifted: %s", back)
	}
	if !DivInt(decimal.NewFromInt(120), 2).Equal(decimal.NewFromInt(60)) {
		t.Fatalf("120/2 != 60")
	}
}

func TestFormatYuan(t *testing.T) {
	cases := map[string]string{
		"12.3": "¥12.30",
		"0":    "¥0.00",
		"-4":   "-¥4.00",
	}
	for in, want := range cases {
		if got := FormatYuan(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatYuan(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestSumAmounts(t *testing.T) {
	rows := []OrderRow{
		{Amount: decimal.RequireFromString("10.10")},
		{Amount: decimal.RequireFromString("0.20")},
	}
	if got := SumAmounts(rows); !got.Equal(decimal.RequireFromString("10.30")) {
		t.Fatalf("sum = %s", got)
	}
	if got := SumAmounts(nil); !got.IsZero() {
		t.Fatalf("empty sum = %s", got)
	}
}
