package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Ref   string `json:"source_ref" validate:"required,source_ref"`
	Count int    `json:"count" validate:"gte=1"`
}

func TestStruct(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(sample{Ref: "orders-2024", Count: 1}))

	err := v.Struct(sample{Ref: "../etc/passwd", Count: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_ref must be a plain workbook name")
	assert.Contains(t, err.Error(), "count must be greater than or equal to 1")

	err = v.Struct(sample{Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_ref is required")
}

func TestValidSourceRef(t *testing.T) {
	tests := map[string]bool{
		"订单导出":        true,
		"orders 2024": true,
		"a/b":         false,
		"..":          false,
		"a..b":        false,
		"":            false,
		`a\b`:         false,
	}
	for ref, want := range tests {
		assert.Equal(t, want, ValidSourceRef(ref), ref)
	}
}

func TestGetIsShared(t *testing.T) {
	assert.Same(t, Get(), Get())
}
