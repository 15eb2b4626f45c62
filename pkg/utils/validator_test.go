package utils

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	SubCategory string          `json:"sub_category" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Discount    decimal.Decimal `json:"discount,omitempty" validate:"gte=0"`
}

func TestNewValidator_DecimalsAndJSONNames(t *testing.T) {
	v := NewValidator()

	err := v.Struct(sample{Amount: decimal.Zero, Discount: decimal.NewFromInt(-5)})

	violations, ok := Violations(err)
	require.True(t, ok)
	byField := make(map[string]string)
	for _, fv := range violations {
		byField[fv.Field] = fv.Tag
	}
	assert.Equal(t, map[string]string{"sub_category": "required", "amount": "gt", "discount": "gte"}, byField)

	assert.NoError(t, v.Struct(sample{SubCategory: "Tolls", Amount: decimal.RequireFromString("0.01")}))
}

func TestViolations_OtherError(t *testing.T) {
	_, ok := Violations(errors.New("plain"))
	assert.False(t, ok)
}

func TestHumanizeField(t *testing.T) {
	assert.Equal(t, "Sub category", HumanizeField("sub_category"))
	assert.Equal(t, "", HumanizeField(""))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "receipt.pdf", SanitizeString("rec\x00eipt\n.pdf"))
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"ABC123-XYZ", "ABC123-XYZ"},
		{"../../../etc/passwd", "etcpasswd"},
		{"test<>:\"|?*file", "testfile"},
		{"fleet_21H", "fleet_21H"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeName(tt.input), tt.input)
	}
}
