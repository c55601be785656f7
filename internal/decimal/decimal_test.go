package decimal_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsanders-rh/lactl/internal/decimal"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{2.675, 2.68},
		{0.125, 0.13},
		{0.124, 0.12},
		{-1.005, -1.01},
		{3600, 3600},
		{0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, decimal.Round2(tt.in), "Round2(%v)", tt.in)
	}
}

func TestDecimal_Arithmetic(t *testing.T) {
	a, err := decimal.New("0.1")
	require.NoError(t, err)
	b, err := decimal.New("0.2")
	require.NoError(t, err)

	assert.Equal(t, "0.3", a.Add(b).String())
	assert.Equal(t, 0, a.Add(b).Cmp(decimal.FromFloat(0.3)))
	assert.Equal(t, "500", decimal.FromInt(1500).Div(decimal.FromInt(3)).String())
	assert.True(t, decimal.FromInt(1).Div(decimal.FromInt(0)).IsZero())

	_, err = decimal.New("not-a-number")
	assert.Error(t, err)
}

func TestFromFloat_NonFinite(t *testing.T) {
	assert.True(t, decimal.FromFloat(math.NaN()).IsZero())
	assert.True(t, decimal.FromFloat(math.Inf(1)).IsZero())
}

func TestDecimal_Truncate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0.005", "0.00"},
		{"1.759", "1.75"},
		{"2", "2.00"},
		{"-1.019", "-1.01"},
	}

	for _, tt := range tests {
		d, err := decimal.New(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Truncate(2).String(), "Truncate(%s)", tt.in)
	}
}
