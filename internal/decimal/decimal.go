package decimal

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an arbitrary-precision decimal used for volume and cost sums
type Decimal struct {
	value apd.Decimal
}

func newContext() *apd.Context {
	return apd.BaseContext.WithPrecision(34)
}

func New(s string) (Decimal, error) {
	var d apd.Decimal
	_, _, err := d.SetString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %w", err)
	}
	return Decimal{value: d}, nil
}

// FromFloat converts f using its shortest decimal representation.
// NaN and infinities become zero.
func FromFloat(f float64) Decimal {
	var d apd.Decimal
	if _, err := d.SetFloat64(f); err != nil {
		return Decimal{}
	}
	if d.Form != apd.Finite {
		return Decimal{}
	}
	return Decimal{value: d}
}

func FromInt(i int64) Decimal {
	var d apd.Decimal
	d.SetInt64(i)
	return Decimal{value: d}
}

func (d Decimal) String() string {
	return d.value.String()
}

func (d Decimal) IsZero() bool {
	return d.value.IsZero()
}

func (d Decimal) Cmp(other Decimal) int {
	return d.value.Cmp(&other.value)
}

// Add returns the sum of d and other.
func (d Decimal) Add(other Decimal) Decimal {
	var result apd.Decimal
	newContext().Add(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Sub returns d minus other.
func (d Decimal) Sub(other Decimal) Decimal {
	var result apd.Decimal
	newContext().Sub(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Mul returns the product of d and other.
func (d Decimal) Mul(other Decimal) Decimal {
	var result apd.Decimal
	newContext().Mul(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Div returns the quotient of d divided by other. Division by zero yields zero.
func (d Decimal) Div(other Decimal) Decimal {
	if other.IsZero() {
		return Decimal{}
	}
	var result apd.Decimal
	newContext().Quo(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Round rounds half away from zero to the given number of decimal places.
func (d Decimal) Round(places int32) Decimal {
	var result apd.Decimal
	ctx := newContext()
	ctx.Rounding = apd.RoundHalfUp
	ctx.Quantize(&result, &d.value, -places)
	return Decimal{value: result}
}

// Truncate drops digits beyond the given number of decimal places,
// rounding toward zero.
func (d Decimal) Truncate(places int32) Decimal {
	var result apd.Decimal
	ctx := newContext()
	ctx.Rounding = apd.RoundDown
	ctx.Quantize(&result, &d.value, -places)
	return Decimal{value: result}
}

// Float64 returns the nearest float64
func (d Decimal) Float64() float64 {
	f, err := d.value.Float64()
	if err != nil {
		return 0
	}
	return f
}

// Round2 rounds f half-up to two decimal places
func Round2(f float64) float64 {
	return FromFloat(f).Round(2).Float64()
}
