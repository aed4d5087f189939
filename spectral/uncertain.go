package spectral

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UncertainValue is a scalar with a symmetric 1-sigma uncertainty. SigFigs
// records how many significant figures the value/sigma pair should be
// rendered with, following the convention "1234(12)".
type UncertainValue struct {
	Value   float64
	Sigma   float64
	SigFigs uint16
}

// NewUncertainValue builds a value with sigma and derives SigFigs from the
// orders of magnitude of value and sigma (mirrors UncertainDouble::from_double).
func NewUncertainValue(value, sigma float64) UncertainValue {
	u := UncertainValue{Value: value, Sigma: math.Abs(sigma)}
	u.autoSigFigs(0)
	return u
}

// UncertainFromInt builds an exact integer-valued quantity (e.g. a raw
// channel count) with Poisson-style sigma supplied by the caller.
func UncertainFromInt(value int64, sigma float64) UncertainValue {
	return UncertainValue{Value: float64(value), Sigma: math.Abs(sigma), SigFigs: uint16(orderOf(float64(value)))}
}

func orderOf(v float64) int16 {
	if v == 0 || !isFiniteFloat(v) {
		return 0
	}
	return int16(math.Floor(math.Log10(math.Abs(v))))
}

func isFiniteFloat(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (u *UncertainValue) autoSigFigs(sigsBelow uint16) {
	order1 := orderOf(u.Value)
	order2 := orderOf(u.Sigma)
	upper := order1
	if order2 > upper {
		upper = order2
	}
	lower := order1
	if order2 < lower {
		lower = order2
	}
	if !isFiniteFloat(u.Sigma) {
		upper = order1
		lower = 0
	}
	figs := int(upper-lower) + int(sigsBelow) + 1
	if figs < 1 {
		figs = 1
	}
	if u.exponent() != 0 && figs > 4 {
		figs = 4
	}
	u.SigFigs = uint16(figs)
}

// exponent returns the power-of-ten used for scientific-notation rendering,
// 0 when the magnitude is in the conventional display range.
func (u UncertainValue) exponent() int {
	order1 := int(orderOf(u.Value))
	order2 := int(orderOf(u.Sigma))
	target := order1
	if order2 > target {
		target = order2
	}
	if target > 5 || target < -3 {
		return target
	}
	return 0
}

// Finite reports whether Value is a finite number.
func (u UncertainValue) Finite() bool {
	return isFiniteFloat(u.Value)
}

// Add propagates sigma in quadrature for a sum.
func (u UncertainValue) Add(o UncertainValue) UncertainValue {
	return NewUncertainValue(u.Value+o.Value, math.Hypot(u.Sigma, o.Sigma))
}

// Sub propagates sigma in quadrature for a difference.
func (u UncertainValue) Sub(o UncertainValue) UncertainValue {
	return NewUncertainValue(u.Value-o.Value, math.Hypot(u.Sigma, o.Sigma))
}

// Mul propagates relative sigma in quadrature for a product.
func (u UncertainValue) Mul(o UncertainValue) UncertainValue {
	value := u.Value * o.Value
	if u.Value == 0 || o.Value == 0 {
		return NewUncertainValue(value, 0)
	}
	relU := u.Sigma / u.Value
	relO := o.Sigma / o.Value
	return NewUncertainValue(value, math.Abs(value)*math.Hypot(relU, relO))
}

// Div propagates relative sigma in quadrature for a ratio.
func (u UncertainValue) Div(o UncertainValue) UncertainValue {
	if o.Value == 0 {
		return UncertainValue{Value: math.NaN(), Sigma: math.NaN()}
	}
	value := u.Value / o.Value
	relU := 0.0
	if u.Value != 0 {
		relU = u.Sigma / u.Value
	}
	relO := o.Sigma / o.Value
	return NewUncertainValue(value, math.Abs(value)*math.Hypot(relU, relO))
}

// Scale multiplies the value and sigma by an exact constant.
func (u UncertainValue) Scale(k float64) UncertainValue {
	return NewUncertainValue(u.Value*k, math.Abs(k)*u.Sigma)
}

// Almost reports whether two values agree within combined sigma.
func (u UncertainValue) Almost(o UncertainValue) bool {
	if !u.Finite() || !o.Finite() {
		return false
	}
	diff := math.Abs(u.Value - o.Value)
	return diff <= math.Hypot(u.Sigma, o.Sigma)
}

// String renders the value in conventional "1234(12)" notation, honoring
// SigFigs and switching to scientific notation outside the ordinary range.
func (u UncertainValue) String() string {
	if !u.Finite() {
		return "?"
	}

	orderValue := int(orderOf(u.Value))
	exp := u.exponent()

	decimals := 0
	sigfigs := int(u.SigFigs)
	if sigfigs > orderValue-exp {
		decimals = sigfigs - (orderValue - exp) - 1
	} else if sigfigs > orderValue {
		decimals = sigfigs - orderValue
	}
	if decimals < 0 {
		decimals = 0
	}

	var b strings.Builder
	if math.IsInf(u.Sigma, 1) {
		b.WriteString("~")
	}
	b.WriteString(strconv.FormatFloat(u.Value/math.Pow(10, float64(exp)), 'f', decimals, 64))

	if isFiniteFloat(u.Sigma) && u.Sigma != 0 {
		unc := u.Sigma / math.Pow(10, float64(exp))
		var uncStr string
		switch {
		case decimals == 0:
			uncStr = strconv.FormatFloat(unc, 'f', 0, 64)
		case unc < 1.0:
			uncStr = strconv.FormatFloat(unc/math.Pow(10, float64(-decimals)), 'f', 0, 64)
		default:
			orderUncert := int(orderOf(u.Sigma))
			uncStr = strconv.FormatFloat(unc, 'f', orderUncert-exp+decimals, 64)
		}
		if uncStr != "" {
			fmt.Fprintf(&b, "(%s)", uncStr)
		}
	}

	if exp != 0 {
		fmt.Fprintf(&b, "×10^%d", exp)
	}

	return b.String()
}
