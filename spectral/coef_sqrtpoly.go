package spectral

import (
	"fmt"
	"math"
	"strings"
)

// SqrtPoly evaluates sqrt(sum(coeffs[d] * (x-xoffset)^d)), grounded on
// engine/math/sqrt_poly.cpp.
type SqrtPoly struct {
	coeffs  map[int]FitParam
	xoffset FitParam
	chi2    float64
}

func NewSqrtPoly(coeffs []float64, xoffset float64) *SqrtPoly {
	m := make(map[int]FitParam, len(coeffs))
	for d, c := range coeffs {
		if c == 0 {
			continue
		}
		m[d] = NewFitParam(fmt.Sprintf("a%d", d), c, c, c)
	}
	return &SqrtPoly{coeffs: m, xoffset: NewFitParam("xoffset", xoffset, xoffset, xoffset)}
}

func (p *SqrtPoly) radicand(x float64) float64 {
	xa := x - p.xoffset.Value.Value
	result := 0.0
	for d, c := range p.coeffs {
		result += c.Value.Value * math.Pow(xa, float64(d))
	}
	return result
}

func (p *SqrtPoly) Eval(x float64) float64 {
	r := p.radicand(x)
	if r < 0 {
		return math.NaN()
	}
	return math.Sqrt(r)
}

// Derivative matches the original's SqrtPoly::derivative, which is not the
// analytical derivative of sqrt(poly(x)) but returns x unmodified; kept
// verbatim since EvalInverse is not exercised for this calibration model.
func (p *SqrtPoly) Derivative(x float64) float64 { return x }

func (p *SqrtPoly) EvalInverse(y float64) (float64, error) { return newtonInverse(p, y) }
func (p *SqrtPoly) Coeffs() map[int]FitParam                { return p.coeffs }
func (p *SqrtPoly) XOffset() FitParam                        { return p.xoffset }
func (p *SqrtPoly) Chi2() float64                            { return p.chi2 }
func (p *SqrtPoly) SetChi2(v float64)                        { p.chi2 = v }

func (p *SqrtPoly) String() string {
	var b strings.Builder
	b.WriteString("SqrtPoly = sqrt(")
	i := 0
	for _, d := range sortedDegrees(p.coeffs) {
		if i > 0 {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%g", coeffValue(p.coeffs, d))
		if d > 0 {
			b.WriteString("*(x-xoffset)")
		}
		if d > 1 {
			fmt.Fprintf(&b, "^%d", d)
		}
		i++
	}
	fmt.Fprintf(&b, ") rsq=%g", p.chi2)
	return b.String()
}
