package spectral

import (
	"fmt"
	"math"
	"strings"
)

// Polynomial evaluates sum(coeffs[d] * (x-xoffset)^d), grounded on
// engine/math/polynomial.cpp's eval/derivative pair.
type Polynomial struct {
	coeffs  map[int]FitParam
	xoffset FitParam
	chi2    float64
}

// NewPolynomial builds a Polynomial from a dense coefficient slice indexed
// by degree, matching the original's vector<double> constructor.
func NewPolynomial(coeffs []float64, xoffset float64) *Polynomial {
	m := make(map[int]FitParam, len(coeffs))
	for d, c := range coeffs {
		if c == 0 {
			continue
		}
		m[d] = NewFitParam(fmt.Sprintf("a%d", d), c, c, c)
	}
	return &Polynomial{
		coeffs:  m,
		xoffset: NewFitParam("xoffset", xoffset, xoffset, xoffset),
	}
}

func (p *Polynomial) Eval(x float64) float64 {
	xa := x - p.xoffset.Value.Value
	result := 0.0
	for d, c := range p.coeffs {
		result += c.Value.Value * math.Pow(xa, float64(d))
	}
	return result
}

func (p *Polynomial) Derivative(x float64) float64 {
	xa := x - p.xoffset.Value.Value
	result := 0.0
	for d, c := range p.coeffs {
		if d == 0 {
			continue
		}
		result += float64(d) * c.Value.Value * math.Pow(xa, float64(d-1))
	}
	return result
}

func (p *Polynomial) EvalInverse(y float64) (float64, error) { return newtonInverse(p, y) }
func (p *Polynomial) Coeffs() map[int]FitParam                { return p.coeffs }
func (p *Polynomial) XOffset() FitParam                        { return p.xoffset }
func (p *Polynomial) Chi2() float64                            { return p.chi2 }
func (p *Polynomial) SetChi2(v float64)                        { p.chi2 = v }

func (p *Polynomial) String() string {
	var b strings.Builder
	b.WriteString("Polynomial = ")
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
	fmt.Fprintf(&b, " rsq=%g", p.chi2)
	return b.String()
}
