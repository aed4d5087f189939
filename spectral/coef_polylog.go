package spectral

import (
	"fmt"
	"math"
	"strings"
)

// PolyLog evaluates exp(sum(coeffs[d] * ln(x-xoffset)^d)). The original
// source tree references this model from engine/calibration.cpp but its
// class definition was not present in the available excerpt; the formula
// here follows the same log-domain-polynomial convention as LogInverse,
// substituting ln(x-xoffset) for 1/(x-xoffset) per the CalibrationModel
// naming (poly_log vs log_inverse).
type PolyLog struct {
	coeffs  map[int]FitParam
	xoffset FitParam
	chi2    float64
}

func NewPolyLog(coeffs []float64, xoffset float64) *PolyLog {
	m := make(map[int]FitParam, len(coeffs))
	for d, c := range coeffs {
		if c == 0 {
			continue
		}
		m[d] = NewFitParam(fmt.Sprintf("a%d", d), c, c, c)
	}
	return &PolyLog{coeffs: m, xoffset: NewFitParam("xoffset", xoffset, xoffset, xoffset)}
}

func (p *PolyLog) Eval(x float64) float64 {
	xa := x - p.xoffset.Value.Value
	if xa <= 0 {
		return math.NaN()
	}
	lx := math.Log(xa)
	result := 0.0
	for d, c := range p.coeffs {
		result += c.Value.Value * math.Pow(lx, float64(d))
	}
	return math.Exp(result)
}

func (p *PolyLog) Derivative(x float64) float64 { return x }

func (p *PolyLog) EvalInverse(y float64) (float64, error) { return newtonInverse(p, y) }
func (p *PolyLog) Coeffs() map[int]FitParam                { return p.coeffs }
func (p *PolyLog) XOffset() FitParam                        { return p.xoffset }
func (p *PolyLog) Chi2() float64                            { return p.chi2 }
func (p *PolyLog) SetChi2(v float64)                        { p.chi2 = v }

func (p *PolyLog) String() string {
	var b strings.Builder
	b.WriteString("PolyLog = exp(")
	i := 0
	for _, d := range sortedDegrees(p.coeffs) {
		if i > 0 {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%g", coeffValue(p.coeffs, d))
		if d > 0 {
			b.WriteString("*ln(x-xoffset)")
		}
		if d > 1 {
			fmt.Fprintf(&b, "^%d", d)
		}
		i++
	}
	fmt.Fprintf(&b, ") rsq=%g", p.chi2)
	return b.String()
}
