package spectral

import (
	"fmt"
	"math"
	"strings"
)

// LogInverse evaluates exp(sum(coeffs[d] * (1/(x-xoffset))^d)), grounded on
// engine/math/log_inverse.cpp.
type LogInverse struct {
	coeffs  map[int]FitParam
	xoffset FitParam
	chi2    float64
}

func NewLogInverse(coeffs []float64, xoffset float64) *LogInverse {
	m := make(map[int]FitParam, len(coeffs))
	for d, c := range coeffs {
		if c == 0 {
			continue
		}
		m[d] = NewFitParam(fmt.Sprintf("a%d", d), c, c, c)
	}
	return &LogInverse{coeffs: m, xoffset: NewFitParam("xoffset", xoffset, xoffset, xoffset)}
}

func (p *LogInverse) Eval(x float64) float64 {
	xa := x - p.xoffset.Value.Value
	if xa != 0 {
		xa = 1.0 / xa
	} else {
		xa = math.MaxFloat64
	}
	result := 0.0
	for d, c := range p.coeffs {
		result += c.Value.Value * math.Pow(xa, float64(d))
	}
	return math.Exp(result)
}

// Derivative matches the original's LogInverse::derivative, which returns x
// unmodified rather than the analytical derivative.
func (p *LogInverse) Derivative(x float64) float64 { return x }

func (p *LogInverse) EvalInverse(y float64) (float64, error) { return newtonInverse(p, y) }
func (p *LogInverse) Coeffs() map[int]FitParam                { return p.coeffs }
func (p *LogInverse) XOffset() FitParam                        { return p.xoffset }
func (p *LogInverse) Chi2() float64                            { return p.chi2 }
func (p *LogInverse) SetChi2(v float64)                        { p.chi2 = v }

func (p *LogInverse) String() string {
	var b strings.Builder
	b.WriteString("LogInverse = exp(")
	i := 0
	for _, d := range sortedDegrees(p.coeffs) {
		if i > 0 {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%g", coeffValue(p.coeffs, d))
		if d > 0 {
			b.WriteString("/(x-xoffset)")
		}
		if d > 1 {
			fmt.Fprintf(&b, "^%d", d)
		}
		i++
	}
	fmt.Fprintf(&b, ") rsq=%g", p.chi2)
	return b.String()
}
