package spectral

import (
	"fmt"
	"math"
)

// Effit is the detector-efficiency calibration curve from
// engine/math/effit.cpp: exp(((A+B*xa+C*xa^2)^-G + (D+E*xb+F*xb^2)^-G)^(-1/G))
// where xa=ln((x-xoffset)/100), xb=ln((x-xoffset)/1000). It always carries
// exactly seven coefficients (A..G), stored at degrees 0..6 so it can share
// the CoefFunction interface with the sparse-map variants.
type Effit struct {
	coeffs  map[int]FitParam
	xoffset FitParam
	chi2    float64
}

// NewEffit builds an Effit curve. G defaults to 20 when given as zero,
// matching the original constructor's fallback.
func NewEffit(a, b, c, d, e, f, g, xoffset float64) *Effit {
	if g == 0 {
		g = 20
	}
	vals := [7]float64{a, b, c, d, e, f, g}
	names := [7]string{"A", "B", "C", "D", "E", "F", "G"}
	m := make(map[int]FitParam, 7)
	for i, v := range vals {
		m[i] = NewFitParam(names[i], v, v, v)
	}
	return &Effit{coeffs: m, xoffset: NewFitParam("xoffset", xoffset, xoffset, xoffset)}
}

func (p *Effit) at(i int) float64 { return coeffValue(p.coeffs, i) }

func (p *Effit) Eval(x float64) float64 {
	xa := math.Log((x - p.xoffset.Value.Value) / 100)
	xb := math.Log((x - p.xoffset.Value.Value) / 1000)
	a, b, c := p.at(0), p.at(1), p.at(2)
	d, e, f := p.at(3), p.at(4), p.at(5)
	g := p.at(6)
	if g == 0 {
		g = 20
	}
	left := math.Pow(a+b*xa+c*xa*xa, -g)
	right := math.Pow(d+e*xb+f*xb*xb, -g)
	return math.Exp(math.Pow(left+right, -1.0/g))
}

// Derivative is not defined analytically for Effit in the original; callers
// needing an inverse must use numerical bracketing instead of EvalInverse.
func (p *Effit) Derivative(x float64) float64 { return 0 }

func (p *Effit) EvalInverse(y float64) (float64, error) {
	return 0, fmt.Errorf("spectral: Effit has no analytical inverse: %w", ErrMaxIterations)
}
func (p *Effit) Coeffs() map[int]FitParam { return p.coeffs }
func (p *Effit) XOffset() FitParam        { return p.xoffset }
func (p *Effit) Chi2() float64            { return p.chi2 }
func (p *Effit) SetChi2(v float64)        { p.chi2 = v }

func (p *Effit) String() string {
	return fmt.Sprintf("Effit A=%g B=%g C=%g D=%g E=%g F=%g G=%g rsq=%g",
		p.at(0), p.at(1), p.at(2), p.at(3), p.at(4), p.at(5), p.at(6), p.chi2)
}
