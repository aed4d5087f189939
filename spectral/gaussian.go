package spectral

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-approx"
)

// Gaussian is a symmetric peak shape: height*exp(-ln2*((x-center)/hwhm)^2).
// Grounded on engine/math/gaussian.h / gaussian.cpp.
type Gaussian struct {
	Center FitParam
	Height FitParam
	HWHM   FitParam
	Rsq    float64
}

// NewGaussian builds a Gaussian with the given center/height/half-width at
// half-maximum as enabled fit parameters bounded to center ± hwhm,
// height in [0, 4·height] and hwhm in [0.2·hwhm, 5·hwhm].
func NewGaussian(center, height, hwhm float64) Gaussian {
	return Gaussian{
		Center: NewFitParam("center", center, center-hwhm, center+hwhm),
		Height: NewFitParam("height", height, 0, height*4),
		HWHM:   NewFitParam("hwhm", hwhm, hwhm*0.2, hwhm*5),
	}
}

// Eval evaluates the Gaussian at x. The hot inner loop uses a fast
// approximate exponential since fit evaluation calls this thousands of
// times per ROI iteration.
func (g Gaussian) Eval(x float64) float64 {
	xc := (x - g.Center.Value.Value) / g.HWHM.Value.Value
	exponent := -math.Ln2 * xc * xc
	return g.Height.Value.Value * float64(approx.FastExp(float32(exponent)))
}

// EvalArray evaluates the Gaussian over a slice of x values.
func (g Gaussian) EvalArray(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = g.Eval(x)
	}
	return out
}

// Area returns the net area under the Gaussian with propagated uncertainty:
// height*hwhm*sqrt(pi/ln2).
func (g Gaussian) Area() UncertainValue {
	k := math.Sqrt(math.Pi / math.Ln2)
	height := g.Height.Value
	hwhm := g.HWHM.Value
	return height.Mul(hwhm).Scale(k)
}

func (g Gaussian) String() string {
	return fmt.Sprintf("Gaussian center=%s height=%s hwhm=%s rsq=%g",
		g.Center.Value.String(), g.Height.Value.String(), g.HWHM.Value.String(), g.Rsq)
}
