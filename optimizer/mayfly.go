package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync/atomic"

	"github.com/cwbudde/mayfly"
	"github.com/qpxlab/gammafit/spectral"
)

// MayflyOptimizer backs spectral.Optimizer with the mayfly population
// metaheuristic. Grounded on cmd/piano-fit/optimize.go's
// newMayflyConfig/runMayfly helpers.
type MayflyOptimizer struct {
	Variant       string
	Population    int
	MaxIterations int
	Seed          int64
}

// NewMayflyOptimizer builds an optimizer with reasonable defaults for
// ROI-scale multiplet fits (a handful of peaks, tens of free parameters).
func NewMayflyOptimizer() *MayflyOptimizer {
	return &MayflyOptimizer{Variant: "ma", Population: 40, MaxIterations: 200, Seed: 1}
}

func init() {
	spectral.RegisterOptimizer("mayfly", func() spectral.Optimizer { return NewMayflyOptimizer() })
}

func newMayflyConfig(variant string, pop, dims, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch strings.ToLower(variant) {
	case "", "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("optimizer: unsupported mayfly variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = maxInt(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func runMayfly(cfg *mayfly.Config) (result *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("optimizer: mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

// sumSquaredResidual computes the unweighted chi-square of the fitted
// curve against y over x, the objective every mayfly round minimizes.
func sumSquaredResidual(x, y []float64, peaks []spectral.Hypermet, background *spectral.Polynomial) float64 {
	sum := 0.0
	for i, xv := range x {
		model := background.Eval(xv)
		for _, h := range peaks {
			model += h.Eval(xv)
		}
		d := y[i] - model
		sum += d * d
	}
	return sum
}

// FitMultiplet implements spectral.Optimizer by varying every enabled,
// unfixed FitParam across peaks and background in a normalized [0,1]
// search box, exactly as the teacher's piano-knob optimizer varies piano
// parameters, here minimizing sum-of-squared-residuals instead of a
// perceptual audio distance.
func (m *MayflyOptimizer) FitMultiplet(ctx context.Context, x, y []float64, peaks []spectral.Hypermet, background *spectral.Polynomial, settings spectral.FitSettings) ([]spectral.Hypermet, *spectral.Polynomial, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}
	working := make([]spectral.Hypermet, len(peaks))
	copy(working, peaks)
	bg := spectral.NewPolynomial(nil, background.XOffset().Value.Value)
	for degree, c := range background.Coeffs() {
		bg.Coeffs()[degree] = c
	}

	defs := collectKnobs(working, bg, settings)
	if len(defs) == 0 {
		rsq := sumSquaredResidual(x, y, working, bg)
		return working, bg, rsq, nil
	}

	iters := m.MaxIterations
	if settings.FitterMaxIter > 0 {
		iters = int(settings.FitterMaxIter)
	}
	cfg, err := newMayflyConfig(m.Variant, m.Population, len(defs), iters)
	if err != nil {
		return nil, nil, 0, err
	}
	cfg.Rand = rand.New(rand.NewSource(m.Seed))

	var cancelled int32
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		if atomic.LoadInt32(&cancelled) != 0 {
			return math.MaxFloat64
		}
		if ctx.Err() != nil {
			atomic.StoreInt32(&cancelled, 1)
			return math.MaxFloat64
		}
		fromNormalized(pos, defs)
		return sumSquaredResidual(x, y, working, bg)
	}

	if _, err := runMayfly(cfg); err != nil {
		return nil, nil, 0, err
	}
	if ctx.Err() != nil {
		return nil, nil, 0, ctx.Err()
	}

	rsq := sumSquaredResidual(x, y, working, bg)
	bg.SetChi2(rsq)
	return working, bg, rsq, nil
}

// FitCoefFunction implements spectral.Optimizer for calibration curves:
// it varies every enabled, unfixed coefficient to minimize
// sum-of-squared-residuals against (x, y).
func (m *MayflyOptimizer) FitCoefFunction(ctx context.Context, f spectral.CoefFunction, x, y []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var defs []knobDef
	for degree, c := range f.Coeffs() {
		degree, c := degree, c
		if !c.Enabled || c.Fixed {
			continue
		}
		defs = append(defs, knobDef{
			name: c.Name, min: c.Lower, max: c.Upper,
			read: func() float64 { return f.Coeffs()[degree].Value.Value },
			apply: func(v float64) {
				cc := f.Coeffs()[degree]
				cc.Value.Value = v
				f.Coeffs()[degree] = cc
			},
		})
	}
	if len(defs) == 0 {
		return nil
	}

	cfg, err := newMayflyConfig(m.Variant, m.Population, len(defs), m.MaxIterations)
	if err != nil {
		return err
	}
	cfg.Rand = rand.New(rand.NewSource(m.Seed))
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		if ctx.Err() != nil {
			return math.MaxFloat64
		}
		fromNormalized(pos, defs)
		sum := 0.0
		for i, xv := range x {
			d := y[i] - f.Eval(xv)
			sum += d * d
		}
		return sum
	}
	if _, err := runMayfly(cfg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sum := 0.0
	for i, xv := range x {
		d := y[i] - f.Eval(xv)
		sum += d * d
	}
	f.SetChi2(sum)
	return nil
}
