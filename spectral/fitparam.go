package spectral

import "fmt"

// FitParam is a named scalar the optimizer can vary, with bounds and
// enable/fixed policy flags.
type FitParam struct {
	Name    string
	Value   UncertainValue
	Lower   float64
	Upper   float64
	Enabled bool
	Fixed   bool
}

// NewFitParam builds an enabled, unfixed parameter at value v with bounds
// [lower, upper].
func NewFitParam(name string, v, lower, upper float64) FitParam {
	return FitParam{
		Name:    name,
		Value:   NewUncertainValue(v, 0),
		Lower:   lower,
		Upper:   upper,
		Enabled: true,
	}
}

// ImplicitlyFixed reports whether the bounds have collapsed around the value
// (lower == value == upper), independent of the Fixed flag.
func (p FitParam) ImplicitlyFixed() bool {
	return p.Lower == p.Value.Value && p.Value.Value == p.Upper
}

// EnforcePolicy returns the parameter with Enabled/Fixed bounds collapsed
// the way the optimizer must see them: a disabled parameter is pinned to
// zero over [0, lower]; a fixed parameter gets a near-degenerate interval
// of ±1% around its value.
func (p FitParam) EnforcePolicy() FitParam {
	out := p
	switch {
	case !p.Enabled:
		out.Upper = p.Lower
		out.Lower = 0
		out.Value = NewUncertainValue(out.Lower, 0)
	case p.Fixed:
		delta := p.Value.Value * 0.01
		out.Lower = p.Value.Value - delta
		out.Upper = p.Value.Value + delta
	}
	return out
}

// Constrain clamps Value.Value into [min, max] and updates the bounds.
func (p *FitParam) Constrain(min, max float64) {
	p.Lower = min
	p.Upper = max
	if p.Value.Value < min {
		p.Value.Value = min
	}
	if p.Value.Value > max {
		p.Value.Value = max
	}
}

func (p FitParam) String() string {
	return fmt.Sprintf("%s = %s [%g:%g]", p.Name, p.Value.String(), p.Lower, p.Upper)
}
