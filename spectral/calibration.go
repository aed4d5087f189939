package spectral

import (
	"math"
	"strconv"
	"time"
)

// Calibration pairs a CoefFunction with the bit-depth, units and label it
// was derived for, and rescales channel values to/from a different
// bit-depth before evaluating the function. Grounded on engine/calibration.h
// and calibration.cpp.
type Calibration struct {
	CreatedAt time.Time
	Units     string
	To        string
	Bits      uint16
	Function  CoefFunction
}

// NewCalibration builds a calibration at the given bit-depth; Function is
// nil until SetFunction is called (Valid reports false until then).
func NewCalibration(bits uint16) Calibration {
	return Calibration{CreatedAt: time.Now(), Bits: bits}
}

// Valid reports whether the calibration carries a usable function.
func (c Calibration) Valid() bool {
	return c.Function != nil
}

// Transform evaluates the calibration curve at chan, assuming chan is
// already expressed at this calibration's own bit-depth.
func (c Calibration) Transform(chan_ float64) float64 {
	if !c.Valid() {
		return chan_
	}
	return c.Function.Eval(chan_)
}

// TransformBits rescales chan from bits-resolution to this calibration's
// resolution by power-of-two multiplication/division before evaluating.
func (c Calibration) TransformBits(chan_ float64, bits uint16) float64 {
	if !c.Valid() || c.Bits == 0 || bits == 0 {
		return chan_
	}
	adjusted := chan_
	if bits > c.Bits {
		adjusted = adjusted / math.Pow(2, float64(bits-c.Bits))
	} else if bits < c.Bits {
		adjusted = adjusted * math.Pow(2, float64(c.Bits-bits))
	}
	return c.Transform(adjusted)
}

// InverseTransform evaluates the calibration curve's inverse. Only
// Polynomial is inverted (by Newton iteration on its analytical
// derivative); other models return energy unchanged, matching the
// original's commented-out PolyLog inverse.
func (c Calibration) InverseTransform(energy float64) float64 {
	if !c.Valid() {
		return energy
	}
	if _, ok := c.Function.(*Polynomial); !ok {
		return energy
	}
	v, err := c.Function.EvalInverse(energy)
	if err != nil {
		return energy
	}
	return v
}

// InverseTransformBits is the bit-depth-aware counterpart of
// InverseTransform, undoing TransformBits's rescaling.
func (c Calibration) InverseTransformBits(energy float64, bits uint16) float64 {
	if !c.Valid() || c.Bits == 0 || bits == 0 {
		return energy
	}
	bin := c.InverseTransform(energy)
	if bits > c.Bits {
		bin = bin * math.Pow(2, float64(bits-c.Bits))
	} else if bits < c.Bits {
		bin = bin / math.Pow(2, float64(c.Bits-bits))
	}
	return bin
}

// TransformAll applies TransformBits across a slice of channels.
func (c Calibration) TransformAll(chans []float64, bits uint16) []float64 {
	out := make([]float64, len(chans))
	for i, ch := range chans {
		out[i] = c.TransformBits(ch, bits)
	}
	return out
}

func (c Calibration) String() string {
	eqn := "N/A"
	if c.Valid() {
		eqn = c.Function.String()
	}
	return "[Calibration] bits=" + strconv.Itoa(int(c.Bits)) + " units=" + c.Units + " " + eqn
}
