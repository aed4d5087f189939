package spectral

import "math"

// Finder runs the Mariscotti second-difference convolution peak-search
// over a channel window, tracking the raw, background and residual
// series it operates on. Grounded on engine/fitting/finder.h/.cpp.
type Finder struct {
	X, Y                             []float64
	YFit, YBackground, YResid, YResidOnBackground []float64
	FWTheoreticalNrg, FWTheoreticalBin             []float64
	XKon, XConv                                    []float64

	Prelim, Filtered, Lefts, Rights []int

	Settings FitSettings
}

// NewFinder builds a Finder over x/y and runs the initial peak search.
func NewFinder(x, y []float64, settings FitSettings) *Finder {
	f := &Finder{Settings: settings}
	f.SetNewData(x, y)
	return f
}

// SetNewData replaces the channel window and re-runs peak detection.
func (f *Finder) SetNewData(x, y []float64) {
	f.clear()
	if len(x) != len(y) {
		return
	}
	f.X = append([]float64(nil), x...)
	f.Y = append([]float64(nil), y...)
	f.reset()
	f.calcKON()
	f.FindPeaks()
}

func (f *Finder) clear() {
	f.X, f.Y = nil, nil
	f.YFit, f.YBackground, f.YResid, f.YResidOnBackground = nil, nil, nil, nil
	f.Prelim, f.Filtered, f.Lefts, f.Rights = nil, nil, nil, nil
	f.XKon, f.XConv = nil, nil
}

func (f *Finder) reset() {
	f.YResidOnBackground = append([]float64(nil), f.Y...)
	f.YResid = append([]float64(nil), f.Y...)
	f.YFit = make([]float64, len(f.X))
	f.YBackground = make([]float64, len(f.X))
}

// Empty reports whether the Finder carries no data.
func (f *Finder) Empty() bool { return len(f.X) == 0 }

// CloneRange builds a new Finder over the [l, r) channel sub-range of
// other, matching Finder::cloneRange.
func (f *Finder) CloneRange(other *Finder, l, r float64) bool {
	if len(other.X) == 0 || len(other.Y) == 0 || len(other.X) != len(other.Y) {
		return false
	}
	min := other.FindIndex(l)
	max := other.FindIndex(r)
	if min < 0 || min >= len(other.X) {
		min = len(other.X) - 1
	}
	if max < 0 || max >= len(other.X) {
		max = len(other.X) - 1
	}
	var xl, yl []float64
	for i := min; i < max; i++ {
		xl = append(xl, other.X[i])
		yl = append(yl, other.Y[i])
	}
	f.Settings = other.Settings
	f.SetNewData(xl, yl)
	return true
}

// SetFit installs a fitted curve and its background over the sub-range
// [x_fit.front(), x_fit.back()] and recomputes residuals and peak search.
func (f *Finder) SetFit(xFit, yFit, yBackground []float64) {
	if len(xFit) != len(yFit) || len(xFit) != len(yBackground) || len(xFit) == 0 {
		return
	}
	l := f.FindIndex(xFit[0])
	r := f.FindIndex(xFit[len(xFit)-1])
	if r-l+1 != len(xFit) {
		return
	}
	for i := range xFit {
		f.YFit[l+i] = yFit[i]
		f.YBackground[l+i] = yBackground[i]
		resid := f.Y[l+i] - yFit[i]
		f.YResid[l+i] = resid
		f.YResidOnBackground[l+i] = yBackground[i] + resid
	}
	f.calcKON()
	f.FindPeaks()
}

func sameSeries(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (f *Finder) sigma() float64 {
	if !sameSeries(f.YResid, f.Y) {
		return f.Settings.KONSigmaResid
	}
	return f.Settings.KONSigmaSpectrum
}

func (f *Finder) calcKON() {
	f.FWTheoreticalNrg = nil
	f.FWTheoreticalBin = nil
	if f.Settings.CalibrationFWHM.Valid() && f.Settings.CalibrationEnergy.Valid() {
		for _, x := range f.X {
			nrg := f.Settings.CalibrationEnergy.TransformBits(x, f.Settings.Bits)
			f.FWTheoreticalNrg = append(f.FWTheoreticalNrg, nrg)
			fw := f.Settings.CalibrationFWHM.Transform(nrg)
			l := f.Settings.CalibrationEnergy.InverseTransformBits(nrg-fw/2, f.Settings.Bits)
			r := f.Settings.CalibrationEnergy.InverseTransformBits(nrg+fw/2, f.Settings.Bits)
			f.FWTheoreticalBin = append(f.FWTheoreticalBin, r-l)
		}
	}

	width := int(f.Settings.KONWidth)
	if width < 2 {
		width = 2
	}

	sigma := f.sigma()

	start := width
	end := len(f.X) - 1 - 2*width
	shift := width / 2

	if len(f.FWTheoreticalBin) > 0 {
		for i, w := range f.FWTheoreticalBin {
			if int(math.Ceil(w)) < i {
				start = i
				break
			}
		}
		for i := len(f.FWTheoreticalBin) - 1; i >= 0; i-- {
			if 2*int(math.Ceil(f.FWTheoreticalBin[i]))+i+1 < len(f.FWTheoreticalBin) {
				end = i
				break
			}
		}
	}

	n := len(f.YResid)
	f.XKon = make([]float64, n)
	f.XConv = make([]float64, n)
	f.Prelim = nil

	for j := start; j < end; j++ {
		w := width
		if len(f.FWTheoreticalBin) > 0 {
			w = int(math.Floor(f.FWTheoreticalBin[j]))
			shift = w / 2
		}
		if w < 1 {
			w = 1
		}

		kon := 0.0
		avg := 0.0
		lo, hi := j, j+w+1
		if lo < 0 || hi >= n || j-w < 0 {
			continue
		}
		for i := lo; i <= hi; i++ {
			if i-w < 0 || i+w >= n {
				continue
			}
			kon += 2*f.YResid[i] - f.YResid[i-w] - f.YResid[i+w]
			avg += f.YResid[i]
		}
		avg /= float64(w)
		idx := j + shift
		if idx < 0 || idx >= n {
			continue
		}
		f.XKon[idx] = kon
		f.XConv[idx] = kon / math.Sqrt(6*float64(w)*avg)

		if f.XConv[idx] > sigma {
			f.Prelim = append(f.Prelim, idx)
		}
	}
}

// FindPeaks runs the full Mariscotti detection pass: convolution, then
// contiguous-region grouping into candidate left/center/right triples.
func (f *Finder) FindPeaks() {
	f.calcKON()
	f.Filtered, f.Lefts, f.Rights = nil, nil, nil

	if len(f.Prelim) == 0 {
		return
	}

	f.Lefts = append(f.Lefts, f.Prelim[0])
	prev := f.Prelim[0]
	for _, cur := range f.Prelim {
		if cur-prev > 1 {
			f.Rights = append(f.Rights, prev)
			f.Lefts = append(f.Lefts, cur)
		}
		prev = cur
	}
	f.Rights = append(f.Rights, prev)

	for i := range f.Lefts {
		f.Filtered = append(f.Filtered, (f.Rights[i]+f.Lefts[i])/2)
	}

	for i := range f.Filtered {
		f.Lefts[i] = f.leftEdge(f.Lefts[i])
		f.Rights[i] = f.rightEdge(f.Rights[i])
	}
}

// FindLeft returns the channel value of the detected left edge nearest
// below chan.
func (f *Finder) FindLeft(chan_ float64) float64 {
	if len(f.X) == 0 {
		return 0
	}
	if chan_ < f.X[0] || chan_ >= f.X[len(f.X)-1] {
		return f.X[0]
	}
	i := len(f.X) - 1
	for i > 0 && f.X[i] > chan_ {
		i--
	}
	return f.X[f.leftEdge(i)]
}

// FindRight returns the channel value of the detected right edge nearest
// above chan.
func (f *Finder) FindRight(chan_ float64) float64 {
	if len(f.X) == 0 {
		return 0
	}
	if chan_ < f.X[0] || chan_ >= f.X[len(f.X)-1] {
		return f.X[len(f.X)-1]
	}
	i := 0
	for i < len(f.X) && f.X[i] < chan_ {
		i++
	}
	return f.X[f.rightEdge(i)]
}

func (f *Finder) leftEdge(idx int) int {
	if len(f.XConv) == 0 || idx >= len(f.XConv) {
		return 0
	}
	if len(f.FWTheoreticalBin) > 0 {
		width := math.Floor(f.FWTheoreticalBin[idx])
		goal := f.X[idx] - width*f.Settings.ROIExtendPeaks/2
		for idx > 0 && f.X[idx] > goal {
			idx--
		}
		return idx
	}

	sigma := f.sigma()
	edgeThreshold := -0.5 * sigma

	for idx > 0 && f.XConv[idx] >= 0 {
		idx--
	}
	if idx > 0 {
		idx--
	}
	for idx > 0 && f.XConv[idx] < edgeThreshold {
		idx--
	}
	return idx
}

func (f *Finder) rightEdge(idx int) int {
	if len(f.XConv) == 0 || idx >= len(f.XConv) {
		return 0
	}
	if len(f.FWTheoreticalBin) > 0 {
		width := math.Floor(f.FWTheoreticalBin[idx])
		goal := f.X[idx] + width*f.Settings.ROIExtendPeaks/2
		for idx < len(f.X) && f.X[idx] < goal {
			idx++
		}
		return idx
	}

	sigma := f.sigma()
	edgeThreshold := -0.5 * sigma

	for idx < len(f.XConv) && f.XConv[idx] >= 0 {
		idx++
	}
	if idx < len(f.XConv) {
		idx++
	}
	for idx < len(f.XConv) && f.XConv[idx] < edgeThreshold {
		idx++
	}
	if idx >= len(f.XConv) {
		idx = len(f.XConv) - 1
	}
	return idx
}

// FindIndex returns the index of the first channel >= chanVal, clamped to
// the series bounds. Returns -1 on an empty series.
func (f *Finder) FindIndex(chanVal float64) int {
	if len(f.X) == 0 {
		return -1
	}
	if chanVal <= f.X[0] {
		return 0
	}
	if chanVal >= f.X[len(f.X)-1] {
		return len(f.X) - 1
	}
	i := 0
	for i < len(f.X) && f.X[i] < chanVal {
		i++
	}
	return i
}
