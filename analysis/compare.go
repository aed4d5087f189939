// Package analysis compares two fitted spectral curves: the same ROI
// fit before and after a parameter change, two detectors' spectra of
// the same source, or a raw spectrum against its rendered fit. It
// reuses the teacher's FFT-plan-caching cross-correlation machinery
// from CWBudde-algo-piano/analysis/distance.go (estimateLagFFT's
// forward/inverse plan cache keyed by FFT length, algo-fft's
// FastPlanReal64/PlanReal64 pair), retargeted from aligning two audio
// buffers in time to aligning two channel-count curves that may carry a
// small channel shift (e.g. from a gain-calibration drift between
// acquisitions). The teacher's envelope/decay-slope components have no
// spectroscopy analog — a gamma spectrum has no reverberant decay — and
// are dropped; see DESIGN.md.
package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"

	algofft "github.com/cwbudde/algo-fft"
)

var lagPlanCache sync.Map // map[int]*lagFFTPlan

type lagFFTPlan struct {
	mu   sync.Mutex
	n    int
	fast *algofft.FastPlanReal64
	safe *algofft.PlanRealT[float64, complex128]

	inA   []float64
	inB   []float64
	specA []complex128
	specB []complex128
	corr  []float64
}

// Metrics summarizes how two count curves over the same channel axis
// differ, after compensating for any integer channel shift between
// them.
type Metrics struct {
	ReferenceChannels int `json:"reference_channels"`
	CandidateChannels int `json:"candidate_channels"`
	AlignedChannels   int `json:"aligned_channels"`
	ChannelShift      int `json:"channel_shift"`

	CurveRMSE          float64 `json:"curve_rmse"`
	SpectralShapeRMSEDB float64 `json:"spectral_shape_rmse_db"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

const (
	weightCurve    = 0.6
	weightSpectral = 0.4

	normCurve    = 50.0
	normSpectral = 30.0
)

// Compare aligns candidate against reference by integer channel shift
// (cross-correlation peak) and reports curve-domain and spectral-shape
// differences. Both curves are background-count series over the same
// kind of channel axis; Compare does not itself background-subtract —
// callers pass whatever residual or raw curve they want compared.
func Compare(reference, candidate []float64) Metrics {
	m := Metrics{ReferenceChannels: len(reference), CandidateChannels: len(candidate)}
	if len(reference) == 0 || len(candidate) == 0 {
		m.Score = 1.0
		return m
	}

	maxShift := len(reference) / 4
	if maxShift < 1 {
		maxShift = 1
	}
	if maxShift > len(candidate)-1 {
		maxShift = len(candidate) - 1
	}
	shift := estimateShift(reference, candidate, maxShift)
	m.ChannelShift = shift

	refA, candA := alignByShift(reference, candidate, shift)
	n := len(refA)
	if len(candA) < n {
		n = len(candA)
	}
	if n < 8 {
		m.Score = 1.0
		return m
	}
	refA, candA = refA[:n], candA[:n]
	m.AlignedChannels = n

	m.CurveRMSE = rmse(refA, candA)
	m.SpectralShapeRMSEDB = spectralShapeRMSEDB(refA, candA)

	curveNorm := clamp01(m.CurveRMSE / normCurve)
	spectralNorm := clamp01(m.SpectralShapeRMSEDB / normSpectral)
	m.Score = clamp01(weightCurve*curveNorm + weightSpectral*spectralNorm)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))

	return m
}

func estimateShift(ref, cand []float64, maxShift int) int {
	if shift, ok := estimateShiftFFT(ref, cand, maxShift); ok {
		return shift
	}
	return estimateShiftExhaustive(ref, cand, maxShift)
}

func estimateShiftExhaustive(ref, cand []float64, maxShift int) int {
	best := math.Inf(-1)
	bestShift := 0
	for shift := -maxShift; shift <= maxShift; shift++ {
		s := dotAtShift(ref, cand, shift)
		if s > best {
			best = s
			bestShift = shift
		}
	}
	return bestShift
}

func estimateShiftFFT(ref, cand []float64, maxShift int) (int, bool) {
	nfft := nextPow2(len(ref) + len(cand) - 1)
	if nfft < 2 {
		nfft = 2
	}
	plan, err := getLagFFTPlan(nfft)
	if err != nil {
		return 0, false
	}

	plan.mu.Lock()
	defer plan.mu.Unlock()

	clear(plan.inA)
	clear(plan.inB)
	copy(plan.inA, ref)
	copy(plan.inB, cand)

	if err := plan.forward(plan.specA, plan.inA); err != nil {
		return 0, false
	}
	if err := plan.forward(plan.specB, plan.inB); err != nil {
		return 0, false
	}
	for i := range plan.specA {
		plan.specA[i] *= cmplx.Conj(plan.specB[i])
	}
	if err := plan.inverse(plan.corr, plan.specA); err != nil {
		return 0, false
	}

	best := math.Inf(-1)
	bestShift := 0
	for shift := -maxShift; shift <= maxShift; shift++ {
		idx := shift
		if idx < 0 {
			idx += plan.n
		}
		if plan.corr[idx] > best {
			best = plan.corr[idx]
			bestShift = shift
		}
	}
	return bestShift, true
}

func getLagFFTPlan(n int) (*lagFFTPlan, error) {
	if v, ok := lagPlanCache.Load(n); ok {
		return v.(*lagFFTPlan), nil
	}
	p := &lagFFTPlan{
		n:     n,
		inA:   make([]float64, n),
		inB:   make([]float64, n),
		specA: make([]complex128, n/2+1),
		specB: make([]complex128, n/2+1),
		corr:  make([]float64, n),
	}
	if fast, err := algofft.NewFastPlanReal64(n); err == nil {
		p.fast = fast
	}
	if safe, err := algofft.NewPlanReal64(n); err == nil {
		p.safe = safe
	} else if p.fast == nil {
		return nil, err
	}
	actual, _ := lagPlanCache.LoadOrStore(n, p)
	return actual.(*lagFFTPlan), nil
}

func (p *lagFFTPlan) forward(dst []complex128, src []float64) error {
	if p.fast != nil {
		p.fast.Forward(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Forward(dst, src)
	}
	return errors.New("analysis: missing FFT forward plan")
}

func (p *lagFFTPlan) inverse(dst []float64, src []complex128) error {
	if p.fast != nil {
		p.fast.Inverse(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Inverse(dst, src)
	}
	return errors.New("analysis: missing FFT inverse plan")
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func dotAtShift(a, b []float64, shift int) float64 {
	var ai, bi int
	if shift >= 0 {
		ai, bi = shift, 0
	} else {
		ai, bi = 0, -shift
	}
	n := len(a) - ai
	if len(b)-bi < n {
		n = len(b) - bi
	}
	if n <= 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByShift(ref, cand []float64, shift int) ([]float64, []float64) {
	if shift >= 0 {
		if shift >= len(ref) {
			return nil, nil
		}
		return ref[shift:], cand
	}
	o := -shift
	if o >= len(cand) {
		return nil, nil
	}
	return ref, cand[o:]
}

func rmse(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// spectralShapeRMSEDB compares the two curves' magnitude spectra (via a
// single full-length real FFT, windowed with a Hann taper) in log
// magnitude, useful for flagging periodic artifacts a plain channel-wise
// RMSE would average away.
func spectralShapeRMSEDB(a, b []float64) float64 {
	n := len(a)
	if n%2 != 0 {
		n--
	}
	if n < 8 {
		return 0
	}
	aw := make([]float64, n)
	bw := make([]float64, n)
	for i := 0; i < n; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		aw[i] = a[i] * w
		bw[i] = b[i] * w
	}

	bins := n / 2
	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return spectralShapeRMSENaive(aw, bw, bins)
	}
	specA := make([]complex128, bins+1)
	specB := make([]complex128, bins+1)
	if err := plan.Forward(specA, aw); err != nil {
		return spectralShapeRMSENaive(aw, bw, bins)
	}
	if err := plan.Forward(specB, bw); err != nil {
		return spectralShapeRMSENaive(aw, bw, bins)
	}

	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(cmplx.Abs(specA[k])) - linToDB(cmplx.Abs(specB[k]))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func spectralShapeRMSENaive(aw, bw []float64, bins int) float64 {
	if bins < 2 {
		return 0
	}
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(dftBinMag(aw, k)) - linToDB(dftBinMag(bw, k))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func dftBinMag(x []float64, bin int) float64 {
	n := len(x)
	var re, im float64
	for i := 0; i < n; i++ {
		phi := -2.0 * math.Pi * float64(bin*i) / float64(n)
		re += x[i] * math.Cos(phi)
		im += x[i] * math.Sin(phi)
	}
	return math.Hypot(re, im)
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
