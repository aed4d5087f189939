package spectral

import (
	"math"
	"testing"
)

func TestGaussianKernelIsNormalized(t *testing.T) {
	k := GaussianKernel(2.0)
	var sum float64
	for _, v := range k {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("expected kernel to sum to 1, got %f", sum)
	}
	if len(k)%2 == 0 {
		t.Fatalf("expected odd-length kernel, got length %d", len(k))
	}
}

func TestApplyDeconvolutionRejectsEmptyInputs(t *testing.T) {
	f := NewFinder([]float64{}, []float64{}, NewDefaultFitSettings())
	if err := f.ApplyDeconvolution(GaussianKernel(1), 0); err == nil {
		t.Fatalf("expected error sharpening an empty finder")
	}

	f2 := NewFinder([]float64{0, 1, 2}, []float64{1, 2, 1}, NewDefaultFitSettings())
	if err := f2.ApplyDeconvolution(nil, 0); err == nil {
		t.Fatalf("expected error for empty kernel")
	}
}

func TestApplyDeconvolutionPreservesLength(t *testing.T) {
	n := 64
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		d := (float64(i) - 32) / 3.0
		y[i] = 1000*math.Exp(-0.5*d*d) + 10
	}
	f := NewFinder(x, y, NewDefaultFitSettings())
	if err := f.ApplyDeconvolution(GaussianKernel(1.5), 1e-3); err != nil {
		t.Fatalf("ApplyDeconvolution: %v", err)
	}
	if len(f.Y) != n {
		t.Fatalf("expected sharpened series length %d, got %d", n, len(f.Y))
	}
	for _, v := range f.Y {
		if v < 0 {
			t.Fatalf("expected non-negative counts after sharpening, got %f", v)
		}
	}
}
