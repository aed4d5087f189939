package analysis

import (
	"math"
	"testing"
)

func BenchmarkSpectralShapeRMSEDB_FFT(b *testing.B) {
	const n = 4096
	a, c := benchmarkCurves(n)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = spectralShapeRMSEDB(a, c)
	}
}

func BenchmarkCompare(b *testing.B) {
	const n = 8192
	ref, cand := benchmarkCurves(n)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Compare(ref, cand)
	}
}

func benchmarkCurves(n int) ([]float64, []float64) {
	a := make([]float64, n)
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		a[i] = 5000*math.Exp(-0.5*math.Pow((t-0.3)*20, 2)) + 300*math.Exp(-0.5*math.Pow((t-0.7)*30, 2))
		c[i] = 4800*math.Exp(-0.5*math.Pow((t-0.31)*20, 2)) + 320*math.Exp(-0.5*math.Pow((t-0.69)*30, 2))
	}
	return a, c
}
