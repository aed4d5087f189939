// Command spectral-compare is a thin CLI wrapper around the analysis
// package: given two channel/count curves (e.g. the same detector's
// spectrum taken before and after a calibration change, or a raw
// spectrum against its rendered fit), it reports channel alignment and
// shape-similarity metrics. Grounded on the teacher's cmd/piano-distance
// tool's role as a thin reporting front-end over analysis.Compare.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/qpxlab/gammafit/analysis"
)

func main() {
	refPath := flag.String("reference", "", "reference curve file (channel,count per line)")
	candPath := flag.String("candidate", "", "candidate curve file (channel,count per line)")
	flag.Parse()

	if *refPath == "" || *candPath == "" {
		fmt.Fprintln(os.Stderr, "usage: spectral-compare -reference ref.csv -candidate cand.csv")
		os.Exit(2)
	}

	ref, err := readCurve(*refPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reference: %v\n", err)
		os.Exit(1)
	}
	cand, err := readCurve(*candPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "candidate: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "reference: %d channels, peak=%.1f rms=%.1f\n", len(ref), peakAbs(ref), rms(ref))
	fmt.Fprintf(os.Stderr, "candidate: %d channels, peak=%.1f rms=%.1f\n", len(cand), peakAbs(cand), rms(cand))

	m := analysis.Compare(ref, cand)

	fmt.Printf("=== spectral-compare ===\n")
	fmt.Printf("  channel shift:     %d\n", m.ChannelShift)
	fmt.Printf("  aligned channels:  %d\n", m.AlignedChannels)
	fmt.Printf("  curve RMSE:        %.2f counts\n", m.CurveRMSE)
	fmt.Printf("  spectral shape:    %.2f dB RMSE\n", m.SpectralShapeRMSEDB)
	fmt.Printf("  score:             %.3f\n", m.Score)
	fmt.Printf("  similarity:        %.3f\n", m.Similarity)
}

// readCurve reads a two-column "channel,count" CSV, returning the
// count series indexed by channel (gaps are filled with zero).
func readCurve(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type point struct {
		channel int
		count   float64
	}
	var points []point
	maxChannel := -1

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		ch, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", parts[0], err)
		}
		count, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("count %q: %w", parts[1], err)
		}
		points = append(points, point{ch, count})
		if ch > maxChannel {
			maxChannel = ch
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if maxChannel < 0 {
		return nil, fmt.Errorf("no data rows")
	}

	out := make([]float64, maxChannel+1)
	for _, p := range points {
		out[p.channel] = p.count
	}
	return out, nil
}

func peakAbs(x []float64) float64 {
	p := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > p {
			p = a
		}
	}
	return p
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
