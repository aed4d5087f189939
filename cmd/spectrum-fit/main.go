// Command spectrum-fit is a thin CLI driver over the spectral fitting
// engine: it loads a channel/count spectrum, runs region discovery and
// automatic peak fitting with the mayfly-backed optimizer, prints a
// progress/result report, and optionally persists the fitted document.
// Grounded on the flag layout and progress-printing style of the
// teacher's cmd/piano-fit/main.go, stripped of everything specific to
// audio rendering (presets, IR synthesis, render workers).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/qpxlab/gammafit/internal/settings"
	"github.com/qpxlab/gammafit/optimizer"
	"github.com/qpxlab/gammafit/persist"
	"github.com/qpxlab/gammafit/spectral"
)

func main() {
	spectrumPath := flag.String("spectrum", "", "channel/count spectrum file (channel,count per line)")
	settingsPath := flag.String("settings", "", "optional FitSettings JSON override file")
	outputPath := flag.String("output", "", "path to write fitted document JSON (default: none)")
	bits := flag.Int("bits", 12, "detector ADC bit depth")
	mayflyVariant := flag.String("mayfly-variant", "ma", "mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 40, "mayfly population size")
	mayflyIters := flag.Int("mayfly-iters", 200, "mayfly max iterations for coefficient-function fits (multiplet fits use the settings' fitter_max_iter)")
	flag.Parse()

	if *spectrumPath == "" {
		die("missing required -spectrum")
	}
	if *bits < 1 || *bits > 32 {
		die("bits must be between 1 and 32")
	}

	x, y, err := readSpectrum(*spectrumPath)
	if err != nil {
		die("reading spectrum: %v", err)
	}
	fmt.Fprintf(os.Stderr, "loaded %d channels from %s\n", len(x), *spectrumPath)

	fitSettings := spectral.NewDefaultFitSettings()
	fitSettings.Bits = uint16(*bits)
	if *settingsPath != "" {
		loaded, err := settings.LoadJSON(*settingsPath)
		if err != nil {
			die("loading settings: %v", err)
		}
		loaded.Bits = uint16(*bits)
		fitSettings = loaded
	}

	opt := optimizer.NewMayflyOptimizer()
	opt.Variant = *mayflyVariant
	opt.Population = *mayflyPop
	opt.MaxIterations = *mayflyIters

	fitter := spectral.NewFitter(x, y, fitSettings, opt)
	fitter.FindRegions()
	fmt.Fprintf(os.Stderr, "discovered %d region(s)\n", fitter.RegionCount())

	ctx := context.Background()
	n := 0
	for id, r := range fitter.Regions() {
		n++
		fmt.Fprintf(os.Stderr, "fitting region %d/%d [%.1f, %.1f]\n", n, fitter.RegionCount(), r.LeftBin(), r.RightBin())
		if err := fitter.AutoFit(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "  region fit failed: %v\n", err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  peaks=%d\n", r.PeakCount())
	}

	if *outputPath != "" {
		if err := persist.Save(fitter, *outputPath); err != nil {
			die("saving document: %v", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *outputPath)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "spectrum-fit: "+format+"\n", args...)
	os.Exit(1)
}

// readSpectrum reads a two-column "channel,count" CSV into parallel x/y
// series, the same format spectral-compare consumes.
func readSpectrum(path string) ([]float64, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var x, y []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, nil, fmt.Errorf("malformed line %q", line)
		}
		ch, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("channel %q: %w", parts[0], err)
		}
		count, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("count %q: %w", parts[1], err)
		}
		x = append(x, ch)
		y = append(y, count)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if len(x) == 0 {
		return nil, nil, fmt.Errorf("no data rows")
	}
	return x, y, nil
}
