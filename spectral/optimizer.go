package spectral

import (
	"context"
	"fmt"
	"sync"
)

// Optimizer is the pluggable nonlinear fitter abstraction: it fits
// CoefFunctions (for calibration curves) and multiplets of Hypermet peaks
// under a shared polynomial background. Grounded on
// engine/fitting/optimizer.h. Implementations live outside this package
// (see the optimizer package) to keep the core fitting data model free of
// any specific numerical backend.
type Optimizer interface {
	// FitMultiplet jointly refines peaks and background against (x, y)
	// under settings, honoring ctx cancellation at iteration boundaries
	// (the idiomatic replacement for the original's atomic<bool>
	// interruptor).
	FitMultiplet(ctx context.Context, x, y []float64, peaks []Hypermet, background *Polynomial, settings FitSettings) ([]Hypermet, *Polynomial, float64, error)

	// FitCoefFunction refines f's coefficients against (x, y) in place.
	FitCoefFunction(ctx context.Context, f CoefFunction, x, y []float64) error
}

var (
	optimizerMu        sync.Mutex
	optimizerFactories = map[string]func() Optimizer{}
)

// RegisterOptimizer adds a named Optimizer factory to the process-wide
// registry. It is write-once: registering the same name twice panics,
// matching the original's static factory-registration idiom (each backend
// self-registers from an init function and is never re-registered).
func RegisterOptimizer(name string, factory func() Optimizer) {
	optimizerMu.Lock()
	defer optimizerMu.Unlock()
	if _, exists := optimizerFactories[name]; exists {
		panic(fmt.Sprintf("spectral: optimizer %q already registered", name))
	}
	optimizerFactories[name] = factory
}

// NewOptimizer constructs a registered Optimizer by name.
func NewOptimizer(name string) (Optimizer, error) {
	optimizerMu.Lock()
	factory, ok := optimizerFactories[name]
	optimizerMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("spectral: no optimizer registered under %q", name)
	}
	return factory(), nil
}
