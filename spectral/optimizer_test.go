package spectral

import "testing"

func TestRegisterOptimizerAndNewOptimizerRoundTrip(t *testing.T) {
	RegisterOptimizer("test-stub-roundtrip", func() Optimizer { return passthroughOptimizer{} })

	opt, err := NewOptimizer("test-stub-roundtrip")
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}
	if _, ok := opt.(passthroughOptimizer); !ok {
		t.Fatalf("expected the registered factory's optimizer type back, got %T", opt)
	}
}

func TestRegisterOptimizerPanicsOnDuplicateName(t *testing.T) {
	RegisterOptimizer("test-stub-dup", func() Optimizer { return passthroughOptimizer{} })

	defer func() {
		if recover() == nil {
			t.Fatalf("expected registering a duplicate name to panic")
		}
	}()
	RegisterOptimizer("test-stub-dup", func() Optimizer { return passthroughOptimizer{} })
}

func TestNewOptimizerErrorsOnUnknownName(t *testing.T) {
	if _, err := NewOptimizer("test-stub-does-not-exist"); err == nil {
		t.Fatalf("expected an error for an unregistered optimizer name")
	}
}
