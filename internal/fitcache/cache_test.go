package fitcache

import (
	"errors"
	"sync"
	"testing"

	"clintab/internal/estimators"
)

func TestGetOrFitCachesByKey(t *testing.T) {
	cache := New()
	calls := 0
	fit := func() (*estimators.CoxFit, error) {
		calls++
		return &estimators.CoxFit{N: calls}, nil
	}

	first, err := cache.GetOrFit("AGE", fit)
	if err != nil {
		t.Fatalf("GetOrFit: %v", err)
	}
	second, err := cache.GetOrFit("AGE", fit)
	if err != nil {
		t.Fatalf("GetOrFit: %v", err)
	}
	if first != second {
		t.Error("second lookup must return the cached fit")
	}
	if calls != 1 {
		t.Errorf("fit ran %d times, want 1", calls)
	}
	if cache.Fits() != 1 {
		t.Errorf("Fits() = %d, want 1", cache.Fits())
	}

	if _, err := cache.GetOrFit("SEX", fit); err != nil {
		t.Fatalf("GetOrFit: %v", err)
	}
	if cache.Fits() != 2 || cache.Len() != 2 {
		t.Errorf("Fits() = %d, Len() = %d, want 2 and 2", cache.Fits(), cache.Len())
	}
}

func TestGetOrFitDoesNotCacheErrors(t *testing.T) {
	cache := New()
	fail := true
	fit := func() (*estimators.CoxFit, error) {
		if fail {
			return nil, errors.New("singular information matrix")
		}
		return &estimators.CoxFit{}, nil
	}

	if _, err := cache.GetOrFit("AGE", fit); err == nil {
		t.Fatal("expected the first call to fail")
	}
	if cache.Fits() != 0 || cache.Len() != 0 {
		t.Errorf("failed fit must not count: Fits() = %d, Len() = %d", cache.Fits(), cache.Len())
	}

	fail = false
	if _, err := cache.GetOrFit("AGE", fit); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if cache.Fits() != 1 {
		t.Errorf("Fits() = %d, want 1 after the retry", cache.Fits())
	}
}

func TestGetOrFitConcurrent(t *testing.T) {
	cache := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrFit("AGE", func() (*estimators.CoxFit, error) {
				return &estimators.CoxFit{}, nil
			})
			if err != nil {
				t.Errorf("GetOrFit: %v", err)
			}
		}()
	}
	wg.Wait()
	if cache.Fits() != 1 {
		t.Errorf("Fits() = %d, want 1 across concurrent callers", cache.Fits())
	}
}
