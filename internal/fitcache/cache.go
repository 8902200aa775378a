// Package fitcache memoizes fitted regression models within a single
// table-build call. The tabulation adapter invokes a callback once per
// displayed row, but one covariate's model serves many rows (main effect,
// levels, interaction); the cache turns O(rows) fits into one per covariate.
package fitcache

import (
	"sync"

	"clintab/internal/estimators"
)

// MultivariableKey is the synthetic cache key of the single joint model
// fitted in multivariable mode.
const MultivariableKey = "~multivariable"

// Cache is a per-build memo of tidied Cox fits keyed by covariate name.
// Construct one per top-level tabulation call and discard it afterward;
// concurrent builds must each own their own instance. Entries are immutable
// once written, so a plain mutex around GetOrFit is all the locking needed.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*estimators.CoxFit
	fits    int
}

// New creates an empty cache for one table build
func New() *Cache {
	return &Cache{entries: make(map[string]*estimators.CoxFit)}
}

// GetOrFit returns the cached fit for key, computing and storing it on the
// first call. The fit function is never invoked twice for the same key.
func (c *Cache) GetOrFit(key string, fit func() (*estimators.CoxFit, error)) (*estimators.CoxFit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.entries[key]; ok {
		return cached, nil
	}
	c.fits++
	computed, err := fit()
	if err != nil {
		// Configuration errors are not cached; retrying with the same key
		// after a fix should refit.
		c.fits--
		return nil, err
	}
	c.entries[key] = computed
	return computed, nil
}

// Fits reports how many times a fit function actually ran
func (c *Cache) Fits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fits
}

// Len reports the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
