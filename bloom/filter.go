// Package bloom provides a probabilistic membership filter for crawl keys.
// The crawl frontier consults it before its exact visited map: a negative
// answer is final, a positive one must be confirmed.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter is a Bloom filter keyed by URL. It is not safe for concurrent use;
// callers guard it with their own lock.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a filter sized for n expected URLs at the given false
// positive rate. A zero n is raised to 1.
func NewFilter(n uint, fpRate float64) *Filter {
	if n == 0 {
		n = 1
	}
	return &Filter{f: bloom.NewWithEstimates(n, fpRate)}
}

// Add records url.
func (f *Filter) Add(url string) {
	f.f.AddString(url)
}

// MayContain reports whether url might have been added.
// False positives are possible; false negatives are not.
func (f *Filter) MayContain(url string) bool {
	return f.f.TestString(url)
}
