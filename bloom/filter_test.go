package bloom_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/webgrab/bloom"
	"github.com/stretchr/testify/assert"
)

func TestFilter_AddAndMayContain(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.MayContain("https://example.com/page1"))

	f.Add("https://example.com/page1")

	assert.True(t, f.MayContain("https://example.com/page1"))
	assert.False(t, f.MayContain("https://example.com/page2"))
}

func TestFilter_ZeroSizeStillWorks(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(0, 0.01)
	f.Add("https://example.com/")

	assert.True(t, f.MayContain("https://example.com/"))
}

func TestFilter_NoFalseNegatives(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(500, 0.01)
	urls := make([]string, 500)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/page/%d", i)
		f.Add(urls[i])
	}

	for _, u := range urls {
		assert.True(t, f.MayContain(u), "false negative for %s", u)
	}
}
