package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSearchResult(t *testing.T) {
	for n := 0; n <= 7; n++ {
		prices := make([]int, n)
		for i := range prices {
			prices[i] = (i + 1) * 100
		}

		result := NewSearchResult(prices, "https://example.com/q")
		assert.Len(t, result.Prices, MaxPrices)
		assert.False(t, result.Failed())

		found := result.Found()
		if n > MaxPrices {
			assert.Len(t, found, MaxPrices)
		} else {
			assert.Len(t, found, n)
		}
	}

	result := NewSearchResult([]int{1500, 2300}, "u")
	assert.Equal(t, []string{"1500", "2300", "", "", ""}, result.PriceStrings())
	assert.Equal(t, 1500, result.Prices[0].Cell())
	assert.Equal(t, "", result.Prices[4].Cell())
}

func TestFailedSearchResult(t *testing.T) {
	result := FailedSearchResult("https://example.com/q")
	assert.True(t, result.Failed())
	assert.Equal(t, "https://example.com/q", result.URL)
	assert.Equal(t, []string{"Error", "Error", "Error", "Error", "Error"}, result.PriceStrings())
	assert.Empty(t, result.Found())
}
