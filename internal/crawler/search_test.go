package crawler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricecheckworker/logger"
	"sjsage522/pricecheckworker/pkg/errors"
)

func newTestSearcher(baseURL string, cacheSvc *MockCacheService) *Searcher {
	config := SearchConfig{
		BaseURL:        baseURL,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) test",
		AcceptLanguage: "es-ES,es;q=0.9",
		CacheTTL:       time.Hour,
		BlockTime:      5 * time.Minute,
		Selectors:      MercadoLibreSelectors,
	}
	if cacheSvc == nil {
		return NewSearcher(config, nil)
	}
	return NewSearcher(config, cacheSvc)
}

func servePage(t *testing.T, hits *int32, page string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "es-ES,es;q=0.9", r.Header.Get("Accept-Language"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, page)
	}))
}

func TestBuildSearchURL(t *testing.T) {
	assert.Equal(t,
		"https://listado.mercadolibre.com.ar/Samsung%20Galaxy%20A54",
		BuildSearchURL("https://listado.mercadolibre.com.ar", "Samsung", "Galaxy A54"))
	assert.Equal(t,
		"https://listado.mercadolibre.com.ar/LG%20OLED-55",
		BuildSearchURL("https://listado.mercadolibre.com.ar/", "LG", "OLED-55"))
}

func TestSearchCollectsValidatedPrices(t *testing.T) {
	page := resultsPage(
		listingHTML("Samsung Galaxy A54 128gb Negro", "459.999"),
		listingHTML("Funda para Samsung A54", "5.000"),
		listingHTML("Motorola Moto G84", "350.000"),
		`<div class="ui-search-result__wrapper"><span>sin título</span></div>`,
		listingHTML("Samsung Galaxy A54 5G", "consultar"),
		listingHTML("Samsung Galaxy A54 256gb", "520.000"),
	)

	var hits int32
	requestURIs := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		requestURIs <- r.RequestURI
		io.WriteString(w, page)
	}))
	defer server.Close()

	searcher := newTestSearcher(server.URL, nil)
	result, err := searcher.Search(ProductQuery{Brand: "Samsung", Model: "A54"})
	require.NoError(t, err)

	assert.Equal(t, "/Samsung%20A54", <-requestURIs)
	assert.Equal(t, server.URL+"/Samsung%20A54", result.URL)
	assert.Equal(t, []string{"459999", "5000", "520000", "", ""}, result.PriceStrings())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSearchNoMatches(t *testing.T) {
	var hits int32
	server := servePage(t, &hits, resultsPage(
		listingHTML("Motorola Moto G84", "350.000"),
		listingHTML("Xiaomi Redmi Note 13", "300.000"),
	))
	defer server.Close()

	searcher := newTestSearcher(server.URL, nil)
	result, err := searcher.Search(ProductQuery{Brand: "Samsung", Model: "A54"})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "", "", "", ""}, result.PriceStrings())
	assert.Equal(t, server.URL+"/Samsung%20A54", result.URL)
	assert.False(t, result.Failed())
}

func TestSearchStopsAtFivePrices(t *testing.T) {
	listings := make([]string, 0, 7)
	for i := 1; i <= 5; i++ {
		listings = append(listings, listingHTML(fmt.Sprintf("Samsung Galaxy A54 oferta %d", i), fmt.Sprintf("%d.000", i)))
	}
	// The last two would log a parse error if they were ever read
	listings = append(listings,
		listingHTML("Samsung Galaxy A54 oferta 6", "no-leer"),
		listingHTML("Samsung Galaxy A54 oferta 7", "no-leer"),
	)

	var hits int32
	server := servePage(t, &hits, resultsPage(listings...))
	defer server.Close()

	var buf bytes.Buffer
	logger.InitWithWriter(&buf)
	defer logger.Init()

	searcher := newTestSearcher(server.URL, nil)
	result, err := searcher.Search(ProductQuery{Brand: "Samsung", Model: "A54"})
	require.NoError(t, err)

	assert.Equal(t, []int{1000, 2000, 3000, 4000, 5000}, result.Found())
	assert.NotContains(t, buf.String(), "no-leer")
	assert.NotContains(t, buf.String(), "Skipping listing")
}

func TestSearchNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger.InitWithWriter(&buf)
	defer logger.Init()

	searcher := newTestSearcher(server.URL, nil)
	result, err := searcher.Search(ProductQuery{Brand: "Samsung", Model: "A54"})

	assert.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(err))
	assert.Equal(t, []string{"Error", "Error", "Error", "Error", "Error"}, result.PriceStrings())
	assert.Equal(t, server.URL+"/Samsung%20A54", result.URL)
	// The caller owns failure reporting
	assert.NotContains(t, buf.String(), "unexpected status code")
}

func TestSearchFetchFuncError(t *testing.T) {
	searcher := newTestSearcher("https://listado.example", nil)
	searcher.fetchFunc = func(url string) (io.Reader, error) {
		return nil, errors.NewNetwork("fetch", "connection reset", nil)
	}

	result, err := searcher.Search(ProductQuery{Brand: "LG", Model: "OLED55"})
	assert.Error(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, "https://listado.example/LG%20OLED55", result.URL)
}

func TestSearchUsesResultCache(t *testing.T) {
	var hits int32
	server := servePage(t, &hits, resultsPage(listingHTML("Philips Airfryer HD9252 Negra", "189.999")))
	defer server.Close()

	mockCache := NewMockCacheService()
	searcher := newTestSearcher(server.URL, mockCache)
	query := ProductQuery{Brand: "Philips", Model: "HD9252"}

	first, err := searcher.Search(query)
	require.NoError(t, err)
	second, err := searcher.Search(query)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, first, second)
	assert.Equal(t, []int{189999}, second.Found())

	key := resultCacheKey(first.URL)
	assert.Equal(t, time.Hour, mockCache.ttls[key])
}

func TestSearchDoesNotCacheFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	mockCache := NewMockCacheService()
	searcher := newTestSearcher(server.URL, mockCache)
	query := ProductQuery{Brand: "Philips", Model: "HD9252"}

	_, err := searcher.Search(query)
	assert.Error(t, err)
	_, err = searcher.Search(query)
	assert.Error(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Empty(t, mockCache.cache)
}

func TestSearchRateLimitBlock(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	mockCache := NewMockCacheService()
	searcher := newTestSearcher(server.URL, mockCache)

	result, err := searcher.Search(ProductQuery{Brand: "Samsung", Model: "A54"})
	assert.True(t, result.Failed())
	assert.Equal(t, errors.ErrorTypeRateLimit, errors.TypeOf(err))
	assert.Equal(t, 5*time.Minute, mockCache.ttls[rateLimitCacheKey])

	// A blocked search never reaches the marketplace
	result, err = searcher.Search(ProductQuery{Brand: "Motorola", Model: "G84"})
	assert.True(t, result.Failed())
	assert.Equal(t, errors.ErrorTypeRateLimit, errors.TypeOf(err))
	assert.True(t, strings.HasSuffix(result.URL, "/Motorola%20G84"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
