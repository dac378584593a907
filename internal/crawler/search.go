package crawler

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/pricecheckworker/helpers"
	"sjsage522/pricecheckworker/internal/observability"
	"sjsage522/pricecheckworker/logger"
	"sjsage522/pricecheckworker/pkg/errors"
	"sjsage522/pricecheckworker/services/cache"
)

const (
	rateLimitCacheKey   = "pricecheck:rate_limited"
	resultCacheKeyStart = "pricecheck:result:"
)

// SearchConfig contains configuration for a Searcher
type SearchConfig struct {
	BaseURL        string
	UserAgent      string
	AcceptLanguage string
	CacheTTL       time.Duration
	BlockTime      time.Duration
	Selectors      Selectors
}

// Searcher looks up validated prices for products on the marketplace
type Searcher struct {
	Extractor
	BaseURL   string
	Headers   map[string]string
	CacheSvc  cache.CacheService
	CacheTTL  time.Duration
	BlockTime time.Duration
	fetchFunc func(url string) (io.Reader, error)
	log       *logger.Logger
}

// NewSearcher creates a new searcher. cacheSvc may be nil.
func NewSearcher(config SearchConfig, cacheSvc cache.CacheService) *Searcher {
	s := &Searcher{
		Extractor: Extractor{Selectors: config.Selectors},
		BaseURL:   config.BaseURL,
		Headers: map[string]string{
			"User-Agent":      config.UserAgent,
			"Accept-Language": config.AcceptLanguage,
		},
		CacheSvc:  cacheSvc,
		CacheTTL:  config.CacheTTL,
		BlockTime: config.BlockTime,
		log:       logger.ForSearch(),
	}
	s.fetchFunc = s.fetchWithCache
	return s
}

// BuildSearchURL joins the listing path and the query with spaces encoded as %20
func BuildSearchURL(baseURL, brand, model string) string {
	query := strings.ReplaceAll(brand+" "+model, " ", "%20")
	return strings.TrimRight(baseURL, "/") + "/" + query
}

// Search returns up to MaxPrices validated prices for the product and the URL searched.
//
// The result always carries MaxPrices slots. When the page cannot be fetched
// or parsed every slot holds the error marker and the cause is returned
// alongside; the result is still the one to record.
func (s *Searcher) Search(q ProductQuery) (SearchResult, error) {
	url := BuildSearchURL(s.BaseURL, q.Brand, q.Model)

	if result, ok := s.cachedResult(url); ok {
		observability.CacheHits.Inc()
		s.log.Debug().Str("url", url).Msg("Using cached search result")
		return result, nil
	}

	body, err := s.fetchFunc(url)
	if err != nil {
		return FailedSearchResult(url), err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		err = errors.NewParsing("search", "failed to parse results page", err)
		return FailedSearchResult(url), err
	}

	prices := s.collectPrices(doc.Find(s.Selectors.ResultList), q)
	result := NewSearchResult(prices, url)
	s.storeResult(url, prices)

	return result, nil
}

// collectPrices walks the listing blocks in document order and stops at MaxPrices
func (s *Searcher) collectPrices(blocks *goquery.Selection, q ProductQuery) []int {
	prices := make([]int, 0, MaxPrices)

	blocks.EachWithBreak(func(i int, block *goquery.Selection) bool {
		price, ok, err := s.processBlock(block, q)
		if err != nil {
			observability.BlockErrors.Inc()
			s.log.Info().Err(err).Int("block", i).Msg("Skipping listing")
			return true
		}
		if ok {
			prices = append(prices, price)
		}
		return len(prices) < MaxPrices
	})

	return prices
}

// processBlock validates the block title before reading its price
func (s *Searcher) processBlock(block *goquery.Selection, q ProductQuery) (int, bool, error) {
	title, ok := s.Title(block)
	if !ok {
		return 0, false, nil
	}

	if !MatchesTitle(title, q.Brand, q.Model) {
		return 0, false, nil
	}

	return s.Price(block)
}

// fetchWithCache fetches a URL unless the marketplace recently rate limited us
func (s *Searcher) fetchWithCache(url string) (io.Reader, error) {
	if s.CacheSvc != nil {
		if _, err := s.CacheSvc.Get(rateLimitCacheKey); err == nil {
			return nil, errors.New(errors.ErrorTypeRateLimit, "search", "requests paused after an earlier rate limit", nil)
		}
	}

	body, err := helpers.FetchWithHeaders(url, s.Headers)
	if err != nil {
		if s.CacheSvc != nil && s.BlockTime > 0 && errors.TypeOf(err) == errors.ErrorTypeRateLimit {
			if cacheErr := s.CacheSvc.Set(rateLimitCacheKey, []byte(s.BlockTime.String()), s.BlockTime); cacheErr != nil {
				s.log.Warn().Err(cacheErr).Msg("Failed to set rate limit block")
			}
		}
		return nil, err
	}

	return body, nil
}

func resultCacheKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return resultCacheKeyStart + hex.EncodeToString(sum[:])
}

// cachedResult returns an earlier successful result for the same URL
func (s *Searcher) cachedResult(url string) (SearchResult, bool) {
	if s.CacheSvc == nil {
		return SearchResult{}, false
	}

	data, err := s.CacheSvc.Get(resultCacheKey(url))
	if err != nil {
		return SearchResult{}, false
	}

	var prices []int
	if err := json.Unmarshal(data, &prices); err != nil {
		s.log.Warn().Err(err).Str("url", url).Msg("Ignoring unreadable cached result")
		return SearchResult{}, false
	}

	return NewSearchResult(prices, url), true
}

func (s *Searcher) storeResult(url string, prices []int) {
	if s.CacheSvc == nil || s.CacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(prices)
	if err != nil {
		return
	}

	if err := s.CacheSvc.Set(resultCacheKey(url), data, s.CacheTTL); err != nil {
		s.log.Warn().Err(errors.NewCache("search", "failed to cache result", err)).Msg("Cache write failed")
	}
}
