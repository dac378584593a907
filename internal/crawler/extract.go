package crawler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/pricecheckworker/pkg/errors"
)

// Extractor reads titles and prices out of listing blocks
type Extractor struct {
	Selectors Selectors
}

// Title returns the trimmed text of the block's title link.
// It reports false when the title wrapper or its link is missing.
func (e Extractor) Title(block *goquery.Selection) (string, bool) {
	wrapper := block.Find(e.Selectors.TitleWrapper).First()
	if wrapper.Length() == 0 {
		return "", false
	}

	link := wrapper.Find(e.Selectors.TitleLink).First()
	if link.Length() == 0 {
		return "", false
	}

	return strings.TrimSpace(link.Text()), true
}

// Price returns the whole-unit current price of the block.
//
// Only the amount styled with the configured font size is read; cards also
// carry smaller reference prices that must be ignored. It reports false when
// the block has no title or any lookup comes back empty, and returns an error
// when the fraction text is not a price.
func (e Extractor) Price(block *goquery.Selection) (int, bool, error) {
	if _, ok := e.Title(block); !ok {
		return 0, false, nil
	}

	amount := block.Find(e.Selectors.PriceBlock).FilterFunction(func(_ int, s *goquery.Selection) bool {
		style, exists := s.Attr("style")
		return exists && strings.Contains(strings.ReplaceAll(style, " ", ""), e.Selectors.PriceStyle)
	}).First()
	if amount.Length() == 0 {
		return 0, false, nil
	}

	fraction := amount.Find(e.Selectors.Fraction).First()
	if fraction.Length() == 0 {
		return 0, false, nil
	}

	price, err := ParsePrice(fraction.Text())
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

// ParsePrice converts a fraction such as "1.234" to 1234
func ParsePrice(text string) (int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ".", "")
	price, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, errors.NewParsing("price", fmt.Sprintf("invalid price %q", text), err)
	}
	if price < 0 {
		return 0, errors.NewParsing("price", fmt.Sprintf("negative price %q", text), nil)
	}
	return price, nil
}
