package crawler

import "strconv"

// MaxPrices is the number of price slots in every SearchResult
const MaxPrices = 5

// ErrorMarker is the text written to a price slot whose search failed
const ErrorMarker = "Error"

// ProductQuery is one (brand, model) pair read from an input row
type ProductQuery struct {
	Brand string
	Model string
}

// String returns the query as it is typed into the marketplace search box
func (q ProductQuery) String() string {
	return q.Brand + " " + q.Model
}

// SlotKind tells what a PriceSlot holds
type SlotKind int

const (
	// SlotMissing marks a slot no validated listing filled
	SlotMissing SlotKind = iota
	// SlotValue marks a slot holding a validated price
	SlotValue
	// SlotFailed marks a slot of a search whose fetch failed
	SlotFailed
)

// PriceSlot is a single price column of a search result
type PriceSlot struct {
	Kind  SlotKind
	Value int
}

// Price returns a slot holding a validated price
func Price(value int) PriceSlot {
	return PriceSlot{Kind: SlotValue, Value: value}
}

// Missing returns an unfilled slot
func Missing() PriceSlot {
	return PriceSlot{Kind: SlotMissing}
}

// Failed returns a slot of a failed search
func Failed() PriceSlot {
	return PriceSlot{Kind: SlotFailed}
}

// String flattens the slot to its output text: the number, "" or "Error"
func (p PriceSlot) String() string {
	switch p.Kind {
	case SlotValue:
		return strconv.Itoa(p.Value)
	case SlotFailed:
		return ErrorMarker
	default:
		return ""
	}
}

// Cell returns the slot as a spreadsheet cell value, keeping prices numeric
func (p PriceSlot) Cell() interface{} {
	if p.Kind == SlotValue {
		return p.Value
	}
	return p.String()
}

// SearchResult holds the price slots and the URL of one product search
type SearchResult struct {
	Prices [MaxPrices]PriceSlot
	URL    string
}

// NewSearchResult fills the first slots with prices and pads the rest as missing.
// Prices beyond MaxPrices are dropped.
func NewSearchResult(prices []int, url string) SearchResult {
	result := SearchResult{URL: url}
	for i := range result.Prices {
		if i < len(prices) {
			result.Prices[i] = Price(prices[i])
		} else {
			result.Prices[i] = Missing()
		}
	}
	return result
}

// FailedSearchResult returns a result whose every slot is the error marker
func FailedSearchResult(url string) SearchResult {
	result := SearchResult{URL: url}
	for i := range result.Prices {
		result.Prices[i] = Failed()
	}
	return result
}

// Failed reports whether the search behind the result failed
func (r SearchResult) Failed() bool {
	return r.Prices[0].Kind == SlotFailed
}

// Found returns the validated prices in order
func (r SearchResult) Found() []int {
	var prices []int
	for _, slot := range r.Prices {
		if slot.Kind == SlotValue {
			prices = append(prices, slot.Value)
		}
	}
	return prices
}

// PriceStrings returns the slots flattened to their output text
func (r SearchResult) PriceStrings() []string {
	out := make([]string, len(r.Prices))
	for i, slot := range r.Prices {
		out[i] = slot.String()
	}
	return out
}

// Selectors contains the CSS selectors used to read a search results page
type Selectors struct {
	ResultList   string
	TitleWrapper string
	TitleLink    string
	PriceBlock   string
	PriceStyle   string
	Fraction     string
}

// MercadoLibreSelectors matches the listing markup of listado.mercadolibre.com.ar
var MercadoLibreSelectors = Selectors{
	ResultList:   "div.ui-search-result__wrapper",
	TitleWrapper: "h3.poly-component__title-wrapper",
	TitleLink:    "a.poly-component__title",
	PriceBlock:   "span.andes-money-amount.andes-money-amount--cents-superscript",
	PriceStyle:   "font-size:24px",
	Fraction:     "span.andes-money-amount__fraction",
}
