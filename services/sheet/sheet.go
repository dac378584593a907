package sheet

import (
	"sjsage522/pricecheckworker/internal/crawler"
)

// ResultColumns are appended to the input header, in order
var ResultColumns = []string{"Precio_1", "Precio_2", "Precio_3", "Precio_4", "Precio_5", "URL_Busqueda"}

// Table is the content of the first worksheet: a header row and data rows.
// Rows holds the display text of each cell. Values, when set, holds the
// typed cell values written back on save; it is indexed like Rows.
type Table struct {
	Header []string
	Rows   [][]string
	Values [][]interface{}
}

// Store loads input tables and persists result tables
type Store interface {
	Load(path string) (Table, error)
	Save(path string, table ResultTable) error
}

// ResultTable is the input table plus one optional search result per row.
// WithResult returns a new table and never mutates the receiver.
type ResultTable struct {
	header  []string
	rows    [][]string
	values  [][]interface{}
	results []*crawler.SearchResult
	width   int
}

// NewResultTable prepares a table for results, padding short rows to a common width
func NewResultTable(table Table) ResultTable {
	width := len(table.Header)
	for _, row := range table.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for _, row := range table.Values {
		if len(row) > width {
			width = len(row)
		}
	}

	return ResultTable{
		header:  table.Header,
		rows:    table.Rows,
		values:  table.Values,
		results: make([]*crawler.SearchResult, len(table.Rows)),
		width:   width,
	}
}

// Len returns the number of data rows
func (t ResultTable) Len() int {
	return len(t.rows)
}

// Query returns the brand and model of row i, read from the first two columns
func (t ResultTable) Query(i int) crawler.ProductQuery {
	return crawler.ProductQuery{
		Brand: cell(t.rows[i], 0),
		Model: cell(t.rows[i], 1),
	}
}

// Result returns the search result recorded for row i, if any
func (t ResultTable) Result(i int) (crawler.SearchResult, bool) {
	if t.results[i] == nil {
		return crawler.SearchResult{}, false
	}
	return *t.results[i], true
}

// WithResult returns a copy of the table with the result of row i set
func (t ResultTable) WithResult(i int, result crawler.SearchResult) ResultTable {
	results := make([]*crawler.SearchResult, len(t.results))
	copy(results, t.results)
	results[i] = &result

	next := t
	next.results = results
	return next
}

// Header returns the input header padded to the table width, followed by ResultColumns
func (t ResultTable) Header() []string {
	header := make([]string, 0, t.width+len(ResultColumns))
	header = append(header, t.header...)
	for len(header) < t.width {
		header = append(header, "")
	}
	return append(header, ResultColumns...)
}

// Records returns every row as spreadsheet cell values, header first.
// Rows without a result get empty result cells.
func (t ResultTable) Records() [][]interface{} {
	records := make([][]interface{}, 0, len(t.rows)+1)

	header := t.Header()
	headerRecord := make([]interface{}, len(header))
	for i, name := range header {
		headerRecord[i] = name
	}
	records = append(records, headerRecord)

	for i, row := range t.rows {
		record := make([]interface{}, 0, t.width+len(ResultColumns))
		for c := 0; c < t.width; c++ {
			record = append(record, t.value(i, row, c))
		}

		if result := t.results[i]; result != nil {
			for _, slot := range result.Prices {
				record = append(record, slot.Cell())
			}
			record = append(record, result.URL)
		} else {
			for range ResultColumns {
				record = append(record, "")
			}
		}

		records = append(records, record)
	}

	return records
}

// value returns the typed input value of row i, column c, falling back to its text
func (t ResultTable) value(i int, row []string, c int) interface{} {
	if i < len(t.values) && c < len(t.values[i]) && t.values[i][c] != nil {
		return t.values[i][c]
	}
	return cell(row, c)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
