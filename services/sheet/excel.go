package sheet

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sjsage522/pricecheckworker/logger"
	"sjsage522/pricecheckworker/pkg/errors"
)

// ExcelStore reads and writes .xlsx workbooks
type ExcelStore struct {
	// SheetName is the worksheet written on Save
	SheetName string
}

// NewExcelStore creates a new excel store
func NewExcelStore() *ExcelStore {
	return &ExcelStore{SheetName: "Sheet1"}
}

// Load reads the first worksheet of the workbook at path
func (s *ExcelStore) Load(path string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, errors.NewTable("sheet", "failed to open "+path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, errors.NewTable("sheet", path+" has no worksheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, errors.NewTable("sheet", "failed to read rows of "+path, err)
	}

	if len(rows) == 0 {
		return Table{}, nil
	}

	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, errors.NewTable("sheet", "failed to read rows of "+path, err)
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		return Table{}, errors.NewTable("sheet", "failed to read workbook properties of "+path, err)
	}
	date1904 := props.Date1904 != nil && *props.Date1904

	values := make([][]interface{}, len(rows)-1)
	for r := 1; r < len(rows); r++ {
		var rawRow []string
		if r < len(raw) {
			rawRow = raw[r]
		}
		values[r-1], err = rowValues(f, sheets[0], r, rows[r], rawRow, date1904)
		if err != nil {
			return Table{}, errors.NewTable("sheet", "failed to read cell types of "+path, err)
		}
	}

	logger.ForSheet().Debug().
		Str("path", path).
		Str("sheet", sheets[0]).
		Int("rows", len(rows)-1).
		Msg("Loaded input table")

	return Table{Header: rows[0], Rows: rows[1:], Values: values}, nil
}

// rowValues returns the typed values of the data row at index r. Cells whose
// value is plain text are left nil and written back from their display text.
func rowValues(f *excelize.File, sheet string, r int, text, raw []string, date1904 bool) ([]interface{}, error) {
	values := make([]interface{}, max(len(text), len(raw)))
	for c := range values {
		if c >= len(raw) || raw[c] == "" {
			continue
		}

		name, err := excelize.CoordinatesToCellName(c+1, r+1)
		if err != nil {
			return nil, err
		}
		values[c], err = cellValue(f, sheet, name, raw[c], date1904)
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}

func cellValue(f *excelize.File, sheet, name, raw string, date1904 bool) (interface{}, error) {
	cellType, err := f.GetCellType(sheet, name)
	if err != nil {
		return nil, err
	}

	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		if ts, err := time.Parse("2006-01-02T15:04:05", strings.TrimSuffix(raw, "Z")); err == nil {
			return ts, nil
		}
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		number, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, nil
		}

		isDate, err := hasDateFormat(f, sheet, name)
		if err != nil {
			return nil, err
		}
		if isDate {
			return excelize.ExcelDateToTime(number, date1904)
		}
		return number, nil
	}

	return nil, nil
}

// hasDateFormat reports whether the cell's number format renders a date or time
func hasDateFormat(f *excelize.File, sheet, name string) (bool, error) {
	styleID, err := f.GetCellStyle(sheet, name)
	if err != nil || styleID == 0 {
		return false, err
	}

	style, err := f.GetStyle(styleID)
	if err != nil {
		return false, err
	}

	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt), nil
	}
	// Built-in date and time formats
	return (style.NumFmt >= 14 && style.NumFmt <= 22) || (style.NumFmt >= 45 && style.NumFmt <= 47), nil
}

var formatLiteralRegex = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)

func isDateFormatCode(code string) bool {
	code = strings.ToLower(formatLiteralRegex.ReplaceAllString(code, ""))
	return strings.ContainsAny(code, "ymdhs")
}

// Save writes the whole table to path. The workbook is written to a
// temporary file first so an interrupted save leaves the previous one intact.
func (s *ExcelStore) Save(path string, table ResultTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := s.SheetName
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return errors.NewTable("sheet", "failed to name worksheet", err)
		}
	}

	for i, record := range table.Records() {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.NewTable("sheet", "invalid row index", err)
		}
		if err := f.SetSheetRow(sheetName, cellName, &record); err != nil {
			return errors.NewTable("sheet", "failed to write row", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pricecheck-*.xlsx")
	if err != nil {
		return errors.NewTable("sheet", "failed to create temporary file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return errors.NewTable("sheet", "failed to write "+path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewTable("sheet", "failed to write "+path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.NewTable("sheet", "failed to replace "+path, err)
	}

	return nil
}
