package helpers

import (
	"strings"
)

// EnsureSpreadsheetExt appends ".xlsx" to paths that do not already end in a spreadsheet extension
func EnsureSpreadsheetExt(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
		return path
	}
	return path + ".xlsx"
}
