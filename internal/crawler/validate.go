package crawler

import "strings"

// MatchesTitle reports whether a listing title names the given brand and model.
//
// The brand must appear in the normalized title. The model may appear as
// written, without hyphens, or with hyphens replaced by spaces, since
// listings render "ABC-123" as "ABC123" or "ABC 123" just as often.
func MatchesTitle(title, brand, model string) bool {
	titleNorm := Normalize(title)
	if !strings.Contains(titleNorm, Normalize(brand)) {
		return false
	}

	modelNorm := Normalize(model)
	variants := []string{
		modelNorm,
		strings.ReplaceAll(modelNorm, "-", ""),
		strings.ReplaceAll(modelNorm, "-", " "),
	}
	for _, variant := range variants {
		if strings.Contains(titleNorm, variant) {
			return true
		}
	}
	return false
}
