// Package classify decides whether a statement page is an aggregate summary
// page to be excluded from per-transaction splitting.
package classify

import (
	"regexp"
	"strings"

	"github.com/wmcube/settlesplit/internal/models"
)

// summaryMarkers are tokens that only appear on summary/total pages. The
// report header token is matched with its surrounding newlines to avoid
// hitting the word "Currency" on data pages.
var summaryMarkers = []string{
	"Summary",
	"Grand Total",
	"Currency\nFDS_190.rpt\n",
	"Total\n",
}

var currencyTotalRe = regexp.MustCompile(`Total\s*(` + models.CurrencyAlternation() + `)\s*[\d,]+\.\d{2}`)

// IsSummaryPage reports whether the page text describes a summary/total page.
//
// A page matching any summary marker is a summary page unless it also carries
// a "Payment Group" line, which only data pages have. Independently, a page
// containing "Summary" plus two or more "Total <CCY> <amount>" lines is always
// a summary page. Pure function of the text.
func IsSummaryPage(text string) bool {
	for _, marker := range summaryMarkers {
		if strings.Contains(text, marker) {
			if !strings.Contains(text, "Payment Group") {
				return true
			}
			break
		}
	}

	if strings.Contains(text, "Summary") && containsAnyCurrency(text) {
		count := 0
		for _, line := range strings.Split(text, "\n") {
			if currencyTotalRe.MatchString(line) {
				count++
			}
		}
		if count >= 2 {
			return true
		}
	}

	return false
}

func containsAnyCurrency(text string) bool {
	for _, c := range models.Currencies {
		if strings.Contains(text, c) {
			return true
		}
	}
	return false
}
