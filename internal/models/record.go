package models

// Confidence levels reported by the extraction oracle. Advisory only; no
// control flow depends on them beyond logging.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Currencies is the fixed set of settlement currencies the statements carry.
var Currencies = []string{"USD", "HKD", "JPY", "AUD", "EUR", "GBP", "CNY"}

// CurrencyAlternation returns the set as a regexp alternation, e.g. "USD|HKD|...".
func CurrencyAlternation() string {
	out := ""
	for i, c := range Currencies {
		if i > 0 {
			out += "|"
		}
		out += c
	}
	return out
}

// IsCurrency reports whether code is one of the supported settlement currencies.
func IsCurrency(code string) bool {
	for _, c := range Currencies {
		if c == code {
			return true
		}
	}
	return false
}

// Record holds the fields extracted from one statement page, from either the
// oracle path or the regex fallback. The JSON keys match the oracle's output
// contract exactly.
type Record struct {
	FullName       string `json:"full_name,omitempty"`
	SimplifiedName string `json:"simplified_name,omitempty"`
	Currency       string `json:"currency,omitempty"`
	PaymentTotal   string `json:"payment_total,omitempty"`
	Confidence     string `json:"confidence,omitempty"`
}

// Complete reports whether the record carries everything needed to emit an
// output file. FullName and Confidence are optional.
func (r *Record) Complete() bool {
	return r != nil && r.SimplifiedName != "" && r.Currency != "" && r.PaymentTotal != ""
}

// OutputFile is one split page, ready for naming, drafting and packaging.
// PaymentTotal is nil when the extracted amount string did not parse.
type OutputFile struct {
	Filename     string
	Content      []byte
	Currency     string
	PaymentTotal *float64
	Sequence     int
}
