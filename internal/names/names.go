// Package names maps raw fund house settlement instruction strings to the
// short labels used in output filenames and email drafts.
package names

import "strings"

// Override maps a substring of the raw counterparty name to a canonical label.
type Override struct {
	Match string
	Label string
}

// DefaultOverrides is scanned in order and the first match wins. Order is
// load-bearing: some keys are substrings of others (e.g. "FH-GaoTeng" vs
// "ICBC(Asia) Trustee - GaoTeng" both ending in the same house).
var DefaultOverrides = []Override{
	{"FH-CAPDYN:MF/BOC", "CAPDYN"},
	{"FH-Mirae", "Mirae"},
	{"FH-iFund", "iFund"},
	{"FH-GaoTeng", "GaoTeng"},
	{"FH-GF-MMF", "GF"},
	{"FH-TaiKang", "TaiKang"},
	{"CMB Wing Lung", "GF MMF"},
	{"ICBC(Asia) Trustee - GaoTeng", "GaoTeng"},
	{"BOCI-Prudential Trustee - Taikang Kaitai", "Taikang"},
	{"Webull Securities", "Webull"},
	{"JPMorgan Bank Luxembourg SA - Momentum", "Momentum"},
	{"BOCI Prudential Asset Management Limited", "BOCIP"},
	{"FH-Peak/Belgrave", "Belgrave"},
	{"FH-Everbright/Broker", "Everbright"},
	{"FH-NJ/", "Nanjia"},
}

// Normalizer resolves full counterparty names to canonical labels.
type Normalizer struct {
	overrides []Override
}

// NewNormalizer returns a normalizer using DefaultOverrides plus any extra
// entries. Extras are checked after the defaults, in the order given.
func NewNormalizer(extra ...Override) *Normalizer {
	overrides := make([]Override, 0, len(DefaultOverrides)+len(extra))
	overrides = append(overrides, DefaultOverrides...)
	overrides = append(overrides, extra...)
	return &Normalizer{overrides: overrides}
}

// Overrides returns the active override table in scan order.
func (n *Normalizer) Overrides() []Override {
	return n.overrides
}

// Simplify maps a raw counterparty name to its short label. The first
// override whose key is a substring of fullName wins. Without a match, the
// label is the trimmed text before the first '-', or the whole trimmed string
// if there is none. Empty input yields an empty label.
func (n *Normalizer) Simplify(fullName string) string {
	if fullName == "" {
		return ""
	}
	for _, o := range n.overrides {
		if strings.Contains(fullName, o.Match) {
			return o.Label
		}
	}
	before, _, _ := strings.Cut(fullName, "-")
	return strings.TrimSpace(before)
}
