// Package email drafts outgoing settlement notifications in Gmail, one per
// split output file, with the single-page PDF attached.
package email

import (
	"fmt"
	"strings"
)

// Subject is fixed for every settlement draft.
const Subject = "Settlement of Subscription"

const bodyTemplate = `Dear Sirs,

We have settled %s %s for the subscription.

Enclosed is the payment reference and order information for your kind reference.

Should you have any questions, please feel free to contact us.`

const htmlTemplate = `<div style="font-family: Tahoma, sans-serif;">
    <p>Dear Sirs,</p>
    <p>We have settled %s %s for the subscription.</p>
    <p>Enclosed is the payment reference and order information for your kind reference.</p>
    <p>Should you have any questions, please feel free to contact us.</p>
</div>`

// SettlementTemplate renders the plain-text and HTML bodies for one draft.
// A nil amount renders as 0.00; the draft still goes out so the operator can
// fix the figure by hand.
func SettlementTemplate(currency string, amount *float64) (body, htmlBody string) {
	var v float64
	if amount != nil {
		v = *amount
	}
	formatted := FormatAmount(v)
	return fmt.Sprintf(bodyTemplate, currency, formatted),
		fmt.Sprintf(htmlTemplate, currency, formatted)
}

// FormatAmount renders an amount with thousands separators and two decimals,
// e.g. 1234567.8 -> "1,234,567.80".
func FormatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
