// Package fallback extracts settlement fields from raw page text when the
// oracle record is missing or incomplete. It is deterministic: fixed regexes
// plus carry-over from the continuation context.
package fallback

import (
	"regexp"
	"strings"

	"github.com/wmcube/settlesplit/internal/models"
	"github.com/wmcube/settlesplit/internal/names"
)

var (
	currencyRe  = regexp.MustCompile(`Currency\s*:\s*(` + models.CurrencyAlternation() + `)`)
	fundHouseRe = regexp.MustCompile(`Fund Hse Settlement Inst\s*:\s*(.+)`)
	paymentRe   = regexp.MustCompile(`Payment Group\s+\S+\s+Total\s+([\d,]+\.\d{2})`)
)

// Context carries the identifying fields of the last accepted page so that
// continuation pages, which elide the header, can inherit them. Fields are
// only ever replaced by non-empty values, never cleared, for the remainder of
// one document traversal.
type Context struct {
	FullName       string
	SimplifiedName string
	Currency       string
}

// Update folds an accepted record into the context.
func (c *Context) Update(rec *models.Record) {
	if rec == nil {
		return
	}
	if rec.FullName != "" {
		c.FullName = rec.FullName
	}
	if rec.SimplifiedName != "" {
		c.SimplifiedName = rec.SimplifiedName
	}
	if rec.Currency != "" {
		c.Currency = rec.Currency
	}
}

// Extract derives a record from page text, inheriting missing identity fields
// from ctx. Each rule is independent and best-effort. Returns nil when, after
// inheritance, any of simplified name, currency or payment total is still
// missing. Confidence is MEDIUM when the fund house line was matched on this
// page, LOW when identity was inherited.
func Extract(pageText string, n *names.Normalizer, ctx *Context) *models.Record {
	rec := &models.Record{}

	if m := currencyRe.FindStringSubmatch(pageText); m != nil {
		rec.Currency = m[1]
	} else {
		rec.Currency = ctx.Currency
	}

	headerMatched := false
	if m := fundHouseRe.FindStringSubmatch(pageText); m != nil {
		headerMatched = true
		rec.FullName = strings.TrimSpace(m[1])
		rec.SimplifiedName = n.Simplify(rec.FullName)
	} else {
		rec.FullName = ctx.FullName
		rec.SimplifiedName = ctx.SimplifiedName
	}

	if m := paymentRe.FindStringSubmatch(pageText); m != nil {
		rec.PaymentTotal = m[1]
	}

	if !rec.Complete() {
		return nil
	}
	if headerMatched {
		rec.Confidence = models.ConfidenceMedium
	} else {
		rec.Confidence = models.ConfidenceLow
	}
	return rec
}
