// Package oracle sends rendered statement pages to a vision-capable language
// model and coerces whatever comes back into a single extraction record.
package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/wmcube/settlesplit/internal/models"
	"github.com/wmcube/settlesplit/internal/names"
)

// Extractor is the capability the pipeline depends on. Extract sends one
// rendered page image (PNG bytes) and returns the extracted record, or nil
// when the response could not be coerced into one. Transport and parse
// failures are both treated as misses by callers; neither is fatal to a run.
type Extractor interface {
	Extract(ctx context.Context, pageImage []byte) (*models.Record, error)
}

const promptHeader = `Extract information from the document image and return ONE JSON OBJECT only (not an array), with these exact keys:
{
  "full_name": "...",
  "simplified_name": "...",
  "currency": "...",
  "payment_total": "...",
  "confidence": "HIGH|MEDIUM|LOW"
}

Rules:
1) Use the exact text after 'Fund Hse Settlement Inst :' as full_name.
   When computing simplified_name, if full_name contains '-', keep only the part BEFORE the first '-',
   unless any special mapping below applies.
2) Special mappings (override simplified_name if applicable):
`

const promptFooter = `3) currency is the value in 'Currency :'.
4) payment_total is the numeric string after 'Payment Group XXXX Total'.
5) If the page is a continuation and 'Fund Hse Settlement Inst :' is not visible, infer from visible text and set confidence to LOW if uncertain.
Return only the JSON object, no markdown or explanation.`

// BuildPrompt renders the fixed extraction instruction, embedding the active
// override table so the model pre-applies the same simplification the
// normalizer would. The adapter still re-applies the rule as a safety net.
func BuildPrompt(n *names.Normalizer) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, o := range n.Overrides() {
		fmt.Fprintf(&b, "   %s → %s\n", o.Match, o.Label)
	}
	b.WriteString(promptFooter)
	return b.String()
}
