package fallback

import (
	"testing"

	"github.com/wmcube/settlesplit/internal/models"
	"github.com/wmcube/settlesplit/internal/names"
)

func TestExtractFullPage(t *testing.T) {
	text := "Fund Hse Settlement Inst : FH-Mirae Fund\nCurrency : USD\nPayment Group ABC Total 1,234.56\n"
	rec := Extract(text, names.NewNormalizer(), &Context{})
	if rec == nil {
		t.Fatal("Extract returned nil for a complete page")
	}
	if rec.FullName != "FH-Mirae Fund" {
		t.Errorf("FullName = %q", rec.FullName)
	}
	if rec.SimplifiedName != "Mirae" {
		t.Errorf("SimplifiedName = %q, want Mirae", rec.SimplifiedName)
	}
	if rec.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", rec.Currency)
	}
	if rec.PaymentTotal != "1,234.56" {
		t.Errorf("PaymentTotal = %q, want 1,234.56", rec.PaymentTotal)
	}
	if rec.Confidence != models.ConfidenceMedium {
		t.Errorf("Confidence = %q, want MEDIUM for a freshly matched header", rec.Confidence)
	}
}

func TestExtractInheritsFromContext(t *testing.T) {
	ctx := &Context{FullName: "FH-GaoTeng Global", SimplifiedName: "GaoTeng", Currency: "HKD"}
	text := "Payment Group XYZ Total 88,000.00\n"
	rec := Extract(text, names.NewNormalizer(), ctx)
	if rec == nil {
		t.Fatal("Extract returned nil for a continuation page")
	}
	if rec.Currency != "HKD" {
		t.Errorf("Currency = %q, want inherited HKD", rec.Currency)
	}
	if rec.FullName != "FH-GaoTeng Global" || rec.SimplifiedName != "GaoTeng" {
		t.Errorf("identity not inherited: %+v", rec)
	}
	if rec.Confidence != models.ConfidenceLow {
		t.Errorf("Confidence = %q, want LOW for inherited identity", rec.Confidence)
	}
}

func TestExtractOwnAmountWithInheritedIdentity(t *testing.T) {
	// A continuation page parses its own payment line even though the header
	// is inherited.
	ctx := &Context{SimplifiedName: "Mirae", Currency: "USD"}
	rec := Extract("Payment Group DEF Total 2,000.00\n", names.NewNormalizer(), ctx)
	if rec == nil {
		t.Fatal("Extract returned nil")
	}
	if rec.PaymentTotal != "2,000.00" {
		t.Errorf("PaymentTotal = %q, want the page's own amount", rec.PaymentTotal)
	}
}

func TestExtractIncomplete(t *testing.T) {
	tests := []struct {
		name string
		text string
		ctx  Context
	}{
		{"no amount", "Fund Hse Settlement Inst : FH-Mirae\nCurrency : USD\n", Context{}},
		{"no identity anywhere", "Currency : USD\nPayment Group A Total 1.00\n", Context{}},
		{"no currency anywhere", "Fund Hse Settlement Inst : FH-Mirae\nPayment Group A Total 1.00\n", Context{}},
		{"empty page empty context", "", Context{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rec := Extract(tc.text, names.NewNormalizer(), &tc.ctx); rec != nil {
				t.Errorf("Extract = %+v, want nil", rec)
			}
		})
	}
}

func TestContextUpdate(t *testing.T) {
	ctx := &Context{}
	ctx.Update(&models.Record{FullName: "FH-Mirae", SimplifiedName: "Mirae", Currency: "USD"})
	ctx.Update(&models.Record{Currency: "HKD"})
	ctx.Update(nil)

	if ctx.FullName != "FH-Mirae" || ctx.SimplifiedName != "Mirae" {
		t.Errorf("identity cleared by partial update: %+v", ctx)
	}
	if ctx.Currency != "HKD" {
		t.Errorf("Currency = %q, want replaced HKD", ctx.Currency)
	}
}
