package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wmcube/settlesplit/internal/models"
	"github.com/wmcube/settlesplit/internal/names"
)

type stubSource struct {
	texts     []string
	renderErr map[int]error
	pageErr   map[int]error
	rendered  []int
}

func (s *stubSource) PageCount() int { return len(s.texts) }

func (s *stubSource) PageText(page int) (string, error) {
	return s.texts[page-1], nil
}

func (s *stubSource) RenderPNG(_ context.Context, page int) ([]byte, error) {
	if err := s.renderErr[page]; err != nil {
		return nil, err
	}
	s.rendered = append(s.rendered, page)
	return []byte("png-" + fmt.Sprint(page)), nil
}

func (s *stubSource) PageFile(page int) ([]byte, error) {
	if err := s.pageErr[page]; err != nil {
		return nil, err
	}
	return []byte("pdf-" + fmt.Sprint(page)), nil
}

type stubExtractor struct {
	records map[int]*models.Record // keyed by call count, 1-based
	err     error
	calls   int
}

func (e *stubExtractor) Extract(context.Context, []byte) (*models.Record, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.records[e.calls], nil
}

type countingReporter struct {
	calls int
	last  [2]int
}

func (r *countingReporter) Report(done, total int) {
	r.calls++
	r.last = [2]int{done, total}
}

var runDate = time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)

const (
	headerPage       = "Fund Hse Settlement Inst : FH-Mirae Fund\nCurrency : USD\nPayment Group ABC Total 1,234.56\n"
	continuationPage = "Currency : USD\nPayment Group DEF Total 2,000.00\n"
	summaryPage      = "Summary\nTotal USD 3,234.56\nTotal HKD 1.00\n"
)

func TestRunEndToEnd(t *testing.T) {
	// Three pages: header page, continuation without a header line, summary.
	// The oracle misses throughout so everything goes through the fallback.
	src := &stubSource{texts: []string{headerPage, continuationPage, summaryPage}}
	ext := &stubExtractor{err: errors.New("rate limited")}
	rep := &countingReporter{}

	files, err := Run(context.Background(), src, ext, names.NewNormalizer(), Options{
		StartSequence: 5,
		Date:          runDate,
		Progress:      rep,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}

	if files[0].Filename != "S240531-05_Mirae_USD-order details.pdf" {
		t.Errorf("file 0 name = %q", files[0].Filename)
	}
	if files[1].Filename != "S240531-06_Mirae_USD-order details.pdf" {
		t.Errorf("file 1 name = %q", files[1].Filename)
	}
	if files[0].Sequence != 5 || files[1].Sequence != 6 {
		t.Errorf("sequences = %d, %d, want 5, 6", files[0].Sequence, files[1].Sequence)
	}
	if files[0].PaymentTotal == nil || *files[0].PaymentTotal != 1234.56 {
		t.Errorf("file 0 total = %v, want 1234.56", files[0].PaymentTotal)
	}
	if files[1].PaymentTotal == nil || *files[1].PaymentTotal != 2000.00 {
		t.Errorf("file 1 total = %v, want the page's own 2000.00", files[1].PaymentTotal)
	}
	if string(files[1].Content) != "pdf-2" {
		t.Errorf("file 1 content = %q, want bytes of page 2", files[1].Content)
	}
	if rep.calls != 3 || rep.last != [2]int{3, 3} {
		t.Errorf("progress calls = %d last = %v, want 3 and [3 3]", rep.calls, rep.last)
	}
	// The summary page never reaches the oracle.
	if ext.calls != 2 {
		t.Errorf("oracle calls = %d, want 2", ext.calls)
	}
}

func TestRunOracleHit(t *testing.T) {
	src := &stubSource{texts: []string{headerPage}}
	ext := &stubExtractor{records: map[int]*models.Record{
		1: {FullName: "FH-GaoTeng X", SimplifiedName: "GaoTeng", Currency: "HKD", PaymentTotal: "9,999.99", Confidence: models.ConfidenceHigh},
	}}

	files, err := Run(context.Background(), src, ext, names.NewNormalizer(), Options{StartSequence: 1, Date: runDate})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	// Oracle fields win over the page text.
	if files[0].Currency != "HKD" {
		t.Errorf("Currency = %q, want HKD from the oracle", files[0].Currency)
	}
	if files[0].Filename != "S240531-01_GaoTeng_HKD-order details.pdf" {
		t.Errorf("Filename = %q", files[0].Filename)
	}
}

func TestRunPartialOracleRecordDiscarded(t *testing.T) {
	// The oracle returns name+currency but no amount; the fallback must
	// re-derive everything from the text, not merge with the partial record.
	src := &stubSource{texts: []string{headerPage}}
	ext := &stubExtractor{records: map[int]*models.Record{
		1: {SimplifiedName: "WrongName", Currency: "JPY"},
	}}

	files, err := Run(context.Background(), src, ext, names.NewNormalizer(), Options{StartSequence: 1, Date: runDate})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	if files[0].Currency != "USD" {
		t.Errorf("Currency = %q, want USD re-derived from text", files[0].Currency)
	}
	if files[0].Filename != "S240531-01_Mirae_USD-order details.pdf" {
		t.Errorf("Filename = %q, want fallback-derived name", files[0].Filename)
	}
}

func TestRunRenderFailureFallsBack(t *testing.T) {
	src := &stubSource{
		texts:     []string{headerPage},
		renderErr: map[int]error{1: errors.New("rasterizer broke")},
	}
	ext := &stubExtractor{}

	files, err := Run(context.Background(), src, ext, names.NewNormalizer(), Options{StartSequence: 1, Date: runDate})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(files) != 1 {
		t.Fatal("render failure must degrade to fallback, not drop the page")
	}
	if ext.calls != 0 {
		t.Errorf("oracle called %d times despite render failure", ext.calls)
	}
}

func TestRunPageWriteFailureSkips(t *testing.T) {
	src := &stubSource{
		texts:   []string{headerPage, continuationPage},
		pageErr: map[int]error{1: errors.New("disk full")},
	}

	files, err := Run(context.Background(), src, &stubExtractor{err: errors.New("down")}, names.NewNormalizer(), Options{StartSequence: 3, Date: runDate})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	// The failed page consumed no sequence number.
	if files[0].Sequence != 3 {
		t.Errorf("Sequence = %d, want 3", files[0].Sequence)
	}
}

func TestRunUnextractablePageSkipped(t *testing.T) {
	src := &stubSource{texts: []string{"nothing useful here\n", headerPage}}

	files, err := Run(context.Background(), src, &stubExtractor{err: errors.New("down")}, names.NewNormalizer(), Options{StartSequence: 1, Date: runDate})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	if files[0].Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", files[0].Sequence)
	}
}

func TestRunZeroPagesQualify(t *testing.T) {
	src := &stubSource{texts: []string{summaryPage}}
	files, err := Run(context.Background(), src, nil, names.NewNormalizer(), Options{Date: runDate})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}

func TestBuildFilename(t *testing.T) {
	got := BuildFilename(runDate, 3, "Mirae", "USD")
	want := "S240531-03_Mirae_USD-order details.pdf"
	if got != want {
		t.Errorf("BuildFilename = %q, want %q", got, want)
	}

	// Sequence numbers past 99 keep all their digits.
	if got := BuildFilename(runDate, 104, "Mirae", "USD"); got != "S240531-104_Mirae_USD-order details.pdf" {
		t.Errorf("BuildFilename = %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"FH-CAPDYN:MF/BOC", "FH-CAPDYN_MF_BOC"},
		{`a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"plain", "plain"},
		{"  ", "untitled"},
		{"", "untitled"},
	}
	for _, tc := range tests {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
