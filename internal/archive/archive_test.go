package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/wmcube/settlesplit/internal/models"
)

func ptr(f float64) *float64 { return &f }

func sampleFiles() []models.OutputFile {
	return []models.OutputFile{
		{Filename: "a.pdf", Content: []byte("aaa"), Currency: "USD", PaymentTotal: ptr(100.50), Sequence: 1},
		{Filename: "b.pdf", Content: []byte("bbb"), Currency: "HKD", PaymentTotal: ptr(200), Sequence: 2},
		{Filename: "c.pdf", Content: []byte("ccc"), Currency: "USD", PaymentTotal: nil, Sequence: 3},
		{Filename: "d.pdf", Content: []byte("ddd"), Currency: "USD", PaymentTotal: ptr(0.25), Sequence: 4},
	}
}

func TestZip(t *testing.T) {
	data, err := Zip(sampleFiles())
	if err != nil {
		t.Fatalf("Zip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("not a readable zip: %v", err)
	}
	if len(zr.File) != 4 {
		t.Fatalf("archive holds %d entries, want 4", len(zr.File))
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open first entry: %v", err)
	}
	defer rc.Close()
	content, _ := io.ReadAll(rc)
	if zr.File[0].Name != "a.pdf" || string(content) != "aaa" {
		t.Errorf("first entry = %q/%q, want a.pdf/aaa", zr.File[0].Name, content)
	}
}

func TestGroupByCurrency(t *testing.T) {
	groups := GroupByCurrency(sampleFiles())
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if len(groups["USD"]) != 3 || len(groups["HKD"]) != 1 {
		t.Errorf("group sizes USD=%d HKD=%d, want 3 and 1", len(groups["USD"]), len(groups["HKD"]))
	}
	// Emission order preserved within a group.
	if groups["USD"][0].Sequence != 1 || groups["USD"][2].Sequence != 4 {
		t.Errorf("USD group out of order: %v", groups["USD"])
	}
}

func TestTotalsByCurrency(t *testing.T) {
	totals := TotalsByCurrency(sampleFiles())
	if totals["USD"] != 100.75 {
		t.Errorf("USD total = %v, want 100.75 (unparsed amounts excluded)", totals["USD"])
	}
	if totals["HKD"] != 200 {
		t.Errorf("HKD total = %v, want 200", totals["HKD"])
	}
}

func TestWriteReport(t *testing.T) {
	path := t.TempDir() + "/report.xlsx"
	if err := WriteReport(path, sampleFiles()); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
}
