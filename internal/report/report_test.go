package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fumiama/go-docx"
	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

func sampleData() Data {
	doc := docmodel.NewMergedDocument()
	doc.Pages = []docmodel.Page{{Number: 1}, {Number: 2}}
	doc.Sections = []docmodel.SectionHit{{Section: "market", Page: 2, Preview: "Market size is growing"}}
	doc.Numbers[docmodel.NumberCurrency] = []docmodel.NumberRecord{{Text: "$5M", Page: 2}}
	doc.Numbers[docmodel.NumberPercentage] = []docmodel.NumberRecord{}
	doc.Metadata = docmodel.Metadata{TotalPages: 2, TotalBlocks: 4, TotalParagraphs: 6, ChunkCount: 1, DetectedSections: []string{"market"}}

	return Data{
		File:        "deck.pdf",
		DocType:     docmodel.TypePitchDeck,
		Rule:        "pitch_sections",
		Doc:         doc,
		Labels:      []string{"O", "B-MARKET", "I-MARKET"},
		InputTokens: 42,
		Entities: []docmodel.Entity{
			{Type: "MARKET", Text: "Market size", Start: 3},
		},
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestText(t *testing.T) {
	out := Text(sampleData())
	for _, want := range []string{
		"Document: deck.pdf",
		"Type: pitch_deck (pitch_sections)",
		"Pages: 2",
		"page 2: market",
		"Currency (1):",
		"- $5M (page 2)",
		"[MARKET] Market size",
		"- B-MARKET",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q", want)
		}
	}
	if strings.Contains(out, "Percentage") {
		t.Error("empty categories should be omitted")
	}
}

func TestTextWithoutDocument(t *testing.T) {
	out := Text(Data{File: "empty.pdf"})
	if !strings.Contains(out, "Pages: 0") || !strings.Contains(out, "No entities.") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestMarkdownEscapesTableCells(t *testing.T) {
	d := sampleData()
	d.Entities = []docmodel.Entity{{Type: "TABLE", Text: "a | b"}}
	out := Markdown(d)
	if !strings.Contains(out, `| TABLE | a \| b | 0 |`) {
		t.Errorf("entity row not escaped:\n%s", out)
	}
	if !strings.Contains(out, "2026-01-02T03:04:05Z") {
		t.Error("generated timestamp missing")
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML(sampleData())
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "<!DOCTYPE html>") {
		t.Error("missing doctype")
	}
	if !strings.Contains(s, "<h1>Document Analysis Report: deck.pdf</h1>") {
		t.Errorf("missing heading:\n%s", s)
	}
	if !strings.Contains(s, "<table>") {
		t.Error("layout table not rendered")
	}
}

func TestDOCX(t *testing.T) {
	out, err := DOCX(sampleData())
	if err != nil {
		t.Fatalf("DOCX: %v", err)
	}
	if _, err := docx.Parse(bytes.NewReader(out), int64(len(out))); err != nil {
		t.Fatalf("generated docx does not parse: %v", err)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render("pdf", sampleData())
	if !errors.Is(err, docmodel.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
	for _, f := range []string{FormatText, FormatMarkdown, FormatHTML, FormatDOCX} {
		if out, err := Render(f, sampleData()); err != nil || len(out) == 0 {
			t.Errorf("Render(%s) = %d bytes, %v", f, len(out), err)
		}
	}
}

func TestBatchXLSX(t *testing.T) {
	outcomes := []docmodel.DocumentOutcome{
		{Path: "/in/a.pdf", Status: docmodel.OutcomeSuccess, DocType: docmodel.TypeNotice, Pages: 3, Chunks: 1, Entities: 2, Duration: 1500 * time.Millisecond},
		{Path: "/in/b.pdf", Status: docmodel.OutcomeFailed, Error: "provider error"},
	}
	data, err := BatchXLSX(outcomes)
	if err != nil {
		t.Fatalf("BatchXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) < 3 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][0] != "a.pdf" || rows[1][1] != "success" || rows[1][2] != "notice" {
		t.Errorf("row 2 = %v", rows[1])
	}
	if rows[2][1] != "failed" || rows[2][7] != "provider error" {
		t.Errorf("row 3 = %v", rows[2])
	}
	last := rows[len(rows)-1]
	if last[0] != "Succeeded" || last[1] != "1/2" {
		t.Errorf("totals row = %v", last)
	}
}

func TestSummaryFileName(t *testing.T) {
	got := SummaryFileName(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	if got != "batch_summary_20260304_050607.xlsx" {
		t.Errorf("SummaryFileName = %q", got)
	}
}
