// Package report renders human-readable document reports and the batch
// summary workbook.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/fumiama/go-docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dgallion1/doclayout/internal/docmodel"
	"github.com/dgallion1/doclayout/internal/enhance"
)

// Supported output formats, used as file extensions.
const (
	FormatText     = "txt"
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatDOCX     = "docx"
)

// Per-section display limits.
const (
	maxNumbersShown = 10
	maxLabelsShown  = 20
	previewRunes    = 80
)

var categoryTitles = map[string]string{
	docmodel.NumberCurrency:   "Currency",
	docmodel.NumberPercentage: "Percentage",
	docmodel.NumberQuantity:   "Quantity",
}

// Data is everything a report shows for one document.
type Data struct {
	File        string
	DocType     docmodel.DocumentType
	Rule        string
	Processor   string
	Doc         *docmodel.MergedDocument
	Labels      []string
	InputTokens int
	Truncated   bool
	Entities    []docmodel.Entity
	Duration    time.Duration
	GeneratedAt time.Time
}

// Render produces one report in the given format.
func Render(format string, d Data) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(Text(d)), nil
	case FormatMarkdown:
		return []byte(Markdown(d)), nil
	case FormatHTML:
		return HTML(d)
	case FormatDOCX:
		return DOCX(d)
	}
	return nil, docmodel.InvalidInputf("unknown report format %q", format)
}

// Text renders a plain-text report.
func Text(d Data) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)
	doc := docOrEmpty(d.Doc)

	fmt.Fprintf(&b, "%s\nDocument Analysis Report\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Document: %s\n", d.File)
	fmt.Fprintf(&b, "Type: %s (%s)\n", d.DocType, d.Rule)
	fmt.Fprintf(&b, "Labels: %d\n\n", len(d.Labels))

	fmt.Fprintf(&b, "%s\nLayout analysis\n%s\n", thin, thin)
	fmt.Fprintf(&b, "Pages: %d\n", doc.Metadata.TotalPages)
	fmt.Fprintf(&b, "Blocks: %d\n", doc.Metadata.TotalBlocks)
	fmt.Fprintf(&b, "Paragraphs: %d\n", doc.Metadata.TotalParagraphs)
	fmt.Fprintf(&b, "Tables: %d\n", doc.Metadata.TotalTables)
	fmt.Fprintf(&b, "Chunks: %d\n\n", doc.Metadata.ChunkCount)

	if len(doc.Sections) > 0 {
		b.WriteString("Detected sections:\n")
		for _, s := range doc.Sections {
			fmt.Fprintf(&b, "  * page %d: %s\n", s.Page, s.Section)
			if s.Preview != "" {
				fmt.Fprintf(&b, "    %s\n", enhance.Preview(s.Preview, previewRunes))
			}
		}
		b.WriteString("\n")
	}

	if countNumbers(doc) > 0 {
		b.WriteString("Extracted numbers:\n")
		for _, cat := range docmodel.NumberCategories {
			recs := doc.Numbers[cat]
			if len(recs) == 0 {
				continue
			}
			fmt.Fprintf(&b, "  %s (%d):\n", categoryTitles[cat], len(recs))
			for _, n := range recs[:min(len(recs), maxNumbersShown)] {
				fmt.Fprintf(&b, "    - %s (page %d)\n", n.Text, n.Page)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\nEntities\n%s\n", thin, thin)
	fmt.Fprintf(&b, "Input tokens: %d%s\n", d.InputTokens, truncatedNote(d.Truncated))
	if len(d.Entities) == 0 {
		b.WriteString("No entities.\n")
	}
	for _, e := range d.Entities {
		fmt.Fprintf(&b, "  [%s] %s\n", e.Type, e.Text)
	}
	if len(d.Labels) > 0 {
		fmt.Fprintf(&b, "Label sample:\n")
		for _, l := range d.Labels[:min(len(d.Labels), maxLabelsShown)] {
			fmt.Fprintf(&b, "  - %s\n", l)
		}
	}
	fmt.Fprintf(&b, "\n%s\n", rule)
	return b.String()
}

// Markdown renders a Markdown report. HTML is derived from it.
func Markdown(d Data) string {
	var b strings.Builder
	doc := docOrEmpty(d.Doc)

	fmt.Fprintf(&b, "# Document Analysis Report: %s\n\n", escapeMD(d.File))
	fmt.Fprintf(&b, "- **Type:** %s (%s)\n", d.DocType, d.Rule)
	if d.Processor != "" {
		fmt.Fprintf(&b, "- **Processor:** %s\n", d.Processor)
	}
	if !d.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- **Generated:** %s\n", d.GeneratedAt.UTC().Format(time.RFC3339))
	}
	if d.Duration > 0 {
		fmt.Fprintf(&b, "- **Duration:** %s\n", d.Duration.Round(time.Millisecond))
	}
	b.WriteString("\n## Layout\n\n")
	b.WriteString("| Pages | Blocks | Paragraphs | Tables | Chunks |\n")
	b.WriteString("|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n",
		doc.Metadata.TotalPages, doc.Metadata.TotalBlocks, doc.Metadata.TotalParagraphs,
		doc.Metadata.TotalTables, doc.Metadata.ChunkCount)

	if len(doc.Sections) > 0 {
		b.WriteString("\n## Sections\n\n")
		for _, s := range doc.Sections {
			fmt.Fprintf(&b, "- page %d: **%s**", s.Page, s.Section)
			if s.Preview != "" {
				fmt.Fprintf(&b, ": %s", escapeMD(enhance.Preview(s.Preview, previewRunes)))
			}
			b.WriteString("\n")
		}
	}

	if countNumbers(doc) > 0 {
		b.WriteString("\n## Numbers\n")
		for _, cat := range docmodel.NumberCategories {
			recs := doc.Numbers[cat]
			if len(recs) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n### %s (%d)\n\n", categoryTitles[cat], len(recs))
			for _, n := range recs[:min(len(recs), maxNumbersShown)] {
				fmt.Fprintf(&b, "- %s (page %d)\n", escapeMD(n.Text), n.Page)
			}
		}
	}

	b.WriteString("\n## Entities\n\n")
	fmt.Fprintf(&b, "Input tokens: %d%s\n\n", d.InputTokens, truncatedNote(d.Truncated))
	if len(d.Entities) == 0 {
		b.WriteString("No entities.\n")
	} else {
		b.WriteString("| Type | Text | Start |\n|---|---|---|\n")
		for _, e := range d.Entities {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", e.Type, escapeMD(e.Text), e.Start)
		}
	}
	return b.String()
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders the Markdown report as a standalone HTML page.
func HTML(d Data) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(d)), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(&out, "<title>%s</title>", htmlEscaper.Replace(d.File))
	out.WriteString("</head><body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}

// DOCX renders the report as a Word document.
func DOCX(d Data) ([]byte, error) {
	doc := docOrEmpty(d.Doc)
	w := docx.New().WithDefaultTheme()

	w.AddParagraph().AddText("Document Analysis Report: " + d.File).Bold().Size("32")
	w.AddParagraph().AddText(fmt.Sprintf("Type: %s (%s)", d.DocType, d.Rule))
	w.AddParagraph().AddText(fmt.Sprintf("Pages: %d  Blocks: %d  Paragraphs: %d  Tables: %d  Chunks: %d",
		doc.Metadata.TotalPages, doc.Metadata.TotalBlocks, doc.Metadata.TotalParagraphs,
		doc.Metadata.TotalTables, doc.Metadata.ChunkCount))

	if len(doc.Sections) > 0 {
		w.AddParagraph().AddText("Sections").Bold().Size("26")
		for _, s := range doc.Sections {
			w.AddParagraph().AddText(fmt.Sprintf("Page %d: %s", s.Page, s.Section))
		}
	}
	if countNumbers(doc) > 0 {
		w.AddParagraph().AddText("Numbers").Bold().Size("26")
		for _, cat := range docmodel.NumberCategories {
			recs := doc.Numbers[cat]
			if len(recs) == 0 {
				continue
			}
			texts := make([]string, 0, maxNumbersShown)
			for _, n := range recs[:min(len(recs), maxNumbersShown)] {
				texts = append(texts, n.Text)
			}
			w.AddParagraph().AddText(fmt.Sprintf("%s (%d): %s", categoryTitles[cat], len(recs), strings.Join(texts, ", ")))
		}
	}

	w.AddParagraph().AddText("Entities").Bold().Size("26")
	if len(d.Entities) == 0 {
		w.AddParagraph().AddText("No entities.")
	}
	for _, e := range d.Entities {
		p := w.AddParagraph()
		p.AddText(e.Type + ": ").Bold()
		p.AddText(e.Text)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}
	return buf.Bytes(), nil
}

func docOrEmpty(doc *docmodel.MergedDocument) *docmodel.MergedDocument {
	if doc == nil {
		return docmodel.NewMergedDocument()
	}
	return doc
}

func countNumbers(doc *docmodel.MergedDocument) int {
	n := 0
	for _, recs := range doc.Numbers {
		n += len(recs)
	}
	return n
}

func truncatedNote(truncated bool) string {
	if truncated {
		return " (truncated)"
	}
	return ""
}

var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;")

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeMD(s string) string {
	return mdEscaper.Replace(s)
}
