package analysis

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

// Local extracts text-layer words and positions without any remote service.
// Scanned pages without a text layer yield no tokens.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Name() string { return "local" }

func (l *Local) Analyze(ctx context.Context, req Request) (*docmodel.ChunkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, docmodel.NewProviderError(l.Name(), req.Index, req.Range, err)
	}

	reader, err := pdflib.NewReader(bytes.NewReader(req.PDF), int64(len(req.PDF)))
	if err != nil {
		return nil, docmodel.NewProviderError(l.Name(), req.Index, req.Range, fmt.Errorf("open pdf: %w", err))
	}

	out := &docmodel.ChunkResult{
		Index:    req.Index,
		Range:    req.Range,
		Provider: l.Name(),
		Pages:    make([]docmodel.Page, 0, reader.NumPage()),
	}
	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := readPage(reader.Page(i), i)
		out.Pages = append(out.Pages, page)
		text.WriteString(page.Text)
		text.WriteString("\n\f")
	}
	out.Text = text.String()
	return out, nil
}

func readPage(p pdflib.Page, number int) (page docmodel.Page) {
	page = docmodel.Page{Number: number, Tokens: []docmodel.Token{}}
	if p.V.IsNull() {
		return page
	}
	// Content() panics on some malformed content streams; keep the page empty.
	defer func() {
		if r := recover(); r != nil {
			page.Tokens = []docmodel.Token{}
			page.Text = ""
		}
	}()

	page.Width, page.Height = mediaBox(p.V)
	lines := groupWords(p.Content().Text)

	var text strings.Builder
	var prevBottom float64
	for i, ln := range lines {
		page.ParagraphCount++
		if i == 0 || prevBottom-ln.top() > 1.5*ln.size {
			page.BlockCount++
		}
		prevBottom = ln.y

		words := make([]string, 0, len(ln.words))
		for _, w := range ln.words {
			words = append(words, w.text)
			page.Tokens = append(page.Tokens, docmodel.Token{
				Text: w.text,
				Box:  w.normalized(page.Width, page.Height),
			})
		}
		text.WriteString(strings.Join(words, " "))
		text.WriteByte('\n')
	}
	page.Text = text.String()
	return page
}

// mediaBox walks the page tree for an inherited MediaBox; US Letter when
// none is found.
func mediaBox(v pdflib.Value) (width, height float64) {
	for depth := 0; depth < 32 && v.Kind() == pdflib.Dict; depth++ {
		mb := v.Key("MediaBox")
		if mb.Kind() == pdflib.Array && mb.Len() == 4 {
			w := mb.Index(2).Float64() - mb.Index(0).Float64()
			h := mb.Index(3).Float64() - mb.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return 612, 792
}

type word struct {
	text   string
	x0, x1 float64
	y      float64 // baseline, PDF user space (origin bottom-left)
	size   float64
}

func (w word) normalized(width, height float64) docmodel.BoundingPoly {
	top := w.y + w.size
	return docmodel.RectPoly(w.x0/width, 1-top/height, w.x1/width, 1-w.y/height)
}

type line struct {
	words []word
	y     float64
	size  float64
}

func (l line) top() float64 { return l.y + l.size }

// groupWords assembles glyph runs into words and lines. A word ends at
// whitespace, a horizontal gap wider than a third of the font size, or a
// baseline change of more than half the font size.
func groupWords(glyphs []pdflib.Text) []line {
	var lines []line
	var cur *word
	var curLine *line

	flushWord := func() {
		if cur == nil {
			return
		}
		if strings.TrimSpace(cur.text) != "" {
			curLine.words = append(curLine.words, *cur)
		}
		cur = nil
	}
	flushLine := func() {
		flushWord()
		if curLine != nil && len(curLine.words) > 0 {
			lines = append(lines, *curLine)
		}
		curLine = nil
	}

	for _, g := range glyphs {
		size := g.FontSize
		if size <= 0 {
			size = 10
		}
		if curLine == nil || math.Abs(g.Y-curLine.y) > size/2 {
			flushLine()
			curLine = &line{y: g.Y, size: size}
		}
		if isSpace(g.S) {
			flushWord()
			continue
		}
		if cur != nil && g.X-cur.x1 > size/3 {
			flushWord()
		}
		if cur == nil {
			cur = &word{x0: g.X, x1: g.X, y: g.Y, size: size}
		}
		cur.text += g.S
		cur.x1 = max(cur.x1, g.X+g.W)
		cur.size = max(cur.size, size)
		curLine.size = max(curLine.size, size)
	}
	flushLine()
	return lines
}

func isSpace(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
