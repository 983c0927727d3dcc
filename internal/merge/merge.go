// Package merge stitches per-chunk analysis results into one document.
package merge

import (
	"slices"
	"strings"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

// Merge combines chunk results, supplied in ascending PageRange order, into
// a single document. Pages are renumbered to be global and contiguous:
// each chunk's pages are rebased so its first page is 1, then shifted by
// the number of pages in all preceding chunks. Section and number page
// references are remapped with the same offset. Text is concatenated as-is,
// so content split across a chunk boundary stays split.
//
// Chunks are never reordered; a sequence whose ranges are not contiguous
// and ascending returns a merge error, as does a chunk whose page count
// differs from its range length. Zero chunks yield an empty document.
func Merge(chunks []docmodel.ChunkResult) (*docmodel.MergedDocument, error) {
	doc := docmodel.NewMergedDocument()
	if err := checkOrder(chunks); err != nil {
		return nil, err
	}

	var text strings.Builder
	offset := 0
	for i := range chunks {
		c := &chunks[i]

		global, err := pageMap(c, offset)
		if err != nil {
			return nil, err
		}

		for _, p := range c.Pages {
			p.Number = global[p.Number]
			p.Tokens = append([]docmodel.Token(nil), p.Tokens...)
			doc.Pages = append(doc.Pages, p)

			doc.Metadata.TotalBlocks += p.BlockCount
			doc.Metadata.TotalParagraphs += p.ParagraphCount
			doc.Metadata.TotalTables += p.TableCount
		}

		for _, s := range c.Sections {
			g, ok := global[s.Page]
			if !ok {
				return nil, docmodel.MergeErrorf("chunk %d: section %q references page %d outside the chunk", c.Index, s.Section, s.Page)
			}
			s.Page = g
			doc.Sections = append(doc.Sections, s)
		}

		for _, cat := range categories(c.Numbers) {
			if doc.Numbers[cat] == nil {
				doc.Numbers[cat] = []docmodel.NumberRecord{}
			}
			for _, n := range c.Numbers[cat] {
				g, ok := global[n.Page]
				if !ok {
					return nil, docmodel.MergeErrorf("chunk %d: %s number %q references page %d outside the chunk", c.Index, cat, n.Text, n.Page)
				}
				n.Page = g
				doc.Numbers[cat] = append(doc.Numbers[cat], n)
			}
		}

		text.WriteString(c.Text)
		offset += len(c.Pages)
	}

	doc.Text = text.String()
	doc.Metadata.TotalPages = len(doc.Pages)
	doc.Metadata.ChunkCount = len(chunks)
	doc.Metadata.DetectedSections = docmodel.SectionNames(doc.Sections)
	return doc, nil
}

// FromChunk merges a single chunk that covers the whole document.
func FromChunk(c docmodel.ChunkResult) (*docmodel.MergedDocument, error) {
	return Merge([]docmodel.ChunkResult{c})
}

func checkOrder(chunks []docmodel.ChunkResult) error {
	for i, c := range chunks {
		if c.Range.Len() <= 0 {
			return docmodel.MergeErrorf("chunk %d has empty page range %s", i, c.Range)
		}
		if i > 0 && c.Range.Start != chunks[i-1].Range.End {
			return docmodel.MergeErrorf("chunk %d range %s does not follow %s", i, c.Range, chunks[i-1].Range)
		}
		if len(c.Pages) != c.Range.Len() {
			return docmodel.MergeErrorf("chunk %d range %s has %d pages, want %d", i, c.Range, len(c.Pages), c.Range.Len())
		}
	}
	return nil
}

// pageMap maps each chunk-local page number to its global number. For the
// usual 1-based local numbering this is offset + local.
func pageMap(c *docmodel.ChunkResult, offset int) (map[int]int, error) {
	m := make(map[int]int, len(c.Pages))
	if len(c.Pages) == 0 {
		return m, nil
	}
	for i, p := range c.Pages {
		if i > 0 && p.Number <= c.Pages[i-1].Number {
			return nil, docmodel.MergeErrorf("chunk %d: page numbers not increasing (%d after %d)", c.Index, p.Number, c.Pages[i-1].Number)
		}
		m[p.Number] = offset + i + 1
	}
	return m, nil
}

// categories returns known number categories first, then any others in
// lexical order, so output is deterministic.
func categories(numbers map[string][]docmodel.NumberRecord) []string {
	out := make([]string, 0, len(numbers))
	known := make(map[string]bool, len(docmodel.NumberCategories))
	for _, c := range docmodel.NumberCategories {
		known[c] = true
		if _, ok := numbers[c]; ok {
			out = append(out, c)
		}
	}
	var extra []string
	for c := range numbers {
		if !known[c] {
			extra = append(extra, c)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
