package docmodel

import (
	"fmt"
	"time"
)

// Number categories produced by enhancement.
const (
	NumberCurrency   = "currency"
	NumberPercentage = "percentage"
	NumberQuantity   = "quantity"
)

// NumberCategories is the fixed report order of number buckets.
var NumberCategories = []string{NumberCurrency, NumberPercentage, NumberQuantity}

// PageRange is a half-open, 0-based range of source pages.
type PageRange struct {
	Start int `json:"start_index"`
	End   int `json:"end_index"`
}

// Len returns the number of pages in the range.
func (r PageRange) Len() int { return r.End - r.Start }

// Selection renders the range as a 1-based inclusive page selection ("1-15").
func (r PageRange) Selection() string {
	if r.Len() == 1 {
		return fmt.Sprintf("%d", r.Start+1)
	}
	return fmt.Sprintf("%d-%d", r.Start+1, r.End)
}

func (r PageRange) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// NumberRecord is one numeric mention found in the text.
type NumberRecord struct {
	Text     string   `json:"text"`
	RawValue *float64 `json:"raw_value,omitempty"`
	Page     int      `json:"page"`
}

// SectionHit records a detected section keyword on a page.
type SectionHit struct {
	Section string `json:"section"`
	Page    int    `json:"page"`
	Preview string `json:"preview,omitempty"`
}

// Token is a word with its location on the page.
type Token struct {
	Text string       `json:"text"`
	Box  BoundingPoly `json:"bounding_poly"`
}

// Page is one analyzed page. Number is chunk-local until merged.
type Page struct {
	Number         int     `json:"page_number"`
	Text           string  `json:"text,omitempty"`
	TableCount     int     `json:"tables"`
	ParagraphCount int     `json:"paragraphs"`
	BlockCount     int     `json:"blocks"`
	Width          float64 `json:"width,omitempty"`
	Height         float64 `json:"height,omitempty"`
	Tokens         []Token `json:"tokens"`
}

// ChunkResult is the analysis output for one PageRange.
type ChunkResult struct {
	Index    int                       `json:"chunk_index"`
	Range    PageRange                 `json:"page_range"`
	Provider string                    `json:"provider,omitempty"`
	Text     string                    `json:"text"`
	Pages    []Page                    `json:"pages"`
	Sections []SectionHit              `json:"detected_sections"`
	Numbers  map[string][]NumberRecord `json:"extracted_numbers"`
}

// Metadata holds document-level totals.
type Metadata struct {
	TotalPages       int      `json:"total_pages"`
	TotalBlocks      int      `json:"total_blocks"`
	TotalParagraphs  int      `json:"total_paragraphs"`
	TotalTables      int      `json:"total_tables"`
	DetectedSections []string `json:"detected_sections"`
	ChunkCount       int      `json:"chunk_count"`
}

// MergedDocument is the document-level result stitched from all chunks.
type MergedDocument struct {
	Text     string                    `json:"text"`
	Pages    []Page                    `json:"pages"`
	Sections []SectionHit              `json:"detected_sections"`
	Numbers  map[string][]NumberRecord `json:"extracted_numbers"`
	Metadata Metadata                  `json:"metadata"`
}

// NewMergedDocument returns an empty document with non-nil collections.
func NewMergedDocument() *MergedDocument {
	return &MergedDocument{
		Pages:    []Page{},
		Sections: []SectionHit{},
		Numbers:  map[string][]NumberRecord{},
		Metadata: Metadata{DetectedSections: []string{}},
	}
}

// SectionNames returns distinct section names in first-seen order.
func SectionNames(hits []SectionHit) []string {
	seen := make(map[string]bool, len(hits))
	names := []string{}
	for _, h := range hits {
		if seen[h.Section] {
			continue
		}
		seen[h.Section] = true
		names = append(names, h.Section)
	}
	return names
}

// LabelPrediction is one per-token label from the labeling provider.
type LabelPrediction struct {
	TokenID  int    `json:"token_id"`
	Label    string `json:"label"`
	Position int    `json:"position"`
	Text     string `json:"text,omitempty"`
}

// EntityToken is one constituent token of an Entity.
type EntityToken struct {
	TokenID  int    `json:"token_id"`
	Position int    `json:"position"`
	Text     string `json:"text,omitempty"`
}

// Entity is a contiguous, typed run of tokens.
type Entity struct {
	Type     string        `json:"entity_type"`
	Tokens   []EntityToken `json:"tokens"`
	TokenIDs []int         `json:"token_ids"`
	Start    int           `json:"start_position"`
	Text     string        `json:"text"`
}

// DocumentType is the category assigned by the classifier.
type DocumentType string

const (
	TypeNotice    DocumentType = "notice"
	TypePitchDeck DocumentType = "pitch_deck"
	TypeIRDeck    DocumentType = "ir_deck"
)

// ParseDocumentType validates a user-supplied category. Empty means auto-detect.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case "":
		return "", nil
	case TypeNotice, TypePitchDeck, TypeIRDeck:
		return DocumentType(s), nil
	}
	return "", InvalidInputf("unknown document type %q", s)
}

// Outcome statuses for batch runs.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// DocumentOutcome records how one document of a batch finished.
type DocumentOutcome struct {
	Path     string        `json:"path"`
	Status   string        `json:"status"`
	DocType  DocumentType  `json:"doc_type,omitempty"`
	Pages    int           `json:"pages"`
	Chunks   int           `json:"chunks"`
	Entities int           `json:"entities"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}
