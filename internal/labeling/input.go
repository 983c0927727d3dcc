package labeling

import "github.com/dgallion1/doclayout/internal/docmodel"

// DefaultMaxLength is the model's sequence limit.
const DefaultMaxLength = 512

// Input is the word sequence sent to the labeling model. Words, Boxes and
// Pages are parallel slices.
type Input struct {
	Words []string `json:"words"`
	Boxes [][4]int `json:"boxes"`
	Pages []int    `json:"pages"`

	Truncated   bool `json:"truncated"`
	TotalTokens int  `json:"total_tokens"`
}

// Len returns the number of words.
func (in Input) Len() int { return len(in.Words) }

// PrepareInput flattens the document's tokens in page order, skipping
// tokens without a usable box, and keeps at most maxLen of them.
func PrepareInput(doc *docmodel.MergedDocument, maxLen int) Input {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	in := Input{Words: []string{}, Boxes: [][4]int{}, Pages: []int{}}
	if doc == nil {
		return in
	}
	for _, p := range doc.Pages {
		for _, t := range p.Tokens {
			box, ok := t.Box.Box()
			if !ok || t.Text == "" {
				continue
			}
			in.TotalTokens++
			if len(in.Words) >= maxLen {
				in.Truncated = true
				continue
			}
			in.Words = append(in.Words, t.Text)
			in.Boxes = append(in.Boxes, box)
			in.Pages = append(in.Pages, p.Number)
		}
	}
	return in
}
