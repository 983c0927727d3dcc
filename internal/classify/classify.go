// Package classify assigns a document category from merged analysis output.
package classify

import (
	"strings"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

// Rule is one entry of the classification table.
type Rule struct {
	Name     string
	Match    func(doc *docmodel.MergedDocument) bool
	Category docmodel.DocumentType
}

// Fixed rule parameters.
var (
	NoticeKeywords    = []string{"예산", "발주기관", "입찰"}
	PitchSections     = []string{"background", "problem", "solution", "team", "market"}
	IRCurrencyMinimum = 5
)

// Default is returned when no rule matches.
const Default = docmodel.TypePitchDeck

// Rules are evaluated in order; the first match wins. Order matters: a
// procurement notice that also quotes many amounts is still a notice.
var Rules = []Rule{
	{Name: "notice_keywords", Match: hasNoticeKeyword, Category: docmodel.TypeNotice},
	{Name: "pitch_sections", Match: hasPitchSection, Category: docmodel.TypePitchDeck},
	{Name: "currency_count", Match: hasManyCurrencies, Category: docmodel.TypeIRDeck},
}

// Classify returns the category of doc. It never fails.
func Classify(doc *docmodel.MergedDocument) docmodel.DocumentType {
	cat, _ := Explain(doc)
	return cat
}

// Explain returns the category and the name of the rule that produced it
// ("default" when none matched).
func Explain(doc *docmodel.MergedDocument) (docmodel.DocumentType, string) {
	if doc == nil {
		return Default, "default"
	}
	for _, r := range Rules {
		if r.Match(doc) {
			return r.Category, r.Name
		}
	}
	return Default, "default"
}

func hasNoticeKeyword(doc *docmodel.MergedDocument) bool {
	for _, kw := range NoticeKeywords {
		if strings.Contains(doc.Text, kw) {
			return true
		}
	}
	return false
}

func hasPitchSection(doc *docmodel.MergedDocument) bool {
	detected := doc.Metadata.DetectedSections
	if len(detected) == 0 {
		detected = docmodel.SectionNames(doc.Sections)
	}
	for _, s := range detected {
		for _, want := range PitchSections {
			if s == want {
				return true
			}
		}
	}
	return false
}

func hasManyCurrencies(doc *docmodel.MergedDocument) bool {
	return len(doc.Numbers[docmodel.NumberCurrency]) >= IRCurrencyMinimum
}
