// Package enhance derives section hits and numeric mentions from analyzed
// pages. It runs per chunk, on chunk-local page numbers, before merging.
package enhance

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

// PreviewRunes bounds the page preview stored with each section hit.
const PreviewRunes = 120

type sectionRule struct {
	name string
	re   *regexp.Regexp
}

// English keywords match on word boundaries; Korean keywords as substrings.
var sectionRules = []sectionRule{
	{"background", regexp.MustCompile(`(?i)\bbackground\b|배경`)},
	{"problem", regexp.MustCompile(`(?i)\bproblems?\b|문제`)},
	{"solution", regexp.MustCompile(`(?i)\bsolutions?\b|해결`)},
	{"team", regexp.MustCompile(`(?i)\bteam\b|팀 구성|팀원|조직`)},
	{"market", regexp.MustCompile(`(?i)\bmarket\b|시장`)},
	{"business_model", regexp.MustCompile(`(?i)\bbusiness model\b|비즈니스 ?모델|수익 ?모델`)},
	{"competition", regexp.MustCompile(`(?i)\bcompetit(?:ion|ors?)\b|경쟁`)},
	{"traction", regexp.MustCompile(`(?i)\btraction\b|성과|실적`)},
	{"financials", regexp.MustCompile(`(?i)\bfinancials?\b|재무|매출 ?계획`)},
	{"roadmap", regexp.MustCompile(`(?i)\broadmap\b|로드맵|추진 ?일정`)},
	{"investment", regexp.MustCompile(`(?i)\binvestment\b|투자 ?유치|투자`)},
}

type numberRule struct {
	category string
	re       *regexp.Regexp
}

// Order matters: earlier categories claim a span first.
var numberRules = []numberRule{
	{docmodel.NumberCurrency, regexp.MustCompile(
		`[$₩]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:천만|억|만|[KMB]\b))?` +
			`|\d[\d,]*(?:\.\d+)?\s?(?:천만\s?원|억\s?원|만\s?원|원|천만|억|USD\b|KRW\b|달러)`)},
	{docmodel.NumberPercentage, regexp.MustCompile(`\d+(?:\.\d+)?\s?%`)},
	{docmodel.NumberQuantity, regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d+)?\s?(?:명|개|건|users\b|customers\b|units\b)`)},
}

var numericPart = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// Apply fills c.Sections and c.Numbers from the pages of c. Existing
// values are replaced. All number categories are present in the result.
func Apply(c *docmodel.ChunkResult) {
	c.Sections = []docmodel.SectionHit{}
	c.Numbers = make(map[string][]docmodel.NumberRecord, len(numberRules))
	for _, r := range numberRules {
		c.Numbers[r.category] = []docmodel.NumberRecord{}
	}

	for _, p := range c.Pages {
		text := PageText(p)
		if text == "" {
			continue
		}
		c.Sections = append(c.Sections, DetectSections(text, p.Number)...)
		for cat, recs := range ExtractNumbers(text, p.Number) {
			c.Numbers[cat] = append(c.Numbers[cat], recs...)
		}
	}
}

// PageText returns the page text, or its token texts joined by spaces when
// the provider did not supply page text.
func PageText(p docmodel.Page) string {
	if p.Text != "" {
		return p.Text
	}
	words := make([]string, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		words = append(words, t.Text)
	}
	return strings.Join(words, " ")
}

// DetectSections reports each section keyword found on one page, at most
// once per section.
func DetectSections(text string, page int) []docmodel.SectionHit {
	var hits []docmodel.SectionHit
	var preview string
	for _, r := range sectionRules {
		if !r.re.MatchString(text) {
			continue
		}
		if preview == "" {
			preview = Preview(text, PreviewRunes)
		}
		hits = append(hits, docmodel.SectionHit{Section: r.name, Page: page, Preview: preview})
	}
	return hits
}

// ExtractNumbers finds numeric mentions on one page. A text span is
// claimed by at most one category.
func ExtractNumbers(text string, page int) map[string][]docmodel.NumberRecord {
	out := make(map[string][]docmodel.NumberRecord)
	var claimed [][2]int

	overlaps := func(s, e int) bool {
		for _, c := range claimed {
			if s < c[1] && c[0] < e {
				return true
			}
		}
		return false
	}

	for _, r := range numberRules {
		for _, loc := range r.re.FindAllStringIndex(text, -1) {
			if overlaps(loc[0], loc[1]) {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})
			match := strings.TrimSpace(text[loc[0]:loc[1]])
			out[r.category] = append(out[r.category], docmodel.NumberRecord{
				Text:     match,
				RawValue: rawValue(match),
				Page:     page,
			})
		}
	}
	return out
}

func rawValue(s string) *float64 {
	num := numericPart.FindString(s)
	if num == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// Preview collapses whitespace and truncates to n runes.
func Preview(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
