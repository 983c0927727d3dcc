package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

// LabelSets lists entity types per document category. Every category gets
// the Base types plus its own.
type LabelSets struct {
	Base  []string            `yaml:"base"`
	Types map[string][]string `yaml:"types"`
}

// DefaultLabelSets returns the built-in entity types.
func DefaultLabelSets() LabelSets {
	return LabelSets{
		Base: []string{"HEADER", "QUESTION", "ANSWER", "TABLE", "FOOTER"},
		Types: map[string][]string{
			string(docmodel.TypeNotice):    {"AGENCY", "BUDGET", "DEADLINE", "ELIGIBILITY", "CONTACT"},
			string(docmodel.TypePitchDeck): {"PROBLEM", "SOLUTION", "MARKET", "TEAM", "BUSINESS_MODEL"},
			string(docmodel.TypeIRDeck):    {"REVENUE", "VALUATION", "INVESTMENT", "METRIC", "MILESTONE"},
		},
	}
}

// LoadLabelSets returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults. A file's base list replaces the
// default base; each listed category replaces that category's types.
func LoadLabelSets(path string) (LabelSets, error) {
	sets := DefaultLabelSets()
	if path == "" {
		return sets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sets, fmt.Errorf("read labels file: %w", err)
	}
	var file LabelSets
	if err := yaml.Unmarshal(data, &file); err != nil {
		return sets, fmt.Errorf("parse labels file %s: %w", path, err)
	}

	if len(file.Base) > 0 {
		sets.Base = file.Base
	}
	for name, types := range file.Types {
		if _, err := docmodel.ParseDocumentType(name); err != nil {
			return sets, fmt.Errorf("labels file %s: %w", path, err)
		}
		sets.Types[name] = types
	}
	return sets, nil
}

// EntityTypes returns the deduplicated entity types for a category.
func (s LabelSets) EntityTypes(t docmodel.DocumentType) []string {
	seen := map[string]bool{}
	var out []string
	for _, typ := range append(append([]string{}, s.Base...), s.Types[string(t)]...) {
		if typ == "" || seen[typ] {
			continue
		}
		seen[typ] = true
		out = append(out, typ)
	}
	return out
}

// Labels returns the BIO label list for a category: "O" followed by a
// B-/I- pair per entity type.
func (s LabelSets) Labels(t docmodel.DocumentType) []string {
	types := s.EntityTypes(t)
	labels := make([]string, 0, 1+2*len(types))
	labels = append(labels, "O")
	for _, typ := range types {
		labels = append(labels, "B-"+typ, "I-"+typ)
	}
	return labels
}
