package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "WORKER_COUNT", "PAGES_PER_CHUNK", "ANALYSIS_PROVIDER", "DOCAI_PROJECT_ID", "REPORT_FORMATS", "JOB_TTL"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.PagesPerChunk != 15 {
		t.Errorf("PagesPerChunk = %d, want 15", cfg.PagesPerChunk)
	}
	if cfg.AnalysisProvider != ProviderDocumentAI || cfg.DocAIProjectID != "pitchcoachai" || cfg.DocAILocation != "us" {
		t.Errorf("provider defaults = %q %q %q", cfg.AnalysisProvider, cfg.DocAIProjectID, cfg.DocAILocation)
	}
	if cfg.ProcessorID() != "5a5219faee01df08" {
		t.Errorf("ProcessorID = %q", cfg.ProcessorID())
	}
	if cfg.LabelingMaxLength != 512 {
		t.Errorf("LabelingMaxLength = %d", cfg.LabelingMaxLength)
	}
	if len(cfg.ReportFormats) != 4 {
		t.Errorf("ReportFormats = %v", cfg.ReportFormats)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("JobTTL = %v", cfg.JobTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadClampsNonPositive(t *testing.T) {
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("PAGES_PER_CHUNK", "-4")
	t.Setenv("MAX_CONCURRENT_CHUNKS", "-1")
	t.Setenv("REPORT_FORMATS", " TXT, html ,")
	cfg := Load()
	if cfg.WorkerCount != 2 || cfg.PagesPerChunk != 15 || cfg.MaxConcurrentChunks != 4 {
		t.Errorf("clamping failed: %+v", cfg)
	}
	if len(cfg.ReportFormats) != 2 || cfg.ReportFormats[0] != "txt" || cfg.ReportFormats[1] != "html" {
		t.Errorf("ReportFormats = %v", cfg.ReportFormats)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		AnalysisProvider:    ProviderDocumentAI,
		DocAIProjectID:      "p",
		DocAILocation:       "us",
		DocAIProcessor:      ProcessorOCR,
		DocAIOCRProcessorID: "abc",
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing project", func(c *Config) { c.DocAIProjectID = "" }},
		{"unknown processor", func(c *Config) { c.DocAIProcessor = "INVOICE" }},
		{"gemini without key", func(c *Config) { c.AnalysisProvider = ProviderGemini }},
		{"unknown provider", func(c *Config) { c.AnalysisProvider = "textract" }},
		{"bad report format", func(c *Config) { c.ReportFormats = []string{"pdf"} }},
	}
	for _, tt := range tests {
		c := base
		tt.mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}

	local := Config{AnalysisProvider: ProviderLocal}
	if err := local.Validate(); err != nil {
		t.Errorf("local provider needs no settings: %v", err)
	}
}

func TestLabelSets(t *testing.T) {
	sets := DefaultLabelSets()
	labels := sets.Labels(docmodel.TypePitchDeck)
	if labels[0] != "O" {
		t.Errorf("first label = %q", labels[0])
	}
	if len(labels) != 1+2*10 {
		t.Errorf("got %d labels, want 21", len(labels))
	}
	if labels[1] != "B-HEADER" || labels[2] != "I-HEADER" {
		t.Errorf("labels = %v", labels[:3])
	}
}

func TestLoadLabelSets(t *testing.T) {
	if sets, err := LoadLabelSets(""); err != nil || len(sets.Base) != 5 {
		t.Fatalf("defaults: %v %+v", err, sets)
	}

	path := filepath.Join(t.TempDir(), "labels.yaml")
	yml := "base: [HEADER, TABLE]\ntypes:\n  notice: [AGENCY, BUDGET, HEADER]\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	sets, err := LoadLabelSets(path)
	if err != nil {
		t.Fatalf("LoadLabelSets: %v", err)
	}
	got := sets.EntityTypes(docmodel.TypeNotice)
	want := []string{"HEADER", "TABLE", "AGENCY", "BUDGET"}
	if len(got) != len(want) {
		t.Fatalf("EntityTypes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EntityTypes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(sets.EntityTypes(docmodel.TypeIRDeck)) != 7 {
		t.Errorf("ir_deck should keep default types: %v", sets.EntityTypes(docmodel.TypeIRDeck))
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("types:\n  memo: [X]\n"), 0o644)
	if _, err := LoadLabelSets(bad); err == nil {
		t.Error("expected error for unknown category")
	}
}
