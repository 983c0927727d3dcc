package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Document AI processor kinds.
const (
	ProcessorOCR    = "OCR"
	ProcessorLayout = "LAYOUT"
	ProcessorForm   = "FORM"
)

// Analysis providers.
const (
	ProviderDocumentAI = "documentai"
	ProviderGemini     = "gemini"
	ProviderLocal      = "local"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount         int
	MaxQueueSize        int
	MaxConcurrentChunks int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Document analysis
	AnalysisProvider       string
	DocAIProjectID         string
	DocAILocation          string
	DocAIProcessor         string
	DocAIOCRProcessorID    string
	DocAILayoutProcessorID string
	DocAIFormProcessorID   string
	GoogleCredentialsFile  string
	GeminiAPIKey           string
	GeminiModel            string

	// Token labeling
	LabelingURL       string
	LabelingAPIKey    string
	LabelingMaxLength int
	LabelingTokenizer string
	LabelsFile        string

	// Chunking defaults
	UseChunking   bool
	PagesPerChunk int

	// Output
	OutputDir     string
	DatabaseURL   string
	ReportFormats []string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("API_KEY"),

		WorkerCount:         envInt("WORKER_COUNT", 2),
		MaxQueueSize:        envInt("MAX_QUEUE_SIZE", 50),
		MaxConcurrentChunks: envInt("MAX_CONCURRENT_CHUNKS", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		AnalysisProvider:       strings.ToLower(envOr("ANALYSIS_PROVIDER", ProviderDocumentAI)),
		DocAIProjectID:         envOr("DOCAI_PROJECT_ID", "pitchcoachai"),
		DocAILocation:          envOr("DOCAI_LOCATION", "us"),
		DocAIProcessor:         strings.ToUpper(envOr("DOCAI_PROCESSOR", ProcessorOCR)),
		DocAIOCRProcessorID:    envOr("DOCAI_OCR_PROCESSOR_ID", "5a5219faee01df08"),
		DocAILayoutProcessorID: envOr("DOCAI_LAYOUT_PROCESSOR_ID", "48046515c9645d3a"),
		DocAIFormProcessorID:   envOr("DOCAI_FORM_PROCESSOR_ID", "f788091cf561b641"),
		GoogleCredentialsFile:  os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		GeminiAPIKey:           os.Getenv("GEMINI_API_KEY"),
		GeminiModel:            envOr("GEMINI_MODEL", "gemini-1.5-flash"),

		LabelingURL:       os.Getenv("LABELING_URL"),
		LabelingAPIKey:    os.Getenv("LABELING_API_KEY"),
		LabelingMaxLength: envInt("LABELING_MAX_LENGTH", 512),
		LabelingTokenizer: strings.ToLower(envOr("LABELING_TOKENIZER", "bytelevel")),
		LabelsFile:        os.Getenv("LABELS_FILE"),

		UseChunking:   envBool("USE_CHUNKING", false),
		PagesPerChunk: envInt("PAGES_PER_CHUNK", 15),

		OutputDir:     envOr("OUTPUT_DIR", "data/output"),
		DatabaseURL:   envOr("DATABASE_URL", "data/runs.db"),
		ReportFormats: envList("REPORT_FORMATS", []string{"txt", "md", "html", "docx"}),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxConcurrentChunks <= 0 {
		cfg.MaxConcurrentChunks = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.LabelingMaxLength <= 0 {
		cfg.LabelingMaxLength = 512
	}
	if cfg.PagesPerChunk <= 0 {
		cfg.PagesPerChunk = 15
	}

	return cfg
}

// ProcessorID returns the Document AI processor id for the configured kind.
func (c Config) ProcessorID() string {
	switch c.DocAIProcessor {
	case ProcessorOCR:
		return c.DocAIOCRProcessorID
	case ProcessorLayout:
		return c.DocAILayoutProcessorID
	case ProcessorForm:
		return c.DocAIFormProcessorID
	}
	return ""
}

func (c Config) Validate() error {
	switch c.AnalysisProvider {
	case ProviderDocumentAI:
		if c.DocAIProjectID == "" {
			return fmt.Errorf("DOCAI_PROJECT_ID is required")
		}
		if c.DocAILocation == "" {
			return fmt.Errorf("DOCAI_LOCATION is required")
		}
		if c.ProcessorID() == "" {
			return fmt.Errorf("DOCAI_PROCESSOR %q has no processor id", c.DocAIProcessor)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("ANALYSIS_PROVIDER %q is not one of documentai, gemini, local", c.AnalysisProvider)
	}

	for _, f := range c.ReportFormats {
		switch f {
		case "txt", "md", "html", "docx":
		default:
			return fmt.Errorf("REPORT_FORMATS: unknown format %q", f)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
