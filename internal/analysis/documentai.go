package analysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/documentai/v1"
	"google.golang.org/api/option"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

// DocumentAIConfig identifies a Document AI processor.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Processor   string // OCR, LAYOUT or FORM; informational

	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string

	// Endpoint and HTTPClient override the regional endpoint and default
	// credentials. Used by tests.
	Endpoint   string
	HTTPClient *http.Client
}

// DocumentAI calls the Google Document AI process endpoint.
type DocumentAI struct {
	svc       *documentai.Service
	name      string
	processor string
}

func NewDocumentAI(ctx context.Context, cfg DocumentAIConfig) (*DocumentAI, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s-documentai.googleapis.com/", cfg.Location)
	}
	opts := []option.ClientOption{option.WithEndpoint(endpoint)}
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := documentai.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	return &DocumentAI{
		svc:       svc,
		name:      fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, cfg.Location, cfg.ProcessorID),
		processor: cfg.Processor,
	}, nil
}

func (d *DocumentAI) Name() string { return "documentai" }

// ProcessorName returns the full processor resource name.
func (d *DocumentAI) ProcessorName() string { return d.name }

func (d *DocumentAI) Analyze(ctx context.Context, req Request) (*docmodel.ChunkResult, error) {
	body := &documentai.GoogleCloudDocumentaiV1ProcessRequest{
		RawDocument: &documentai.GoogleCloudDocumentaiV1RawDocument{
			Content:  base64.StdEncoding.EncodeToString(req.PDF),
			MimeType: "application/pdf",
		},
		SkipHumanReview: true,
	}

	resp, err := d.svc.Projects.Locations.Processors.Process(d.name, body).Context(ctx).Do()
	if err != nil {
		return nil, classify(d.Name(), req, fmt.Errorf("process %s: %w", d.processor, err))
	}
	if resp.Document == nil {
		return nil, classify(d.Name(), req, fmt.Errorf("process %s: empty document", d.processor))
	}
	return convertDocument(resp.Document, req, d.Name()), nil
}

func convertDocument(doc *documentai.GoogleCloudDocumentaiV1Document, req Request, provider string) *docmodel.ChunkResult {
	text := []rune(doc.Text)
	out := &docmodel.ChunkResult{
		Index:    req.Index,
		Range:    req.Range,
		Provider: provider,
		Text:     doc.Text,
		Pages:    make([]docmodel.Page, 0, len(doc.Pages)),
	}

	for i, p := range doc.Pages {
		page := docmodel.Page{
			Number:         int(p.PageNumber),
			TableCount:     len(p.Tables),
			ParagraphCount: len(p.Paragraphs),
			BlockCount:     len(p.Blocks),
			Tokens:         make([]docmodel.Token, 0, len(p.Tokens)),
		}
		if page.Number == 0 {
			page.Number = i + 1
		}
		if p.Dimension != nil {
			page.Width, page.Height = p.Dimension.Width, p.Dimension.Height
		}
		if p.Layout != nil {
			page.Text = anchorText(text, p.Layout.TextAnchor)
		}

		for _, tok := range p.Tokens {
			if tok.Layout == nil {
				continue
			}
			t := docmodel.Token{Text: strings.TrimSpace(anchorText(text, tok.Layout.TextAnchor))}
			if t.Text == "" {
				continue
			}
			t.Box = polygon(tok.Layout.BoundingPoly, page.Width, page.Height)
			page.Tokens = append(page.Tokens, t)
		}
		out.Pages = append(out.Pages, page)
	}
	return out
}

// anchorText resolves a text anchor against the document text. Segment
// indexes count code points; a missing start index means 0.
func anchorText(text []rune, a *documentai.GoogleCloudDocumentaiV1DocumentTextAnchor) string {
	if a == nil {
		return ""
	}
	if a.Content != "" {
		return a.Content
	}
	var b strings.Builder
	for _, seg := range a.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		b.WriteString(string(text[start:end]))
	}
	return b.String()
}

// polygon prefers normalized vertices and falls back to pixel vertices
// scaled by the page dimension.
func polygon(bp *documentai.GoogleCloudDocumentaiV1BoundingPoly, width, height float64) docmodel.BoundingPoly {
	var out docmodel.BoundingPoly
	if bp == nil {
		return out
	}
	if len(bp.NormalizedVertices) > 0 {
		for _, v := range bp.NormalizedVertices {
			out.Vertices = append(out.Vertices, docmodel.NormalizedVertex{X: v.X, Y: v.Y})
		}
		return out
	}
	if width <= 0 || height <= 0 {
		return out
	}
	for _, v := range bp.Vertices {
		out.Vertices = append(out.Vertices, docmodel.NormalizedVertex{
			X: float64(v.X) / width,
			Y: float64(v.Y) / height,
		})
	}
	return out
}
