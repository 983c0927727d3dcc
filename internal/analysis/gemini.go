package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dgallion1/doclayout/internal/docmodel"
	"github.com/dgallion1/doclayout/internal/schema"
)

const geminiSystemPrompt = `You are a document layout extractor. For every page of the attached PDF,
return the page text, counts of tables, paragraphs and layout blocks, and every word as a token with
its bounding box [x0, y0, x1, y1] in page-relative coordinates between 0 and 1 (origin top-left).
Number pages from 1 in document order. Respond with JSON only, matching the schema.`

// Gemini extracts layout with a multimodal Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: cl, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Analyze(ctx context.Context, req Request) (*docmodel.ChunkResult, error) {
	m := g.client.GenerativeModel(g.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(geminiSystemPrompt),
			genai.Text("analysis_result.schema.json:\n" + schema.AnalysisResult.Raw()),
		},
	}

	prompt := fmt.Sprintf("Extract the layout of these %d page(s).", req.Range.Len())
	resp, err := m.GenerateContent(ctx, genai.Text(prompt), &genai.Blob{MIMEType: "application/pdf", Data: req.PDF})
	if err != nil {
		return nil, classify(g.Name(), req, fmt.Errorf("generate: %w", err))
	}

	txt := stripCodeBlock(firstText(resp))
	if txt == "" {
		return nil, classify(g.Name(), req, fmt.Errorf("empty response"))
	}
	return decodeLayoutJSON([]byte(txt), req, g.Name())
}

// Close releases the client connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// layoutJSON is the provider-neutral JSON form validated by
// schema.AnalysisResult.
type layoutJSON struct {
	Text  string `json:"text"`
	Pages []struct {
		PageNumber int    `json:"page_number"`
		Text       string `json:"text"`
		Tables     int    `json:"tables"`
		Paragraphs int    `json:"paragraphs"`
		Blocks     int    `json:"blocks"`
		Tokens     []struct {
			Text string     `json:"text"`
			Box  [4]float64 `json:"box"`
		} `json:"tokens"`
	} `json:"pages"`
}

func decodeLayoutJSON(data []byte, req Request, provider string) (*docmodel.ChunkResult, error) {
	var lj layoutJSON
	if err := schema.AnalysisResult.Decode(data, &lj); err != nil {
		return nil, classify(provider, req, fmt.Errorf("%w (raw: %s)", err, truncate(string(data), 200)))
	}

	out := &docmodel.ChunkResult{
		Index:    req.Index,
		Range:    req.Range,
		Provider: provider,
		Text:     lj.Text,
		Pages:    make([]docmodel.Page, 0, len(lj.Pages)),
	}
	var text strings.Builder
	for _, p := range lj.Pages {
		page := docmodel.Page{
			Number:         p.PageNumber,
			Text:           p.Text,
			TableCount:     p.Tables,
			ParagraphCount: p.Paragraphs,
			BlockCount:     p.Blocks,
			Tokens:         make([]docmodel.Token, 0, len(p.Tokens)),
		}
		for _, t := range p.Tokens {
			page.Tokens = append(page.Tokens, docmodel.Token{
				Text: t.Text,
				Box:  docmodel.RectPoly(t.Box[0], t.Box[1], t.Box[2], t.Box[3]),
			})
		}
		out.Pages = append(out.Pages, page)
		text.WriteString(p.Text)
		text.WriteByte('\n')
	}
	if out.Text == "" {
		out.Text = text.String()
	}
	return out, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func ptrFloat32(v float32) *float32 { return &v }
