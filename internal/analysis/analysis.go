// Package analysis adapts external document-analysis providers (OCR and
// layout extraction) to a common per-chunk contract.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dgallion1/doclayout/internal/config"
	"github.com/dgallion1/doclayout/internal/docmodel"
)

// Request is one chunk submitted for analysis.
type Request struct {
	Index    int
	Range    docmodel.PageRange
	PDF      []byte // the chunk's pages only
	Filename string
}

// Analyzer returns the raw structured result for one chunk. Page numbers in
// the result are chunk-local and 1-based. Failures are *docmodel.ProviderError;
// transient ones wrap *docmodel.RetryableError. Analyzers do not retry.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req Request) (*docmodel.ChunkResult, error)
}

// New builds the analyzer selected by cfg.AnalysisProvider.
func New(ctx context.Context, cfg config.Config) (Analyzer, error) {
	switch cfg.AnalysisProvider {
	case config.ProviderDocumentAI:
		return NewDocumentAI(ctx, DocumentAIConfig{
			ProjectID:   cfg.DocAIProjectID,
			Location:    cfg.DocAILocation,
			ProcessorID: cfg.ProcessorID(),
			Processor:   cfg.DocAIProcessor,

			CredentialsFile: cfg.GoogleCredentialsFile,
		})
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.ProviderLocal:
		return NewLocal(), nil
	}
	return nil, fmt.Errorf("unknown analysis provider %q", cfg.AnalysisProvider)
}

// classify wraps a raw client error as a ProviderError, marking transient
// HTTP and gRPC failures retryable.
func classify(provider string, req Request, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && docmodel.IsRetryableStatus(gerr.Code) {
		err = fmt.Errorf("%w: %w", &docmodel.RetryableError{StatusCode: gerr.Code, Message: gerr.Message}, err)
	} else if s, ok := status.FromError(err); ok && retryableCode(s.Code()) {
		err = fmt.Errorf("%w: %w", &docmodel.RetryableError{StatusCode: httpStatus(s.Code()), Message: s.Message()}, err)
	}
	return docmodel.NewProviderError(provider, req.Index, req.Range, err)
}

func retryableCode(c codes.Code) bool {
	switch c {
	case codes.ResourceExhausted, codes.Unavailable, codes.Internal, codes.DeadlineExceeded, codes.Aborted:
		return true
	}
	return false
}

func httpStatus(c codes.Code) int {
	switch c {
	case codes.ResourceExhausted:
		return 429
	case codes.Unavailable:
		return 503
	case codes.DeadlineExceeded:
		return 504
	}
	return 500
}
