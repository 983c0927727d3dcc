// Package pdfsplit counts PDF pages and cuts page ranges into standalone
// chunk PDFs.
package pdfsplit

import (
	"bytes"
	"fmt"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

var disableConfigDir sync.Once

func newConf() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in data. pdfcpu is tried first;
// files it rejects are retried with the more lenient text reader.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), newConf())
	if err == nil {
		return n, nil
	}
	n, ferr := countPagesFallback(data)
	if ferr != nil {
		return 0, fmt.Errorf("count pages: %w (fallback: %v)", err, ferr)
	}
	return n, nil
}

func countPagesFallback(data []byte) (n int, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

// Extract returns a PDF containing only the pages of r.
func Extract(data []byte, r docmodel.PageRange) ([]byte, error) {
	if r.Len() <= 0 || r.Start < 0 {
		return nil, docmodel.InvalidInputf("cannot extract page range %s", r)
	}
	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &out, []string{r.Selection()}, newConf()); err != nil {
		return nil, fmt.Errorf("extract pages %s: %w", r.Selection(), err)
	}
	return out.Bytes(), nil
}

// ChunkFileName names the artifact for chunk index i (0-based) of a
// document, e.g. "deck_chunk_1".
func ChunkFileName(stem string, i int) string {
	return fmt.Sprintf("%s_chunk_%d", stem, i+1)
}
