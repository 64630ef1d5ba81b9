package extract

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDF returns the embedded text of every page. Documents without any
// text layer are rendered and passed through OCR.
func (e *Extractor) readPDF(ctx context.Context, data []byte) (string, error) {
	text, err := pdfText(data)
	if err != nil {
		log.Printf("Warning: PDF text layer unreadable, trying OCR: %v", err)
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	if e.rasterizer == nil || e.ocr == nil {
		if err != nil {
			return "", fmt.Errorf("failed to read PDF: %w", err)
		}
		return "", ErrNoText
	}

	pages, rerr := e.rasterizer.Rasterize(ctx, data)
	if rerr != nil {
		return "", fmt.Errorf("failed to render PDF pages: %w", rerr)
	}

	var texts []string
	for i, page := range pages {
		t, err := e.ocr.Recognize(ctx, page)
		if err != nil {
			return "", fmt.Errorf("OCR failed on page %d: %w", i+1, err)
		}
		if t = strings.TrimSpace(t); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n"), nil
}

// pdfText reads the text layer. The parser panics on some malformed
// files; those panics are returned as errors.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			log.Printf("Warning: skipping PDF page %d: %v", i, err)
			continue
		}
		if t = strings.TrimSpace(t); t != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, "\n"), nil
}
