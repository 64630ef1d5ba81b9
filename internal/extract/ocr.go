package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Tesseract runs the tesseract CLI on a single image.
type Tesseract struct {
	Path     string // binary, default "tesseract"
	Language string // traineddata name, default "por"
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	path := t.Path
	if path == "" {
		path = "tesseract"
	}
	lang := t.Language
	if lang == "" {
		lang = "por"
	}

	cmd := exec.CommandContext(ctx, path, "stdin", "stdout", "-l", lang)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", commandError(ctx, path, err, stderr.String())
	}
	return stdout.String(), nil
}

// Pdftoppm renders PDF pages to PNG with the poppler pdftoppm CLI.
type Pdftoppm struct {
	Path string // binary, default "pdftoppm"
	DPI  int    // default 300
}

func (p *Pdftoppm) Rasterize(ctx context.Context, pdf []byte) ([][]byte, error) {
	path := p.Path
	if path == "" {
		path = "pdftoppm"
	}
	dpi := p.DPI
	if dpi == 0 {
		dpi = 300
	}

	dir, err := os.MkdirTemp("", "mailtriage-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, pdf, 0600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, "-r", fmt.Sprint(dpi), "-png", in, filepath.Join(dir, "page"))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, commandError(ctx, path, err, stderr.String())
	}

	files, err := filepath.Glob(filepath.Join(dir, "page*.png"))
	if err != nil {
		return nil, err
	}
	// page-1.png, page-2.png ... are zero padded to the page count width
	sort.Strings(files)

	pages := make([][]byte, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page: %w", err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}

func commandError(ctx context.Context, path string, err error, stderr string) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), ctx.Err())
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s: %w: %s", filepath.Base(path), err, msg)
	}
	return fmt.Errorf("%s: %w", filepath.Base(path), err)
}
