// Package extract turns uploaded files into plain text for classification.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/mailtriage/mailtriage/internal/config"
	"github.com/mailtriage/mailtriage/internal/inbox"
)

var (
	// ErrUnsupportedFormat is returned for content types that cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoText is returned when a supported file yields no text.
	ErrNoText = errors.New("no text could be extracted")
)

// Format is the kind of document an upload is read as.
type Format string

const (
	FormatText    Format = "text"
	FormatHTML    Format = "html"
	FormatMessage Format = "message"
	FormatPDF     Format = "pdf"
	FormatImage   Format = "image"
	FormatUnknown Format = ""
)

var extensionFormats = map[string]Format{
	".txt":  FormatText,
	".text": FormatText,
	".eml":  FormatMessage,
	".html": FormatHTML,
	".htm":  FormatHTML,
	".pdf":  FormatPDF,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".tif":  FormatImage,
	".tiff": FormatImage,
	".bmp":  FormatImage,
	".gif":  FormatImage,
	".webp": FormatImage,
}

// DetectFormat picks a format from the declared content type, using the
// file extension only when the type is generic or missing. Generic binary
// uploads without a known extension are read as text.
func DetectFormat(filename, contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return FormatImage
	case mediaType == "application/pdf":
		return FormatPDF
	case mediaType == "text/plain":
		return FormatText
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return FormatHTML
	case mediaType == "message/rfc822":
		return FormatMessage
	case mediaType == "application/octet-stream" || mediaType == "":
		if f, ok := extensionFormats[strings.ToLower(filepath.Ext(filename))]; ok {
			return f
		}
		return FormatText
	}
	return FormatUnknown
}

// OCR recognizes text in a single image.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Rasterizer renders every page of a PDF as a PNG image.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([][]byte, error)
}

// Extractor reads uploads. It is safe for concurrent use.
type Extractor struct {
	ocr        OCR
	rasterizer Rasterizer
	timeout    time.Duration
}

// New returns an Extractor backed by the tesseract and pdftoppm binaries.
func New(cfg config.ExtractConfig) *Extractor {
	return NewWithTools(
		&Tesseract{Path: cfg.TesseractPath, Language: cfg.OCRLanguage},
		&Pdftoppm{Path: cfg.PdftoppmPath},
		time.Duration(cfg.TimeoutSec)*time.Second,
	)
}

// NewWithTools returns an Extractor using the given OCR engine and PDF
// rasterizer. Either may be nil, in which case scanned documents fail.
func NewWithTools(ocr OCR, rasterizer Rasterizer, timeout time.Duration) *Extractor {
	return &Extractor{ocr: ocr, rasterizer: rasterizer, timeout: timeout}
}

// Extract reads r as the format implied by filename and contentType and
// returns its text.
func (e *Extractor) Extract(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	format := DetectFormat(filename, contentType)
	if format == FormatUnknown {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var text string
	switch format {
	case FormatText:
		text = DecodeText(data)
	case FormatHTML:
		text = inbox.HTMLToText(DecodeText(data))
	case FormatMessage:
		text, err = e.readMessage(data)
	case FormatPDF:
		text, err = e.readPDF(ctx, data)
	case FormatImage:
		text, err = e.recognize(ctx, data)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (e *Extractor) readMessage(data []byte) (string, error) {
	email, err := inbox.ParseMessage(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read email file: %w", err)
	}
	return email.Text(), nil
}

func (e *Extractor) recognize(ctx context.Context, image []byte) (string, error) {
	if e.ocr == nil {
		return "", fmt.Errorf("%w: OCR is not configured", ErrUnsupportedFormat)
	}
	text, err := e.ocr.Recognize(ctx, image)
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// DecodeText decodes UTF-8, falling back to Latin-1 for bytes that are not
// valid UTF-8. A leading byte order mark is dropped.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(decoded)
}
