// Package pdfprocessor reads financial-report PDFs page by page.
//
// extractor.go pulls plain text out of each page with ledongthuc/pdf,
// detector.go locates the standalone results page and splitter.go validates
// and splits documents with pdfcpu.
package pdfprocessor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoPDFContent is returned when a PDF contains no extractable text.
var ErrNoPDFContent = errors.New("pdfprocessor: no text content found in PDF")

// ErrEmptyPath is returned when an empty file path is provided.
var ErrEmptyPath = errors.New("pdfprocessor: empty PDF path provided")

// PageTextSource supplies text for pages that carry no text layer,
// typically scanned pages sent to an OCR service. It is called once per
// document with every such page and returns text keyed by page number.
type PageTextSource interface {
	PageTexts(ctx context.Context, pdfPath string, pages []int) (map[int]string, error)
}

// PageResult represents extracted text from a single PDF page.
type PageResult struct {
	// PageNumber is the 1-indexed page number
	PageNumber int

	// Text is the extracted text content
	Text string

	// FromOCR is true when Text came from the fallback source
	FromOCR bool

	// Error is non-nil if extraction failed for this page
	Error error
}

// ExtractionResult contains per-page text for a document.
type ExtractionResult struct {
	TotalPages     int
	ExtractedPages int
	SkippedPages   int

	// Pages holds one entry per processed page unless SkipEmptyPages is set
	Pages []PageResult

	Errors []error
}

// Texts returns the page texts in page order.
func (r *ExtractionResult) Texts() []string {
	texts := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		texts[i] = p.Text
	}
	return texts
}

// ExtractorConfig holds configuration for PDF text extraction.
type ExtractorConfig struct {
	// SkipEmptyPages when true excludes pages with no text from results.
	// Page detection needs positional results and leaves this off.
	SkipEmptyPages bool

	// ContinueOnError when true continues extraction even if some pages fail
	ContinueOnError bool

	// MaxPages limits extraction to first N pages (0 for all pages)
	MaxPages int
}

// DefaultExtractorConfig returns the configuration used for page detection.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		SkipEmptyPages:  false,
		ContinueOnError: true,
		MaxPages:        0,
	}
}

// Extractor extracts text from PDF files.
type Extractor struct {
	config   ExtractorConfig
	fallback PageTextSource
}

// NewExtractor creates a new Extractor. fallback may be nil.
func NewExtractor(config ExtractorConfig, fallback PageTextSource) *Extractor {
	return &Extractor{config: config, fallback: fallback}
}

// NewDefaultExtractor creates an Extractor with default configuration and no OCR fallback.
func NewDefaultExtractor() *Extractor {
	return NewExtractor(DefaultExtractorConfig(), nil)
}

// Extract extracts per-page text from the PDF at pdfPath.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) (*ExtractionResult, error) {
	if pdfPath == "" {
		return nil, ErrEmptyPath
	}

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	result := &ExtractionResult{
		TotalPages: totalPages,
		Pages:      make([]PageResult, 0, totalPages),
	}

	pagesToProcess := totalPages
	if e.config.MaxPages > 0 && e.config.MaxPages < totalPages {
		pagesToProcess = e.config.MaxPages
	}

	// ledongthuc/pdf pages are 1-indexed
	pages := make([]PageResult, 0, pagesToProcess)
	var blank []int
	for pageNumber := 1; pageNumber <= pagesToProcess; pageNumber++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		page := e.extractPage(r, pageNumber)
		if page.Error != nil && !e.config.ContinueOnError {
			result.Errors = append(result.Errors, fmt.Errorf("page %d: %w", pageNumber, page.Error))
			result.SkippedPages++
			return result, page.Error
		}
		if page.Error == nil && page.Text == "" {
			blank = append(blank, pageNumber)
		}
		pages = append(pages, page)
	}

	if len(blank) > 0 && e.fallback != nil {
		if err := e.applyFallback(ctx, pdfPath, pages, blank); err != nil && !e.config.ContinueOnError {
			result.Errors = append(result.Errors, err)
			return result, err
		}
	}

	for _, page := range pages {
		switch {
		case page.Error != nil:
			result.Errors = append(result.Errors, fmt.Errorf("page %d: %w", page.PageNumber, page.Error))
			result.SkippedPages++
		case page.Text == "":
			result.SkippedPages++
		default:
			result.ExtractedPages++
		}
		if page.Text == "" && e.config.SkipEmptyPages {
			continue
		}
		result.Pages = append(result.Pages, page)
	}

	if result.ExtractedPages == 0 {
		return result, ErrNoPDFContent
	}
	return result, nil
}

// applyFallback fills the blank pages from the fallback source in one call.
// pages[n-1] is page n. A failed call marks every blank page with the error.
func (e *Extractor) applyFallback(ctx context.Context, pdfPath string, pages []PageResult, blank []int) error {
	texts, err := e.fallback.PageTexts(ctx, pdfPath, blank)
	if err != nil {
		err = fmt.Errorf("ocr fallback: %w", err)
		for _, n := range blank {
			pages[n-1].Error = err
		}
		return err
	}
	for _, n := range blank {
		if text := strings.TrimSpace(texts[n]); text != "" {
			pages[n-1].Text = text
			pages[n-1].FromOCR = true
		}
	}
	return nil
}

// extractPage extracts text from a single page.
func (e *Extractor) extractPage(r *pdf.Reader, pageNumber int) PageResult {
	result := PageResult{PageNumber: pageNumber}

	p := r.Page(pageNumber)
	if p.V.IsNull() {
		return result
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		result.Error = fmt.Errorf("failed to extract text: %w", err)
		return result
	}

	result.Text = strings.TrimSpace(text)
	return result
}
