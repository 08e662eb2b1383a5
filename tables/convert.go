package tables

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"finparser/logging"
)

// ConvertResult reports the tables and how they were obtained.
type ConvertResult struct {
	Tables []Table

	// Pages is the range that produced the tables, nil for the whole document
	Pages    *PageRange
	Attempts int
	Duration time.Duration
}

// PageSplitter cuts one page (1-indexed) of a PDF into its own file in outDir.
type PageSplitter interface {
	ExtractPage(pdfPath string, page int, outDir string) (string, error)
}

// Converter runs an Extractor with retries. The target page is tried first;
// after a failed single-page attempt the whole document is converted.
type Converter struct {
	extractor  Extractor
	maxRetries int
	splitter   PageSplitter
	logger     *logging.Logger
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithPageSplitter makes single-page attempts send a one-page PDF cut out
// by s instead of the whole document with a page range.
func WithPageSplitter(s PageSplitter) ConverterOption {
	return func(c *Converter) { c.splitter = s }
}

// NewConverter creates a Converter allowing maxRetries attempts after the first.
func NewConverter(extractor Extractor, maxRetries int, logger *logging.Logger, opts ...ConverterOption) *Converter {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Converter{extractor: extractor, maxRetries: maxRetries, logger: logger.Named("convert")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// splitPage cuts the target page into a temp dir. The returned cleanup
// removes it; on failure the caller converts pdfPath with a page range.
func (c *Converter) splitPage(pdfPath string, page int) (string, func(), error) {
	dir, err := os.MkdirTemp("", "finparser-page-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }
	path, err := c.splitter.ExtractPage(pdfPath, page, dir)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

// Convert extracts tables from pdfPath. targetPage is 1-based; 0 converts
// the whole document from the start.
func (c *Converter) Convert(ctx context.Context, pdfPath string, targetPage int) (*ConvertResult, error) {
	start := time.Now()

	var pages *PageRange
	if targetPage > 0 {
		pages = SinglePage(targetPage)
	}

	var pagePath string
	if pages != nil && c.splitter != nil {
		path, cleanup, err := c.splitPage(pdfPath, pages.From)
		if err != nil {
			c.logger.Warn("Failed to split target page, sending page range instead",
				zap.Int("page", pages.From), zap.Error(err))
		} else {
			defer cleanup()
			pagePath = path
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if pages != nil {
			c.logger.Info("Converting page", zap.Int("page", pages.From), zap.Int("attempt", attempt))
		} else {
			c.logger.Info("Converting entire document", zap.Int("attempt", attempt))
		}

		var found []Table
		var err error
		if pages != nil && pagePath != "" {
			found, err = c.extractor.Extract(ctx, pagePath, nil)
			for i := range found {
				found[i].Page = pages.From
			}
		} else {
			found, err = c.extractor.Extract(ctx, pdfPath, pages)
		}
		if err == nil {
			return &ConvertResult{
				Tables:   found,
				Pages:    pages,
				Attempts: attempt,
				Duration: time.Since(start),
			}, nil
		}

		lastErr = err
		c.logger.Warn("Conversion attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if pages != nil {
			c.logger.Info("Falling back to full document conversion")
			pages = nil
		}
	}

	return nil, fmt.Errorf("conversion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
