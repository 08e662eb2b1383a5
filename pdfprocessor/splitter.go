package pdfprocessor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidPDF is returned when pdfcpu rejects a document.
var ErrInvalidPDF = errors.New("pdfprocessor: invalid PDF")

// ErrPageOutOfRange is returned when a requested page does not exist.
var ErrPageOutOfRange = errors.New("pdfprocessor: page out of range")

// Splitter validates PDFs and cuts single pages out of them.
type Splitter struct {
	conf *model.Configuration
}

// NewSplitter creates a Splitter using relaxed validation, which accepts the
// minor structural defects common in exported filings.
func NewSplitter() *Splitter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Splitter{conf: conf}
}

// Validate rejects malformed PDFs.
func (s *Splitter) Validate(pdfPath string) error {
	if pdfPath == "" {
		return ErrEmptyPath
	}
	if err := api.ValidateFile(pdfPath, s.conf); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return nil
}

// PageCount returns the number of pages in the document.
func (s *Splitter) PageCount(pdfPath string) (int, error) {
	if pdfPath == "" {
		return 0, ErrEmptyPath
	}
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return ctx.PageCount, nil
}

// ExtractPage writes page (1-indexed) of pdfPath to a new single-page PDF in
// outDir and returns its path.
func (s *Splitter) ExtractPage(pdfPath string, page int, outDir string) (string, error) {
	count, err := s.PageCount(pdfPath)
	if err != nil {
		return "", err
	}
	if page < 1 || page > count {
		return "", fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, count)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	outPath := filepath.Join(outDir, fmt.Sprintf("%s-page-%d.pdf", stem, page))

	if err := api.TrimFile(pdfPath, outPath, []string{strconv.Itoa(page)}, s.conf); err != nil {
		return "", fmt.Errorf("failed to extract page %d: %w", page, err)
	}
	return outPath, nil
}
