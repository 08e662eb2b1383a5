package pdfprocessor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"finparser/logging"
)

// ErrInvalidPattern is returned when a detector pattern fails to compile.
var ErrInvalidPattern = errors.New("pdfprocessor: invalid heading pattern")

// Match kinds reported by the detector.
const (
	MatchStandalone = "standalone"
	MatchGeneric    = "generic"
)

// DetectorConfig lists the heading patterns used to find the standalone
// results page. Patterns are matched against lowercased page text.
type DetectorConfig struct {
	// StandalonePatterns name the standalone statement explicitly
	StandalonePatterns []string

	// GenericPatterns match results headings that do not say which statement
	// they are; pages containing ExcludeKeyword are never accepted through them
	GenericPatterns []string

	ExcludeKeyword string
}

// DefaultDetectorConfig targets the quarter ended 30 June 2025.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		StandalonePatterns: []string{
			`standalone.*financial.*result.*30.*june.*2025`,
			`statement of.*standalone.*30.*june.*2025`,
		},
		GenericPatterns: []string{
			`statement of unaudited.*financial.*result.*30.*june.*2025`,
			`unaudited.*financial.*result.*30.*june.*2025`,
			`financial.*result.*quarter.*30.*june.*2025`,
			// OCR output for one filer mixes Cyrillic look-alikes into the heading
			`sfatement of unaudiтed.*financial.*re5ulтs.*for тне quarter ended.*\]une.*30,.*2025`,
		},
		ExcludeKeyword: "consolidated",
	}
}

// Detection describes the page selected by the detector.
type Detection struct {
	// PageIndex is 0-based
	PageIndex int
	Kind      string
	Pattern   string
}

// Detector finds the standalone financial results page of a report.
type Detector struct {
	extractor  *Extractor
	logger     *logging.Logger
	standalone []*regexp.Regexp
	generic    []*regexp.Regexp
	exclude    string
}

// NewDetector compiles the configured patterns.
func NewDetector(config DetectorConfig, extractor *Extractor, logger *logging.Logger) (*Detector, error) {
	if extractor == nil {
		extractor = NewDefaultExtractor()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	standalone, err := compilePatterns(config.StandalonePatterns)
	if err != nil {
		return nil, err
	}
	generic, err := compilePatterns(config.GenericPatterns)
	if err != nil {
		return nil, err
	}

	return &Detector{
		extractor:  extractor,
		logger:     logger.Named("detector"),
		standalone: standalone,
		generic:    generic,
		exclude:    strings.ToLower(config.ExcludeKeyword),
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// FindTargetPage returns the 0-based index of the standalone results page.
// found is false when no page matches; that is not an error.
func (d *Detector) FindTargetPage(ctx context.Context, pdfPath string) (int, bool, error) {
	result, err := d.extractor.Extract(ctx, pdfPath)
	if err != nil && !errors.Is(err, ErrNoPDFContent) {
		return 0, false, err
	}
	for _, pageErr := range result.Errors {
		d.logger.Warn("Page text extraction failed", zap.Error(pageErr))
	}

	det, ok := d.Detect(result.Texts())
	if !ok {
		d.logger.Info("No standalone results page found",
			zap.String("file", pdfPath),
			zap.Int("pages", result.TotalPages))
		return 0, false, nil
	}
	return det.PageIndex, true, nil
}

// Detect scans page texts in order. On each page the standalone patterns are
// tried first; generic patterns only apply when the page does not mention the
// exclude keyword.
func (d *Detector) Detect(pages []string) (Detection, bool) {
	for i, text := range pages {
		lower := strings.ToLower(text)

		if re := firstMatch(d.standalone, lower); re != nil {
			d.logger.Info("Found standalone financial results",
				zap.Int("page", i+1),
				zap.String("pattern", re.String()))
			return Detection{PageIndex: i, Kind: MatchStandalone, Pattern: re.String()}, true
		}

		if d.exclude != "" && strings.Contains(lower, d.exclude) {
			d.logger.Info("Skipping page", zap.Int("page", i+1), zap.String("keyword", d.exclude))
			continue
		}

		if re := firstMatch(d.generic, lower); re != nil {
			d.logger.Info("Found financial results without consolidated keyword",
				zap.Int("page", i+1),
				zap.String("pattern", re.String()))
			return Detection{PageIndex: i, Kind: MatchGeneric, Pattern: re.String()}, true
		}
	}
	return Detection{}, false
}

func firstMatch(patterns []*regexp.Regexp, text string) *regexp.Regexp {
	for _, re := range patterns {
		if re.MatchString(text) {
			return re
		}
	}
	return nil
}
