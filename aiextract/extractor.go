package aiextract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"finparser/logging"
	"finparser/statement"
)

// ErrNoTableFiles is returned when none of the table exports exist.
var ErrNoTableFiles = errors.New("aiextract: no table files found")

// Source formats named in the prompt.
const (
	FormatHTML     = "HTML"
	FormatMarkdown = "Markdown"
)

// Extractor asks a Provider for the line items of one table.
type Extractor struct {
	provider Provider
	logger   *logging.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(provider Provider, logger *logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{provider: provider, logger: logger.Named("aiextract")}
}

// Provider returns the underlying provider.
func (e *Extractor) Provider() Provider {
	return e.provider
}

// Extract sends content (an HTML or Markdown table) to the model and returns
// the statement with extraction metadata attached.
func (e *Extractor) Extract(ctx context.Context, content, company, format string) (*statement.Statement, error) {
	if _, truncated := truncateContent(content, MaxContentChars); truncated {
		e.logger.Warn("Content truncated",
			zap.Int("chars", len([]rune(content))),
			zap.Int("max", MaxContentChars))
	}

	e.logger.Info("Sending extraction request",
		zap.String("provider", e.provider.Name()),
		zap.String("company", company),
		zap.String("format", format))

	completion, err := e.provider.Complete(ctx, SystemPrompt(), UserPrompt(format, company, content))
	if err != nil {
		return nil, err
	}

	result, err := ParseResponse(completion.Text)
	if err != nil {
		e.logger.Error("Failed to parse model response",
			zap.Error(err),
			zap.String("response", preview(completion.Text, 500)))
		return nil, err
	}

	if result.CompanyName == "" {
		result.CompanyName = company
	}
	result.ExtractionMethod = e.provider.Name()
	result.Metadata = &statement.Metadata{
		ExtractionMethod: e.provider.Name(),
		Model:            completion.Model,
		TokensUsed:       completion.TokensUsed,
		SourceFormat:     strings.ToLower(format),
	}

	e.logger.Info("Extracted financial items",
		zap.Int("items", len(result.FinancialData)),
		zap.String("model", completion.Model),
		zap.Int("tokens_used", completion.TokensUsed))

	return result, nil
}

// ExtractFile reads an .html or .md table export and extracts from it.
func (e *Extractor) ExtractFile(ctx context.Context, path, company string) (*statement.Statement, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return e.Extract(ctx, string(content), company, format)
}

// ExtractExport extracts from the first of paths that exists. Callers list
// the HTML export before the Markdown one.
func (e *Extractor) ExtractExport(ctx context.Context, company string, paths ...string) (*statement.Statement, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		e.logger.Info("Using table export", zap.String("file", filepath.Base(path)))
		return e.ExtractFile(ctx, path, company)
	}
	return nil, fmt.Errorf("%w: tried %d exports", ErrNoTableFiles, len(paths))
}

func formatFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("aiextract: unsupported table format %q", filepath.Ext(path))
	}
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
