// Package pipeline turns a quarterly results PDF into a financial statement:
// page detection, table conversion, table selection and row mapping.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"finparser/aiextract"
	"finparser/logging"
	"finparser/mapping"
	"finparser/pdfprocessor"
	"finparser/statement"
	"finparser/tables"
)

// Mapping methods accepted in Options.Method.
const (
	MethodConfig = "config"
	MethodAI     = "ai"
)

var (
	// ErrAIUnavailable is returned for MethodAI when no LLM is configured.
	ErrAIUnavailable = errors.New("pipeline: AI extraction is not configured")

	// ErrUnknownMethod is returned for methods other than config and ai.
	ErrUnknownMethod = errors.New("pipeline: unknown mapping method")
)

// Options select how rows are mapped.
type Options struct {
	Method string
}

// TableInfo describes how the statement table was chosen.
type TableInfo struct {
	TotalTables     int    `json:"total_tables"`
	SelectedTable   int    `json:"selected_table"`
	SelectionMethod string `json:"selection_method"`
}

// Result is the outcome of Process.
type Result struct {
	Success        bool                 `json:"success"`
	Message        string               `json:"message"`
	Statement      *statement.Statement `json:"data"`
	OutputFiles    map[string]string    `json:"output_files"`
	ProcessingTime float64              `json:"processing_time"`
	TableInfo      TableInfo            `json:"table_info"`
}

// Processor runs the document pipeline. It is safe for concurrent use.
type Processor struct {
	splitter  *pdfprocessor.Splitter
	detector  *pdfprocessor.Detector
	converter *tables.Converter
	mapper    *mapping.Mapper
	ai        *aiextract.Extractor
	logger    *logging.Logger
}

// Dependencies are the stages a Processor is built from. AI may be nil.
type Dependencies struct {
	Detector   *pdfprocessor.Detector
	Extractor  tables.Extractor
	MaxRetries int
	Mapper     *mapping.Mapper
	AI         *aiextract.Extractor

	// SplitPages sends the extractor a one-page PDF for the target page
	// rather than the whole document.
	SplitPages bool
}

// NewProcessor creates a Processor.
func NewProcessor(deps Dependencies, logger *logging.Logger) (*Processor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Extractor == nil || deps.Mapper == nil {
		return nil, errors.New("pipeline: table extractor and mapper are required")
	}
	detector := deps.Detector
	if detector == nil {
		var err error
		if detector, err = pdfprocessor.NewDetector(pdfprocessor.DefaultDetectorConfig(), nil, logger); err != nil {
			return nil, err
		}
	}

	splitter := pdfprocessor.NewSplitter()
	var convOpts []tables.ConverterOption
	if deps.SplitPages {
		convOpts = append(convOpts, tables.WithPageSplitter(splitter))
	}

	return &Processor{
		splitter:  splitter,
		detector:  detector,
		converter: tables.NewConverter(deps.Extractor, deps.MaxRetries, logger, convOpts...),
		mapper:    deps.Mapper,
		ai:        deps.AI,
		logger:    logger.Named("pipeline"),
	}, nil
}

// Config returns the company configuration used for mapping.
func (p *Processor) Config() *mapping.Config {
	return p.mapper.Config()
}

// HasAI reports whether MethodAI is available.
func (p *Processor) HasAI() bool {
	return p.ai != nil
}

// Process runs the pipeline on pdfPath and writes table exports and the JSON
// statement into outputDir.
func (p *Processor) Process(ctx context.Context, pdfPath, company, outputDir string, opts Options) (*Result, error) {
	start := time.Now()
	method := opts.Method
	if method == "" {
		method = MethodConfig
	}
	switch method {
	case MethodConfig:
	case MethodAI:
		if p.ai == nil {
			return nil, ErrAIUnavailable
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, opts.Method)
	}

	logger := p.logger.With(zap.String("company", company), zap.String("file", filepath.Base(pdfPath)))

	if err := p.splitter.Validate(pdfPath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	targetPage := 0
	pageIndex, found, err := p.detector.FindTargetPage(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("page detection failed: %w", err)
	}
	if found {
		targetPage = pageIndex + 1
		logger.Info("Target page identified", zap.Int("page", targetPage))
	} else {
		logger.Warn("No specific target page found, processing entire document")
	}

	converted, err := p.converter.Convert(ctx, pdfPath, targetPage)
	if err != nil {
		return nil, err
	}
	if len(converted.Tables) == 0 {
		return nil, tables.ErrNoTables
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	exported, err := tables.Export(converted.Tables, outputDir, stem)
	if err != nil {
		return nil, err
	}
	outputFiles := map[string]string(exported)

	sel := tables.SelectBest(converted.Tables)
	selected := converted.Tables[sel.Index]
	info := TableInfo{
		TotalTables:     len(converted.Tables),
		SelectedTable:   sel.Index + 1,
		SelectionMethod: sel.Method,
	}
	logger.Info("Selected table",
		zap.Int("table", info.SelectedTable),
		zap.Int("total", info.TotalTables),
		zap.String("method", sel.Method),
		zap.Int("score", sel.Score))

	var stmt *statement.Statement
	if method == MethodAI {
		stmt, err = p.ai.ExtractExport(ctx, company,
			tables.ExportPath(outputDir, stem, selected.Index, "html"),
			tables.ExportPath(outputDir, stem, selected.Index, "md"))
		if err == nil {
			err = checkExtracted(stmt, logger)
		}
	} else {
		stmt, _, err = p.mapper.Map(company, selected)
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start).Seconds()
	meta := stmt.Metadata
	if meta == nil {
		meta = &statement.Metadata{}
	}
	meta.SourceFile = filepath.Base(pdfPath)
	meta.TableNumber = info.SelectedTable
	meta.TotalTables = info.TotalTables
	meta.ExtractionMethod = stmt.ExtractionMethod
	meta.ProcessingTimeSeconds = elapsed
	meta.TargetPage = targetPage
	stmt.Metadata = meta

	jsonPath := filepath.Join(outputDir, stem+"-financial-data.json")
	if err := writeJSON(jsonPath, stmt); err != nil {
		return nil, err
	}
	outputFiles["json"] = jsonPath
	logger.Info("Saved JSON output",
		zap.String("path", jsonPath),
		zap.Int("items", len(stmt.FinancialData)),
		zap.String("method", stmt.ExtractionMethod))

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Successfully processed document. Found %d table(s), selected table %d.",
			info.TotalTables, info.SelectedTable),
		Statement:      stmt,
		OutputFiles:    outputFiles,
		ProcessingTime: elapsed,
		TableInfo:      info,
	}, nil
}

// checkExtracted drops model output that cannot be stored, resolves key
// aliases and validates what is left.
func checkExtracted(stmt *statement.Statement, logger *logging.Logger) error {
	for _, item := range stmt.DropIncomplete() {
		logger.Warn("Dropping incomplete AI item",
			zap.String("key", item.Key),
			zap.String("particular", item.Particular))
	}
	for i := range stmt.FinancialData {
		item := &stmt.FinancialData[i]
		item.Key = statement.CanonicalKey(item.Key)
		if !statement.IsKnownKey(item.Key) {
			logger.Debug("AI item key is not in the catalogue", zap.String("key", item.Key))
		}
	}
	return stmt.Validate()
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
