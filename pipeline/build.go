package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"finparser/aiextract"
	"finparser/core"
	"finparser/logging"
	"finparser/mapping"
	"finparser/ocrprocessor"
	"finparser/pdfprocessor"
	"finparser/tables"
)

// DefaultMaxRetries is the number of conversion retries after the first attempt.
const DefaultMaxRetries = 2

// Build wires a Processor from configuration. Optional services that are not
// configured are left out: without a converter URL tables come from the PDF
// text layout, without a Vision key scanned pages are skipped, and without an
// LLM key MethodAI is unavailable.
func Build(ctx context.Context, cfg *core.Config, logger *logging.Logger) (*Processor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	companies, err := mapping.LoadConfig(cfg.CompanyConfigPath)
	if err != nil {
		return nil, err
	}

	var fallback pdfprocessor.PageTextSource
	if cfg.GoogleVisionKey != "" {
		vision, err := ocrprocessor.NewVisionClient(cfg.GoogleVisionKey, nil, logger, ocrprocessor.DefaultVisionClientConfig())
		if err != nil {
			return nil, err
		}
		fallback = vision
		logger.Info("OCR fallback enabled", zap.String("api_key", vision.GetMaskedAPIKey()))
	}
	detector, err := pdfprocessor.NewDetector(
		pdfprocessor.DefaultDetectorConfig(),
		pdfprocessor.NewExtractor(pdfprocessor.DefaultExtractorConfig(), fallback),
		logger)
	if err != nil {
		return nil, err
	}

	var extractor tables.Extractor
	splitPages := false
	if cfg.HasConverter() {
		conv := tables.DefaultConversionConfig()
		conv.BaseURL = cfg.ConverterURL
		conv.APIKey = cfg.ConverterAPIKey
		conv.Timeout = cfg.ConverterTimeout
		extractor = tables.NewConversionClient(conv, nil, logger)
		splitPages = true
		logger.Info("Using document conversion service", zap.String("url", cfg.ConverterURL))
	} else {
		extractor = tables.NewLayoutExtractor(tables.DefaultLayoutConfig(), logger)
		logger.Info("No conversion service configured, using text layout extraction")
	}

	var ai *aiextract.Extractor
	provider, err := aiextract.NewProvider(ctx, cfg, logger)
	switch {
	case err == nil:
		ai = aiextract.NewExtractor(provider, logger)
		logger.Info("AI extraction enabled", zap.String("provider", provider.Name()))
	case errors.Is(err, aiextract.ErrNotConfigured):
		logger.Warn("AI extraction disabled, no LLM API key configured")
	default:
		return nil, err
	}

	return NewProcessor(Dependencies{
		Detector:   detector,
		Extractor:  extractor,
		MaxRetries: DefaultMaxRetries,
		SplitPages: splitPages,
		Mapper:     mapping.NewMapper(companies, true, logger),
		AI:         ai,
	}, logger)
}
