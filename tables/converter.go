package tables

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"finparser/core"
	"finparser/logging"
)

var (
	// ErrNoTables is returned when a document yields no tables.
	ErrNoTables = errors.New("tables: no tables found")

	// ErrConversionFailed wraps failures reported by the conversion service.
	ErrConversionFailed = errors.New("tables: document conversion failed")

	// ErrServiceUnavailable is returned while the circuit breaker is open.
	ErrServiceUnavailable = errors.New("tables: conversion service unavailable")
)

// ConversionConfig configures the document conversion client.
type ConversionConfig struct {
	// BaseURL of a docling-serve compatible service, without trailing slash
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// DoOCR asks the service to OCR bitmap content
	DoOCR bool

	// TableMode is "accurate" or "fast"
	TableMode string

	// Breaker settings: consecutive failures before opening and the open period
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultConversionConfig returns settings for a local docling-serve.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		BaseURL:          "http://localhost:5001",
		Timeout:          300 * time.Second,
		DoOCR:            true,
		TableMode:        "accurate",
		FailureThreshold: 3,
		OpenTimeout:      60 * time.Second,
	}
}

// ConversionClient converts PDFs to HTML through the conversion service and
// parses the tables out of the result.
type ConversionClient struct {
	config     ConversionConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.Logger
}

type convertResponse struct {
	Document struct {
		Filename    string `json:"filename"`
		HTMLContent string `json:"html_content"`
		MDContent   string `json:"md_content"`
	} `json:"document"`
	Status         string          `json:"status"`
	Errors         json.RawMessage `json:"errors"`
	ProcessingTime float64         `json:"processing_time"`
}

// NewConversionClient creates a client. A nil httpClient gets one with the
// configured timeout.
func NewConversionClient(config ConversionConfig, httpClient *http.Client, logger *logging.Logger) *ConversionClient {
	defaults := DefaultConversionConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.TableMode == "" {
		config.TableMode = defaults.TableMode
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = defaults.OpenTimeout
	}
	if httpClient == nil {
		httpClient = core.GetHTTPClient(config.Timeout)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("converter")

	threshold := config.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "document-converter",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// a document without tables says nothing about service health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoTables)
		},
	})

	return &ConversionClient{
		config:     config,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

// State reports the circuit breaker state.
func (c *ConversionClient) State() gobreaker.State {
	return c.breaker.State()
}

// Extract uploads the PDF and returns the tables found in the HTML output.
func (c *ConversionClient) Extract(ctx context.Context, pdfPath string, pages *PageRange) ([]Table, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.convert(ctx, pdfPath, pages)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]Table), nil
}

func (c *ConversionClient) convert(ctx context.Context, pdfPath string, pages *PageRange) ([]Table, error) {
	start := time.Now()

	body, contentType, err := c.buildForm(pdfPath, pages)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/convert/file", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-Api-Key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrConversionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrConversionFailed, resp.StatusCode, truncate(string(respBody), 500))
	}

	var parsed convertResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrConversionFailed, err)
	}
	if parsed.Status != "" && parsed.Status != "success" && parsed.Status != "partial_success" {
		return nil, fmt.Errorf("%w: status %s: %s", ErrConversionFailed, parsed.Status, string(parsed.Errors))
	}

	tables, err := ParseHTMLTables(parsed.Document.HTMLContent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	if pages != nil && pages.From == pages.To {
		for i := range tables {
			tables[i].Page = pages.From
		}
	}

	c.logger.Info("Document converted",
		zap.String("file", filepath.Base(pdfPath)),
		zap.Int("tables", len(tables)),
		zap.Float64("service_seconds", parsed.ProcessingTime),
		zap.Duration("duration", time.Since(start)))

	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	return tables, nil
}

func (c *ConversionClient) buildForm(pdfPath string, pages *PageRange) (io.Reader, string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", pdfPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("files", filepath.Base(pdfPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy PDF: %w", err)
	}

	fields := [][2]string{
		{"to_formats", "html"},
		{"do_ocr", strconv.FormatBool(c.config.DoOCR)},
		{"do_table_structure", "true"},
		{"table_mode", c.config.TableMode},
	}
	if pages != nil {
		fields = append(fields,
			[2]string{"page_range", strconv.Itoa(pages.From)},
			[2]string{"page_range", strconv.Itoa(pages.To)})
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", kv[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
