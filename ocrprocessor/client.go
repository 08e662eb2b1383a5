package ocrprocessor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"finparser/core"
	"finparser/logging"
)

// VisionClient wraps the Google Cloud Vision files:annotate endpoint.
// It is safe for concurrent use.
type VisionClient struct {
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
	config     VisionClientConfig
}

// VisionClientConfig holds configuration for the Vision API client.
type VisionClientConfig struct {
	// Endpoint is the files:annotate URL
	Endpoint string

	// FeatureType is the Vision feature; DOCUMENT_TEXT_DETECTION suits dense tables
	FeatureType string

	Timeout time.Duration

	// MaxFileSize is the largest PDF sent inline (bytes)
	MaxFileSize int64

	// MaxPagesPerRequest is capped at 5 by the synchronous API
	MaxPagesPerRequest int
}

// DefaultVisionClientConfig returns the production endpoint and limits.
func DefaultVisionClientConfig() VisionClientConfig {
	return VisionClientConfig{
		Endpoint:           "https://vision.googleapis.com/v1/files:annotate",
		FeatureType:        "DOCUMENT_TEXT_DETECTION",
		Timeout:            60 * time.Second,
		MaxFileSize:        20 * core.BytesPerMB,
		MaxPagesPerRequest: 5,
	}
}

type annotateRequest struct {
	Requests []annotateFileRequest `json:"requests"`
}

type annotateFileRequest struct {
	InputConfig inputConfig     `json:"inputConfig"`
	Features    []visionFeature `json:"features"`
	Pages       []int           `json:"pages,omitempty"`
}

type inputConfig struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type annotateResponse struct {
	Responses []annotateFileResponse `json:"responses"`
}

type annotateFileResponse struct {
	Responses  []imageResponse `json:"responses"`
	TotalPages int             `json:"totalPages"`
	Error      *visionError    `json:"error,omitempty"`
}

type imageResponse struct {
	FullTextAnnotation struct {
		Text string `json:"text"`
	} `json:"fullTextAnnotation"`
	Context struct {
		PageNumber int `json:"pageNumber"`
	} `json:"context"`
	Error *visionError `json:"error,omitempty"`
}

// PageText is the OCR text of one page.
type PageText struct {
	PageNumber int
	Text       string
}

// OCRResult contains the result of OCR processing.
type OCRResult struct {
	Pages          []PageText
	TotalPages     int
	ProcessingTime time.Duration
}

// Text joins the page texts with blank lines.
func (r *OCRResult) Text() string {
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// NewVisionClient creates a new Vision API client. A nil httpClient gets one
// with the configured timeout.
func NewVisionClient(apiKey string, httpClient *http.Client, logger *logging.Logger, config VisionClientConfig) (*VisionClient, error) {
	if err := ValidateGoogleAPIKey(apiKey); err != nil {
		return nil, err
	}

	defaults := DefaultVisionClientConfig()
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.FeatureType == "" {
		config.FeatureType = defaults.FeatureType
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = defaults.MaxFileSize
	}
	if config.MaxPagesPerRequest <= 0 || config.MaxPagesPerRequest > defaults.MaxPagesPerRequest {
		config.MaxPagesPerRequest = defaults.MaxPagesPerRequest
	}
	if httpClient == nil {
		httpClient = core.GetHTTPClient(config.Timeout)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &VisionClient{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
		logger:     logger.Named("vision-client"),
		config:     config,
	}, nil
}

// ExtractFile OCRs the given pages (1-indexed) of the PDF at path. With no
// pages, the first MaxPagesPerRequest pages are processed.
func (c *VisionClient) ExtractFile(ctx context.Context, path string, pages ...int) (*OCRResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ocrprocessor: failed to read %s: %w", path, err)
	}
	return c.AnnotatePDF(ctx, data, pages...)
}

// AnnotatePDF sends an inline PDF to files:annotate in batches of at most
// MaxPagesPerRequest pages.
func (c *VisionClient) AnnotatePDF(ctx context.Context, data []byte, pages ...int) (*OCRResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrNoTextFound)
	}
	if int64(len(data)) > c.config.MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %s", ErrFileTooLarge,
			humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(c.config.MaxFileSize)))
	}

	start := time.Now()
	log := c.logger.With(zap.Int("file_size_bytes", len(data)), zap.Ints("pages", pages))
	log.Info("starting OCR extraction")

	content := base64.StdEncoding.EncodeToString(data)
	batches := batchPages(pages, c.config.MaxPagesPerRequest)
	if len(batches) == 0 {
		batches = [][]int{nil}
	}

	result := &OCRResult{}
	for _, batch := range batches {
		resp, err := c.annotate(ctx, content, batch)
		if err != nil {
			return nil, err
		}
		if resp.TotalPages > result.TotalPages {
			result.TotalPages = resp.TotalPages
		}
		for i, item := range resp.Responses {
			if item.Error != nil && item.Error.Message != "" {
				log.Warn("page annotation failed",
					zap.Int("page", item.Context.PageNumber),
					zap.String("error", item.Error.Message))
				continue
			}
			pageNumber := item.Context.PageNumber
			if pageNumber == 0 && i < len(batch) {
				pageNumber = batch[i]
			}
			result.Pages = append(result.Pages, PageText{
				PageNumber: pageNumber,
				Text:       strings.TrimSpace(item.FullTextAnnotation.Text),
			})
		}
	}

	result.ProcessingTime = time.Since(start)
	if strings.TrimSpace(result.Text()) == "" {
		return nil, ErrNoTextFound
	}

	log.Info("OCR extraction completed",
		zap.Int("pages_returned", len(result.Pages)),
		zap.Duration("processing_time", result.ProcessingTime))
	return result, nil
}

// PageTexts OCRs the given pages of the PDF at pdfPath, reading and
// encoding the file once and batching pages MaxPagesPerRequest at a time.
// The result is keyed by page number.
func (c *VisionClient) PageTexts(ctx context.Context, pdfPath string, pages []int) (map[int]string, error) {
	result, err := c.ExtractFile(ctx, pdfPath, pages...)
	if err != nil {
		return nil, err
	}
	texts := make(map[int]string, len(result.Pages))
	for _, p := range result.Pages {
		texts[p.PageNumber] = p.Text
	}
	return texts, nil
}

func (c *VisionClient) annotate(ctx context.Context, content string, pages []int) (*annotateFileResponse, error) {
	body, err := json.Marshal(annotateRequest{
		Requests: []annotateFileRequest{{
			InputConfig: inputConfig{Content: content, MimeType: "application/pdf"},
			Features:    []visionFeature{{Type: c.config.FeatureType}},
			Pages:       pages,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("ocrprocessor: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", c.config.Endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPIRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending request to Vision API",
		zap.String("api_key", c.GetMaskedAPIKey()),
		zap.Int("size_bytes", len(body)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPIRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrAPIRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvalidAPIKey, resp.StatusCode, string(respBody))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIRequestFailed, resp.StatusCode, string(respBody))
	}

	var parsed annotateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrAPIRequestFailed, err)
	}
	if len(parsed.Responses) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrNoTextFound)
	}

	file := parsed.Responses[0]
	if file.Error != nil && file.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s (code %d)", ErrAPIRequestFailed, file.Error.Message, file.Error.Code)
	}
	return &file, nil
}

// GetMaskedAPIKey returns a masked version of the API key for safe logging.
func (c *VisionClient) GetMaskedAPIKey() string {
	return MaskAPIKey(c.apiKey)
}
