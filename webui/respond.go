package webui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"finparser/aiextract"
	"finparser/filestore"
	"finparser/mapping"
	"finparser/pdfprocessor"
	"finparser/pipeline"
	"finparser/shutdown"
	"finparser/statement"
	"finparser/tables"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// statusFor maps pipeline and storage errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mapping.ErrUnknownCompany),
		errors.Is(err, statement.ErrMissingCompany),
		errors.Is(err, statement.ErrMissingFinancialData),
		errors.Is(err, statement.ErrInvalidItem),
		errors.Is(err, pipeline.ErrUnknownMethod),
		errors.Is(err, pipeline.ErrInvalidName),
		errors.Is(err, pdfprocessor.ErrInvalidPDF),
		errors.Is(err, filestore.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrResultNotFound),
		errors.Is(err, filestore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tables.ErrNoTables),
		errors.Is(err, mapping.ErrEmptyTable),
		errors.Is(err, aiextract.ErrInvalidResponse),
		errors.Is(err, aiextract.ErrEmptyResponse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrAIUnavailable),
		errors.Is(err, aiextract.ErrProviderUnavailable),
		errors.Is(err, tables.ErrServiceUnavailable),
		errors.Is(err, shutdown.ErrTrackerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
