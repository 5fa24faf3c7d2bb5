package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"churn-predictor/internal/ingest"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/preprocess"
)

// Error kinds used as metric labels.
const (
	kindUnsupportedFormat = "unsupported_format"
	kindSchemaMismatch    = "schema_mismatch"
	kindFile              = "file"
	kindInference         = "inference"
	kindMissingFile       = "missing_file"
	kindTooLarge          = "too_large"
	kindRateLimited       = "rate_limited"
	kindInternal          = "internal"
)

var (
	errMissingFile = errors.New("field required: file")
	errRateLimited = errors.New("too many requests, retry shortly")
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// classify maps a pipeline error to its HTTP status and metric label.
func classify(err error) (int, string) {
	var fileErr *ingest.FileError
	var infErr *ml.InferenceError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return http.StatusBadRequest, kindUnsupportedFormat
	case errors.Is(err, preprocess.ErrSchemaMismatch):
		return http.StatusBadRequest, kindSchemaMismatch
	case errors.Is(err, errMissingFile):
		return http.StatusUnprocessableEntity, kindMissingFile
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, kindTooLarge
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, kindRateLimited
	case errors.As(err, &fileErr):
		return http.StatusInternalServerError, kindFile
	case errors.As(err, &infErr):
		return http.StatusInternalServerError, kindInference
	}
	return http.StatusInternalServerError, kindInternal
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
