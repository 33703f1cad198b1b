package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/and161185/scanwin/internal/errs"
)

// Error categories tell the client what to do next.
const (
	categoryNewInput = "new_input" // fix the input, a retry with the same data cannot succeed
	categoryRetry    = "retry"     // transient, retry the same request later
	categoryRelocate = "relocate"  // move closer to the code location
	categoryRejected = "rejected"  // the request is valid but the business rules say no
)

type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, category string) {
	writeJSON(w, status, errorBody{Error: msg, Category: category})
}

// writeServiceError maps pipeline sentinels onto HTTP status and category.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, "invalid code", categoryNewInput)
	case errors.Is(err, errs.ErrSignatureInvalid):
		writeError(w, http.StatusBadRequest, "invalid code", categoryNewInput)
	case errors.Is(err, errs.ErrLocationUnavailable):
		writeError(w, http.StatusBadRequest, "location unavailable", categoryRetry)
	case errors.Is(err, errs.ErrOutOfRange):
		writeError(w, http.StatusForbidden, "too far from the code location", categoryRelocate)
	case errors.Is(err, errs.ErrUnreadableReceipt):
		writeError(w, http.StatusUnprocessableEntity, "could not read the receipt, try a clearer photo", categoryRetry)
	case errors.Is(err, errs.ErrReceiptRejected):
		writeError(w, http.StatusUnprocessableEntity, "receipt does not meet campaign rules", categoryRejected)
	case errors.Is(err, errs.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "previous level not completed", categoryRejected)
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown campaign", categoryNewInput)
	case errors.Is(err, errs.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many attempts, try later", categoryRetry)
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "no auth", categoryNewInput)
	case errors.Is(err, errs.ErrPersistence):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable", categoryRetry)
	default:
		writeError(w, http.StatusInternalServerError, "internal", categoryRetry)
	}
}
