package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bcnelson/sandbox-console/internal/datagen"
	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/validation"
	"github.com/rs/zerolog/log"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondStandardError(w, status, codeForStatus(status), message, "", nil)
}

// respondStandardError writes a StandardErrorResponse.
func respondStandardError(w http.ResponseWriter, status int, code, message, field string, details map[string]any) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{
			Code:    code,
			Message: message,
			Field:   field,
			Details: details,
		},
	})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return domain.ErrCodeResourceNotFound
	case http.StatusConflict:
		return domain.ErrCodeResourceAlreadyExists
	case http.StatusPreconditionFailed:
		return domain.ErrCodePreconditionFailed
	case http.StatusBadRequest:
		return domain.ErrCodeInvalidInput
	}
	return domain.ErrCodeInternalError
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	var verrs validation.ValidationErrors
	var genErr *datagen.Error

	switch {
	case errors.As(err, &verrs):
		respondValidationErrors(w, verrs)
	case errors.Is(err, domain.ErrCompletionUnavailable):
		respondStandardError(w, http.StatusServiceUnavailable, domain.ErrCodeGenerationFailed, "data generation is not configured", "", nil)
	case errors.As(err, &genErr):
		var details map[string]any
		if genErr.Raw != "" {
			details = map[string]any{"raw": genErr.Raw}
		}
		respondStandardError(w, http.StatusBadGateway, domain.ErrCodeGenerationFailed, genErr.Message, "", details)
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidTransition):
		respondStandardError(w, http.StatusConflict, domain.ErrCodeInvalidTransition, err.Error(), "", nil)
	case errors.Is(err, domain.ErrInvalidInput):
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error(), "", nil)
	default:
		log.Error().Err(err).Msg("Unhandled error")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body and checks its struct tags.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return validation.Struct(v)
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	var field string
	if len(errs) > 0 {
		field = errs[0].Field
	}
	respondStandardError(w, http.StatusBadRequest, domain.ErrCodeValidationError, errs.Error(), field, map[string]any{
		"errors": errs,
	})
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, validation.ValidationErrors{validation.NewValidationError(name, raw, "must be a non-negative integer")}
	}
	return n, nil
}
