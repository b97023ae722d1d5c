package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"svg-converter/internal/model"
	"svg-converter/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
		if status >= http.StatusInternalServerError {
			slog.Error("request failed", "code", apiErr.Code, "error", err.Error())
		}
	} else if errors.Is(err, model.ErrFileNotFound) || errors.Is(err, os.ErrNotExist) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "File not found"
	} else if errors.Is(err, model.ErrInvalidName) {
		status = http.StatusBadRequest
		body.Code = "INVALID_FILENAME"
		body.Message = "Invalid file name"
	} else if errors.Is(err, model.ErrMissingCredential) || errors.Is(err, model.ErrInvalidCredential) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "missing or invalid api key"
	} else if errors.Is(err, model.ErrPayloadTooLarge) {
		status = http.StatusRequestEntityTooLarge
		body.Code = "PAYLOAD_TOO_LARGE"
		body.Message = "Payload too large"
	} else if errors.Is(err, model.ErrIO) {
		body.Code = "IO_ERROR"
		body.Message = "File store failure"
		slog.Error("file store failure", "error", err.Error())
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	writeJSON(w, status, model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// NotFound is the fallback for every unmatched route.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, apierror.NotFound("URL not found", ""))
}

func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, apierror.New("METHOD_NOT_ALLOWED", "method not allowed", "", http.StatusMethodNotAllowed))
}
