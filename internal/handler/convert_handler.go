package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"svg-converter/internal/middleware"
	"svg-converter/internal/model"
	"svg-converter/pkg/apierror"
)

const uploadField = "file"

type conversionService interface {
	ConvertUpload(ctx context.Context, filename string, declaredMIME string, reader io.Reader) (model.ConversionResult, error)
	ConvertURL(ctx context.Context, fileURL string) (model.ConversionResult, error)
}

type ConvertHandler struct {
	service       conversionService
	baseURL       string
	maxUploadSize int64
}

func NewConvertHandler(service conversionService, baseURL string, maxUploadSize int64) *ConvertHandler {
	return &ConvertHandler{
		service:       service,
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		maxUploadSize: maxUploadSize,
	}
}

type convertURLRequest struct {
	FileURL string `json:"fileUrl"`
}

// Convert accepts one multipart file in the "file" field. The part is
// streamed straight into the store; other fields are skipped.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, apierror.BadRequest("NO_FILE", "no file uploaded", "expected multipart/form-data with a 'file' field"))
		return
	}

	for {
		part, nextErr := reader.NextPart()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			if isPayloadTooLarge(nextErr) {
				writeError(w, payloadTooLarge(h.maxUploadSize))
				return
			}
			writeError(w, apierror.BadRequest("BAD_REQUEST", "invalid multipart stream", nextErr.Error()))
			return
		}

		if part.FormName() != uploadField || strings.TrimSpace(part.FileName()) == "" {
			_ = part.Close()
			continue
		}

		logConversionRequest(r, "upload", part.FileName())
		result, convErr := h.service.ConvertUpload(r.Context(), part.FileName(), partContentType(part), part)
		_ = part.Close()
		if convErr != nil {
			writeError(w, convErr)
			return
		}

		h.writeConverted(w, result)
		return
	}

	writeError(w, apierror.Wrap(model.ErrNoFile, "NO_FILE", "no file uploaded", "", http.StatusBadRequest))
}

// ConvertURL downloads the file named by {"fileUrl": ...} and converts it.
func (h *ConvertHandler) ConvertURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)

	var req convertURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierror.BadRequest("BAD_REQUEST", "invalid JSON body", err.Error()))
		return
	}

	if strings.TrimSpace(req.FileURL) == "" {
		writeError(w, apierror.BadRequest("BAD_REQUEST", "fileUrl is required", "fileUrl"))
		return
	}

	logConversionRequest(r, "url", req.FileURL)
	result, err := h.service.ConvertURL(r.Context(), req.FileURL)
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeConverted(w, result)
}

func (h *ConvertHandler) writeConverted(w http.ResponseWriter, result model.ConversionResult) {
	writeJSON(w, http.StatusOK, model.ConvertResponse{
		Success: true,
		Message: "File converted successfully",
		Files: model.ConvertedFiles{
			Original:  h.fileURL(result.Original.Name),
			Converted: h.fileURL(result.Converted.Name),
		},
	})
}

func (h *ConvertHandler) fileURL(name string) string {
	return h.baseURL + "/files/" + url.PathEscape(name)
}

func logConversionRequest(r *http.Request, source string, target string) {
	role := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		role = claims.Role
	}
	slog.Info("conversion requested",
		"source", source,
		"target", target,
		"role", role,
		"request_id", middleware.RequestIDFromContext(r.Context()),
	)
}

func partContentType(part *multipart.Part) string {
	return part.Header.Get("Content-Type")
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || errors.Is(err, model.ErrPayloadTooLarge) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

func payloadTooLarge(limit int64) error {
	return apierror.Wrap(model.ErrPayloadTooLarge, "PAYLOAD_TOO_LARGE", "request body exceeds MAX_UPLOAD_SIZE", fmt.Sprintf("limit %d bytes", limit), http.StatusRequestEntityTooLarge)
}
