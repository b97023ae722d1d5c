package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"svg-converter/internal/model"
	"svg-converter/pkg/apierror"
)

type mockConversionService struct {
	mock.Mock
}

func (m *mockConversionService) ConvertUpload(ctx context.Context, filename string, declaredMIME string, reader io.Reader) (model.ConversionResult, error) {
	body, _ := io.ReadAll(reader)
	args := m.Called(filename, declaredMIME, string(body))
	return args.Get(0).(model.ConversionResult), args.Error(1)
}

func (m *mockConversionService) ConvertURL(ctx context.Context, fileURL string) (model.ConversionResult, error) {
	args := m.Called(fileURL)
	return args.Get(0).(model.ConversionResult), args.Error(1)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *model.APIError {
	t.Helper()

	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.NotNil(t, body.Error)
	return body.Error
}

func multipartBody(t *testing.T, field string, filename string, contentType string, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

var sampleResult = model.ConversionResult{
	Original:  model.StoredFile{Name: "1f0c-logo.png"},
	Converted: model.StoredFile{Name: "1f0c-logo.svg"},
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", apierror.New("UNSUPPORTED_TYPE", "file type not allowed", "text/plain", http.StatusUnsupportedMediaType), http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE"},
		{"missing file", fmt.Errorf("open: %w", model.ErrFileNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"bad name", fmt.Errorf("resolve: %w", model.ErrInvalidName), http.StatusBadRequest, "INVALID_FILENAME"},
		{"credential", model.ErrInvalidCredential, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"store failure", fmt.Errorf("write: %w", model.ErrIO), http.StatusInternalServerError, "IO_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
}

func TestNotFoundFallback(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"NOT_FOUND","message":"URL not found"}}`, rec.Body.String())
}

func TestConvertHandler_Convert(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(mockConversionService)
		svc.On("ConvertUpload", "logo.png", "image/png", "PNGDATA").Return(sampleResult, nil).Once()
		h := NewConvertHandler(svc, "https://svg.example.com/", 1<<20)

		body, contentType := multipartBody(t, "file", "logo.png", "image/png", "PNGDATA")
		req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.Convert(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"success": true,
			"message": "File converted successfully",
			"files": {
				"original": "https://svg.example.com/files/1f0c-logo.png",
				"converted": "https://svg.example.com/files/1f0c-logo.svg"
			}
		}`, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("wrong field is no file", func(t *testing.T) {
		svc := new(mockConversionService)
		h := NewConvertHandler(svc, "http://localhost:4000", 1<<20)

		body, contentType := multipartBody(t, "upload", "logo.png", "image/png", "PNGDATA")
		req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.Convert(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "NO_FILE", decodeError(t, rec).Code)
		svc.AssertNotCalled(t, "ConvertUpload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not multipart", func(t *testing.T) {
		h := NewConvertHandler(new(mockConversionService), "http://localhost:4000", 1<<20)
		req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		h.Convert(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "NO_FILE", decodeError(t, rec).Code)
	})

	t.Run("service error is mapped", func(t *testing.T) {
		svc := new(mockConversionService)
		convErr := apierror.New("CONVERSION_FAILED", "conversion failed", "inkscape: parse error", http.StatusInternalServerError)
		svc.On("ConvertUpload", "a.pdf", "application/pdf", "%PDF").Return(model.ConversionResult{}, convErr).Once()
		h := NewConvertHandler(svc, "http://localhost:4000", 1<<20)

		body, contentType := multipartBody(t, "file", "a.pdf", "application/pdf", "%PDF")
		req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.Convert(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		apiErr := decodeError(t, rec)
		assert.Equal(t, "CONVERSION_FAILED", apiErr.Code)
		assert.Equal(t, "inkscape: parse error", apiErr.Details)
	})
}

func TestConvertHandler_ConvertURL(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(mockConversionService)
		svc.On("ConvertURL", "https://example.com/a.png").Return(sampleResult, nil).Once()
		h := NewConvertHandler(svc, "http://localhost:4000", 1<<20)

		req := httptest.NewRequest(http.MethodPost, "/api/convert-url", strings.NewReader(`{"fileUrl":"https://example.com/a.png"}`))
		rec := httptest.NewRecorder()
		h.ConvertURL(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "http://localhost:4000/files/1f0c-logo.svg")
	})

	for name, payload := range map[string]string{
		"missing field": `{}`,
		"blank url":     `{"fileUrl":"  "}`,
		"invalid json":  `{"fileUrl":`,
	} {
		t.Run(name, func(t *testing.T) {
			svc := new(mockConversionService)
			h := NewConvertHandler(svc, "http://localhost:4000", 1<<20)

			req := httptest.NewRequest(http.MethodPost, "/api/convert-url", strings.NewReader(payload))
			rec := httptest.NewRecorder()
			h.ConvertURL(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
			svc.AssertNotCalled(t, "ConvertURL", mock.Anything)
		})
	}
}

func TestDocsHandlerServesEmbeddedSpec(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDocsHandler("").OpenAPI(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "/api/convert-url")
}
