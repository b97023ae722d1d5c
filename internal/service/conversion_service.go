package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"svg-converter/internal/converter"
	"svg-converter/internal/fetcher"
	"svg-converter/internal/metrics"
	"svg-converter/internal/model"
	"svg-converter/internal/storage"
	"svg-converter/internal/util"
	"svg-converter/pkg/apierror"
)

type remoteFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Download, error)
}

type intakeValidator interface {
	Check(declared string) (string, error)
	Preflight(path string, mimeType string) error
}

// ConversionService stores an input, runs the converter on it and publishes
// the SVG next to it. On any failure after the input was stored, the input
// and any partial output are removed before returning.
type ConversionService struct {
	store     *storage.Store
	validator intakeValidator
	converter converter.Converter
	fetcher   remoteFetcher
	metrics   *metrics.Metrics
}

func NewConversionService(store *storage.Store, validator intakeValidator, conv converter.Converter, fetch remoteFetcher, m *metrics.Metrics) *ConversionService {
	return &ConversionService{
		store:     store,
		validator: validator,
		converter: conv,
		fetcher:   fetch,
		metrics:   m,
	}
}

// ConvertUpload handles a file received in a multipart request.
func (s *ConversionService) ConvertUpload(ctx context.Context, filename string, declaredMIME string, reader io.Reader) (model.ConversionResult, error) {
	result, err := s.convert(ctx, filename, declaredMIME, reader)
	s.observe(metrics.SourceUpload, err)
	return result, err
}

// ConvertURL downloads fileURL completely, then converts it like an upload.
func (s *ConversionService) ConvertURL(ctx context.Context, fileURL string) (model.ConversionResult, error) {
	if strings.TrimSpace(fileURL) == "" {
		err := apierror.BadRequest("BAD_REQUEST", "fileUrl is required", "")
		s.observe(metrics.SourceURL, err)
		return model.ConversionResult{}, err
	}

	download, err := s.fetcher.Fetch(ctx, fileURL)
	if err != nil {
		s.observe(metrics.SourceURL, err)
		return model.ConversionResult{}, err
	}

	filename := download.Filename
	if filepath.Ext(filename) == "" {
		filename += util.ExtensionForMIME(download.ContentType)
	}

	result, err := s.convert(ctx, filename, download.ContentType, bytes.NewReader(download.Body))
	s.observe(metrics.SourceURL, err)
	return result, err
}

func (s *ConversionService) convert(ctx context.Context, filename string, declaredMIME string, reader io.Reader) (model.ConversionResult, error) {
	started := time.Now()

	mimeType, err := s.validator.Check(declaredMIME)
	if err != nil {
		return model.ConversionResult{}, err
	}

	name, err := storage.NewName(filename)
	if err != nil {
		return model.ConversionResult{}, err
	}

	original, err := s.store.Put(model.RoleIncoming, name, reader)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return model.ConversionResult{}, apierror.Wrap(model.ErrPayloadTooLarge, "PAYLOAD_TOO_LARGE", "file exceeds the maximum upload size", fmt.Sprintf("limit %d bytes", maxBytesErr.Limit), http.StatusRequestEntityTooLarge)
		}
		return model.ConversionResult{}, err
	}

	inputPath, err := s.store.Path(model.RoleIncoming, name)
	if err != nil {
		s.discardIncoming(name)
		return model.ConversionResult{}, err
	}

	if err := s.validator.Preflight(inputPath, mimeType); err != nil {
		s.discardIncoming(name)
		return model.ConversionResult{}, err
	}

	converted, err := s.runConverter(ctx, inputPath, storage.ConvertedName(name))
	if err != nil {
		s.discardIncoming(name)
		return model.ConversionResult{}, err
	}

	slog.Info("file converted",
		"original", original.Name,
		"converted", converted.Name,
		"mime", mimeType,
		"size", original.Size,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return model.ConversionResult{
		Original:  original,
		Converted: converted,
		MIMEType:  mimeType,
		Duration:  time.Since(started),
	}, nil
}

// runConverter writes into a hidden temp path and renames it into place, so a
// half-written SVG is never served.
func (s *ConversionService) runConverter(ctx context.Context, inputPath string, outputName string) (model.StoredFile, error) {
	tempPath, err := s.store.TempPath(model.RoleConverted, outputName)
	if err != nil {
		return model.StoredFile{}, err
	}

	started := time.Now()
	convErr := s.converter.Convert(ctx, inputPath, tempPath)
	s.metrics.ObserveConverter(time.Since(started))

	if convErr != nil {
		removeQuietly(tempPath)
		return model.StoredFile{}, conversionFailed(convErr)
	}

	converted, err := s.store.Publish(model.RoleConverted, tempPath, outputName)
	if err != nil {
		removeQuietly(tempPath)
		return model.StoredFile{}, err
	}

	return converted, nil
}

func (s *ConversionService) discardIncoming(name string) {
	if err := s.store.Delete(model.RoleIncoming, name); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to remove input after unsuccessful conversion", "file", name, "error", err)
	}
}

func (s *ConversionService) observe(source string, err error) {
	switch {
	case err == nil:
		s.metrics.ObserveConversion(source, metrics.ResultSuccess)
	case isClientError(err):
		s.metrics.ObserveConversion(source, metrics.ResultRejected)
	default:
		s.metrics.ObserveConversion(source, metrics.ResultFailed)
	}
}

func conversionFailed(err error) error {
	detail := err.Error()
	var convErr *converter.ConversionError
	if errors.As(err, &convErr) && convErr.Detail != "" {
		detail = convErr.Detail
	}

	return apierror.Wrap(err, "CONVERSION_FAILED", "conversion failed", detail, http.StatusInternalServerError)
}

func isClientError(err error) bool {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus >= 400 && apiErr.HTTPStatus < 500
	}
	return errors.Is(err, model.ErrInvalidName)
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove temporary file", "path", path, "error", err)
	}
}
