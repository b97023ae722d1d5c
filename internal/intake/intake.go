package intake

import (
	"fmt"
	"image"
	"net/http"
	"os"
	"sort"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"svg-converter/internal/model"
	"svg-converter/internal/util"
	"svg-converter/pkg/apierror"
)

// DefaultAllowedMIMETypes are the image and document types the converter
// accepts when ALLOWED_MIME_TYPES is not set.
var DefaultAllowedMIMETypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/bmp",
	"image/webp",
	"image/tiff",
	"image/x-eps",
	"image/vnd.adobe.photoshop",
	"application/pdf",
	"application/postscript",
	"application/eps",
	"application/illustrator",
}

type Validator struct {
	allowed map[string]struct{}
}

func NewValidator(allowedMIMETypes []string) *Validator {
	if len(allowedMIMETypes) == 0 {
		allowedMIMETypes = DefaultAllowedMIMETypes
	}

	allowed := make(map[string]struct{}, len(allowedMIMETypes))
	for _, mimeType := range allowedMIMETypes {
		trimmed := strings.TrimSpace(strings.ToLower(mimeType))
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	return &Validator{allowed: allowed}
}

// Allowed returns the configured allow-list, sorted.
func (v *Validator) Allowed() []string {
	out := make([]string, 0, len(v.allowed))
	for mimeType := range v.allowed {
		out = append(out, mimeType)
	}
	sort.Strings(out)
	return out
}

// Check validates a declared content type. It must run before anything is
// written to the incoming directory.
func (v *Validator) Check(declared string) (string, error) {
	normalized := util.NormalizeMIME(declared)
	if normalized == "" {
		return "", apierror.Wrap(model.ErrTypeNotAllowed, "UNSUPPORTED_TYPE", "file type not allowed", "missing content type", http.StatusUnsupportedMediaType)
	}

	if !util.MatchesMIME(v.allowed, normalized) {
		return "", apierror.Wrap(model.ErrTypeNotAllowed, "UNSUPPORTED_TYPE", "file type not allowed", normalized, http.StatusUnsupportedMediaType)
	}

	return normalized, nil
}

// Preflight checks that a stored raster image actually decodes. Types the Go
// image stack cannot read (vector and document formats) pass through to the
// converter unchecked.
func (v *Validator) Preflight(path string, mimeType string) error {
	if !util.IsDecodableRaster(mimeType) {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open for preflight: %w", err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return apierror.Wrap(model.ErrCorruptImage, "CORRUPT_IMAGE", "image could not be decoded", err.Error(), http.StatusUnprocessableEntity)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return apierror.Wrap(model.ErrCorruptImage, "CORRUPT_IMAGE", "invalid image dimensions", fmt.Sprintf("%s %dx%d", format, cfg.Width, cfg.Height), http.StatusUnprocessableEntity)
	}

	return nil
}
