package util

import (
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"

	"svg-converter/internal/model"
	"svg-converter/pkg/apierror"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*%#\s]`)

// maxHintBytes keeps "<uuid>-<hint>" well below the 255 byte name limit.
const maxHintBytes = 160

// SanitizeFilename turns a client supplied name into a flat, URL-safe
// segment suitable as the human readable part of a stored name.
func SanitizeFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", invalidName("filename cannot be empty", "")
	}

	if strings.Contains(trimmed, "\x00") {
		return "", invalidName("filename contains null bytes", trimmed)
	}

	// Browsers on Windows may send full paths.
	trimmed = trimmed[strings.LastIndexAny(trimmed, `/\`)+1:]

	builder := strings.Builder{}
	builder.Grow(len(trimmed))
	for _, char := range trimmed {
		if unicode.IsControl(char) || unicode.Is(unicode.Cf, char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := invalidFilenameChars.ReplaceAllString(builder.String(), "_")
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		return "", invalidName("filename is invalid after sanitization", trimmed)
	}

	if len(cleaned) > maxHintBytes {
		ext := path.Ext(cleaned)
		if len(ext) > maxHintBytes/4 {
			ext = ""
		}
		stem := []rune(strings.TrimSuffix(cleaned, ext))
		for len(string(stem))+len(ext) > maxHintBytes {
			stem = stem[:len(stem)-1]
		}
		cleaned = string(stem) + ext
	}

	return cleaned, nil
}

// FilenameFromURL derives a name hint from the last path segment of rawURL,
// ignoring the query string.
func FilenameFromURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "download"
	}

	base := path.Base(parsed.Path)
	if base == "." || base == "/" || base == "" {
		return "download"
	}

	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}

	return base
}

func invalidName(message string, details string) error {
	return apierror.Wrap(model.ErrInvalidName, "INVALID_FILENAME", message, details, http.StatusBadRequest)
}
