package util

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// NormalizeMIME strips parameters and lowercases a media type.
func NormalizeMIME(mimeType string) string {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = strings.SplitN(mimeType, ";", 2)[0]
	}
	return strings.ToLower(strings.TrimSpace(base))
}

// MatchesMIME reports whether mimeType is covered by the allow-list. Entries
// may be exact ("image/png") or wildcards ("image/*").
func MatchesMIME(allowed map[string]struct{}, mimeType string) bool {
	base := NormalizeMIME(mimeType)
	if base == "" {
		return false
	}

	if _, ok := allowed[base]; ok {
		return true
	}

	if major, _, found := strings.Cut(base, "/"); found {
		if _, ok := allowed[major+"/*"]; ok {
			return true
		}
	}

	return false
}

// ContentTypeForFile infers the served content type from the file name and
// falls back to sniffing the content when the extension is unknown.
func ContentTypeForFile(path string) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return byExt
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}

	return detected.String()
}

// SniffMIME detects the media type of an in-memory payload.
func SniffMIME(data []byte) string {
	return NormalizeMIME(mimetype.Detect(data).String())
}

// IsDecodableRaster reports whether the Go image decoders registered by the
// intake package can read this type.
func IsDecodableRaster(mimeType string) bool {
	switch NormalizeMIME(mimeType) {
	case "image/png", "image/jpeg", "image/pjpeg", "image/gif", "image/bmp", "image/x-ms-bmp", "image/webp", "image/tiff":
		return true
	default:
		return false
	}
}

// ExtensionForMIME returns a file extension for mimeType, or "" if unknown.
func ExtensionForMIME(mimeType string) string {
	if lookup := mimetype.Lookup(NormalizeMIME(mimeType)); lookup != nil {
		return lookup.Extension()
	}
	return ""
}
