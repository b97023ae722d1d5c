package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchesMIME(t *testing.T) {
	t.Parallel()

	allowed := map[string]struct{}{
		"image/png":       {},
		"application/pdf": {},
		"image/*":         {},
	}

	require.True(t, MatchesMIME(allowed, "image/png"))
	require.True(t, MatchesMIME(allowed, "Application/PDF; charset=binary"))
	require.True(t, MatchesMIME(allowed, "image/webp"))
	require.False(t, MatchesMIME(allowed, "text/plain"))
	require.False(t, MatchesMIME(allowed, ""))
	require.False(t, MatchesMIME(map[string]struct{}{"image/png": {}}, "image/gif"))
}

func TestNormalizeMIME(t *testing.T) {
	t.Parallel()

	require.Equal(t, "text/plain", NormalizeMIME("Text/Plain; charset=utf-8"))
	require.Equal(t, "image/png", NormalizeMIME(" image/png "))
	require.Equal(t, "", NormalizeMIME(""))
}

func TestContentTypeForFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	svgPath := filepath.Join(dir, "drawing.svg")
	require.NoError(t, os.WriteFile(svgPath, []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), 0o644))
	require.Equal(t, "image/svg+xml", ContentTypeForFile(svgPath))

	pdfNoExt := filepath.Join(dir, "scan")
	require.NoError(t, os.WriteFile(pdfNoExt, []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"), 0o644))
	require.Equal(t, "application/pdf", ContentTypeForFile(pdfNoExt))

	require.Equal(t, "application/octet-stream", ContentTypeForFile(filepath.Join(dir, "missing")))
}

func TestIsDecodableRaster(t *testing.T) {
	t.Parallel()

	require.True(t, IsDecodableRaster("image/png"))
	require.True(t, IsDecodableRaster("IMAGE/JPEG"))
	require.True(t, IsDecodableRaster("image/webp"))
	require.False(t, IsDecodableRaster("image/svg+xml"))
	require.False(t, IsDecodableRaster("application/pdf"))
}

func TestExtensionForMIME(t *testing.T) {
	t.Parallel()

	require.Equal(t, ".png", ExtensionForMIME("image/png"))
	require.Equal(t, ".pdf", ExtensionForMIME("application/pdf; foo=bar"))
	require.Equal(t, "", ExtensionForMIME("application/x-definitely-unknown"))
}
