//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"svg-converter/internal/auth"
	"svg-converter/internal/config"
	"svg-converter/internal/converter"
	"svg-converter/internal/fetcher"
	"svg-converter/internal/handler"
	"svg-converter/internal/intake"
	"svg-converter/internal/metrics"
	"svg-converter/internal/middleware"
	"svg-converter/internal/router"
	"svg-converter/internal/service"
	"svg-converter/internal/storage"
)

const testSecret = "integration-secret"

// requireInkscape skips the test when no converter binary is installed.
func requireInkscape(t *testing.T) *converter.Inkscape {
	t.Helper()

	inkscape := converter.NewInkscape("inkscape", 2*time.Minute)
	version, err := inkscape.CheckInstallation(context.Background())
	if err != nil {
		t.Skipf("inkscape not available: %v", err)
	}
	t.Logf("using %s", version)
	return inkscape
}

func newServer(t *testing.T, conv converter.Converter) (*httptest.Server, *storage.Store, string) {
	t.Helper()

	root := t.TempDir()
	store, err := storage.New(filepath.Join(root, "uploads"), filepath.Join(root, "converted"))
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(t, err)

	verifier, err := auth.NewVerifier(testSecret)
	require.NoError(t, err)
	issuer, err := auth.NewIssuer(testSecret)
	require.NoError(t, err)
	token, err := issuer.Sign("admin", time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{
		RequestTimeout:      5 * time.Minute,
		DownloadTimeout:     time.Minute,
		DownloadIdleTimeout: 30 * time.Second,
		RateLimitRPM:        1000,
		ConvertRateLimitRPM: 1000,
	}

	svc := service.NewConversionService(store, intake.NewValidator(nil), conv, fetcher.New(30*time.Second, 50<<20), m)
	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(verifier, ""), router.Handlers{
		Convert: handler.NewConvertHandler(svc, "http://localhost", 50<<20),
		Files:   handler.NewFileHandler(store),
		Storage: handler.NewStorageHandler(service.NewStatsService(store)),
		Docs:    handler.NewDocsHandler(""),
	}, m, registry))
	t.Cleanup(server.Close)

	return server, store, token
}

func samplePNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.Black)
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func upload(t *testing.T, serverURL string, token string, filename string, contentType string, content []byte) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/convert", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("api-key", token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}
