package handler

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

//go:embed openapi.yaml
var embeddedOpenAPI []byte

// DocsHandler serves the OpenAPI document. An override file takes precedence
// over the embedded copy when configured.
type DocsHandler struct {
	specPath string
}

func NewDocsHandler(specPath string) *DocsHandler {
	return &DocsHandler{specPath: strings.TrimSpace(specPath)}
}

func (h *DocsHandler) OpenAPI(w http.ResponseWriter, _ *http.Request) {
	content := embeddedOpenAPI
	if h != nil && h.specPath != "" {
		override, err := os.ReadFile(h.specPath)
		if err != nil {
			slog.Warn("openapi override unreadable, serving embedded document", "path", h.specPath, "error", err)
		} else {
			content = override
		}
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *DocsHandler) SwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'; connect-src 'self' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline' https://unpkg.com; img-src 'self' data: https://validator.swagger.io")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>SVG Converter API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
    <style>body{margin:0;background:#fafafa;}#swagger-ui{max-width:1200px;margin:0 auto;}</style>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
        deepLinking: true,
        displayRequestDuration: true,
        persistAuthorization: true
      });
    </script>
  </body>
</html>`))
}
