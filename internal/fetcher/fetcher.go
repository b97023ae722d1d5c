package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"svg-converter/internal/model"
	"svg-converter/internal/util"
	"svg-converter/pkg/apierror"
)

// Download is a fully read remote resource.
type Download struct {
	URL         string
	Filename    string
	ContentType string
	Body        []byte
}

// Fetcher downloads remote files with a bounded time and size.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func New(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("stopped after 5 redirects")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apierror.BadRequest("INVALID_URL", "fileUrl must be an absolute http or https URL", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, parsed.Redacted())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierror.Wrap(model.ErrFetchFailed, "FETCH_FAILED", "remote server returned an error", resp.Status, http.StatusBadGateway)
	}

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, tooLarge(resp.ContentLength, f.maxBytes)
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyTransportError(err, parsed.Redacted())
	}

	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, tooLarge(int64(len(body)), f.maxBytes)
	}

	contentType := util.NormalizeMIME(resp.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = util.SniffMIME(body)
	}

	return &Download{
		URL:         parsed.String(),
		Filename:    util.FilenameFromURL(parsed.String()),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func classifyTransportError(err error, target string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apierror.Wrap(model.ErrFetchTimeout, "FETCH_TIMEOUT", "remote server did not respond in time", target, http.StatusGatewayTimeout)
	}

	return apierror.Wrap(fmt.Errorf("%w: %w", model.ErrFetchFailed, err), "FETCH_FAILED", "failed to download file", err.Error(), http.StatusBadGateway)
}

func tooLarge(size int64, limit int64) error {
	return apierror.Wrap(model.ErrPayloadTooLarge, "PAYLOAD_TOO_LARGE", "remote file exceeds the size limit", fmt.Sprintf("%d > %d bytes", size, limit), http.StatusRequestEntityTooLarge)
}
