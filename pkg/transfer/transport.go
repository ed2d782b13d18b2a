package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/remote"
)

// DefaultUserAgent is sent with every content request. The vendor's
// storage rejects some stock client agents.
const DefaultUserAgent = "dittocloud/1.0"

// UploadRequest is one file to post to an upload endpoint.
type UploadRequest struct {
	Key         string
	FileName    string
	ContentType string
	Body        io.Reader
}

// Transport moves file content to and from the storage behind the remote
// item service.
type Transport interface {
	// Upload posts the file under the authorization's signed policy.
	Upload(ctx context.Context, auth *remote.UploadAuth, req UploadRequest) error

	// Download writes the content at url to w and returns the byte count.
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// UploadKey builds the object key "<prefix><ext>/<checksum>.<ext>", using
// "@" for files without an extension.
func UploadKey(prefix, name, sum string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		ext = "@"
	}
	return prefix + ext + "/" + sum + "." + ext
}

// HTTPConfig configures HTTPTransport.
type HTTPConfig struct {
	// Timeout bounds each request, 0 means none
	Timeout time.Duration `mapstructure:"timeout"`

	UserAgent string `mapstructure:"user_agent"`
}

// HTTPTransport talks to signed form-POST upload endpoints and plain GET
// download URLs.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransport creates a transport.
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &HTTPTransport{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}
}

// Upload sends a multipart form: the policy fields in name order, then
// key and Content-Type, then the file part last as storage buckets
// require. Any 2xx status is success; the vendor answers 204.
func (t *HTTPTransport) Upload(ctx context.Context, auth *remote.UploadAuth, req UploadRequest) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	names := make([]string, 0, len(auth.Fields))
	for name := range auth.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := w.WriteField(name, auth.Fields[name]); err != nil {
			return err
		}
	}
	if err := w.WriteField("key", req.Key); err != nil {
		return err
	}
	if err := w.WriteField("Content-Type", req.ContentType); err != nil {
		return err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.FileName))
	header.Set("Content-Type", req.ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return fmt.Errorf("failed to read %s: %w", req.FileName, err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.BaseURL, &body)
	if err != nil {
		return &remote.Error{Code: remote.ErrUploadFailed, Message: "invalid upload endpoint", Err: err}
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set("ngsw-bypass", "1")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return &remote.Error{Code: remote.ErrUploadFailed, Message: "upload request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &remote.Error{
			Code:    remote.ErrUploadFailed,
			Message: fmt.Sprintf("upload rejected with %s: %s", resp.Status, strings.TrimSpace(string(snippet))),
		}
	}
	if resp.StatusCode != http.StatusNoContent {
		logger.Debug("Upload of %s acknowledged with %s", req.Key, resp.Status)
	}
	return nil
}

// Download streams url into w.
func (t *HTTPTransport) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &remote.Error{Code: remote.ErrService, Message: "invalid download URL", Err: err}
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, &remote.Error{Code: remote.ErrService, Message: "download request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &remote.Error{Code: remote.ErrService, Message: "download failed with " + resp.Status}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download interrupted after %d bytes: %w", n, err)
	}
	return n, nil
}
