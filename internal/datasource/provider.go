package datasource

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
	"lukechampine.com/blake3"
)

// maxDocumentBytes bounds how much of a document is read.
const maxDocumentBytes = 16 << 20

// contentTag is the etag of content when the source does not supply one.
func contentTag(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FileProvider reads documents from a local directory.
type FileProvider struct {
	Dir string
}

var _ contract.ContentProvider = &FileProvider{} // Compile-time check

// NewFileProvider returns a provider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

// Read returns the document when its blake3 digest differs from etag.
func (p *FileProvider) Read(ctx context.Context, name, etag string) (schema.ContentResult, error) {
	if err := ctx.Err(); err != nil {
		return schema.ContentResult{}, err
	}
	content, err := os.ReadFile(filepath.Join(p.Dir, name))
	if err != nil {
		return schema.ContentResult{}, err
	}
	tag := contentTag(content)
	if tag == etag {
		return schema.ContentResult{ETag: tag}, nil
	}
	return schema.ContentResult{Changed: true, Content: content, ETag: tag}, nil
}

// String describes the provider.
func (p *FileProvider) String() string {
	return "dir:" + p.Dir
}

// HTTPProvider fetches documents relative to a base URL with conditional requests.
type HTTPProvider struct {
	base   *url.URL
	client *http.Client
}

var _ contract.ContentProvider = &HTTPProvider{} // Compile-time check

// NewHTTPProvider returns a provider for documents under baseURL.
func NewHTTPProvider(baseURL string, timeout time.Duration) (*HTTPProvider, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid data source URL %q: %w", baseURL, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if timeout <= 0 {
		timeout = contract.DefaultHTTPTimeout
	}
	return &HTTPProvider{base: u, client: &http.Client{Timeout: timeout}}, nil
}

// Read issues a GET with If-None-Match. A 304 reports the document unchanged.
func (p *HTTPProvider) Read(ctx context.Context, name, etag string) (schema.ContentResult, error) {
	target := p.base.ResolveReference(&url.URL{Path: name})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return schema.ContentResult{}, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return schema.ContentResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return schema.ContentResult{ETag: etag}, nil
	case http.StatusOK:
	default:
		return schema.ContentResult{}, fmt.Errorf("GET %s: unexpected status %s", target, resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return schema.ContentResult{}, fmt.Errorf("GET %s: %w", target, err)
	}
	tag := resp.Header.Get("ETag")
	if tag == "" {
		tag = contentTag(content)
	}
	if tag == etag {
		return schema.ContentResult{ETag: tag}, nil
	}
	return schema.ContentResult{Changed: true, Content: content, ETag: tag}, nil
}

// String describes the provider.
func (p *HTTPProvider) String() string {
	return "url:" + p.base.String()
}
