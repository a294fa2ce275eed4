// Package huggingface downloads model artifacts from a Hugging Face
// compatible file host.
package huggingface

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.ArtifactFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultBaseURL  = "https://huggingface.co"
	DefaultRevision = "main"

	// DefaultHeaderTimeout bounds the wait for response headers. The body
	// transfer itself is bounded only by the caller's context.
	DefaultHeaderTimeout = 30 * time.Second
)

// Config holds configuration for the fetcher.
type Config struct {
	// BaseURL is the file host (default: https://huggingface.co).
	BaseURL string

	// Revision is the repository revision (default: main).
	Revision string

	// UserAgent is sent with every request.
	UserAgent string

	// HeaderTimeout bounds the wait for response headers (default: 30s).
	HeaderTimeout time.Duration
}

// Fetcher implements driven.ArtifactFetcher over HTTP with Range resumes.
type Fetcher struct {
	client    *http.Client
	baseURL   string
	revision  string
	userAgent string
}

// NewFetcher creates a new artifact fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Revision == "" {
		cfg.Revision = DefaultRevision
	}
	if cfg.HeaderTimeout == 0 {
		cfg.HeaderTimeout = DefaultHeaderTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.HeaderTimeout

	return &Fetcher{
		client:    &http.Client{Transport: transport},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		revision:  cfg.Revision,
		userAgent: cfg.UserAgent,
	}
}

// ArtifactURL returns the download URL of remotePath inside repo.
func (f *Fetcher) ArtifactURL(repo, remotePath string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s",
		f.baseURL, repo, url.PathEscape(f.revision), strings.TrimLeft(remotePath, "/"))
}

// Fetch opens remotePath inside repo starting at offset bytes.
func (f *Fetcher) Fetch(ctx context.Context, repo, remotePath string, offset int64) (*driven.ArtifactStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.ArtifactURL(repo, remotePath), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return &driven.ArtifactStream{Body: resp.Body, Offset: 0, Total: resp.ContentLength}, nil

	case http.StatusPartialContent:
		total := totalFromContentRange(resp.Header.Get("Content-Range"))
		if total < 0 && resp.ContentLength >= 0 {
			total = offset + resp.ContentLength
		}
		return &driven.ArtifactStream{Body: resp.Body, Offset: offset, Total: total}, nil

	case http.StatusRequestedRangeNotSatisfiable:
		// The partial file already holds every byte.
		resp.Body.Close()
		total := totalFromContentRange(resp.Header.Get("Content-Range"))
		if total >= 0 && total != offset {
			return nil, fmt.Errorf("range %d not satisfiable for %d byte artifact", offset, total)
		}
		return &driven.ArtifactStream{Body: http.NoBody, Offset: offset, Total: offset}, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return nil, fmt.Errorf("GET %s: status %d: %s", remotePath, resp.StatusCode, strings.TrimSpace(string(body)))
}

// totalFromContentRange parses the complete length of a Content-Range
// header ("bytes 0-99/200" or "bytes */200"). It returns -1 if unknown.
func totalFromContentRange(header string) int64 {
	i := strings.LastIndexByte(header, '/')
	if i < 0 {
		return -1
	}
	total, err := strconv.ParseInt(strings.TrimSpace(header[i+1:]), 10, 64)
	if err != nil {
		return -1
	}
	return total
}
