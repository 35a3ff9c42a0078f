// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads HTML pages and creates metadata records.
// Fetched pages land under the content directory and can be fed to the
// correction pipeline afterwards.
//
// See docs/ARCHITECTURE.md § Acquisition.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/copyedit-engine/internal/httputil"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

const (
	rawDir      = "raw"
	metadataDir = "metadata"
)

// Page records one fetched page.
type Page struct {
	URL         string    `json:"url" yaml:"url"`
	Slug        string    `json:"slug" yaml:"slug"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	HTMLPath    string    `json:"htmlPath" yaml:"htmlPath"`
	Readable    bool      `json:"readable,omitempty" yaml:"readable,omitempty"`
	FetchedAt   time.Time `json:"fetchedAt" yaml:"fetchedAt"`
	Bytes       int       `json:"bytes" yaml:"bytes"`
}

// Options control a fetch.
type Options struct {
	// Readable isolates the main article content before saving,
	// stripping navigation, ads and boilerplate.
	Readable bool

	// Force re-downloads a page that is already on disk.
	Force bool
}

// BatchResult holds the outcome of a batch fetch run.
type BatchResult struct {
	Fetched int
	Skipped int
	Failed  int
	Pages   []*Page
}

// Total returns the total number of URLs processed.
func (r BatchResult) Total() int {
	return r.Fetched + r.Skipped + r.Failed
}

// HasFailures reports whether any pages failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// FetchPage downloads a single page and writes it with a metadata
// sidecar. If the page already exists on disk it skips the download
// unless opts.Force is set. The skipped return value indicates whether
// the download was skipped.
func FetchPage(ctx context.Context, client *http.Client, rawURL string, opts Options, cfg types.FetchConfig, w io.Writer) (page *Page, skipped bool, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, false, fmt.Errorf("invalid URL: %q", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, false, fmt.Errorf("unsupported URL scheme %q (must be http or https)", parsed.Scheme)
	}

	slug := Slug(rawURL)
	htmlPath := filepath.Join(cfg.ContentDir, rawDir, slug+".html")
	metaPath := filepath.Join(cfg.ContentDir, metadataDir, slug+".yaml")

	if _, err := os.Stat(htmlPath); err == nil && !opts.Force {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", slug)
		p, readErr := readMetadata(metaPath)
		if readErr != nil {
			p = &Page{URL: rawURL, Slug: slug, HTMLPath: htmlPath}
		}
		return p, true, nil
	}

	for _, dir := range []string{
		filepath.Join(cfg.ContentDir, rawDir),
		filepath.Join(cfg.ContentDir, metadataDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fmt.Fprintf(w, "fetching: %s\n", rawURL)

	body, err := Download(ctx, client, rawURL, cfg)
	if err != nil {
		return nil, false, fmt.Errorf("fetching %s: %w", slug, err)
	}

	p := &Page{
		URL:       rawURL,
		Slug:      slug,
		HTMLPath:  htmlPath,
		FetchedAt: time.Now().UTC(),
	}
	p.Title, p.Description = pageMetadata(body)

	if opts.Readable {
		article, err := readability.FromReader(bytes.NewReader(body), parsed)
		if err != nil || article.Content == "" {
			fmt.Fprintf(w, "  warning: readable extraction failed, keeping full page: %v\n", err)
		} else {
			body = []byte(article.Content)
			p.Readable = true
			if p.Title == "" {
				p.Title = article.Title
			}
		}
	}
	p.Bytes = len(body)

	if err := writeContent(body, htmlPath); err != nil {
		return nil, false, fmt.Errorf("writing %s: %w", slug, err)
	}
	if err := writeMetadata(p, metaPath); err != nil {
		return nil, false, fmt.Errorf("writing metadata for %s: %w", slug, err)
	}

	return p, false, nil
}

// FetchBatch processes multiple URLs, printing per-item status and
// returning a summary. It continues after individual failures.
func FetchBatch(ctx context.Context, client *http.Client, urls []string, opts Options, cfg types.FetchConfig, w io.Writer) BatchResult {
	var result BatchResult
	for _, u := range urls {
		page, wasSkipped, err := FetchPage(ctx, client, u, opts, cfg, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", u, err)
			result.Failed++
			continue
		}
		if wasSkipped {
			result.Skipped++
		} else {
			result.Fetched++
		}
		result.Pages = append(result.Pages, page)
	}
	fmt.Fprintf(w, "\nBatch summary: %d fetched, %d skipped, %d failed (total: %d)\n",
		result.Fetched, result.Skipped, result.Failed, result.Total())
	return result
}

// Download fetches a page body without writing anything to disk, size
// capped at cfg.MaxBodyBytes. Transient HTTP failures are retried.
// Callers that want the page persisted use FetchPage instead.
func Download(ctx context.Context, client *http.Client, pageURL string, cfg types.FetchConfig) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, pageURL)
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxBytes)
	}
	return body, nil
}

// pageMetadata pulls the title and description out of the page head.
func pageMetadata(body []byte) (title, description string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	description = strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if description == "" {
		description = strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}
	return title, description
}

// writeContent writes the page body to destPath using a temporary file.
func writeContent(body []byte, destPath string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(body)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func writeMetadata(page *Page, path string) error {
	data, err := yaml.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readMetadata(path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var page Page
	if err := yaml.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
