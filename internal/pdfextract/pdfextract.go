// Package pdfextract fetches a PDF over HTTP and extracts its per-page
// text and document metadata for the ingestion pipeline.
package pdfextract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ledongthuc/pdf"
)

// Document is the result of parsing a fetched PDF: per-page text keyed
// by 1-based page number, plus whatever metadata the document carries.
type Document struct {
	Pages     map[int]string
	Title     string
	Author    string
	PageCount int
}

// Fetcher fetches and parses PDFs. Its sole implementation wraps an
// *http.Client so the orchestrator can share one session across workers.
type Fetcher struct {
	client *http.Client
}

// NewFetcher constructs a Fetcher around client. A nil client falls back
// to http.DefaultClient.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// FetchAndParse retrieves url and extracts its text and metadata. Errors
// name the URL and the underlying cause.
func (f *Fetcher) FetchAndParse(ctx context.Context, url string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("pdfextract: build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("pdfextract: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("pdfextract: fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("pdfextract: read body of %s: %w", url, err)
	}

	return Parse(body, url)
}

// Parse extracts per-page text and metadata from raw PDF bytes. url is
// used only to make parse errors identify the offending document.
func Parse(data []byte, url string) (Document, error) {
	reader := bytes.NewReader(data)
	r, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("pdfextract: parse %s: %w", url, err)
	}

	numPages := r.NumPage()
	pages := make(map[int]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return Document{}, fmt.Errorf("pdfextract: extract page %d of %s: %w", i, url, err)
		}
		pages[i] = text
	}

	title, author := documentInfo(r)
	return Document{
		Pages:     pages,
		Title:     title,
		Author:    author,
		PageCount: numPages,
	}, nil
}

// documentInfo pulls Title/Author out of the PDF trailer's Info
// dictionary, falling back to empty strings when absent.
func documentInfo(r *pdf.Reader) (title, author string) {
	trailer := r.Trailer()
	info := trailer.Key("Info")
	if info.IsNull() {
		return "", ""
	}
	return info.Key("Title").Text(), info.Key("Author").Text()
}
