// Package orchestrator drives ingestion over a list of URLs with
// bounded concurrency, aggregating per-URL outcomes into a single run
// result.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dhosearch/internal/ingestion"
)

const defaultConcurrency = 5

// FailedBook records one book's failure for the run result: URL, a
// non-empty error message naming the underlying cause, and an
// ISO-8601 timestamp.
type FailedBook struct {
	URL       string    `json:"url"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the aggregated outcome of a Run.
type Result struct {
	Successful  int          `json:"successful"`
	Failed      int          `json:"failed"`
	Total       int          `json:"total"`
	FailedBooks []FailedBook `json:"failed_books"`
}

// Orchestrator owns the shared Pipeline and logger used across every
// worker in a run.
type Orchestrator struct {
	Pipeline *ingestion.Pipeline
	Log      zerolog.Logger

	// OnProgress, if set, is called after every processed URL (success
	// or failure) with the running totals so far, letting a caller like
	// cmd/ingest mirror progress to a status file incrementally.
	OnProgress func(processed, failed, total int)
}

// Run processes urls with up to concurrencyLimit workers running
// concurrently. A URL that is blank is skipped without counting
// towards total. ctx cancellation stops dispatch of new URLs and lets
// in-flight workers finish; the partial result is still returned.
func (o *Orchestrator) Run(ctx context.Context, urls []string, concurrencyLimit int) Result {
	if concurrencyLimit <= 0 {
		concurrencyLimit = defaultConcurrency
	}

	jobs := make(chan string)
	outcomes := make(chan outcomeOrError)

	var wg sync.WaitGroup
	for i := 0; i < concurrencyLimit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range jobs {
				out, err := o.Pipeline.ProcessBook(ctx, url)
				outcomes <- outcomeOrError{url: url, outcome: out, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, url := range urls {
			if url == "" {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- url:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var result Result
	for oe := range outcomes {
		result.Total++
		if oe.err != nil {
			result.Failed++
			result.FailedBooks = append(result.FailedBooks, FailedBook{
				URL:       oe.url,
				Error:     nonEmptyError(oe.err),
				Timestamp: time.Now().UTC(),
			})
			o.Log.Error().Str("url", oe.url).Err(oe.err).Msg("ingestion failed")
			if o.OnProgress != nil {
				o.OnProgress(result.Total, result.Failed, len(urls))
			}
			continue
		}
		result.Successful++
		if o.OnProgress != nil {
			o.OnProgress(result.Total, result.Failed, len(urls))
		}
	}

	o.Log.Info().
		Int("total", result.Total).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("run complete")

	return result
}

type outcomeOrError struct {
	url     string
	outcome ingestion.Outcome
	err     error
}

// nonEmptyError guarantees failed_books entries never carry an empty
// message.
func nonEmptyError(err error) string {
	msg := fmt.Sprintf("%T: %v", err, err)
	if msg == "" {
		return "No details available"
	}
	return msg
}
