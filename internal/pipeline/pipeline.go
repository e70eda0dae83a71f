package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/summarylab/summary-be/internal/worker/domain"
)

// Fetcher retrieves the raw bytes of a source document.
type Fetcher interface {
	Fetch(ctx context.Context, fileURL string) ([]byte, error)
}

// Extractor pulls plain text out of a document's binary content.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Summarizer is the opaque text-completion service: prompt in, text out.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Config bounds the pipeline's text handling.
type Config struct {
	MinTextChars int
	MaxTextChars int
}

// Result is the output of a successful pipeline run.
type Result struct {
	Summary            string
	PromptLabel        string
	OriginalTextLength int
}

// Pipeline executes the pdf-summary task: fetch, extract, guard, truncate,
// compose, summarize. Persistence is the caller's step.
type Pipeline struct {
	fetcher    Fetcher
	extractor  Extractor
	summarizer Summarizer
	logger     *slog.Logger
	config     Config
}

// New creates a Pipeline with the given collaborators.
func New(fetcher Fetcher, extractor Extractor, summarizer Summarizer, logger *slog.Logger, config Config) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		extractor:  extractor,
		summarizer: summarizer,
		logger:     logger,
		config:     config,
	}
}

// Run executes the pipeline for one job. Every returned error is classified
// as permanent or transient so the worker can branch on type, not on
// message text.
func (p *Pipeline) Run(ctx context.Context, job *domain.Job) (*Result, error) {
	// Malformed payloads fail before any external call.
	if err := validateFileURL(job.FileURL); err != nil {
		return nil, domain.Permanent(fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err))
	}

	data, err := p.fetcher.Fetch(ctx, job.FileURL)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("failed to fetch document: %w", err))
	}

	p.logger.Info("Document downloaded",
		slog.String("job_id", job.JobID),
		slog.Int("bytes", len(data)),
	)

	text, err := p.extractor.Extract(ctx, data)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("failed to extract text: %w", err))
	}

	// Bounds are in characters, not bytes; a short non-ASCII document must
	// still be rejected, and truncation must not split a rune.
	text = strings.TrimSpace(text)
	originalLength := utf8.RuneCountInString(text)
	if originalLength < p.config.MinTextChars {
		// Retrying will not grow the document.
		return nil, domain.Permanent(domain.ErrContentTooShort)
	}

	if originalLength > p.config.MaxTextChars {
		runes := []rune(text)
		text = string(runes[:p.config.MaxTextChars])
	}

	mode := job.Mode
	if mode == "" {
		mode = domain.ModeDetailed
	}

	prompt, err := BuildPrompt(mode, text)
	if err != nil {
		return nil, domain.Permanent(fmt.Errorf("failed to compose prompt: %w", err))
	}

	summary, err := p.summarizer.Summarize(ctx, prompt)
	if err != nil {
		if domain.IsPermanent(err) || domain.IsTransient(err) {
			return nil, err
		}
		return nil, domain.Transient(fmt.Errorf("summarization failed: %w", err))
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		// The same prompt against the same service will not do better.
		return nil, domain.Permanent(domain.ErrEmptySummary)
	}

	p.logger.Info("Summary generated",
		slog.String("job_id", job.JobID),
		slog.Int("summary_length", len(summary)),
		slog.Int("original_text_length", originalLength),
	)

	return &Result{
		Summary:            summary,
		PromptLabel:        "PDF Summary - " + mode,
		OriginalTextLength: originalLength,
	}, nil
}

func validateFileURL(fileURL string) error {
	if fileURL == "" {
		return fmt.Errorf("missing file_url")
	}

	u, err := url.Parse(fileURL)
	if err != nil {
		return fmt.Errorf("unparsable file_url: %w", err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("file_url must be an http(s) URL")
	}

	return nil
}
