// Package pipeline drives the per-product extraction sequence and owns the
// run result. Targets are processed strictly sequentially: ordering stays
// deterministic and the external service sees a bounded request rate. One
// failing target never aborts the batch; it yields the canonical empty record
// and the run moves on.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkraskou/bankbench/internal/fetch"
	"github.com/mkraskou/bankbench/internal/harvest"
	"github.com/mkraskou/bankbench/internal/reduce"
	"github.com/mkraskou/bankbench/internal/salvage"
	"github.com/mkraskou/bankbench/internal/schema"
)

// Target is one (bank, product) pair to extract facts for.
type Target struct {
	Bank    string
	BankID  string
	Product string
	URL     string
}

// Result is the ordered outcome of one run, one record per target, plus
// coarse cost telemetry (text length divided by four approximates tokens).
type Result struct {
	Records          []schema.Record
	Characteristics  []string
	PromptTokens     int
	CompletionTokens int
}

// Fetcher retrieves page markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Page, error)
}

// Harvester collects linked document text. Nil disables harvesting.
type Harvester interface {
	Harvest(ctx context.Context, markup, baseURL, bankID string) []harvest.Document
}

// Extractor invokes the text-generation service.
type Extractor interface {
	Extract(ctx context.Context, contentText, documentText, bankLabel string) (string, error)
	ExtractPlain(ctx context.Context, plainText, bankLabel string) (string, error)
}

// Progress is called before each target is processed, for UI feedback.
type Progress func(index, total int, t Target)

const (
	// DefaultPace is the delay after each completed target, respecting the
	// external service's rate limits.
	DefaultPace = time.Second

	// PlainTextCap bounds the text-only fallback request.
	PlainTextCap = 70_000
)

// Runner orchestrates fetch → harvest → reduce → extract → salvage →
// normalize for each target. It exclusively owns the accumulated result for
// the duration of one run; nothing here is shared across concurrent runs.
type Runner struct {
	Fetcher   Fetcher
	Harvester Harvester
	Extractor Extractor

	// ReduceConfigFor returns per-bank reduction knobs. Nil means defaults
	// for every bank.
	ReduceConfigFor func(bankID string) reduce.Config

	// Pace overrides DefaultPace; negative disables pacing.
	Pace time.Duration

	Progress Progress
}

func (r *Runner) pace() time.Duration {
	if r.Pace != 0 {
		if r.Pace < 0 {
			return 0
		}
		return r.Pace
	}
	return DefaultPace
}

func (r *Runner) reduceConfig(bankID string) reduce.Config {
	if r.ReduceConfigFor != nil {
		return r.ReduceConfigFor(bankID)
	}
	return reduce.Config{}
}

// Run processes every target once, in order. The returned result always
// carries exactly one record per target; the error is non-nil only for an
// unusable runner or a cancelled context, never for per-target failures.
func (r *Runner) Run(ctx context.Context, targets []Target, characteristics []string) (Result, error) {
	if r.Fetcher == nil || r.Extractor == nil {
		return Result{}, fmt.Errorf("pipeline: runner not configured")
	}
	res := Result{
		Records:         make([]schema.Record, 0, len(targets)),
		Characteristics: characteristics,
	}
	total := len(targets)
	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if r.Progress != nil {
			r.Progress(i, total, t)
		}
		rec, err := r.processOne(ctx, t, &res)
		if err != nil {
			log.Warn().Err(err).Str("bank", t.Bank).Str("product", t.Product).Msg("target failed; recording empty record")
			rec = schema.Empty(t.Bank, t.Product)
		}
		res.Records = append(res.Records, rec)
		r.sleep(ctx)
	}
	return res, nil
}

// processOne runs the full pipeline for a single target. Every returned error
// is downgraded to an empty record by the caller; a panic from a downstream
// component is converted to an error here so the batch keeps going.
func (r *Runner) processOne(ctx context.Context, t Target, res *Result) (rec schema.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pipeline: panic processing %s/%s: %v", t.Bank, t.Product, p)
		}
	}()

	page, err := r.Fetcher.Fetch(ctx, t.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	log.Debug().Str("bank", t.Bank).Str("product", t.Product).
		Int("bytes", page.Bytes).Str("transport", string(page.Transport)).Msg("page loaded")

	// Each discovered document is downloaded and extracted exactly once;
	// the text is reused for the main and the fallback request.
	var docs []harvest.Document
	if r.Harvester != nil {
		docs = r.Harvester.Harvest(ctx, page.HTML, t.URL, t.BankID)
	}
	docText := joinDocText(docs)

	content, err := reduce.Reduce(page.HTML, r.reduceConfig(t.BankID))
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}

	raw, err := r.Extractor.Extract(ctx, content, docText, t.Bank)
	res.PromptTokens += estimateTokens(content) + estimateTokens(docText)
	res.CompletionTokens += estimateTokens(raw)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	parsed, perr := salvage.Parse(raw)
	if perr != nil || salvage.AllEmpty(parsed) {
		// Structured extraction produced nothing usable: re-query once with
		// plain visible text, then give up.
		parsed, err = r.textFallback(ctx, t, page.HTML, res)
		if err != nil {
			return nil, err
		}
	}

	rec = schema.Merge(parsed, t.Bank, t.Product)
	schema.CollapseRanges(rec)
	schema.CoerceScalars(rec)
	if rec["files"] == nil && len(docs) > 0 {
		rec["files"] = joinFilenames(docs)
	}
	if err := schema.Validate(rec); err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	return rec, nil
}

func (r *Runner) textFallback(ctx context.Context, t Target, markup string, res *Result) (map[string]any, error) {
	plain := reduce.PlainText(markup, PlainTextCap)
	raw, err := r.Extractor.ExtractPlain(ctx, plain, t.Bank)
	res.PromptTokens += estimateTokens(plain)
	res.CompletionTokens += estimateTokens(raw)
	if err != nil {
		return nil, fmt.Errorf("text fallback: %w", err)
	}
	parsed, err := salvage.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("text fallback: %w", err)
	}
	if salvage.AllEmpty(parsed) {
		return nil, fmt.Errorf("text fallback: %w", salvage.ErrAllEmpty)
	}
	log.Debug().Str("bank", t.Bank).Msg("text-only fallback produced usable fields")
	return parsed, nil
}

func (r *Runner) sleep(ctx context.Context) {
	d := r.pace()
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func joinDocText(docs []harvest.Document) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, fmt.Sprintf("=== %s ===\n%s", d.Filename, d.Text))
	}
	return strings.Join(parts, "\n\n")
}

func joinFilenames(docs []harvest.Document) string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Filename)
	}
	return strings.Join(names, ", ")
}

func estimateTokens(text string) int {
	return len(text) / 4
}
