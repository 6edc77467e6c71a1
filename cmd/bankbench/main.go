package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/mkraskou/bankbench/internal/catalog"
	"github.com/mkraskou/bankbench/internal/extract"
	"github.com/mkraskou/bankbench/internal/fetch"
	"github.com/mkraskou/bankbench/internal/harvest"
	"github.com/mkraskou/bankbench/internal/llm"
	"github.com/mkraskou/bankbench/internal/pipeline"
	"github.com/mkraskou/bankbench/internal/report"
	"github.com/mkraskou/bankbench/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Local overrides; absence is fine in production.
	_ = godotenv.Load()

	var (
		catalogPath string
		products    string
		fields      string
		outDir      string
		dbPath      string
		userID      int64
		llmBaseURL  string
		llmModel    string
		llmKey      string
		pace        time.Duration
		noBrowser   bool
		pdfSummary  bool
		verbose     bool
	)

	flag.StringVar(&catalogPath, "catalog", "catalog.yaml", "Path to the bank/product catalog")
	flag.StringVar(&products, "products", "", "Comma-separated product names; empty means all")
	flag.StringVar(&fields, "fields", "", "Comma-separated characteristic keys; empty means all")
	flag.StringVar(&outDir, "out", "./reports", "Directory for report artifacts")
	flag.StringVar(&dbPath, "db", "bankbench.db", "Path to the run-history database")
	flag.Int64Var(&userID, "user", 0, "User id recorded with the run")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for the extraction service")
	flag.DurationVar(&pace, "pace", 0, "Delay after each target (default 1s)")
	flag.BoolVar(&noBrowser, "no-browser", false, "Disable the headless-browser fetch fallback")
	flag.BoolVar(&pdfSummary, "pdf", false, "Also write a PDF summary artifact")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, runConfig{
		CatalogPath: catalogPath,
		Products:    splitList(products),
		Fields:      splitList(fields),
		OutDir:      outDir,
		DBPath:      dbPath,
		UserID:      userID,
		LLMBaseURL:  llmBaseURL,
		LLMModel:    llmModel,
		LLMAPIKey:   llmKey,
		Pace:        pace,
		NoBrowser:   noBrowser,
		PDFSummary:  pdfSummary,
	}); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

type runConfig struct {
	CatalogPath string
	Products    []string
	Fields      []string
	OutDir      string
	DBPath      string
	UserID      int64
	LLMBaseURL  string
	LLMModel    string
	LLMAPIKey   string
	Pace        time.Duration
	NoBrowser   bool
	PDFSummary  bool
}

func run(ctx context.Context, cfg runConfig) error {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	targets, err := cat.Targets(cfg.Products)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("catalog has no products to process")
	}
	selectedFields := catalog.Fields(cfg.Fields)

	provider := newProvider(cfg)
	preflight(ctx, provider)

	httpClient := &http.Client{Transport: fetch.InsecureTransport()}
	fetcher := &fetch.Client{HTTPClient: httpClient}
	if !cfg.NoBrowser {
		fetcher.Browser = &fetch.ChromeFetcher{}
	}

	runner := &pipeline.Runner{
		Fetcher:         fetcher,
		Harvester:       &harvest.Harvester{HTTPClient: httpClient, UserAgent: fetch.DefaultUserAgent},
		Extractor:       &extract.Service{Client: provider, Model: cfg.LLMModel},
		ReduceConfigFor: catalog.ReduceConfigFor,
		Pace:            cfg.Pace,
		Progress: func(i, total int, t pipeline.Target) {
			log.Info().Str("bank", t.Bank).Str("product", t.Product).
				Msgf("collecting %d/%d", i+1, total)
		},
	}

	history, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer history.Close()

	logID, err := history.BeginLog(ctx, cfg.UserID, "parse")
	if err != nil {
		return err
	}
	_ = history.UpdateLog(ctx, logID, "process", "")

	result, err := runner.Run(ctx, targets, selectedFields)
	if err != nil {
		_ = history.UpdateLog(context.WithoutCancel(ctx), logID, "error", err.Error())
		return err
	}
	log.Info().Int("targets", len(result.Records)).
		Int("prompt_tokens", result.PromptTokens).
		Int("completion_tokens", result.CompletionTokens).
		Msg("extraction finished")

	productNames := make([]string, 0, len(targets))
	for _, t := range targets {
		productNames = append(productNames, t.Product)
	}
	if _, err := history.SaveRun(ctx, store.RunSummary{
		UserID:          cfg.UserID,
		Characteristics: strings.Join(selectedFields, ","),
		Products:        strings.Join(productNames, ","),
		Payload:         result.Records,
	}); err != nil {
		_ = history.UpdateLog(ctx, logID, "error", err.Error())
		return err
	}

	writer := &report.Writer{Dir: cfg.OutDir}
	xlsxPath, err := writer.WriteXLSX(result.Records, selectedFields)
	if err != nil {
		// report failure is the run-level error class; extraction results
		// are already persisted above
		_ = history.UpdateLog(ctx, logID, "error", err.Error())
		return fmt.Errorf("build report: %w", err)
	}
	log.Info().Str("path", xlsxPath).Msg("wrote benchmark spreadsheet")

	if cfg.PDFSummary {
		pdfPath, err := writer.WriteSummaryPDF(result.Records, selectedFields)
		if err != nil {
			_ = history.UpdateLog(ctx, logID, "error", err.Error())
			return fmt.Errorf("build pdf summary: %w", err)
		}
		log.Info().Str("path", pdfPath).Msg("wrote summary pdf")
	}

	return history.UpdateLog(ctx, logID, "ok", "")
}

func newProvider(cfg runConfig) *llm.OpenAIProvider {
	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	// The extraction service sits behind the same relaxed-TLS policy as the
	// bank sites; endpoints come from operator configuration.
	transportCfg.HTTPClient = &http.Client{Transport: fetch.InsecureTransport()}
	return &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(transportCfg)}
}

// preflight checks the extraction service is reachable. Best effort: a
// failure is logged, not fatal, so offline dry runs still work.
func preflight(ctx context.Context, provider *llm.OpenAIProvider) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := provider.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("extraction service model list failed; continuing")
		return
	}
	log.Info().Int("count", len(models.Models)).Msg("extraction service models available")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
