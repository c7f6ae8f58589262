package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/avoronkov/pdnaudit/internal/consent"
	"github.com/avoronkov/pdnaudit/internal/engine"
	"github.com/avoronkov/pdnaudit/internal/registry"
	"github.com/avoronkov/pdnaudit/internal/render"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
	"github.com/avoronkov/pdnaudit/internal/storage/jsonstore"
)

var (
	auditINN         string
	auditConsentFile string
	auditFile        string
	auditList        string
	auditJSONOutput  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit [url]",
	Short: "Audit one site or a batch for personal data law compliance",
	Long: `Run the full compliance battery against a website: render the page,
resolve domain ownership, probe HTTPS behavior and evaluate every check.

Targets come from the positional argument, from a file (--file, one URL
per line, # starts a comment) or from a named site list (--list).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditCommand,
}

func runAuditCommand(cmd *cobra.Command, args []string) error {
	targets, err := resolveAuditTargets(cmd.Context(), args)
	if err != nil {
		return err
	}

	// Stop cleanly on Ctrl-C: running audits get cancelled, finished
	// reports stay saved.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, colorWarn("Interrupted, stopping..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	auditor, cleanup, err := buildAuditor(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var store *jsonstore.AuditStore
	if cliConfig.Audit.SaveReports {
		reportsDir, err := getReportsDir()
		if err != nil {
			return err
		}
		store, err = jsonstore.NewAuditStore(reportsDir)
		if err != nil {
			return err
		}
	}

	consentMeta, err := loadConsentMetadata(auditConsentFile)
	if err != nil {
		return err
	}

	if len(targets) == 1 {
		return runSingleAudit(ctx, auditor, store, engine.Request{
			URL:      targets[0],
			INN:      auditINN,
			Operator: operator,
			Consent:  consentMeta,
		})
	}
	return runBatchAudits(ctx, auditor, store, targets, consentMeta)
}

// resolveAuditTargets merges the three target sources, which are mutually
// exclusive: a positional URL, --file or --list.
func resolveAuditTargets(ctx context.Context, args []string) ([]string, error) {
	sources := 0
	if len(args) == 1 {
		sources++
	}
	if auditFile != "" {
		sources++
	}
	if auditList != "" {
		sources++
	}
	if sources == 0 {
		return nil, errors.New("provide a target URL, --file or --list")
	}
	if sources > 1 {
		return nil, errors.New("a URL, --file and --list are mutually exclusive")
	}

	switch {
	case len(args) == 1:
		return []string{args[0]}, nil
	case auditFile != "":
		return readTargetsFile(auditFile)
	default:
		return readSiteListTargets(ctx, auditList)
	}
}

// readTargetsFile reads one target per line; blank lines and # comments
// are skipped, duplicates collapse keeping first position.
func readTargetsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer f.Close()

	var targets []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("targets file %s has no targets", path)
	}
	return targets, nil
}

func readSiteListTargets(ctx context.Context, name string) ([]string, error) {
	lists, err := jsonstore.NewSiteListStore(dataDir)
	if err != nil {
		return nil, err
	}
	list, err := lists.Get(ctx, name)
	if err != nil {
		if errors.Is(err, sharederrors.ErrSiteListNotFound) {
			return nil, &SiteListNotFoundError{Name: name}
		}
		return nil, err
	}
	if len(list.URLs) == 0 {
		return nil, fmt.Errorf("%w: %s", sharederrors.ErrEmptySiteList, name)
	}
	return list.URLs, nil
}

func loadConsentMetadata(path string) (*consent.Metadata, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read consent file: %w", err)
	}
	var meta consent.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse consent file: %w", err)
	}
	return &meta, nil
}

func buildRenderer(kind string) (render.Renderer, error) {
	switch kind {
	case rendererChrome:
		return render.NewChromeRenderer(), nil
	case rendererHTTP:
		return render.NewHTTPRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q (want %s or %s)", kind, rendererChrome, rendererHTTP)
	}
}

// buildRegistryLookup wires the operator-register collaborator: a Postgres
// cache when a DSN is configured (schema migrated on connect), memory
// otherwise, with the live portal client behind --live-registry.
func buildRegistryLookup(ctx context.Context) (*registry.Lookup, func(), error) {
	cfg := cliConfig.Audit.Registry
	var cache registry.Cache = registry.NewMemoryCache()
	cleanup := func() {}

	if cfg.DSN != "" {
		if err := registry.Migrate(ctx, cfg.DSN); err != nil {
			return nil, nil, fmt.Errorf("registry migrate: %w", err)
		}
		pg, err := registry.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("registry connect: %w", err)
		}
		cache = pg
		cleanup = pg.Close
	}

	var live registry.LiveClient
	if cfg.Live {
		live = registry.NewRKNClient()
	}
	return registry.NewLookup(cache, live), cleanup, nil
}

func buildAuditor(ctx context.Context) (*engine.Auditor, func(), error) {
	renderer, err := buildRenderer(cliConfig.Audit.Renderer)
	if err != nil {
		return nil, nil, err
	}
	lookup, cleanup, err := buildRegistryLookup(ctx)
	if err != nil {
		return nil, nil, err
	}

	a := engine.New(zapLogger)
	a.Renderer = renderer
	a.Registry = lookup
	a.ExtraRules = loadExtraRules()
	a.Timeout = time.Duration(cliConfig.Audit.TimeoutSecs) * time.Second
	return a, cleanup, nil
}

func runSingleAudit(ctx context.Context, auditor *engine.Auditor, store *jsonstore.AuditStore, req engine.Request) error {
	rep, err := auditor.RunAudit(ctx, req)
	if err != nil {
		if errors.Is(err, sharederrors.ErrInvalidTarget) || errors.Is(err, sharederrors.ErrEmptyTarget) {
			return &InvalidTargetError{Target: req.URL, Reason: err.Error()}
		}
		return err
	}

	if store != nil {
		if err := store.Save(ctx, rep); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
	}

	if auditJSONOutput {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	renderConsoleReport(os.Stdout, rep)
	if store != nil {
		fmt.Printf("%s %s\n", colorInfo("Saved as:"), rep.ID)
	}
	return nil
}

// batchResult pairs a target with its audit outcome, in submission order.
type batchResult struct {
	Target string
	Report *engine.Report
	Err    error
}

// auditRunner is the narrow engine surface the batch needs; tests swap in
// a stub.
type auditRunner interface {
	RunAudit(ctx context.Context, req engine.Request) (*engine.Report, error)
}

// batchRunner fans audit requests over a bounded worker pool with a global
// request rate shared by all workers.
type batchRunner struct {
	Concurrency int
	RateLimit   int

	// OnDone fires after each finished audit, for progress reporting.
	OnDone func()
}

func (r *batchRunner) Run(ctx context.Context, runner auditRunner, reqs []engine.Request) []batchResult {
	limiter := rate.NewLimiter(rate.Limit(r.rateLimit()), r.rateLimit())

	sem := make(chan struct{}, r.concurrency())
	var wg sync.WaitGroup
	results := make([]batchResult, len(reqs))

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req engine.Request) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			_ = limiter.Wait(ctx)

			rep, err := runner.RunAudit(ctx, req)
			results[i] = batchResult{Target: req.URL, Report: rep, Err: err}
			if r.OnDone != nil {
				r.OnDone()
			}
		}(i, req)
	}

	wg.Wait()
	return results
}

func (r *batchRunner) concurrency() int {
	if r.Concurrency <= 0 {
		return 1
	}
	return r.Concurrency
}

func (r *batchRunner) rateLimit() int {
	if r.RateLimit <= 0 {
		return 1
	}
	return r.RateLimit
}

// retryable reports whether a second attempt could produce a better
// outcome. Validation failures never improve; a report with unavailable
// checks often does (headless browser flakiness, transient network).
func retryable(res batchResult) bool {
	if res.Err != nil {
		return false
	}
	return res.Report != nil && res.Report.Summary.Unavailable > 0
}

func runBatchAudits(ctx context.Context, auditor *engine.Auditor, store *jsonstore.AuditStore, targets []string, consentMeta *consent.Metadata) error {
	reqs := make([]engine.Request, len(targets))
	for i, t := range targets {
		reqs[i] = engine.Request{URL: t, INN: auditINN, Operator: operator, Consent: consentMeta}
	}

	var bar *progressbar.ProgressBar
	if cliConfig.Audit.ProgressEnabled {
		bar = progressbar.NewOptions(len(reqs),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(50),
			progressbar.OptionSetDescription("[cyan]Auditing sites[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	br := &batchRunner{
		Concurrency: cliConfig.Audit.Concurrency,
		RateLimit:   cliConfig.Audit.RateLimit,
		OnDone: func() {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	}

	results := runWithRetries(ctx, br, auditor, reqs, cliConfig.Audit.RetryCount+1,
		func(count, attempt, max int) {
			fmt.Println(colorWarn(fmt.Sprintf("Retrying %d target(s) (attempt %d/%d)", count, attempt, max)))
		})

	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	return printBatchSummary(ctx, store, results)
}

// runWithRetries runs the batch and re-queues retryable targets until they
// settle or maxAttempts is spent. Results stay in submission order.
func runWithRetries(ctx context.Context, br *batchRunner, runner auditRunner, reqs []engine.Request, maxAttempts int, onRetry func(count, attempt, max int)) []batchResult {
	results := br.Run(ctx, runner, reqs)

	for attempt := 2; attempt <= maxAttempts && ctx.Err() == nil; attempt++ {
		var retryIdx []int
		for i, res := range results {
			if retryable(res) {
				retryIdx = append(retryIdx, i)
			}
		}
		if len(retryIdx) == 0 {
			break
		}

		if onRetry != nil {
			onRetry(len(retryIdx), attempt, maxAttempts)
		}
		retryReqs := make([]engine.Request, len(retryIdx))
		for j, idx := range retryIdx {
			retryReqs[j] = reqs[idx]
		}
		retried := br.Run(ctx, runner, retryReqs)
		for j, idx := range retryIdx {
			results[idx] = retried[j]
		}
	}
	return results
}

func printBatchSummary(ctx context.Context, store *jsonstore.AuditStore, results []batchResult) error {
	var audited, failed, degraded int

	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			fmt.Printf("  %s %s  %v\n", colorError("error"), res.Target, res.Err)
			continue
		case res.Report.Summary.Unavailable > 0:
			degraded++
		default:
			audited++
		}

		if store != nil {
			if err := store.Save(ctx, res.Report); err != nil {
				fmt.Printf("  %s %s  %v\n", colorError("error"), res.Target, err)
				continue
			}
		}
		fmt.Printf("  [%3d] %s  %s  %s\n",
			res.Report.Summary.Score, formatSeverity(res.Report.Summary.Severity), res.Target, colorMuted(res.Report.ID))
	}

	fmt.Println()
	fmt.Printf("%s %d audited, %d degraded, %d failed\n",
		colorSuccess("Batch complete:"), audited, degraded, failed)
	if store != nil {
		fmt.Printf("%s pdnaudit report <id>\n", colorInfo("Render any report with:"))
	}

	if failed == len(results) && len(results) > 0 {
		return errors.New("all audits failed")
	}
	return nil
}

func init() {
	auditCmd.Flags().StringVar(&auditINN, "inn", "", "operator INN hint, checksum-validated before the audit")
	auditCmd.Flags().StringVar(&auditConsentFile, "consent-file", "", "JSON file with consent metadata to validate")
	auditCmd.Flags().StringVarP(&auditFile, "file", "f", "", "file with one target URL per line")
	auditCmd.Flags().StringVarP(&auditList, "list", "l", "", "named site list to audit")
	auditCmd.Flags().BoolVar(&auditJSONOutput, "json", false, "print the raw report JSON instead of the summary")
	auditCmd.Flags().StringVar(&cliConfig.Audit.Renderer, "renderer", cliConfig.Audit.Renderer, "page renderer: chrome (headless browser) or http (plain GET)")
	auditCmd.Flags().IntVarP(&cliConfig.Audit.TimeoutSecs, "timeout", "t", cliConfig.Audit.TimeoutSecs, "per-audit timeout in seconds")
	auditCmd.Flags().IntVarP(&cliConfig.Audit.Concurrency, "concurrency", "c", cliConfig.Audit.Concurrency, "max concurrent audits in batch mode")
	auditCmd.Flags().IntVarP(&cliConfig.Audit.RateLimit, "rate", "r", cliConfig.Audit.RateLimit, "audits started per second (global)")
	auditCmd.Flags().IntVar(&cliConfig.Audit.RetryCount, "retry", cliConfig.Audit.RetryCount, "times to retry targets with unavailable checks")
	auditCmd.Flags().BoolVar(&cliConfig.Audit.ProgressEnabled, "progress", cliConfig.Audit.ProgressEnabled, "display live progress in batch mode")
	auditCmd.Flags().BoolVar(&cliConfig.Audit.SaveReports, "save", cliConfig.Audit.SaveReports, "save reports under the data directory")
	auditCmd.Flags().StringVar(&cliConfig.Audit.Registry.DSN, "registry-dsn", cliConfig.Audit.Registry.DSN, "Postgres DSN for the operator register cache")
	auditCmd.Flags().BoolVar(&cliConfig.Audit.Registry.Live, "live-registry", cliConfig.Audit.Registry.Live, "consult the public operator register portal on cache misses")
}
