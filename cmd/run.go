package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/signalnine/promptbench/internal/config"
	"github.com/signalnine/promptbench/internal/dataset"
	"github.com/signalnine/promptbench/internal/gateway"
	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/ratelimit"
	"github.com/signalnine/promptbench/internal/report"
	"github.com/signalnine/promptbench/internal/result"
	"github.com/signalnine/promptbench/internal/retry"
	"github.com/signalnine/promptbench/internal/runner"
	"github.com/signalnine/promptbench/internal/strategy"
	"github.com/signalnine/promptbench/internal/usage"
)

var (
	flagStrategy     string
	flagMaxQuestions int
	flagWorkers      int
	flagRPM          int
	flagTestFile     string
	flagOutputDir    string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one or all strategies over the dataset",
		RunE:  runBenchmark,
	}
	cmd.Flags().StringVar(&flagStrategy, "strategy", strategy.All, "strategy to run, or all")
	cmd.Flags().IntVar(&flagMaxQuestions, "max-questions", 0, "limit the number of questions")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "override max concurrent workers")
	cmd.Flags().IntVar(&flagRPM, "rpm", 0, "override requests per minute")
	cmd.Flags().StringVar(&flagTestFile, "test-file", "", "override dataset file")
	cmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "override results directory")
	return cmd
}

// applyFlags lets command-line flags win over the config file.
func applyFlags(cfg *config.Config) {
	if flagMaxQuestions > 0 {
		cfg.Dataset.MaxQuestions = flagMaxQuestions
	}
	if flagWorkers > 0 {
		cfg.Processing.MaxWorkers = flagWorkers
	}
	if flagRPM > 0 {
		cfg.Processing.RequestsPerMinute = flagRPM
	}
	if flagTestFile != "" {
		cfg.Dataset.TestFile = flagTestFile
	}
	if flagOutputDir != "" {
		cfg.Results.Dir = flagOutputDir
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cfg)

	names, err := strategy.Resolve(flagStrategy)
	if err != nil {
		return err
	}

	jobs, stats, err := dataset.Load(cfg.Dataset.TestFile, cfg.Dataset.MaxQuestions)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no usable questions in %s", cfg.Dataset.TestFile)
	}
	fmt.Printf("Loaded %d questions from %s (%d lines skipped)\n", stats.Loaded, cfg.Dataset.TestFile, stats.Skipped)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	fmt.Printf("Run directory: %s\n", runDir)

	baseURL := cfg.Service.BaseURL
	if cfg.Proxy.Gateway == "litellm" {
		logDir := cfg.Proxy.LogDir
		if logDir == "" {
			logDir = filepath.Join(runDir, "proxy")
		}
		gw, err := gateway.Start(ctx, &gateway.StartOpts{
			SecretsEnvFile: cfg.Secrets.EnvFile,
			LogDir:         logDir,
		})
		if err != nil {
			return fmt.Errorf("starting gateway: %w", err)
		}
		defer gw.Stop()
		baseURL = gw.BaseURL()
	}

	prices, err := cfg.Prices()
	if err != nil {
		return err
	}

	opts := cfg.Options()
	svc := llm.NewClient(llm.ClientOpts{
		BaseURL: baseURL,
		APIKey:  cfg.APIKey(),
		Model:   opts.Sampling.Model,
		Timeout: cfg.Service.Timeout,
	})
	limiter := ratelimit.New(opts.RequestsPerMinute)
	tracker := usage.NewTracker()
	proc := &runner.Processor{Workers: opts.MaxWorkers}

	var metas []*result.StrategyMeta
	for _, name := range names {
		if ctx.Err() != nil {
			log.Printf("warning: interrupted, skipping %s", name)
			continue
		}
		fmt.Printf("\n=== %s ===\n", name)
		meta, err := runPass(ctx, passEnv{
			cfg:     cfg,
			opts:    opts,
			name:    name,
			jobs:    jobs,
			runDir:  runDir,
			svc:     svc,
			limiter: limiter,
			tracker: tracker,
			proc:    proc,
			info: report.RunInfo{
				RunID:    runID,
				Provider: cfg.Service.Provider,
				Model:    opts.Sampling.Model,
				Prices:   prices,
			},
		})
		if err != nil {
			fmt.Printf("  ERROR: %v\n", err)
			continue
		}
		metas = append(metas, meta)
	}
	if len(metas) == 0 {
		return fmt.Errorf("no strategy completed")
	}

	summary := report.NewSummary(runID, metas)
	if err := result.WriteJSON(filepath.Join(runDir, result.SummaryFile), summary); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	fmt.Println("\n--- Results ---")
	printSummary(os.Stdout, summary)
	return nil
}

type passEnv struct {
	cfg     *config.Config
	opts    runner.Options
	name    string
	jobs    []result.Job
	runDir  string
	svc     llm.Service
	limiter *ratelimit.Limiter
	tracker *usage.Tracker
	proc    *runner.Processor
	info    report.RunInfo
}

func runPass(ctx context.Context, env passEnv) (*result.StrategyMeta, error) {
	dir := result.StrategyDir(env.runDir, env.name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating strategy dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, result.UsageFile))
	if err != nil {
		return nil, fmt.Errorf("creating usage log: %w", err)
	}
	defer f.Close()
	ulog := usage.NewLog(f)

	client := retry.New(env.svc,
		retry.Policy{MaxAttempts: env.opts.MaxRetries, BaseDelay: env.opts.BaseRetryDelay},
		retry.WithLimiter(env.limiter),
		retry.WithTracker(env.tracker),
		retry.WithUsageLog(ulog),
		retry.WithLabel(env.name),
	)
	exec, err := strategy.New(env.name, strategy.Deps{
		Service:  client,
		Sandbox:  env.cfg.Sandbox(),
		Settings: env.cfg.StrategySettings(),
	})
	if err != nil {
		return nil, err
	}

	env.proc.Progress = runner.NewProgress(os.Stdout, env.name, len(env.jobs), runner.DefaultProgressInterval)
	meta, err := env.proc.RunStrategy(ctx, &runner.PassOpts{
		Executor: exec,
		Jobs:     env.jobs,
		Params:   env.opts.Sampling,
		RunDir:   env.runDir,
		Tracker:  env.tracker,
		Info:     env.info,
	})
	env.proc.Progress.Finish()
	if err := ulog.Err(); err != nil {
		log.Printf("warning: %s: usage log: %v", env.name, err)
	}
	return meta, err
}

// printSummary writes one line per strategy, best composite score in green
// and strategies with failed jobs in red.
func printSummary(w io.Writer, s report.Summary) {
	best := s.Comparison.Best()
	composite := map[string]float64{}
	for _, c := range s.Comparison.Composite {
		composite[c.Strategy] = c.Composite
	}
	fmt.Fprintf(w, "%-22s %9s %8s %9s %7s %10s %7s\n", "STRATEGY", "ACCURACY", "SEC/Q", "TOKENS/Q", "ERRORS", "COST", "SCORE")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, m := range s.Strategies {
		name := fmt.Sprintf("%-22s", m.Strategy)
		switch {
		case m.Strategy == best:
			name = color.New(color.FgGreen, color.Bold).Sprint(name)
		case m.Errors > 0:
			name = color.New(color.FgRed).Sprint(name)
		}
		fmt.Fprintf(w, "%s %8.1f%% %8.2f %9.0f %7d %10s %7.3f\n",
			name, m.Accuracy*100, m.AvgSecondsPerQuestion, m.AvgTokensPerQuestion,
			m.Errors, fmt.Sprintf("$%.4f", m.CostUSD), composite[m.Strategy])
	}
	if best != "" {
		fmt.Fprintf(w, "\nBest overall: %s\n", color.GreenString(best))
	}
	fmt.Fprintf(w, "Total wall clock: %s\n", totalWallClock(s.Strategies))
}

func totalWallClock(metas []*result.StrategyMeta) time.Duration {
	var secs float64
	for _, m := range metas {
		secs += m.WallClockS
	}
	return time.Duration(secs * float64(time.Second)).Round(time.Second)
}
