package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"citecheck/internal/model"
	"citecheck/internal/report"
	"citecheck/internal/store"
	"citecheck/internal/verify"
)

var (
	archiveDir     string
	checkpointPath string
	reportPath     string
	idFilter       string
	localOnly      bool
	force          bool
	batchSize      int
	workers        int
	domainDelay    time.Duration
	fetchTimeout   time.Duration
	threshold      int
	dateTolerance  int
	oracleProvider string
	oracleModel    string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <incidents.json>",
	Short: "Verify every entry's citations against archived source text",
	Long: `Verify runs the full pipeline over an incident file:
- resolve each citation's archived text (local archive, then live fetch)
- score how well the text supports the entry's date, location, and details
- flag sources that describe a different event
- checkpoint after every batch so interrupted runs resume cheaply

Example:
  citecheck verify incidents.json
  citecheck verify incidents.json --ids tx-2025-0611,tx-2025-0614 --force
  citecheck verify incidents.json --local-only --report report.json
  citecheck verify incidents.json --oracle openai --oracle-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&archiveDir, "archive-dir", "archive", "archive directory (per-entry numbered article files)")
	verifyCmd.Flags().StringVar(&checkpointPath, "checkpoint", "verification_checkpoint.json", "checkpoint file (delete to force a full re-run)")
	verifyCmd.Flags().StringVar(&reportPath, "report", "verification_report.json", "output report path")
	verifyCmd.Flags().StringVar(&idFilter, "ids", "", "comma-separated entry ids to verify (default: all)")
	verifyCmd.Flags().BoolVar(&localOnly, "local-only", false, "never fetch; missing archives become NotFound")
	verifyCmd.Flags().BoolVar(&force, "force", false, "re-verify entries already in the checkpoint")
	verifyCmd.Flags().IntVar(&batchSize, "batch-size", 10, "entries per checkpointed batch")
	verifyCmd.Flags().IntVar(&workers, "workers", 0, "concurrent entries within a batch (default: NumCPU, max 8)")
	verifyCmd.Flags().DurationVar(&domainDelay, "domain-delay", 2*time.Second, "minimum delay between requests to one domain")
	verifyCmd.Flags().DurationVar(&fetchTimeout, "fetch-timeout", 30*time.Second, "timeout per live fetch")
	verifyCmd.Flags().IntVar(&threshold, "threshold", 60, "pass threshold (0-100)")
	verifyCmd.Flags().IntVar(&dateTolerance, "date-tolerance", 5, "date proximity tolerance in days")
	verifyCmd.Flags().StringVar(&oracleProvider, "oracle", "", "judgment oracle provider (openai, anthropic, ollama; default: disabled)")
	verifyCmd.Flags().StringVar(&oracleModel, "oracle-model", "", "oracle model name")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	collection, err := store.Load(args[0])
	if err != nil {
		return err
	}

	cp, err := verify.LoadCheckpoint(cfg.Output.CheckpointPath)
	if err != nil {
		return err
	}

	var progress *os.File
	if cfg.Output.Verbose {
		progress = os.Stderr
	}
	verifier, err := verify.New(cfg, progress)
	if err != nil {
		return err
	}

	// Ctrl-C finishes nothing in-flight beyond the current batch; the
	// checkpoint keeps completed batches.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := verify.Options{Force: force}
	if idFilter != "" {
		for _, id := range strings.Split(idFilter, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.IDs = append(opts.IDs, id)
			}
		}
	}

	outcome, err := verifier.Run(ctx, collection.Entries, cp, opts)
	if err != nil {
		return fmt.Errorf("verification run: %w", err)
	}

	rep := report.Build(outcome.RunID, outcome.Results, outcome.UnrelatedSources)
	if err := report.WriteJSON(rep, cfg.Output.ReportPath); err != nil {
		return err
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote report: %s\n", cfg.Output.ReportPath)
	}
	report.RenderSummary(os.Stdout, rep)
	return nil
}

// buildConfig layers flags over viper-resolved config over defaults into the
// single Config object the run uses.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.Archive.Dir = archiveDir
	cfg.Archive.LocalOnly = localOnly
	cfg.Output.CheckpointPath = checkpointPath
	cfg.Output.ReportPath = reportPath
	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	cfg.Batch.Size = batchSize
	if workers > 0 {
		cfg.Batch.Workers = workers
	}
	cfg.RateLimit.DomainDelay = domainDelay
	cfg.HTTP.Timeout = fetchTimeout
	cfg.Matching.PassThreshold = threshold
	cfg.Matching.DateToleranceDays = dateTolerance

	if oracleProvider != "" {
		cfg.Oracle.Provider = oracleProvider
		cfg.Oracle.Model = oracleModel
		switch oracleProvider {
		case "openai":
			cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.Oracle.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "anthropic", "claude":
			cfg.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.Oracle.APIKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		case "ollama":
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.Oracle.BaseURL = baseURL
			}
		}
	}
	return cfg, nil
}
