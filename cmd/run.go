package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxplan/internal/calendar"
	"github.com/teemow/inboxplan/internal/config"
	"github.com/teemow/inboxplan/internal/extract"
	"github.com/teemow/inboxplan/internal/google"
	"github.com/teemow/inboxplan/internal/instrumentation"
	"github.com/teemow/inboxplan/internal/logging"
	"github.com/teemow/inboxplan/internal/mail"
	"github.com/teemow/inboxplan/internal/pipeline"
	"github.com/teemow/inboxplan/internal/reconcile"
	"github.com/teemow/inboxplan/internal/server"
	"github.com/teemow/inboxplan/internal/store"
)

func newRunCmd() *cobra.Command {
	var (
		configPath     string
		account        string
		credentialFile string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the email-to-calendar pipeline once",
		Long: `Fetch recent messages from the tracked Gmail label, extract actionable
tasks through the configured AI provider chain, deduplicate them against
prior runs and create calendar events for tasks with due dates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(runOptions{
				configPath:     configPath,
				account:        account,
				credentialFile: credentialFile,
				metricsEnabled: metricsEnabled,
				metricsAddr:    metricsAddr,
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML config file (default: ~/.config/inboxplan/config.yaml)")
	cmd.Flags().StringVar(&account, "account", "default", "Account name to use (default: 'default')")
	cmd.Flags().StringVar(&credentialFile, "credential-file", "", "Path to the stored Google OAuth token (default: ~/.cache/inboxplan/google.token)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", false, "Expose Prometheus metrics on a dedicated port for the duration of the run")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")
	return cmd
}

type runOptions struct {
	configPath     string
	account        string
	credentialFile string
	metricsEnabled bool
	metricsAddr    string
}

func runPipeline(opts runOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shut down instrumentation", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if opts.metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	credPath := opts.credentialFile
	if credPath == "" {
		credPath = google.DefaultCredentialPath()
	}
	cred, err := google.LoadCredential(credPath)
	if err != nil {
		return fmt.Errorf("failed to load Google credential: %w", err)
	}
	client := cred.HTTPClient(ctx)

	source, err := mail.NewGmailSource(ctx, client, cfg.Gmail.Query, cfg.Gmail.MaxResults, logger)
	if err != nil {
		return fmt.Errorf("failed to create Gmail source: %w", err)
	}

	providers := buildProviders(ctx, cfg, logger)
	chain := extract.NewChain(providers, logger)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open fingerprint store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close fingerprint store", logging.Err(err))
		}
	}()

	backend, err := calendar.NewGoogleBackend(ctx, cred, cfg.Providers.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create Calendar backend: %w", err)
	}
	engine := reconcile.NewEngine(backend, st, cfg.Calendar.ID, cfg.Calendar.EventDuration, logger)

	orchestrator := pipeline.New(pipeline.Config{
		Source:              source,
		Extractor:           chain,
		Fingerprints:        st,
		Syncer:              engine,
		SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
		MaxWorkers:          cfg.Pipeline.MaxWorkers,
		Logger:              logger,
		Metrics:             provider.Metrics(),
	})

	runCtx, span := provider.Tracer("inboxplan").Start(ctx, "pipeline.run")
	result, err := orchestrator.Run(runCtx, opts.account)
	span.End()
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	printSummary(os.Stdout, result)
	return nil
}

// buildProviders constructs the extraction chain from the configured
// order. A provider that cannot be constructed is skipped with a warning;
// the run proceeds with the remaining chain and the heuristic fallback.
func buildProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) []extract.Provider {
	var providers []extract.Provider
	for _, name := range cfg.Providers.Order {
		var (
			p   extract.Provider
			err error
		)
		switch name {
		case "anthropic":
			p, err = extract.NewAnthropic(cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.Model, cfg.Providers.Timeout, cfg.Pipeline.BodyLimit)
		case "gemini":
			p, err = extract.NewGemini(ctx, cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model, cfg.Providers.Timeout, cfg.Pipeline.BodyLimit)
		case "ollama":
			p, err = extract.NewOllama(cfg.Providers.Ollama.ServerURL, cfg.Providers.Ollama.Model, cfg.Providers.Timeout, cfg.Pipeline.BodyLimit)
		default:
			logger.Warn("unknown provider in chain, skipping", logging.Provider(name))
			continue
		}
		if err != nil {
			logger.Warn("provider unavailable, skipping",
				logging.Provider(name),
				logging.Err(err))
			continue
		}
		providers = append(providers, p)
	}
	return providers
}

// printSummary writes the per-task outcome table and the run statistics.
func printSummary(w *os.File, result *pipeline.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tDUE\tPRIORITY\tSTATUS\tMETHOD")
	for _, t := range result.Tasks {
		due := "-"
		if t.Due != nil {
			due = t.Due.Format("2006-01-02")
		}
		status := string(t.Status)
		if t.StatusReason != "" {
			status += " (" + t.StatusReason + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Title, due, t.Priority, status, t.Method)
	}
	_ = tw.Flush()

	s := result.Stats
	fmt.Fprintf(w, "\n%d messages fetched, %d analyzed, %d tasks (%d new, %d carried), %d synced, %d failed in %s\n",
		s.MessagesFetched, s.MessagesValid, len(result.Tasks), s.TasksNew, s.TasksCarried, s.Synced, s.SyncFailed, s.Duration.Round(time.Millisecond))
}
