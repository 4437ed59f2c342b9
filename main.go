package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"review-scraper/config"
	"review-scraper/db"
	"review-scraper/fetcher"
	"review-scraper/logging"
	"review-scraper/models"
	"review-scraper/notify"
	"review-scraper/output"
	"review-scraper/scheduler"
	"review-scraper/scraper"
	"review-scraper/sheets"
	"review-scraper/snapshot"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.GetDefaultConfig()
	var configPath string

	cmd := &cobra.Command{
		Use:   "review-scraper",
		Short: "Scrape employee reviews for one company or a list of companies",
		Long: "review-scraper signs in once, walks each company's review listing page by page " +
			"and writes one CSV per company. Postgres/SQLite, Google Sheets and Telegram outputs are optional.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigFile(cmd.Flags(), configPath, cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	bindFlags(cmd.Flags(), cfg, &configPath)
	cmd.AddCommand(newStorePasswordCmd(), newReplayCmd())
	return cmd
}

func bindFlags(f *pflag.FlagSet, cfg *config.Config, configPath *string) {
	f.StringVar(configPath, "config", "config.yaml", "YAML file with default settings (optional)")

	f.StringVarP(&cfg.URL, "url", "u", cfg.URL, "URL of the company's reviews or overview page")
	f.StringVarP(&cfg.TargetsFile, "multiple-url", "m", cfg.TargetsFile, "CSV or YAML file listing companies (name, url, optional output)")
	f.StringVarP(&cfg.File, "file", "f", cfg.File, "Output file for a single company")
	f.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for output files")
	f.IntVarP(&cfg.Limit, "limit", "l", cfg.Limit, "Minimum number of reviews to collect per company")
	f.BoolVar(&cfg.StartFromURL, "start-from-url", cfg.StartFromURL, "Start scraping from the given listing URL instead of the company page")
	f.StringVar(&cfg.MaxDate, "max-date", cfg.MaxDate, "Stop after reviews newer than this date (YYYY-MM-DD, ascending listing)")
	f.StringVar(&cfg.MinDate, "min-date", cfg.MinDate, "Stop after reviews older than this date (YYYY-MM-DD, descending listing)")
	f.StringVar(&cfg.Sort, "sort", cfg.Sort, "Rewrite the listing URL to sort by date: asc or desc")

	f.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run the browser without a window")
	f.StringVar(&cfg.Username, "username", cfg.Username, "Account email")
	f.StringVarP(&cfg.Password, "password", "p", cfg.Password, "Account password")
	f.StringVarP(&cfg.CredentialsFile, "credentials", "c", cfg.CredentialsFile, "JSON file with username and password")
	f.StringVar(&cfg.KeyringAccount, "keyring-account", cfg.KeyringAccount, "Read the password from the OS keychain for this account")

	f.StringVar(&cfg.Browser.UserDataDir, "user-data-dir", cfg.Browser.UserDataDir, "Browser profile directory (default $BOT_DATA_DIR)")
	f.DurationVar(&cfg.Browser.Settle, "settle", cfg.Browser.Settle, "Wait after each navigation for dynamic content")
	f.Float64Var(&cfg.Browser.PageRate, "page-rate", cfg.Browser.PageRate, "Maximum page navigations per second, 0 for no limit")

	f.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres or SQLite DSN to store runs in (default $DATABASE_URL)")
	f.StringVar(&cfg.Spreadsheet, "spreadsheet", cfg.Spreadsheet, "Google Sheets URL or ID to add one sheet per company to")
	f.StringVar(&cfg.SheetsCredentials, "sheets-credentials", cfg.SheetsCredentials, "Service account JSON file (or use GOOGLE_SHEETS_CREDENTIALS)")
	f.Int64Var(&cfg.NotifyChat, "notify-chat", cfg.NotifyChat, "Telegram chat to send the run summary to (needs TELEGRAM_BOT_TOKEN)")
	f.StringVar(&cfg.SnapshotDir, "snapshot-dir", cfg.SnapshotDir, "Save the HTML of every harvested page here for the replay command")

	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn or error")
	f.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Also write JSON logs to this rotating file")
}

// applyConfigFile overlays the YAML file onto cfg, then re-applies the flags
// given on the command line so they win over file values
func applyConfigFile(f *pflag.FlagSet, path string, cfg *config.Config) error {
	changed := map[string]string{}
	f.Visit(func(fl *pflag.Flag) {
		changed[fl.Name] = fl.Value.String()
	})

	if err := config.LoadConfig(path, cfg); err != nil {
		return err
	}

	for name, value := range changed {
		if err := f.Set(name, value); err != nil {
			return fmt.Errorf("failed to apply --%s: %w", name, err)
		}
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	// Everything that can be checked offline fails here, before the browser starts
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	sortAscending, err := cfg.SortAscending()
	if err != nil {
		return err
	}
	creds, err := cfg.Credentials()
	if err != nil {
		return err
	}
	jobs, err := cfg.Targets()
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return &config.ConfigError{Msg: "invalid logging settings", Err: err}
	}
	defer closer.Close()
	defer logger.Sync()

	if len(jobs) == 0 {
		logger.Info("No companies to process", zap.String("targets", cfg.TargetsFile))
		return nil
	}

	sinks := []output.Sink{output.NewCSVWriter(cfg.OutputDir)}

	database, runID := openDatabase(ctx, cfg, logger)
	if database != nil {
		defer database.Close()
		sinks = append(sinks, database.Sink(runID))
	}

	if cfg.Spreadsheet != "" {
		writer, err := sheets.NewWriter(ctx, cfg.Spreadsheet, cfg.SheetsCredentials, logger)
		if err != nil {
			logger.Warn("Google Sheets output disabled", zap.Error(err))
		} else {
			sinks = append(sinks, writer)
		}
	}

	multi := output.NewMultiSink(logger, sinks...)
	logger.Info(fmt.Sprintf("Writing reviews to %d outputs", multi.Len()))

	var snapshots *snapshot.Store
	if cfg.SnapshotDir != "" {
		snapshots = snapshot.NewStore(cfg.SnapshotDir)
		logger.Info("Saving page snapshots", zap.String("dir", cfg.SnapshotDir))
	}

	browser, err := fetcher.NewRodFetcher(fetcher.Options{
		Headless:    cfg.Headless,
		UserDataDir: cfg.Browser.UserDataDir,
		LoadTimeout: cfg.Browser.LoadTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return err
	}

	nav := scraper.NewNavigator(page, scraper.NavigatorOptions{
		LoginURL:         cfg.Browser.LoginURL,
		SignedInSelector: cfg.Browser.SignedInSelector,
		Settle:           cfg.Browser.Settle,
		PageRate:         cfg.Browser.PageRate,
	}, logger)

	session := scraper.NewSession(nav, policy, multi, scraper.SessionOptions{
		Username:      creds.Username,
		Password:      creds.Password,
		Resume:        cfg.StartFromURL,
		SortAscending: sortAscending,
		Snapshots:     snapshots,
	}, logger)

	summary, runErr := scheduler.NewScheduler(session, newNotifier(cfg, logger), logger).RunBatch(ctx, jobs)

	if database != nil {
		if err := database.FinishRun(context.WithoutCancel(ctx), runID, runErr); err != nil {
			logger.Warn("Failed to record run result", zap.String("run", runID), zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed := summary.Count(scheduler.Failed); failed > 0 {
		logger.Sugar().Warnf("%d of %d companies failed, see the log above", failed, len(summary.Targets))
	}
	return nil
}

// openDatabase connects the optional run store. Failures only disable it.
func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.DB, string) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = db.DSNFromEnv()
	}
	if dsn == "" {
		return nil, ""
	}

	database, err := db.NewDB(ctx, dsn, logger)
	if err != nil {
		logger.Warn("Database output disabled", zap.Error(err))
		return nil, ""
	}

	run, err := database.CreateRun(ctx)
	if err != nil {
		logger.Warn("Database output disabled", zap.Error(err))
		database.Close()
		return nil, ""
	}
	logger.Info("Recording run", zap.String("run", run.ID))
	return database, run.ID
}

func newNotifier(cfg *config.Config, logger *zap.Logger) scheduler.Notifier {
	token := os.Getenv(notify.TokenEnv)
	if token == "" || cfg.NotifyChat == 0 {
		return nil
	}

	tg, err := notify.NewTelegram(token, cfg.NotifyChat, logger)
	if err != nil {
		logger.Warn("Telegram notifications disabled", zap.Error(err))
		return nil
	}
	return tg
}

func newStorePasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "store-password <account>",
		Short: "Save the account password in the OS keychain for --keyring-account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read password: %w", err)
			}

			if err := config.StorePassword(args[0], strings.TrimSpace(line)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nStored password for %s\n", args[0])
			return nil
		},
	}
}

func newReplayCmd() *cobra.Command {
	cfg := config.GetDefaultConfig()
	// Snapshots are replayed as already sorted listings, so date bounds apply
	cfg.StartFromURL = true
	file := "replay.csv"

	cmd := &cobra.Command{
		Use:   "replay <snapshot.html>...",
		Short: "Re-extract reviews from saved page snapshots without a browser",
		Long: "replay harvests pages saved with --snapshot-dir, in the order given, " +
			"and writes the reviews to one CSV file. The limit and date bounds stop it like a live run.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := cfg.Policy()
			if err != nil {
				return err
			}

			logger, closer, err := logging.New(logging.Options{Level: cfg.Log.Level, Out: cmd.ErrOrStderr()})
			if err != nil {
				return &config.ConfigError{Msg: "invalid logging settings", Err: err}
			}
			defer closer.Close()
			defer logger.Sync()

			records, replayErr := snapshot.NewReplayer(policy, logger).Replay(cmd.Context(), args)
			if replayErr != nil {
				logger.Warn("Replay stopped early, keeping reviews extracted so far", zap.Error(replayErr))
			}

			logger.Info(fmt.Sprintf("Writing %d reviews to %s", len(records), file))
			job := models.TargetJob{Name: "replay", Output: file}
			if err := output.NewCSVWriter("").Write(cmd.Context(), job, records); err != nil {
				return errors.Join(replayErr, err)
			}
			return replayErr
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", file, "Output CSV file")
	f.IntVarP(&cfg.Limit, "limit", "l", cfg.Limit, "Minimum number of reviews to collect")
	f.StringVar(&cfg.MaxDate, "max-date", cfg.MaxDate, "Stop after reviews newer than this date (YYYY-MM-DD)")
	f.StringVar(&cfg.MinDate, "min-date", cfg.MinDate, "Stop after reviews older than this date (YYYY-MM-DD)")
	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn or error")
	return cmd
}
