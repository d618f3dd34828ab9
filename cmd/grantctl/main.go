// Command grantctl drives a local GrantAI session from the terminal. State
// is kept as JSON files under the data directory.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/david/grantai/internal/ai"
	"github.com/david/grantai/internal/appstate"
	"github.com/david/grantai/internal/catalog"
	"github.com/david/grantai/internal/config"
	"github.com/david/grantai/internal/discovery"
	"github.com/david/grantai/internal/logging"
	"github.com/david/grantai/internal/search"
)

// app is the per-invocation runtime shared by every subcommand.
type app struct {
	envFile  string
	dataDir  string
	logLevel string

	cfg   config.Config
	log   *zap.SugaredLogger
	llm   *ai.Client
	store *appstate.Store
	queue *appstate.NotificationQueue
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "grantctl",
		Short:         "Discover and track grants, hackathons and accelerators",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory for session state (default: $DATA_DIR or the user config dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(catalogCmd(a))
	root.AddCommand(showCmd(a))
	root.AddCommand(statsCmd(a))
	root.AddCommand(deadlinesCmd(a))
	root.AddCommand(boardCmd(a))
	root.AddCommand(trackCmd(a))
	root.AddCommand(moveCmd(a))
	root.AddCommand(untrackCmd(a))
	root.AddCommand(bookmarkCmd(a))
	root.AddCommand(profileCmd(a))
	root.AddCommand(matchCmd(a))
	root.AddCommand(discoverCmd(a))
	root.AddCommand(chatCmd(a))
	return root, a
}

// run executes one command line. Notifications raised by the session are
// printed to stderr afterwards, including when the command failed.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	a.flushNotifications(stderr)
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) init(ctx context.Context) error {
	a.cfg = config.Load(a.envFile)
	if a.dataDir != "" {
		a.cfg.DataDir = a.dataDir
	}
	if a.logLevel != "" {
		a.cfg.LogLevel = a.logLevel
	}

	log, err := logging.New(a.cfg.LogLevel, true)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.log = log

	registry, err := search.LoadRegistry(a.cfg.SourcesFile)
	if err != nil {
		return fmt.Errorf("failed to load source registry: %w", err)
	}

	a.llm = ai.NewClient(a.cfg.AIBaseURL, a.cfg.AIAPIKey, a.cfg.AIModel)
	a.llm.Headers["X-Title"] = "GrantAI CLI"

	a.queue = appstate.NewNotificationQueue()
	a.store, err = appstate.Open(ctx, appstate.NewFileStorage(a.cfg.DataDir), appstate.Options{
		Catalog: catalog.MustAll(),
		Scorer:  ai.NewMatcher(a.llm, log),
		Discoverer: discovery.NewService(
			search.NewFirecrawlClient(a.cfg.FirecrawlBaseURL, a.cfg.FirecrawlAPIKey),
			search.NewScraper(registry, log),
			&ai.Extractor{LLM: a.llm},
			log,
		),
		Notifier: a.queue,
		Log:      log,
	})
	if err != nil {
		return fmt.Errorf("failed to open session in %s: %w", a.cfg.DataDir, err)
	}
	return nil
}

func (a *app) flushNotifications(w io.Writer) {
	if a.queue == nil {
		return
	}
	for _, n := range a.queue.Drain() {
		fmt.Fprintf(w, "%s %s\n", levelMark(n.Level), n.Message)
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func levelMark(l appstate.Level) string {
	switch l {
	case appstate.LevelSuccess:
		return "✓"
	case appstate.LevelError:
		return "✗"
	default:
		return "•"
	}
}
