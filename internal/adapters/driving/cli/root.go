// Package cli implements the stache command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/stache-cli/internal/adapters/driven/config"
	"github.com/custodia-labs/stache-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/stache-cli/internal/adapters/driven/transport/factory"
	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
	"github.com/custodia-labs/stache-cli/internal/core/services"
	"github.com/custodia-labs/stache-cli/internal/enrichers"
	"github.com/custodia-labs/stache-cli/internal/loaders"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

var version = "dev"

// SetVersion overrides the version reported by the CLI. Empty values are ignored.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var (
	verbose          bool
	configDir        string
	flagTransport    string
	flagAPIURL       string
	flagFunctionName string
)

// configFlags maps persistent flags onto configuration keys.
var configFlags = map[string]string{
	"transport":     "transport",
	"api-url":       "api_url",
	"function-name": "lambda_function_name",
}

var rootCmd = &cobra.Command{
	Use:   "stache",
	Short: "Command line client for the Stache knowledge base",
	Long: `stache talks to a Stache knowledge base over HTTP or by invoking the
API function directly. It searches, ingests local files in parallel and
manages namespaces and documents.

Settings are read from ~/.stache/config.toml, a .env file in the working
directory, STACHE_* environment variables and command line flags, in
increasing order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.stache)")
	flags.StringVar(&flagTransport, "transport", "", "transport: auto, http or function")
	flags.StringVar(&flagAPIURL, "api-url", "", "REST API base URL")
	flags.StringVar(&flagFunctionName, "function-name", "", "API function name or ARN")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("Error:"), err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render(hint))
	}
}

// appServices holds the collaborators built from the resolved configuration.
type appServices struct {
	cfg       domain.Config
	newClient driving.ClientFactory
	loaders   *loaders.Registry
	enrichers driven.EnrichmentPipeline
}

var (
	appMu sync.Mutex
	app   *appServices
	store driven.ConfigStore
)

// configStore opens the persisted configuration once per process.
func configStore() (driven.ConfigStore, error) {
	appMu.Lock()
	defer appMu.Unlock()
	if store != nil {
		return store, nil
	}

	dir := configDir
	if dir == "" {
		var err error
		if dir, err = file.DefaultDir(); err != nil {
			return nil, err
		}
	}
	s, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, errors.WithHint(err, "Fix or remove "+dir+"/config.toml")
	}
	store = s
	return store, nil
}

// flagValues returns the configuration keys set on the command line.
func flagValues(cmd *cobra.Command) map[string]string {
	values := make(map[string]string)
	for flag, key := range configFlags {
		if f := cmd.Flag(flag); f != nil && f.Changed {
			values[key] = f.Value.String()
		}
	}
	return values
}

// loadApp resolves configuration and wires services on first use.
func loadApp(cmd *cobra.Command) (*appServices, error) {
	appMu.Lock()
	loaded := app
	appMu.Unlock()
	if loaded != nil {
		return loaded, nil
	}

	st, err := configStore()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(config.Sources{
		Store: st,
		Flags: flagValues(cmd),
	})
	if err != nil {
		return nil, err
	}
	if err := logger.Configure(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		logger.Warn("%v", err)
	}
	logger.SetVerbose(verbose)

	registry, err := loaders.Build(cfg.LoaderOverrides, loaders.DefaultPlugins(nil)...)
	if err != nil {
		return nil, err
	}

	enricherRegistry := enrichers.NewRegistry()
	enrichers.RegisterDefaults(enricherRegistry)
	pipeline, err := enricherRegistry.Pipeline(cfg.Enrichers)
	if err != nil {
		return nil, err
	}

	builder := factory.NewBuilder(cfg, factory.Options{UserAgent: "stache-cli/" + version})
	built := &appServices{
		cfg:       cfg,
		loaders:   registry,
		enrichers: pipeline,
		newClient: func(ctx context.Context) (driving.KnowledgeBase, error) {
			t, err := builder.Transport(ctx)
			if err != nil {
				return nil, err
			}
			return services.NewClient(t, cfg), nil
		},
	}

	appMu.Lock()
	app = built
	appMu.Unlock()
	return built, nil
}

// withClient runs fn with a fresh client that is closed afterwards.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, kb driving.KnowledgeBase) error) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	kb, err := a.newClient(ctx)
	if err != nil {
		return err
	}
	defer kb.Close()

	err = fn(ctx, kb)
	if id := kb.LastRequestID(); id != "" {
		logger.Debug("request id: %s", id)
	}
	return err
}
