package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harun/unsure/internal/config"
	"github.com/harun/unsure/internal/logger"
	"github.com/harun/unsure/internal/observability"
	"github.com/harun/unsure/internal/terminal"
	"github.com/harun/unsure/internal/tracing"
	"github.com/harun/unsure/pkg/agent"
)

const version = "0.1.0"

// newAgentFactory builds the factory sessions bind agents with. Tests
// replace it with a stub.
var newAgentFactory = func(cfg *config.Config, log zerolog.Logger) agent.AgentFactory {
	opts := cfg.ProviderOptions()
	opts.Logger = log
	return agent.NewProviderFactory(opts)
}

// App holds what every command needs once the config is loaded
type App struct {
	configPath  string
	logLevel    string
	metricsAddr string

	loader  *config.Loader
	config  *config.Config
	log     *logger.Logger
	factory agent.AgentFactory

	metricsServer *http.Server
	metricsBound  string
	tracing       bool
}

// newRootCmd builds the command tree around app
func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "unsure",
		Short: "unsure - an AI agent that says \"I don't know\"",
		Long: `unsure sends your questions to an LLM agent that evaluates its confidence
for every reasoning step and answers "I don't know" whenever any uncertainty
remains, instead of guessing.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $HOME/.unsure/unsure.json)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&app.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")

	root.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	root.AddCommand(
		newAskCmd(app),
		newChatCmd(app),
		newModelsCmd(app),
		newSamplesCmd(),
		newConfigureCmd(app),
	)

	return root
}

// Execute runs the CLI with the process arguments and streams
func Execute(ctx context.Context) error {
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	app := &App{}
	defer app.close()

	root := newRootCmd(app)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	return root.ExecuteContext(ctx)
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// setup loads .env and the config file, then starts logging, metrics and
// tracing according to the merged settings.
func (a *App) setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	a.loader = config.NewLoader(a.configPath)
	cfg, err := a.loader.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		if err := config.NewValidator().ValidateLogLevel(a.logLevel); err != nil {
			return err
		}
		cfg.Logging.Level = a.logLevel
	}
	if a.metricsAddr != "" {
		cfg.Metrics.Addr = a.metricsAddr
	}
	a.config = cfg

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
		Secrets:   []string{cfg.APIKey, cfg.AnthropicAPIKey},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = log

	observability.EnsureRegistered()
	if cfg.Metrics.Addr != "" {
		if err := a.serveMetrics(cfg.Metrics.Addr); err != nil {
			return err
		}
	}

	if cfg.Tracing.Enabled {
		err := tracing.InitOpenTelemetry(cmd.Context(), tracing.Options{
			ServiceName: "unsure",
			Endpoint:    cfg.Tracing.Endpoint,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
		} else {
			a.tracing = true
		}
	}

	a.factory = newAgentFactory(cfg, log.GetZerolog())

	log.Debug().
		Str("command", cmd.Name()).
		Str("model", cfg.Model).
		Str("config", a.loader.GetConfigPath()).
		Msg("CLI initialized")

	return nil
}

func (a *App) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	a.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	a.metricsBound = ln.Addr().String()
	a.log.Info().Str("addr", a.metricsBound).Msg("Serving metrics")
	return nil
}

func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.metricsServer != nil {
		_ = a.metricsServer.Shutdown(ctx)
	}
	if a.tracing {
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil && a.log != nil {
			a.log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}
	if a.log != nil {
		_ = a.log.Close()
	}
}

// newSession creates a reasoning session on the app's factory
func (a *App) newSession() *agent.ReasoningSession {
	return agent.NewReasoningSession(agent.SessionOptions{
		Factory: a.factory,
		Logger:  a.log.GetZerolog(),
	})
}

// prompter reads from the command's input, with terminal support on a TTY
func prompter(cmd *cobra.Command) terminal.Prompter {
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		return terminal.New(f, cmd.OutOrStdout())
	}
	return terminal.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
}
