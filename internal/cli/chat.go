package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/harun/unsure/internal/config"
	"github.com/harun/unsure/internal/terminal"
	"github.com/harun/unsure/pkg/agent"
)

const chatHelp = `Commands:
  /model [id|number]  show or switch the model
  /key                enter the API key for the current model (hidden)
  /samples            list sample questions
  /sample N           ask sample question N
  /trace              toggle the reasoning trace
  /help               show this help
  /quit               leave the chat`

// chatState is the REPL's view of the config. The config watcher and the
// slash commands both write it.
type chatState struct {
	mu       sync.Mutex
	cfg      config.Config
	reloaded bool
}

func (s *chatState) snapshot() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *chatState) update(fn func(cfg *config.Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
}

// apply takes the reloaded file's model, keys and answer settings
func (s *chatState) apply(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Model = cfg.Model
	s.cfg.APIKey = cfg.APIKey
	s.cfg.AnthropicAPIKey = cfg.AnthropicAPIKey
	s.cfg.Timeout = cfg.Timeout
	s.cfg.ShowTrace = cfg.ShowTrace
	s.reloaded = true
}

func (s *chatState) takeReloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.reloaded
	s.reloaded = false
	return r
}

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive question session",
		Long: `Start an interactive session. Every question goes to the same agent until
the model or key changes, either through /model and /key or by editing the
config file while the chat is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, app)
		},
	}
}

func runChat(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	p := prompter(cmd)

	state := &chatState{cfg: *app.config}
	session := app.newSession()
	defer session.Close()

	if w := startChatWatcher(app, state); w != nil {
		defer w.Stop()
	}

	fmt.Fprintln(out, "unsure chat. Ask anything; the agent says \"I don't know\" when it is not sure.")
	fmt.Fprintln(out, "Type /help for commands.")

	for {
		if state.takeReloaded() {
			fmt.Fprintf(out, "(config reloaded, model %s)\n", state.snapshot().Model)
		}

		line, err := p.ReadLine(fmt.Sprintf("[%s] > ", state.snapshot().Model))
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		if strings.HasPrefix(line, "/") {
			quit, err := chatCommand(ctx, app, p, out, session, state, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			continue
		}

		chatAsk(ctx, out, session, state.snapshot(), line)
	}
}

// chatAsk asks one question; errors are shown and the chat continues
func chatAsk(ctx context.Context, out io.Writer, session *agent.ReasoningSession, cfg config.Config, question string) {
	askCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	answer, err := session.Ask(askCtx, question, cfg.SessionConfig())
	if err != nil {
		_ = renderError(out, err, cfg.Model)
		return
	}
	renderAnswer(out, answer, cfg.ShowTrace)
	fmt.Fprintln(out)
}

func chatCommand(
	ctx context.Context,
	app *App,
	p terminal.Prompter,
	out io.Writer,
	session *agent.ReasoningSession,
	state *chatState,
	line string,
) (bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	validator := config.NewValidator()

	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprintln(out, chatHelp)

	case "/model":
		cfg := state.snapshot()
		if len(args) == 0 {
			for i, m := range agent.SupportedModels() {
				marker := " "
				if m.ID == cfg.Model {
					marker = "*"
				}
				fmt.Fprintf(out, " %s %d) %s (%s)\n", marker, i+1, m.ID, m.DisplayName)
			}
			return false, nil
		}
		model := args[0]
		if n, err := strconv.Atoi(model); err == nil {
			models := agent.SupportedModels()
			if n >= 1 && n <= len(models) {
				model = models[n-1].ID
			}
		}
		if err := validator.ValidateModel(model); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false, nil
		}
		state.update(func(cfg *config.Config) { cfg.Model = model })
		fmt.Fprintf(out, "Model set to %s.\n", model)
		snap := state.snapshot()
		if snap.CredentialFor(model) == "" {
			fmt.Fprintln(out, userMessage(agent.ErrMissingCredential, model))
		}

	case "/key":
		cfg := state.snapshot()
		info, _ := agent.LookupModel(cfg.Model)
		key, err := p.ReadSecret(fmt.Sprintf("%s API key (input hidden): ", info.Provider.DisplayName()))
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if err := validator.ValidateAPIKey(key, info.Provider); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false, nil
		}
		app.log.AddSecret(key)
		state.update(func(c *config.Config) { c.SetCredential(cfg.Model, key) })
		fmt.Fprintln(out, "Key updated for this chat.")

	case "/samples":
		for i, q := range sampleQuestions {
			fmt.Fprintf(out, "%d. %s\n", i+1, q)
		}

	case "/sample":
		if len(args) != 1 {
			fmt.Fprintln(out, "Usage: /sample N")
			return false, nil
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintln(out, "Usage: /sample N")
			return false, nil
		}
		question, err := sampleQuestion(n)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false, nil
		}
		fmt.Fprintf(out, "> %s\n", question)
		chatAsk(ctx, out, session, state.snapshot(), question)

	case "/trace":
		var on bool
		state.update(func(cfg *config.Config) {
			cfg.ShowTrace = !cfg.ShowTrace
			on = cfg.ShowTrace
		})
		if on {
			fmt.Fprintln(out, "Reasoning trace on.")
		} else {
			fmt.Fprintln(out, "Reasoning trace off.")
		}

	default:
		fmt.Fprintf(out, "Unknown command %q. Type /help for commands.\n", name)
	}

	return false, nil
}

// startChatWatcher follows the config file when its directory exists
func startChatWatcher(app *App, state *chatState) *config.Watcher {
	path := app.loader.GetConfigPath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil
	}

	w, err := config.NewWatcher(config.WatcherConfig{
		Loader: app.loader,
		OnChange: func(cfg *config.Config) {
			app.log.AddSecret(cfg.APIKey)
			app.log.AddSecret(cfg.AnthropicAPIKey)
			state.apply(cfg)
		},
		Logger: app.log.GetZerolog(),
	})
	if err != nil {
		app.log.Warn().Err(err).Msg("Config watcher unavailable")
		return nil
	}
	if err := w.Start(); err != nil {
		app.log.Warn().Err(err).Msg("Config watcher unavailable")
		return nil
	}
	return w
}
