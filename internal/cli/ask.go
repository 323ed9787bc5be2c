package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type askOptions struct {
	sample    int
	model     string
	timeout   time.Duration
	showTrace bool
}

func newAskCmd(app *App) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the agent one question",
		Long: `Ask the agent one question and print its answer.

The question is taken from the arguments; with no arguments, --sample selects
one of the sample questions. A typed question wins over --sample.`,
		Example: `  unsure ask "What is the exact CVE identifier for the Heartbleed vulnerability?"
  unsure ask --sample 3 --show-trace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, app, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.sample, "sample", "s", 0, "ask sample question N, as listed by unsure samples")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model to use for this question")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "how long to wait for the answer (default from config)")
	cmd.Flags().BoolVar(&opts.showTrace, "show-trace", false, "print the reasoning trace above the answer (default from config)")

	return cmd
}

func runAsk(cmd *cobra.Command, app *App, opts *askOptions, args []string) error {
	question := strings.Join(args, " ")
	if strings.TrimSpace(question) == "" && opts.sample != 0 {
		sample, err := sampleQuestion(opts.sample)
		if err != nil {
			return err
		}
		question = sample
	}

	cfg := *app.config
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if cmd.Flags().Changed("show-trace") {
		cfg.ShowTrace = opts.showTrace
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}

	session := app.newSession()
	defer session.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	answer, err := session.Ask(ctx, question, cfg.SessionConfig())
	if err != nil {
		return renderError(cmd.ErrOrStderr(), err, cfg.Model)
	}

	renderAnswer(cmd.OutOrStdout(), answer, cfg.ShowTrace)
	return nil
}
