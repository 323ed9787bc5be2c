package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harun/unsure/internal/config"
)

func newConfigureCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Run interactive configuration wizard",
		Long: `Run an interactive configuration wizard to set up unsure.
The wizard will guide you through choosing a model and entering its API key.
Keys are read without echo and saved with owner-only permissions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd, app)
		},
	}
}

func runConfigure(cmd *cobra.Command, app *App) error {
	out := cmd.OutOrStdout()
	wizard := config.NewWizard(prompter(cmd), out)

	cfg, err := wizard.Run(app.config)
	if err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if errs := config.NewValidator().ValidateConfig(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errs[0])
	}

	if err := app.loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	app.config = cfg

	fmt.Fprintf(out, "\nConfiguration saved to: %s\n", app.loader.GetConfigPath())
	fmt.Fprintln(out, "\nYou can now ask a question with: unsure ask \"...\" or start a chat with: unsure chat")

	app.log.Info().Str("model", cfg.Model).Msg("Configuration saved")
	return nil
}
