package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/law-makers/guc/internal/app"
	"github.com/law-makers/guc/internal/config"
	"github.com/law-makers/guc/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "guc",
	Short: "Fetch your transcript and grades from the GUC student portal",
	Long: `guc logs in to the GUC students' services portal with a headless Chrome,
fetches your transcript and grades, and prints them as tables or exports them
as JSON, CSV, HTML or Markdown.

Your password is read from GUC_PASSWORD or asked for interactively and is
never stored.`,
	Version:       "0.1.0",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// newApp builds the Application for a command; replaced in tests.
var newApp = app.New

// Execute runs the root command under ctx, prints a readable message for any
// failure and exits with status 1.
func Execute(ctx context.Context) {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	closeApp(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Error(describeError(err)))
		os.Exit(1)
	}
}

func init() {
	// Lazily initialize the application before running commands (avoid starting app for -h/help)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetAppFromCmd(cmd) != nil {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		// Store app in the current command's context for commands to access
		SetApp(cmd, a)
		return nil
	}
}

// closeApp releases the browser of the executed command. It runs after
// failures too, which PersistentPostRun would not.
func closeApp(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	a := GetAppFromCmd(cmd)
	// Subcommands keep their context between executions otherwise.
	cmd.SetContext(nil)
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.NavigationTimeout)
	defer cancel()
	_ = a.Close(ctx)
}

func init() {
	config.RegisterFlags(rootCmd)
	rootCmd.Flags().BoolP("help", "h", false, "Help for guc")
	rootCmd.Flags().Bool("version", false, "Version for guc")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpFunc(helpFunc)
	rootCmd.SetUsageFunc(usageFunc)
}
