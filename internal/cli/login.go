package cli

import (
	"fmt"
	"time"

	"github.com/law-makers/guc/internal/reqctx"
	"github.com/law-makers/guc/internal/ui"
	"github.com/spf13/cobra"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check that the portal accepts your credentials",
	Long: `Logs in to the portal once and reports the outcome without fetching
anything. Nothing is saved: the password is only held in memory for the
duration of the command.`,
	Example: `  # Ask for the password interactively
  $ guc login --username ahmed.ali

  # Non-interactive
  $ GUC_USERNAME=ahmed.ali GUC_PASSWORD=... guc login`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	ctx := reqctx.Start(cmd.Context(), "login")
	logger := reqctx.Logger(ctx)

	creds, err := credentials(a)
	if err != nil {
		return err
	}

	logger.Info().Str("username", creds.Username).Str("portal", a.URLs.Home).Msg("Initiating login")

	c, err := a.Connect(ctx, creds, nil)
	if err != nil {
		return reqctx.WrapError(ctx, err)
	}
	defer c.Terminate()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n", ui.Bold("🔐 Login"))
	fmt.Fprintf(out, "%s\n\n", ui.Rule)
	fmt.Fprintln(out, ui.Field("User", c.Username()))
	fmt.Fprintln(out, ui.Field("Portal", a.URLs.Home))
	fmt.Fprintln(out, ui.Field("Took", reqctx.From(ctx).Elapsed().Round(time.Millisecond).String()))
	fmt.Fprintln(out, ui.Success("\n✓ Authenticated"))
	fmt.Fprintln(out)
	return nil
}
