package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/law-makers/guc/internal/output"
	"github.com/law-makers/guc/internal/store"
	"github.com/law-makers/guc/internal/ui"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	snapshotKind   string
	snapshotFormat string
	assumeYes      bool
)

// snapshotsCmd represents the snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage saved transcript and grades snapshots",
	Long: `List, view, and delete snapshots saved with --save.

Snapshots are stored in your OS keyring, or under ~/.guc/snapshots when no
keyring is available. They hold fetched records only, never credentials.`,
	Example: `  # List all saved snapshots
  $ guc snapshots list

  # View the saved grades of a user
  $ guc snapshots view ahmed.ali --kind grades

  # Delete a user's transcript snapshot
  $ guc snapshots delete ahmed.ali`,
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotsList,
}

var snapshotsViewCmd = &cobra.Command{
	Use:   "view <username>",
	Short: "Print a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsView,
}

var snapshotsDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsDelete,
}

// confirmFunc asks a yes/no question; replaced in tests.
var confirmFunc = func(label string) bool {
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := prompt.Run()
	return err == nil
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsViewCmd)
	snapshotsCmd.AddCommand(snapshotsDeleteCmd)

	for _, c := range []*cobra.Command{snapshotsViewCmd, snapshotsDeleteCmd} {
		c.Flags().StringVarP(&snapshotKind, "kind", "k", string(store.KindTranscript), "Snapshot kind: transcript or grades")
	}
	snapshotsViewCmd.Flags().StringVarP(&snapshotFormat, "format", "f", string(output.FormatTable), "Output format: table, json, csv, html or md")
	snapshotsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	s, err := GetAppFromCmd(cmd).Store()
	if err != nil {
		return err
	}
	infos, err := s.List()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "\nNo saved snapshots found.")
		fmt.Fprintln(out, "\nCreate one with:")
		fmt.Fprintln(out, "  guc transcript --save")
		fmt.Fprintln(out)
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	t.SetTitle("Saved snapshots (%d)", len(infos))
	t.AppendHeader(table.Row{"User", "Kind", "Fetched", "Status", "Location"})
	now := time.Now()
	for _, info := range infos {
		t.AppendRow(table.Row{info.Username, info.Kind, info.FetchedAt.Local().Format(time.RFC1123), status(info, now), info.Location})
	}
	t.Render()
	return nil
}

func status(info store.Info, now time.Time) string {
	switch {
	case info.Expired:
		return "⚠️  expired"
	case info.ExpiresAt.IsZero():
		return "✓ valid"
	default:
		return fmt.Sprintf("✓ valid (%s left)", info.ExpiresAt.Sub(now).Round(time.Minute))
	}
}

func snapshotKindFlag() (store.Kind, error) {
	switch k := store.Kind(snapshotKind); k {
	case store.KindTranscript, store.KindGrades:
		return k, nil
	}
	return "", fmt.Errorf("unknown snapshot kind %q (want transcript or grades)", snapshotKind)
}

func runSnapshotsView(cmd *cobra.Command, args []string) error {
	kind, err := snapshotKindFlag()
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(snapshotFormat)
	if err != nil {
		return err
	}
	s, err := GetAppFromCmd(cmd).Store()
	if err != nil {
		return err
	}

	snap, err := s.Load(args[0], kind)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	out := cmd.OutOrStdout()
	if format == output.FormatTable {
		fmt.Fprintf(out, "\n%s\n", ui.Bold("🔍 Snapshot: "+snap.Key()))
		fmt.Fprintf(out, "%s\n\n", ui.Rule)
		fmt.Fprintln(out, ui.Field("Fetched", snap.FetchedAt.Local().Format(time.RFC1123)))
		if !snap.ExpiresAt.IsZero() {
			fmt.Fprintln(out, ui.Field("Expires", snap.ExpiresAt.Local().Format(time.RFC1123)))
		}
		fmt.Fprintln(out)
	}

	if kind == store.KindGrades {
		if snap.Grades == nil {
			return errors.New("grades snapshot has no records")
		}
		return output.WriteGrades(out, format, *snap.Grades)
	}
	return output.WriteTranscript(out, format, snap.Transcript)
}

func runSnapshotsDelete(cmd *cobra.Command, args []string) error {
	kind, err := snapshotKindFlag()
	if err != nil {
		return err
	}
	user := args[0]

	if !assumeYes && !confirmFunc(fmt.Sprintf("Delete %s snapshot of %s", kind, user)) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}

	s, err := GetAppFromCmd(cmd).Store()
	if err != nil {
		return err
	}
	if err := s.Delete(user, kind); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Snapshot '%s.%s' deleted successfully.\n\n", user, kind)
	return nil
}
