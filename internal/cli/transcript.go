package cli

import (
	"io"

	"github.com/law-makers/guc/internal/output"
	"github.com/law-makers/guc/internal/reqctx"
	"github.com/law-makers/guc/internal/store"
	"github.com/law-makers/guc/internal/ui"
	"github.com/law-makers/guc/pkg/models"
	"github.com/spf13/cobra"
)

var transcriptFlags recordFlags

// transcriptCmd represents the transcript command
var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Fetch your transcript, one table per academic year",
	Long: `Logs in and reads every academic year listed on the transcript page.
Years are fetched in parallel, each in its own isolated browser context.
Years without recorded semesters are left out.

If the portal asks for course evaluations first, the evaluation link and the
pending courses are printed and nothing is fetched.`,
	Example: `  # Print as tables
  $ guc transcript

  # Export to CSV and keep a snapshot
  $ guc transcript -o transcript.csv --save

  # Show the last snapshot without logging in
  $ guc transcript --cached --format md`,
	Args: cobra.NoArgs,
	RunE: runTranscript,
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
	transcriptFlags.register(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	ctx := reqctx.Start(cmd.Context(), "transcript")

	var years []models.TranscriptYear
	if transcriptFlags.cached {
		snap, err := loadSnapshot(cmd, a, store.KindTranscript)
		if err != nil {
			return err
		}
		years = snap.Transcript
	} else {
		creds, err := credentials(a)
		if err != nil {
			return err
		}

		progress := ui.NewProgress(cmd.ErrOrStderr(), "Fetching years", progressEnabled(a))
		c, err := a.Connect(ctx, creds, progress.Step)
		if err != nil {
			return reqctx.WrapError(ctx, err)
		}
		defer c.Terminate()

		years, err = c.Transcript(ctx)
		n := progress.Done()
		if err != nil {
			return reqctx.WrapError(ctx, err)
		}
		logger := reqctx.Logger(ctx)
		logger.Info().Int("years", n).Int("kept", len(years)).Dur("took", reqctx.From(ctx).Elapsed()).Msg("Transcript fetched")

		if transcriptFlags.save {
			if err := saveSnapshot(cmd, a, &store.Snapshot{
				Username:   creds.Username,
				Kind:       store.KindTranscript,
				Transcript: years,
			}); err != nil {
				return err
			}
		}
	}

	return transcriptFlags.emit(cmd, func(w io.Writer, f output.Format) error {
		return output.WriteTranscript(w, f, years)
	})
}
