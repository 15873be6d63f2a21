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

var gradesFlags recordFlags

// gradesCmd represents the grades command
var gradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "Fetch midterm results and course work grades",
	Long: `Logs in and reads the published midterm percentages and, for every
course on the grades page, its graded quizzes and assignments.`,
	Example: `  # Print as tables
  $ guc grades

  # Export to JSON
  $ guc grades -o grades.json`,
	Args: cobra.NoArgs,
	RunE: runGrades,
}

func init() {
	rootCmd.AddCommand(gradesCmd)
	gradesFlags.register(gradesCmd)
}

func runGrades(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	ctx := reqctx.Start(cmd.Context(), "grades")

	var g models.Grades
	if gradesFlags.cached {
		snap, err := loadSnapshot(cmd, a, store.KindGrades)
		if err != nil {
			return err
		}
		if snap.Grades != nil {
			g = *snap.Grades
		}
	} else {
		creds, err := credentials(a)
		if err != nil {
			return err
		}

		progress := ui.NewProgress(cmd.ErrOrStderr(), "Fetching courses", progressEnabled(a))
		c, err := a.Connect(ctx, creds, progress.Step)
		if err != nil {
			return reqctx.WrapError(ctx, err)
		}
		defer c.Terminate()

		g, err = c.Grades(ctx)
		progress.Done()
		if err != nil {
			return reqctx.WrapError(ctx, err)
		}
		logger := reqctx.Logger(ctx)
		logger.Info().
			Int("midterms", len(g.Midterms)).
			Int("courses", len(g.CourseWork)).
			Dur("took", reqctx.From(ctx).Elapsed()).
			Msg("Grades fetched")

		if gradesFlags.save {
			if err := saveSnapshot(cmd, a, &store.Snapshot{
				Username: creds.Username,
				Kind:     store.KindGrades,
				Grades:   &g,
			}); err != nil {
				return err
			}
		}
	}

	return gradesFlags.emit(cmd, func(w io.Writer, f output.Format) error {
		return output.WriteGrades(w, f, g)
	})
}
