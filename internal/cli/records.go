package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/law-makers/guc/internal/app"
	"github.com/law-makers/guc/internal/output"
	"github.com/law-makers/guc/internal/store"
	"github.com/law-makers/guc/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// recordFlags are shared by the transcript and grades commands.
type recordFlags struct {
	output string
	format string
	save   bool
	cached bool
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "File path to save output (format from extension unless --format)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: table, json, csv, html or md")
	cmd.Flags().BoolVar(&f.save, "save", false, "Keep a local snapshot of the result")
	cmd.Flags().BoolVar(&f.cached, "cached", false, "Show the saved snapshot instead of logging in")
}

// resolveFormat picks --format, then the --output extension, then a table.
func (f *recordFlags) resolveFormat() (output.Format, error) {
	if f.format != "" {
		return output.ParseFormat(f.format)
	}
	if f.output != "" {
		return output.FormatFromPath(f.output), nil
	}
	return output.FormatTable, nil
}

// emit writes the result to --output or stdout.
func (f *recordFlags) emit(cmd *cobra.Command, write func(io.Writer, output.Format) error) error {
	format, err := f.resolveFormat()
	if err != nil {
		return err
	}

	if f.output == "" {
		return write(cmd.OutOrStdout(), format)
	}

	if err := output.SaveFile(f.output, func(w io.Writer) error { return write(w, format) }); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.output, err)
	}
	log.Info().Str("file", f.output).Str("format", string(format)).Msg("Output saved")
	fmt.Fprintln(cmd.ErrOrStderr(), ui.Success("✓ Saved to "+f.output))
	return nil
}

// loadSnapshot reads the saved snapshot of kind for the configured user.
func loadSnapshot(cmd *cobra.Command, a *app.Application, kind store.Kind) (*store.Snapshot, error) {
	user, err := username(a)
	if err != nil {
		return nil, err
	}
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	snap, err := s.Load(user, kind)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), ui.Info(fmt.Sprintf("Snapshot of %s from %s", kind, snap.FetchedAt.Local().Format(time.RFC1123))))
	return snap, nil
}

func saveSnapshot(cmd *cobra.Command, a *app.Application, snap *store.Snapshot) error {
	s, err := a.Store()
	if err != nil {
		return err
	}
	if err := s.Save(snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), ui.Success("✓ Snapshot saved"))
	return nil
}

// progressEnabled hides the spinner when logs would interleave with it.
func progressEnabled(a *app.Application) bool {
	return !a.Config.JSONLog && a.Config.LogLevel != "error" && a.Config.LogLevel != "debug"
}
