package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/law-makers/guc/internal/ui"
)

const helpWidth = 80

// envVars are listed at the end of every help page.
var envVars = []column{
	{"GUC_USERNAME", "Portal username, same as --username"},
	{"GUC_PASSWORD", "Portal password; asked for when unset, never stored"},
	{"GUC_CONFIG", "Config file (default ~/.guc/config.yaml)"},
	{"GUC_BASE_URL", "Portal address"},
	{"GUC_PROXY", "Proxy for the browser"},
	{"GUC_USER_AGENT", "Browser user agent"},
	{"GUC_CHROME_PATH", "Chrome binary (CHROME_PATH also works)"},
}

type column struct {
	key  string
	desc string
}

// helpFunc renders the colorized help page of cmd.
func helpFunc(cmd *cobra.Command, _ []string) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, strings.ToUpper(cmd.Name()), ui.ColorReset)
	if cmd.Short != "" {
		fmt.Fprintln(w, cmd.Short)
	}
	if cmd.Long != "" && cmd.Long != cmd.Short {
		fmt.Fprintf(w, "\n%s\n", wrapText(cmd.Long, helpWidth))
	}

	writeUsage(w, cmd)
	if cmd.HasExample() {
		heading(w, "Examples")
		writeExamples(w, cmd.Example)
	}
	writeCommands(w, cmd)
	if cmd.HasAvailableLocalFlags() {
		heading(w, "Flags")
		writeColumns(w, flagColumns(cmd.LocalFlags()), ui.ColorGreen)
	}
	if cmd.HasAvailableInheritedFlags() {
		heading(w, "Global Flags")
		writeColumns(w, flagColumns(cmd.InheritedFlags()), ui.ColorGreen)
	}
	heading(w, "Environment")
	writeColumns(w, envVars, ui.ColorYellow)

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\n%sRun \"%s <command> --help\" for more about a command.%s\n", ui.ColorDim, cmd.CommandPath(), ui.ColorReset)
	}
	fmt.Fprintln(w)
}

// usageFunc is shown on argument and flag errors.
func usageFunc(cmd *cobra.Command) error {
	w := cmd.ErrOrStderr()
	writeUsage(w, cmd)
	writeCommands(w, cmd)
	if cmd.HasAvailableLocalFlags() {
		heading(w, "Flags")
		writeColumns(w, flagColumns(cmd.LocalFlags()), ui.ColorGreen)
	}
	fmt.Fprintf(w, "\n%sRun \"%s --help\" for more information.%s\n", ui.ColorDim, cmd.CommandPath(), ui.ColorReset)
	return nil
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
}

func writeUsage(w io.Writer, cmd *cobra.Command) {
	heading(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s%s %s<command>%s %s[flags]%s\n",
			ui.ColorCyan, cmd.CommandPath(), ui.ColorReset,
			ui.ColorYellow, ui.ColorReset,
			ui.ColorDim, ui.ColorReset)
	}
}

// writeExamples dims comment lines and prompts command lines with "$".
func writeExamples(w io.Writer, example string) {
	afterCommand := false
	for _, line := range strings.Split(example, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "#"):
			if afterCommand {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "  %s%s%s\n", ui.ColorDim, line, ui.ColorReset)
			afterCommand = false
		default:
			fmt.Fprintf(w, "  %s$ %s%s\n", ui.ColorGreen, strings.TrimPrefix(line, "$ "), ui.ColorReset)
			afterCommand = true
		}
	}
}

func writeCommands(w io.Writer, cmd *cobra.Command) {
	if !cmd.HasAvailableSubCommands() {
		return
	}
	var cols []column
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() && c.Name() != "help" {
			cols = append(cols, column{c.Name(), c.Short})
		}
	}
	heading(w, "Commands")
	writeColumns(w, cols, ui.ColorCyan)
}

// flagColumns describes each visible flag as "-s, --name type" and its usage.
func flagColumns(fs *pflag.FlagSet) []column {
	var cols []column
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := "    --" + f.Name
		if f.Shorthand != "" {
			name = "-" + f.Shorthand + ", --" + f.Name
		}
		varname, usage := pflag.UnquoteUsage(f)
		if varname != "" {
			name += " " + varname
		}
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			usage += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		cols = append(cols, column{name, usage})
	})
	return cols
}

// writeColumns aligns keys in a padded column and wraps the descriptions
// under it.
func writeColumns(w io.Writer, cols []column, color string) {
	width := 0
	for _, c := range cols {
		width = max(width, len(c.key))
	}
	indent := strings.Repeat(" ", width+4)
	for _, c := range cols {
		lines := strings.Split(wrapText(c.desc, max(helpWidth-len(indent), 30)), "\n")
		fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n", color, width, c.key, ui.ColorReset, ui.ColorDim, lines[0], ui.ColorReset)
		for _, l := range lines[1:] {
			fmt.Fprintf(w, "%s%s%s%s\n", indent, ui.ColorDim, l, ui.ColorReset)
		}
	}
}

// wrapText wraps each paragraph of text at width. List items ("-", "*" or
// "•") keep their own line.
func wrapText(text string, width int) string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		var lines []string
		var cur strings.Builder
		flush := func() {
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
			}
		}
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if isListItem(line) {
				flush()
				lines = append(lines, line)
				continue
			}
			for _, word := range strings.Fields(line) {
				if cur.Len() > 0 && cur.Len()+1+len(word) > width {
					flush()
				}
				if cur.Len() > 0 {
					cur.WriteByte(' ')
				}
				cur.WriteString(word)
			}
		}
		flush()
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func isListItem(line string) bool {
	for _, p := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
