package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"castplane/internal/plan"
	"castplane/pkg/api"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [project_id]",
	Short: "Show a project and its generated outputs",
	Long: `Show a project's file details and plan information, followed by a table of
every output with its state:

  ready     generated
  pending   produced for every project and still being processed
  missing   included in your current plan but not generated yet (see 'castctl generate')
  locked    requires a higher plan`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(cmd)
		if client == nil {
			return
		}

		project, err := client.GetProject(args[0])
		if err != nil {
			cmd.Printf("Error fetching project: %s\n", err)
			return
		}

		printProject(cmd.OutOrStdout(), project, useColor(cmd.OutOrStdout()))
	},
}

func printProject(w io.Writer, p *api.ProjectDetail, color bool) {
	fmt.Fprintf(w, "%s\n", p.Name)
	fmt.Fprintln(w, "──────────────────────────────")
	fmt.Fprintf(w, "ID:            %s\n", p.ID)
	fmt.Fprintf(w, "File:          %s (%s, %s)\n", p.FileName, p.FileFormat, formatBytes(p.FileSize))
	if p.FileDuration != nil {
		fmt.Fprintf(w, "Duration:      %s\n", time.Duration(*p.FileDuration * float64(time.Second)).Round(time.Second))
	}
	fmt.Fprintf(w, "Status:        %s\n", p.Status)
	fmt.Fprintf(w, "Created:       %s\n", p.CreatedAt.Format(time.RFC1123))
	fmt.Fprintf(w, "Plan:          %s (processed on %s)\n", p.CurrentPlan, p.OriginalPlan)
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderArtifacts(p, color))

	if len(p.Missing) > 0 {
		fmt.Fprintf(w, "\n%d output(s) available on your plan. Run 'castctl generate %s' to create them.\n", len(p.Missing), p.ID)
	}
}

func renderArtifacts(p *api.ProjectDetail, color bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Output", "State"})

	for _, kind := range plan.ArtifactKinds {
		state := artifactState(p, kind)
		if state == "" {
			continue
		}
		tw.AppendRow(table.Row{string(kind), colorState(state, color)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
	})
	return tw.Render()
}

func artifactState(p *api.ProjectDetail, kind plan.ArtifactKind) string {
	name := string(kind)
	switch {
	case slices.Contains(p.Artifacts, name):
		return "ready"
	case slices.Contains(p.Missing, name):
		return "missing"
	case slices.Contains(p.Locked, name):
		return "locked"
	case !kind.TierGated():
		return "pending"
	default:
		return ""
	}
}

func colorState(state string, color bool) string {
	if !color {
		return state
	}
	switch state {
	case "ready":
		return text.FgGreen.Sprint(state)
	case "missing":
		return text.FgYellow.Sprint(state)
	case "pending":
		return text.FgCyan.Sprint(state)
	default:
		return text.Faint.Sprint(state)
	}
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	if n >= mb {
		return strconv.FormatFloat(float64(n)/mb, 'f', 1, 64) + " MB"
	}
	return fmt.Sprintf("%d B", n)
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func init() {
	rootCmd.AddCommand(showCmd)
}
