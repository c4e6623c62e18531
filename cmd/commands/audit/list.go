package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nathanbeddoewebdev/nodeprov/internal/auditlog"
	"nathanbeddoewebdev/nodeprov/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// maxDetailWidth truncates multi-line tool output in the table view.
const maxDetailWidth = 60

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit entries",
		Long: `List recent provisioning actions, newest first.

Examples:
  nodeprov audit list
  nodeprov audit list --limit 50
  nodeprov audit list --run 6f1c2a9e-...
  nodeprov audit list -o json`,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of entries to display")
	cmd.Flags().String("run", "", "Only show entries of this run ID")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	runID, _ := cmd.Flags().GetString("run")
	runID = strings.TrimSpace(runID)
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = "table"
	}
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	repo, err := openRepo()
	if err != nil {
		return err
	}
	defer repo.Close()

	var entries []auditlog.AuditEntry
	if runID != "" {
		entries, err = repo.ListByRun(runID, limit)
	} else {
		entries, err = repo.List(limit)
	}
	if err != nil {
		return err
	}

	if output == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit entries found.")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(entries))
	return nil
}

// renderTable lays entries out in columns sized to their widest cell.
func renderTable(entries []auditlog.AuditEntry) string {
	titles := []string{"TIME", "RUN", "STATE", "ACTION", "OUTCOME", "DURATION", "DETAIL"}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			shortRun(entry.RunID),
			orDash(entry.State),
			entry.Action,
			entry.Outcome,
			formatDuration(entry.DurationMs),
			formatDetail(entry.Detail),
		})
	}

	// Cell styles pad one column on each side.
	widths := make([]int, len(titles))
	for i, title := range titles {
		widths[i] = lipgloss.Width(title) + 2
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell)+2)
		}
	}

	header := make([]string, len(titles))
	for i, title := range titles {
		header[i] = styles.TableHeader.Width(widths[i]).Render(title)
	}
	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, value := range row {
			style := styles.TableCell
			switch titles[i] {
			case "RUN":
				style = styles.AccentText.Padding(0, 1)
			case "OUTCOME":
				style = styles.OutcomeStyle(value).Padding(0, 1)
			}
			cells[i] = style.Width(widths[i]).Render(value)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(lines, "\n")
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

// shortRun keeps the first UUID group, enough to pick a run for --run.
func shortRun(id string) string {
	if head, _, ok := strings.Cut(id, "-"); ok {
		return head
	}
	return orDash(id)
}

// formatDetail keeps the first line of a detail and truncates it.
func formatDetail(detail string) string {
	detail = strings.TrimSpace(detail)
	if first, _, ok := strings.Cut(detail, "\n"); ok {
		detail = first + " ..."
	}
	if r := []rune(detail); len(r) > maxDetailWidth {
		detail = string(r[:maxDetailWidth-3]) + "..."
	}
	return orDash(detail)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
