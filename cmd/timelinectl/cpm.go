package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EI94/Urbanova-sub017/internal/cpm"
	"github.com/EI94/Urbanova-sub017/internal/model"
)

func cpmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpm",
		Short: "Compute the critical path and slack of every task",
		RunE: func(cmd *cobra.Command, args []string) error {
			wbs, result, err := loadProject(flagProject)
			if err != nil {
				return err
			}
			if flagJSON {
				return outputJSON(wbs)
			}
			renderSchedule(os.Stdout, wbs, result)
			return nil
		},
	}
}

// renderSchedule prints tasks in topological order with critical rows highlighted.
func renderSchedule(w io.Writer, wbs model.WBS, result *cpm.Result) {
	fmt.Fprintf(w, "%s %s (v%d)\n", bold("Project"), boldCyan(wbs.ProjectID), wbs.Version)
	fmt.Fprintf(w, "  %s %s -> %s, %d days\n",
		dim("window"),
		wbs.StartDate.Format("2006-01-02"),
		wbs.EndDate.Format("2006-01-02"),
		wbs.CriticalPathDuration)
	fmt.Fprintf(w, "  %s %s\n\n", dim("critical path"), boldRed(strings.Join(wbs.CriticalPath, " -> ")))

	fmt.Fprintf(w, "%-12s %-28s %5s %5s %5s %5s %5s %5s  %-10s %-10s\n",
		"ID", "NAME", "DUR", "ES", "EF", "LS", "LF", "SLACK", "START", "END")
	for _, id := range result.TopoOrder {
		t, ok := wbs.Task(id)
		if !ok {
			continue
		}
		s := result.Tasks[id]
		row := plainRow
		if s.IsCritical {
			row = criticalRow
		}
		row.Fprintf(w, "%-12s %-28s %5d %5d %5d %5d %5d %5d  %-10s %-10s\n",
			truncate(t.ID, 12),
			truncate(t.Name, 28),
			s.Duration, s.ES, s.EF, s.LS, s.LF, s.Slack,
			t.PlannedStart.Format("2006-01-02"),
			t.PlannedEnd.Format("2006-01-02"))
	}

	total, completed, overall := cpm.Progress(wbs.Tasks)
	fmt.Fprintf(w, "\n%d tasks, %d completed, %.1f%% overall progress\n", total, completed, overall)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
