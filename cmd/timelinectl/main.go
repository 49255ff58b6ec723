// Command timelinectl schedules project files offline, dry-runs re-plans
// against them and publishes fact changes to the inbound stream.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/EI94/Urbanova-sub017/internal/cpm"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/service"
	"github.com/EI94/Urbanova-sub017/internal/taskgraph"
)

var (
	flagProject string
	flagJSON    bool
	flagNoColor bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "timelinectl",
		Short: "Inspect and re-plan project timelines from the command line",
		Long: `timelinectl computes the critical path of a project file, previews the
re-plan a fact change or manual request would produce, prints the JSON
schemas of inbound payloads and publishes fact changes to the worker stream.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagNoColor {
				disableColor()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "project.json", "Project file (project_id, start_date, tasks, dependencies)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(cpmCmd())
	rootCmd.AddCommand(replanCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(publishCmd())

	return rootCmd
}

// loadProject reads a project file and schedules it as version 1.
func loadProject(path string) (model.WBS, *cpm.Result, error) {
	var params service.GenerateTimelineParams
	if err := readJSON(path, &params); err != nil {
		return model.WBS{}, nil, err
	}
	if params.ProjectID == "" {
		return model.WBS{}, nil, fmt.Errorf("%s: project_id is required", path)
	}
	if _, err := taskgraph.Build(params.ProjectID, params.Tasks, params.Dependencies); err != nil {
		return model.WBS{}, nil, fmt.Errorf("%s: %w", path, err)
	}

	wbs, result, err := cpm.Schedule(model.WBS{
		ProjectID:    params.ProjectID,
		Version:      1,
		Status:       model.WBSStatusActive,
		Tasks:        params.Tasks,
		Dependencies: params.Dependencies,
		StartDate:    params.StartDate,
		SourceFacts:  params.SourceFacts,
		Policy:       params.Policy,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return model.WBS{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	return wbs, result, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
