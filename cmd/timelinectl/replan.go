package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/EI94/Urbanova-sub017/common/id"
	"github.com/EI94/Urbanova-sub017/core/config"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/replan"
	"github.com/EI94/Urbanova-sub017/internal/trigger"
)

func replanCmd() *cobra.Command {
	var factPath, requestPath string

	cmd := &cobra.Command{
		Use:   "replan",
		Short: "Preview the proposal a fact change or re-plan request would produce",
		Long: `replan classifies a fact change (--fact) or a manual request (--request)
against the project file and prints the proposal without storing anything.
Generator tunables are read from the REPLAN_* environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (factPath == "") == (requestPath == "") {
				return errors.New("exactly one of --fact or --request is required")
			}

			wbs, _, err := loadProject(flagProject)
			if err != nil {
				return err
			}

			cfg, err := config.Load(config.ServiceTypeCLI)
			if err != nil {
				return err
			}

			newID := id.Sequence()
			detector := trigger.NewDetector(newID, time.Now)
			generator := replan.NewGenerator(replan.NewConfig(cfg.Replan), newID, time.Now)

			var t *model.Trigger
			if factPath != "" {
				var change model.FactChange
				if err := readJSON(factPath, &change); err != nil {
					return err
				}
				t, err = detector.Classify(change, wbs)
			} else {
				var req model.RePlanRequest
				if err := readJSON(requestPath, &req); err != nil {
					return err
				}
				if req.ProjectID == "" {
					req.ProjectID = wbs.ProjectID
				}
				t, err = detector.ClassifyRequest(req, wbs)
			}
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}

			proposal, err := generator.Propose(t, wbs, wbs.Version)
			if err != nil {
				return fmt.Errorf("propose: %w", err)
			}

			if flagJSON {
				return outputJSON(map[string]any{"trigger": t, "proposal": proposal})
			}
			renderProposal(os.Stdout, t, proposal)
			return nil
		},
	}

	cmd.Flags().StringVar(&factPath, "fact", "", "Fact change JSON file")
	cmd.Flags().StringVar(&requestPath, "request", "", "Re-plan request JSON file")

	return cmd
}

func renderProposal(w io.Writer, t *model.Trigger, p *model.Proposal) {
	sev := severityColor(t.Severity)
	fmt.Fprintf(w, "%s %s %s\n", bold("Trigger"), boldCyan(string(t.Type)), sev(string(t.Severity)))
	fmt.Fprintf(w, "  %s\n", t.Cause)
	fmt.Fprintf(w, "  %s %s\n\n", dim("affected"), strings.Join(t.Impact.AffectedTaskIDs, ", "))

	impact := p.Impact
	fmt.Fprintf(w, "%s %d -> %d days (%+d)\n", bold("Duration"),
		impact.OriginalDuration, impact.ProposedDuration, impact.TotalDelayDays)
	fmt.Fprintf(w, "%s %s\n", bold("Risk"), severityColor(impact.RiskAssessment.Level)(string(impact.RiskAssessment.Level)))
	for _, f := range impact.RiskAssessment.Factors {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	fmt.Fprintf(w, "%s %.2f\n", bold("Cost impact"), p.Changes.CostImpact.Total)
	if len(impact.CriticalPathChanges) > 0 {
		fmt.Fprintf(w, "%s %s\n", bold("Critical path changes"), strings.Join(impact.CriticalPathChanges, ", "))
	}

	if len(p.Changes.ShiftedTasks) > 0 {
		fmt.Fprintf(w, "\n%-12s %6s %6s  %-10s %-10s  %s\n", "TASK", "SHIFT", "END", "NEW START", "NEW END", "REASON")
		for _, s := range p.Changes.ShiftedTasks {
			row := plainRow
			if s.IsCritical {
				row = criticalRow
			}
			row.Fprintf(w, "%-12s %+6d %+6d  %-10s %-10s  %s\n",
				truncate(s.TaskID, 12),
				s.ShiftDays,
				s.EndShiftDays,
				s.NewStart.Format("2006-01-02"),
				s.NewEnd.Format("2006-01-02"),
				s.Reason)
		}
	}

	for _, rc := range p.Changes.ResourceChanges {
		fmt.Fprintf(w, "%s %s %s %s\n", bold("Resource"), rc.Resource, rc.Action, strings.Join(rc.TaskIDs, ", "))
	}

	if len(impact.Recommendations) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Recommendations"))
		for _, r := range impact.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}

	approval := "auto-apply"
	if p.Confirmation.RequiresApproval {
		approval = "requires approval"
		if p.Confirmation.Approver != "" {
			approval += " by " + p.Confirmation.Approver
		}
	}
	fmt.Fprintf(w, "\n%s %s\n", bold("Confirmation"), approval)
}
