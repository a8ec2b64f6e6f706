// ABOUTME: The runs, train, validations and metrics commands over the experiment tracker.
// ABOUTME: Results print as the same classification report the dashboard renders.
package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/2389-research/neurogems/experiment"
	"github.com/2389-research/neurogems/gateway"
	"github.com/spf13/cobra"
)

func newRunsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"run"},
		Short:   "Inspect tracked experiment runs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List runs, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				runs, err := c.gw.ListExperimentRuns(cmd.Context())
				if err != nil {
					return err
				}
				p := c.printer()
				if c.jsonOutput {
					return p.json(runs)
				}
				rows := make([][]string, len(runs))
				for i, r := range runs {
					rows[i] = []string{
						r.ID, r.Name, r.Params["strategy"], p.outcome(r.Status),
						fmt.Sprintf("%.2f%%", r.Metrics["accuracy"]*100),
						r.CreatedAt.Format("2006-01-02 15:04"),
					}
				}
				return p.table([]string{"ID", "NAME", "STRATEGY", "STATUS", "ACCURACY", "CREATED"}, rows)
			},
		},
		&cobra.Command{
			Use:   "show <run-id>",
			Short: "Show a run's classification report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				runs, err := c.gw.ListExperimentRuns(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range runs {
					if r.ID == args[0] {
						return c.showRun(r)
					}
				}
				return fmt.Errorf("run %q not found", args[0])
			},
		},
		&cobra.Command{
			Use:     "rm <run-id>",
			Aliases: []string{"remove"},
			Short:   "Remove a run",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				msg, err := c.gw.RemoveRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				c.printer().line("%s", msg)
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) showRun(r gateway.Run) error {
	res, err := experiment.FromRun(r)
	if err != nil {
		return err
	}
	p := c.printer()
	if c.jsonOutput {
		return p.json(res)
	}
	p.line("%s %s (%s)", r.ID, r.Name, p.outcome(r.Status))
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		if _, chart := chartParams[k]; !chart {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.line("%s", p.muted(k+": "+r.Params[k]))
	}
	p.line("")
	fmt.Fprint(p.w, experiment.ReportMarkdown(res))
	if path := experiment.ShapPlotPath(res.ArtifactURI, experiment.ShapSummary); path != "" {
		p.line("SHAP summary: %s", path)
	}
	return nil
}

// chartParams are the logged params rendered by the report rather than listed.
var chartParams = map[string]struct{}{
	"labels": {}, "precision_classwise": {}, "recall_classwise": {},
	"f1_score_classwise": {}, "confusion_matrix": {},
}

func newTrainCmd(c *cli) *cobra.Command {
	var (
		runName    string
		validation string
		params     []string
	)
	cmd := &cobra.Command{
		Use:   "train <strategy>",
		Short: "Train a saved strategy and print its classification report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := parseParams(params)
			if err != nil {
				return err
			}
			form := experiment.NewTrainForm(c.gw, nil)
			if err := form.Load(cmd.Context()); err != nil {
				return err
			}
			if err := form.SelectValidation(validation); err != nil {
				return err
			}
			for k, v := range tokens {
				if !form.EditParamToken(k, v) {
					return fmt.Errorf("invalid value %q for %s", v, k)
				}
			}
			form.SetRunName(runName)
			form.SetStrategy(args[0])

			fmt.Fprintf(c.errOut, "training %s with %s...\n", args[0], validation)
			res, err := form.Train(cmd.Context(), c.gw)
			if err != nil {
				return err
			}
			p := c.printer()
			if c.jsonOutput {
				return p.json(res)
			}
			p.line("%s", experiment.MsgTrainingComplete)
			fmt.Fprint(p.w, experiment.ReportMarkdown(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&runName, "run-name", "", "name of the tracked run")
	cmd.Flags().StringVar(&validation, "validation", "", "validation method id (see `validations`)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "validation parameter as key=token (repeatable)")
	_ = cmd.MarkFlagRequired("run-name")
	_ = cmd.MarkFlagRequired("validation")
	return cmd
}

func newValidationsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validations",
		Short: "List validation methods and their parameter options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			methods, err := c.gw.ListSupportedValidations(cmd.Context())
			if err != nil {
				return err
			}
			p := c.printer()
			if c.jsonOutput {
				return p.json(methods)
			}
			rows := make([][]string, len(methods))
			for i, m := range methods {
				rows[i] = []string{m.ID, m.Description, paramSummary(m.Params)}
			}
			return p.table([]string{"VALIDATION", "DESCRIPTION", "PARAMETERS"}, rows)
		},
	}
}

func newMetricsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the evaluation metrics the backend reports for training runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics, err := c.gw.ListSupportedMetrics(cmd.Context())
			if err != nil {
				return err
			}
			p := c.printer()
			if c.jsonOutput {
				return p.json(metrics)
			}
			rows := make([][]string, len(metrics))
			for i, m := range metrics {
				rows[i] = []string{m.Name, m.Type, m.Description}
			}
			return p.table([]string{"METRIC", "TYPE", "DESCRIPTION"}, rows)
		},
	}
}

func newActivityCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent backend mutations recorded locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := c.activity.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			p := c.printer()
			if c.jsonOutput {
				return p.json(entries)
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					e.At.Local().Format("2006-01-02 15:04:05"), e.Action, e.Subject,
					p.outcome(e.Outcome), strings.TrimSpace(e.Detail),
				}
			}
			return p.table([]string{"AT", "ACTION", "SUBJECT", "OUTCOME", "DETAIL"}, rows)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}
