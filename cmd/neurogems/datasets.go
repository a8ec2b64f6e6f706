// ABOUTME: The datasets command tree: list, show (profile overview, classes, columns), add and rm.
package main

import (
	"fmt"
	"strings"

	"github.com/2389-research/neurogems/datasets"
	"github.com/2389-research/neurogems/gateway"
	"github.com/spf13/cobra"
)

func newDatasetsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"dataset", "data"},
		Short:   "Manage the backend's datasets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List datasets",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ds, err := c.gw.ListDatasets(cmd.Context(), false)
				if err != nil {
					return err
				}
				p := c.printer()
				if c.jsonOutput {
					return p.json(ds)
				}
				rows := make([][]string, len(ds))
				for i, d := range ds {
					rows[i] = []string{d.Name, d.TargetColumn, d.TimeColumn, d.Path}
				}
				return p.table([]string{"NAME", "TARGET", "TIME", "PATH"}, rows)
			},
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Show a dataset's profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ds, err := c.gw.ListDatasets(cmd.Context(), true)
				if err != nil {
					return err
				}
				for _, d := range ds {
					if d.Name == args[0] {
						return c.showDataset(d)
					}
				}
				return fmt.Errorf("dataset %q not found", args[0])
			},
		},
		newDatasetAddCmd(c),
		&cobra.Command{
			Use:     "rm <name>",
			Aliases: []string{"remove"},
			Short:   "Remove a dataset",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				msg, err := c.gw.RemoveDataset(cmd.Context(), args[0])
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

func (c *cli) showDataset(d datasets.Dataset) error {
	p := c.printer()
	if c.jsonOutput {
		return p.json(d)
	}
	p.line("%s (%s)", d.Name, d.Path)
	p.line("Target column: %s", d.TargetColumn)
	if d.Description != "" {
		p.line("%s", d.Description)
	}
	if d.Profile == nil {
		p.line("%s", p.muted("no profile available"))
		return nil
	}

	p.line("")
	if err := p.table([]string{"OVERVIEW", ""}, statRows(datasets.Overview(d.Profile.Table))); err != nil {
		return err
	}
	if classes := datasets.ClassCounts(d.Profile, d.TargetColumn); len(classes) > 0 {
		p.line("")
		if err := p.table([]string{"CLASS", "COUNT"}, statRows(classes)); err != nil {
			return err
		}
	}
	p.line("")
	var rows [][]string
	for _, col := range datasets.Columns(d.Profile) {
		v := d.Profile.Variables[col]
		var stats []string
		for _, s := range datasets.ColumnStats(v) {
			stats = append(stats, s.Label+": "+s.Value)
		}
		rows = append(rows, []string{col, v.Type, strings.Join(stats, ", ")})
	}
	return p.table([]string{"COLUMN", "TYPE", "STATISTICS"}, rows)
}

func statRows(stats []datasets.Stat) [][]string {
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{s.Label, s.Value}
	}
	return rows
}

func newDatasetAddCmd(c *cli) *cobra.Command {
	var req gateway.AddDatasetRequest
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a dataset file with the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			d, err := c.gw.AddDataset(cmd.Context(), req)
			if err != nil {
				return err
			}
			if d == nil {
				c.printer().line("dataset %s added", req.Name)
				return nil
			}
			return c.showDataset(*d)
		},
	}
	cmd.Flags().StringVar(&req.Path, "path", "", "dataset file path as seen by the backend")
	cmd.Flags().StringVar(&req.TargetColumn, "target", "", "target column")
	cmd.Flags().StringVar(&req.TimeColumn, "time", "", "time column, optional")
	cmd.Flags().BoolVar(&req.WithProfile, "profile", false, "compute a profile")
	_ = cmd.MarkFlagRequired("path")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
