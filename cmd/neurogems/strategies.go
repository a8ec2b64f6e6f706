// ABOUTME: The strategies command tree: list, kinds, create, rm, models and add-model.
// ABOUTME: add-model prints the resulting pipeline graph as a table, JSON, YAML, DOT, SVG or PNG.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/2389-research/neurogems/catalog"
	"github.com/2389-research/neurogems/pipeline"
	"github.com/2389-research/neurogems/render"
	"github.com/2389-research/neurogems/session"
	"github.com/spf13/cobra"
)

func newStrategiesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "strategies",
		Aliases: []string{"strategy"},
		Short:   "List and edit saved strategies",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved strategies",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				saved, err := c.gw.ListSavedStrategies(cmd.Context())
				if err != nil {
					return err
				}
				p := c.printer()
				if c.jsonOutput {
					return p.json(saved)
				}
				rows := make([][]string, len(saved))
				for i, s := range saved {
					rows[i] = []string{s.Name, s.Kind, strconv.Itoa(s.Version)}
				}
				return p.table([]string{"NAME", "KIND", "VERSION"}, rows)
			},
		},
		&cobra.Command{
			Use:   "kinds",
			Short: "List the strategy kinds the backend supports",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				kinds, err := c.gw.ListSupportedStrategies(cmd.Context())
				if err != nil {
					return err
				}
				p := c.printer()
				if c.jsonOutput {
					return p.json(kinds)
				}
				rows := make([][]string, len(kinds))
				for i, k := range kinds {
					rows[i] = []string{k.Name, k.Group, k.Description}
				}
				return p.table([]string{"KIND", "GROUP", "DESCRIPTION"}, rows)
			},
		},
		newStrategyCreateCmd(c),
		&cobra.Command{
			Use:     "rm <name>",
			Aliases: []string{"remove"},
			Short:   "Remove a saved strategy",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				msg, err := c.gw.RemoveStrategy(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				c.printer().line("%s", msg)
				return nil
			},
		},
		&cobra.Command{
			Use:   "models <strategy>",
			Short: "List model types and parameter options for a strategy",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				types, err := c.gw.ListSupportedModels(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				p := c.printer()
				if c.jsonOutput {
					return p.json(types)
				}
				var rows [][]string
				for _, d := range types {
					rows = append(rows, []string{d.ID, d.Description, paramSummary(d.Params)})
				}
				return p.table([]string{"TYPE", "DESCRIPTION", "PARAMETERS"}, rows)
			},
		},
		newAddModelCmd(c),
	)
	return cmd
}

func newStrategyCreateCmd(c *cli) *cobra.Command {
	var kind string
	var auto bool
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a strategy (an existing one of the same name is reset)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			switch {
			case len(args) == 1:
				name = args[0]
			case auto:
				generated, err := session.GenerateName()
				if err != nil {
					return err
				}
				name = generated
			default:
				return fmt.Errorf("a name or --auto-name is required")
			}
			if kind == "" {
				return fmt.Errorf("--kind is required")
			}
			msg, err := c.gw.CreateStrategy(cmd.Context(), name, kind)
			if err != nil {
				return err
			}
			c.printer().line("%s: %s", name, msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "strategy kind (unimodal, early_fusion, late_fusion)")
	cmd.Flags().BoolVar(&auto, "auto-name", false, "generate a name")
	return cmd
}

func newAddModelCmd(c *cli) *cobra.Command {
	var (
		req    session.AttachRequest
		params []string
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "add-model <strategy>",
		Short: "Attach a model to a saved strategy",
		Long: "Attach a model to a saved strategy and print the resulting pipeline graph.\n" +
			"Parameters take option tokens as listed by `strategies models`, e.g. --param C=10.\n" +
			"For late fusion, --input Output configures the voting combiner.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := parseParams(params)
			if err != nil {
				return err
			}
			req.Strategy = args[0]
			req.Params = tokens
			g, err := session.Attach(cmd.Context(), session.Deps{Gateway: c.gw}, req)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				format = "json"
			}
			return c.writeGraph(cmd, req.Strategy, g, format, output)
		},
	}
	cmd.Flags().StringVar(&req.ModelType, "type", "", "model type id")
	cmd.Flags().StringVar(&req.Model, "name", "", "model name")
	cmd.Flags().StringVar(&req.Input, "input", "", "dataset the model reads, or Output for late fusion")
	cmd.Flags().StringArrayVar(&params, "param", nil, "parameter as key=token (repeatable)")
	cmd.Flags().StringVar(&format, "format", "table", "graph output: table, json, yaml, dot, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the graph to a file instead of stdout")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// graphDoc is the YAML/JSON export shape of a strategy graph.
type graphDoc struct {
	Strategy string         `json:"strategy" yaml:"strategy"`
	Nodes    []graphDocNode `json:"nodes" yaml:"nodes"`
	Edges    []graphDocEdge `json:"edges" yaml:"edges"`
	Problems []string       `json:"problems,omitempty" yaml:"problems,omitempty"`
}

type graphDocNode struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Role  string `json:"role" yaml:"role"`
}

type graphDocEdge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

func newGraphDoc(name string, g pipeline.Graph) graphDoc {
	doc := graphDoc{Strategy: name}
	for _, n := range g.Nodes {
		doc.Nodes = append(doc.Nodes, graphDocNode{ID: n.ID, Label: n.Label, Role: n.Role()})
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, graphDocEdge{Source: e.Source, Target: e.Target})
	}
	for _, p := range pipeline.Validate(g) {
		doc.Problems = append(doc.Problems, p.String())
	}
	return doc
}

func (c *cli) writeGraph(cmd *cobra.Command, name string, g pipeline.Graph, format, output string) error {
	p := c.printer()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		p = newPrinter(f)
	}

	switch format {
	case "table", "":
		rows := make([][]string, 0, len(g.Edges))
		for _, e := range g.Edges {
			rows = append(rows, []string{e.Source, e.Target})
		}
		p.line("%s: %d nodes, %d edges", name, len(g.Nodes), len(g.Edges))
		return p.table([]string{"SOURCE", "TARGET"}, rows)
	case "json":
		return p.json(newGraphDoc(name, g))
	case "yaml":
		return p.yaml(newGraphDoc(name, g))
	}

	data, err := render.Render(cmd.Context(), name, g, format)
	if err != nil {
		return err
	}
	_, err = p.w.Write(data)
	return err
}

// paramSummary lists each parameter with its option tokens.
func paramSummary(ps catalog.Params) string {
	var parts []string
	for _, k := range ps.Keys() {
		opts, _ := ps.Options(k)
		tokens := make([]string, len(opts))
		for i, o := range opts {
			tokens[i] = o.Display()
		}
		parts = append(parts, k+"="+strings.Join(tokens, "|"))
	}
	return strings.Join(parts, " ")
}
