// ABOUTME: CLI entrypoint for neurogems: dashboard server, terminal configurator, MCP server and scripting commands.
// ABOUTME: Loads .env and configuration, then wires the backend gateway, activity log and event publisher.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/2389-research/neurogems/activity"
	"github.com/2389-research/neurogems/config"
	"github.com/2389-research/neurogems/events"
	"github.com/2389-research/neurogems/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var version = "dev"

// gatewayFactory builds the backend client. Tests swap in an in-memory gateway.
type gatewayFactory func(cfg *config.Config, reg prometheus.Registerer) gateway.Gateway

func httpGateway(cfg *config.Config, reg prometheus.Registerer) gateway.Gateway {
	opts := []gateway.Option{
		gateway.WithTimeout(cfg.Timeout),
		gateway.WithMetrics(gateway.NewMetrics(reg)),
	}
	if cfg.BackendToken != "" {
		opts = append(opts, gateway.WithToken(cfg.BackendToken))
	}
	return gateway.NewHTTPClient(cfg.BackendURL, opts...)
}

// cli carries flags and the collaborators built from them for one invocation.
type cli struct {
	out, errOut io.Writer
	newGateway  gatewayFactory

	configPath string
	backendURL string
	dataDir    string
	jsonOutput bool
	verbose    bool

	cfg      *config.Config
	gw       gateway.Gateway
	activity *activity.Log
	registry *prometheus.Registry
	closers  []func() error
}

// Commands annotated with keepLogs write the component log to stderr even
// without --verbose.
const keepLogs = "keep-logs"

// needsSetup is false for cobra's built-in help and completion commands.
func needsSetup(cmd *cobra.Command) bool {
	for p := cmd; p != nil; p = p.Parent() {
		switch p.Name() {
		case "help", "completion":
			return false
		}
	}
	return true
}

// setup loads configuration and opens the gateway, activity log and publisher.
func (c *cli) setup(cmd *cobra.Command) error {
	if !needsSetup(cmd) {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.backendURL != "" {
		cfg.BackendURL = c.backendURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	dir, err := resolveDataDir(c.dataDir, cfg.DataDir)
	if err != nil {
		return err
	}
	cfg.DataDir = dir
	c.cfg = cfg

	switch {
	case c.verbose, cmd.Annotations[keepLogs] == "true":
		log.SetOutput(c.errOut)
	default:
		log.SetOutput(io.Discard)
	}

	c.registry = prometheus.NewRegistry()
	base := c.newGateway(cfg, c.registry)
	c.closers = append(c.closers, base.Close)

	actLog, err := activity.Open(filepath.Join(dir, "activity.db"))
	if err != nil {
		return fmt.Errorf("activity log: %w", err)
	}
	c.activity = actLog
	c.closers = append(c.closers, actLog.Close)

	pub, err := events.New(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	c.closers = append(c.closers, pub.Close)

	c.gw = activity.Wrap(base, actLog, pub)
	return nil
}

func (c *cli) teardown() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			fmt.Fprintf(c.errOut, "warning: close: %v\n", err)
		}
	}
	c.closers = nil
}

func (c *cli) printer() *printer { return newPrinter(c.out) }

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "neurogems <command>",
		Short:         "Dashboard and tooling for the NeuroGeMS pipeline backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("NEUROGEMS_CONFIG"), "YAML config file")
	root.PersistentFlags().StringVar(&c.backendURL, "backend", "", "backend base URL (overrides config)")
	root.PersistentFlags().StringVar(&c.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/neurogems)")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "output as JSON")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log backend calls to stderr")

	root.AddGroup(
		&cobra.Group{ID: "apps", Title: "Applications:"},
		&cobra.Group{ID: "backend", Title: "Backend:"},
	)

	for _, cmd := range []*cobra.Command{newServeCmd(c), newTUICmd(c), newMCPCmd(c)} {
		cmd.GroupID = "apps"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		newStrategiesCmd(c), newDatasetsCmd(c), newRunsCmd(c),
		newTrainCmd(c), newValidationsCmd(c), newMetricsCmd(c), newActivityCmd(c),
	} {
		cmd.GroupID = "backend"
		root.AddCommand(cmd)
	}
	return root
}

// parseParams turns repeated key=value flags into option tokens.
func parseParams(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q: want key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// describeError prefers the backend's own message.
func describeError(err error) string {
	var be *gateway.BackendError
	var ae *gateway.APIError
	if errors.As(err, &be) || errors.As(err, &ae) {
		return gateway.Message(err)
	}
	return err.Error()
}

func main() {
	loadDotEnvAuto()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{out: os.Stdout, errOut: os.Stderr, newGateway: httpGateway}
	err := newRootCmd(c).ExecuteContext(ctx)
	c.teardown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describeError(err))
		os.Exit(1)
	}
}
