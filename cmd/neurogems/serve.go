// ABOUTME: The serve, tui and mcp subcommands: the three interactive front ends over one gateway.
// ABOUTME: serve runs the web dashboard until SIGINT/SIGTERM; tui logs to a file under the data dir.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/2389-research/neurogems/mcpserver"
	"github.com/2389-research/neurogems/session"
	"github.com/2389-research/neurogems/tui"
	"github.com/2389-research/neurogems/web"
	"github.com/spf13/cobra"
)

const cleanupInterval = time.Minute

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:         "serve",
		Short:       "Start the web dashboard",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{keepLogs: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Bind = addr
				if err := c.cfg.Validate(); err != nil {
					return err
				}
			}
			store := session.NewStore(session.Deps{Gateway: c.gw}, c.cfg.MaxSessions, c.cfg.SessionTTL)
			stop := store.StartCleanup(cleanupInterval)
			defer stop()

			srv, err := web.NewServer(web.ServerConfig{
				Addr:      c.cfg.Bind,
				MLRunsDir: c.cfg.MLRunsDir,
				AuthToken: c.cfg.AuthToken,
				Gateway:   c.gw,
				Sessions:  store,
				Activity:  c.activity,
				Registry:  c.registry,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "neurogems %s dashboard on http://%s (backend %s)\n", version, c.cfg.Bind, c.cfg.BackendURL)
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides NEUROGEMS_BIND)")
	return cmd
}

func newTUICmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Configure strategies in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(c.cfg.DataDir, "tui.log")
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log %s: %w", path, err)
			}
			defer f.Close()
			log.SetOutput(f)
			return tui.Run(cmd.Context(), session.Deps{Gateway: c.gw})
		},
	}
}

func newMCPCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:         "mcp",
		Short:       "Serve the backend as MCP tools over stdio",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{keepLogs: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcpserver.New(session.Deps{Gateway: c.gw}, version).Run(cmd.Context())
		},
	}
}
