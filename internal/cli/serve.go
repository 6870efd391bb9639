package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patchgrid/patchgrid/pkg/server"
	"github.com/patchgrid/patchgrid/pkg/store"
)

// serveCommand creates the serve command exposing the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the arrangement pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("create runner: %w", err)
			}
			defer runner.Close()

			var st *store.LayoutStore
			if c.Config.Server.MongoURL != "" {
				st, err = store.NewLayoutStore(ctx, c.Config.Server.MongoURL)
				if err != nil {
					return fmt.Errorf("connect layout store: %w", err)
				}
				defer st.Close(ctx)
				logger.Info("layout store connected")
			}

			if addr == "" {
				addr = c.Config.Server.Addr
			}

			printInfo("Serving on %s", addr)
			return server.New(runner, st, logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the cache")

	return cmd
}
