package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patchgrid/patchgrid/pkg/layout"
	"github.com/patchgrid/patchgrid/pkg/patch"
	"github.com/patchgrid/patchgrid/pkg/pipeline"
)

// arrangeOpts holds the command-line flags for the arrange command.
type arrangeOpts struct {
	output     string // output file path for the layout JSON
	mode       string // arrangement mode: "columns" or "face_to_face"
	minColumns int    // minimum number of columns
	noSides    bool   // disable hardware-on-sides anchoring
	noCache    bool   // bypass the layout cache
}

// arrangeCommand creates the arrange command for computing layouts.
func (c *CLI) arrangeCommand() *cobra.Command {
	opts := arrangeOpts{
		mode: pipeline.ModeColumns,
	}

	cmd := &cobra.Command{
		Use:   "arrange [snapshot]",
		Short: "Compute a column layout for a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runArrange(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output layout file (default: <snapshot>.layout.json)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", opts.mode, "arrangement mode: columns (default), face_to_face")
	cmd.Flags().IntVar(&opts.minColumns, "min-columns", 0, "minimum number of columns")
	cmd.Flags().BoolVar(&opts.noSides, "no-sides", false, "do not anchor hardware groups to the outer columns")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the layout cache")

	return cmd
}

func (c *CLI) runArrange(cmd *cobra.Command, path string, opts *arrangeOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	snap, err := patch.ReadSnapshotFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}
	defer runner.Close()

	popts := c.pipelineOptions()
	popts.Mode = opts.mode
	popts.Logger = logger
	if opts.minColumns > 0 {
		popts.MinColumns = opts.minColumns
	}
	if opts.noSides {
		f := false
		popts.HardwareOnSides = &f
	}

	prog := newProgress(logger)
	lay, hash, cached, err := runner.ArrangeWithCacheInfo(ctx, snap, popts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Arranged %d groups into %d columns", snap.GroupCount(), lay.Columns))

	out := opts.output
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ".layout.json"
	}
	if err := layout.WriteFile(lay, out); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}

	printSuccess("Layout written")
	printFile(out)
	printStats(snap.GroupCount(), snap.ConnectionCount(), lay.Columns, cached)
	if len(lay.SplitGroups) > 0 {
		printDetail("split groups: %v", lay.SplitGroups)
	}
	printDetail("snapshot: %s", hash[:12])
	printNewline()
	printNextStep("Render it", fmt.Sprintf("patchgrid render %s -o canvas.svg", path))
	return nil
}
