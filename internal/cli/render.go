package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patchgrid/patchgrid/pkg/patch"
	"github.com/patchgrid/patchgrid/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file (single format) or base path (multiple)
	formats  []string // output formats: "dot", "svg", "png", "json"
	mode     string   // arrangement mode
	detailed bool     // include port counts in box labels
	noCache  bool     // bypass the cache
}

// renderCommand creates the render command for generating diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{
		mode: pipeline.ModeColumns,
	}

	cmd := &cobra.Command{
		Use:   "render [snapshot]",
		Short: "Render a snapshot as a patchbay diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, png, json (comma-separated)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", opts.mode, "arrangement mode: columns (default), face_to_face")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include port counts in box labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the cache")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, path string, opts *renderOpts) error {
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
	popts.Formats = opts.formats
	popts.Detailed = opts.detailed
	popts.Logger = logger

	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()
	res, err := runner.Execute(ctx, snap, popts)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("Render failed: %v", err))
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Rendered %d format(s)", len(res.Artifacts)))

	base := opts.output
	if base == "" {
		base = strings.TrimSuffix(path, filepath.Ext(path))
	}

	for _, format := range opts.formats {
		out := outputPath(base, format, len(opts.formats) > 1)
		if err := os.WriteFile(out, res.Artifacts[format], 0644); err != nil {
			return fmt.Errorf("write %s: %w", format, err)
		}
		printFile(out)
	}

	printStats(snap.GroupCount(), snap.ConnectionCount(), res.Layout.Columns, res.CacheInfo.RenderHit)
	return nil
}

// outputPath resolves the file name for a format. With multiple formats
// the base path gets the format as extension; a single explicit output
// is used verbatim when it already has an extension.
func outputPath(base, format string, multi bool) string {
	if !multi && filepath.Ext(base) != "" {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format
}
