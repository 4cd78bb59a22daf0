package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"trialmerge/internal/config"
	"trialmerge/internal/dataprocessing"
	"trialmerge/internal/services"
)

type mergeOptions struct {
	dir     string
	out     string
	summary bool
	bom     bool
}

func (c *cli) mergeCmd() *cobra.Command {
	var opts mergeOptions
	cmd := &cobra.Command{
		Use:   "merge [files...]",
		Short: "Merge trial files into the master table",
		Long: `Merges the named files and every .csv, .txt and .xlsx file in --dir.
With neither, the configured input directory is scanned.

Files that cannot be parsed are reported and skipped. The exit code is 1
when every input failed; an empty input set writes nothing and exits 0.`,
		PreRunE: c.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("bom") {
				c.cfg.Export.BOMPrefix = opts.bom
			}
			if opts.out != "" {
				c.cfg.Paths.OutputFile = opts.out
			}
			dir := opts.dir
			if dir == "" && len(args) == 0 {
				dir = c.cfg.Paths.InputDir
				if !config.FileExists(dir) {
					c.logger.WarnContext(cmd.Context(), "configured input directory does not exist",
						slog.String("input_dir", dir))
					dir = ""
				}
			}
			return c.runMerge(cmd, args, dir, opts.summary)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory to scan for trial files")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output CSV path (default from config)")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print descriptive statistics of the merged table")
	cmd.Flags().BoolVar(&opts.bom, "bom", false, "prefix the output with a UTF-8 byte order mark")
	return cmd
}

func (c *cli) runMerge(cmd *cobra.Command, args []string, dir string, summary bool) error {
	ctx := cmd.Context()

	paths, err := config.ResolvePaths(c.cfg.Paths)
	if err != nil {
		return err
	}
	paths.LogPathResolution(c.logger)

	assembler, err := dataprocessing.NewAssembler(c.logger, c.tel)
	if err != nil {
		return err
	}
	svc := services.NewMergeService(assembler, paths.WorkingDir, c.logger)

	inputs, err := svc.ResolveInputs(args, dir)
	if err != nil {
		return err
	}

	result, err := svc.MergeFiles(ctx, services.MergeRequest{
		Paths:      inputs,
		OutputFile: paths.OutputFile,
		BOMPrefix:  c.cfg.Export.BOMPrefix,
		Summary:    summary,
	})
	if err != nil {
		return err
	}

	printReport(c.stdout, len(inputs), result)

	switch {
	case result.AllFailed():
		return &exitError{code: 1, err: errors.New("no input file could be parsed; nothing was written")}
	case !result.Saved:
		c.logger.WarnContext(ctx, "nothing to merge", slog.Int("inputs", len(inputs)))
		fmt.Fprintln(c.stdout, "No rounds found; nothing was written.")
	}
	return nil
}
