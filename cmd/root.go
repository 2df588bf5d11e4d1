// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cardinalhq/lakemerge/config"
	"github.com/cardinalhq/lakemerge/internal/lineconv"
	"github.com/cardinalhq/lakemerge/internal/mergesort"
)

const serviceName = "lakemerge"

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "lakemerge [flags] <output> <input>...",
		Short: "Merge pre-sorted text files into one sorted file",
		Long: `Merge any number of text files, each already sorted by the same key,
into a single sorted output file. Lines that cannot be parsed or that
appear out of order in their source are dropped with a warning.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runMerge,
	}

	f := c.Flags()
	f.BoolP("string", "s", false, "compare lines as text")
	f.BoolP("integer", "i", false, "compare lines as signed 64-bit integers")
	f.BoolP("ascending", "a", false, "inputs and output sorted in ascending order (default)")
	f.BoolP("descending", "d", false, "inputs and output sorted in descending order")
	f.Int("workers", 0, "maximum number of concurrent merges (default GOMAXPROCS)")
	f.String("temp-dir", "", "directory for intermediate files (default system temp dir)")
	f.Int("max-line-bytes", 0, "longest accepted input line in bytes")

	c.MarkFlagsOneRequired("string", "integer")
	c.MarkFlagsMutuallyExclusive("string", "integer")
	c.MarkFlagsMutuallyExclusive("ascending", "descending")

	return c
}

// requestFromFlags builds a merge request from parsed flags and positional
// arguments. The first argument is the output path, the rest are inputs.
func requestFromFlags(flags *pflag.FlagSet, args []string) (mergesort.Request, error) {
	if len(args) < 2 {
		return mergesort.Request{}, errors.New("an output file and at least one input file are required")
	}

	integer, err := flags.GetBool("integer")
	if err != nil {
		return mergesort.Request{}, err
	}
	descending, err := flags.GetBool("descending")
	if err != nil {
		return mergesort.Request{}, err
	}

	req := mergesort.Request{
		OutputPath: args[0],
		InputPaths: args[1:],
		Ascending:  !descending,
		ValueType:  lineconv.ValueText,
	}
	if integer {
		req.ValueType = lineconv.ValueInteger
	}
	return req, req.Validate()
}

func runMerge(c *cobra.Command, args []string) error {
	req, err := requestFromFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(c.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Arguments are valid from here on; failures are not usage errors.
	c.SilenceUsage = true

	ctx, doneFx, err := setupTelemetry(serviceName, nil)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		if err := doneFx(); err != nil {
			slog.Error("Error shutting down telemetry", slog.Any("error", err))
		}
	}()

	start := time.Now()
	stats, err := mergesort.MergeSortedFiles(ctx, req, cfg.Merge)
	recordRun(ctx, time.Since(start), err)
	if err != nil {
		return err
	}

	slog.Debug("Run statistics",
		slog.String("output", req.OutputPath),
		slog.String("valueType", req.ValueType.String()),
		slog.Bool("ascending", req.Ascending),
		slog.Int("inputs", stats.Inputs),
		slog.Int("merges", stats.Merges),
		slog.Int64("linesWritten", stats.LinesWritten),
		slog.Int64("linesDropped", stats.LinesDropped))
	return nil
}

// Execute runs the root command and exits non-zero on any error.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
