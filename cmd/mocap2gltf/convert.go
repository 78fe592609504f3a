package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/scottpetrovic/mocap2gltf/internal/convert"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input> [output.gltf]",
	Short: "Convert one motion capture file",
	Long: `Convert one BVH or C3D file to a glTF document and its binary buffers.
The output defaults to the input path with a .gltf extension.`,
	Example: `  mocap2gltf convert -f bvh walk.bvh
  mocap2gltf convert -f c3d --meters --z-up --time-basis absolute trial01.c3d out/trial01.gltf`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConvert,
}

var batchCmd = &cobra.Command{
	Use:     "batch <input>...",
	Short:   "Convert many files of one format in parallel",
	Example: `  mocap2gltf batch -f bvh -j 4 --out-dir gltf/ mocap/*.bvh`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runBatch,
}

var outDir string

func init() {
	batchCmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Directory for outputs (default: next to each input)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	output := ""
	if len(args) > 1 {
		output = args[1]
	}

	res, err := convert.Run(cfg.Job(args[0], output))
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs := make([]convert.Config, len(args))
	for i, input := range args {
		output := ""
		if outDir != "" {
			output = filepath.Join(outDir, filepath.Base(convert.DefaultOutputPath(input)))
		}
		jobs[i] = cfg.Job(input, output)
	}

	results, err := convert.Batch(ctx, jobs, cfg.Batch.Parallelism)

	w := cmd.OutOrStdout()
	total, done := 0, 0
	for _, res := range results {
		if res == nil {
			continue
		}
		printResult(w, res)
		total += res.Bytes
		done++
	}
	fmt.Fprintf(w, "\nConverted %d of %d files (%s)\n", done, len(jobs), humanize.Bytes(uint64(total)))

	return err
}

func printResult(w io.Writer, res *convert.Result) {
	fmt.Fprintf(w, "%s -> %s\n", res.Input, res.Output)
	fmt.Fprintf(w, "  %d frames, %d nodes, %d tracks, %s\n",
		res.Frames, res.Nodes, res.Tracks, humanize.Bytes(uint64(res.Bytes)))
	for _, f := range res.Files {
		fmt.Fprintf(w, "  %-40s %s\n", f.Path, humanize.Bytes(uint64(f.Bytes)))
	}
}
