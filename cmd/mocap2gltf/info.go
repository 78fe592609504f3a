package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/scottpetrovic/mocap2gltf/internal/mocap"
)

var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Show motion capture file information",
	Long: `Show frame rate, frame count, joints or markers and, for C3D files,
analog channels, events and every parameter group.`,
	Example: `  mocap2gltf info -f c3d trial01.c3d
  mocap2gltf info -f bvh --params=false walk.bvh`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

const paramValueWidth = 60

var (
	showParams  bool
	entityLimit int
)

func init() {
	infoCmd.Flags().BoolVar(&showParams, "params", true, "List parameter groups")
	infoCmd.Flags().IntVarP(&entityLimit, "limit", "n", 50, "Limit joints/markers listed (0 = all)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	format, err := mocap.ParseFormat(cfg.Conversion.Format)
	if err != nil {
		return fmt.Errorf("info needs --format: %w", err)
	}

	path := args[0]
	clip, err := mocap.Read(path, format)
	if err != nil {
		return err
	}

	var size int64
	if st, err := os.Stat(path); err == nil {
		size = st.Size()
	}

	printInfo(cmd.OutOrStdout(), clip, size)
	return nil
}

func printInfo(w io.Writer, clip *mocap.Clip, size int64) {
	fmt.Fprintf(w, "File:     %s\n", clip.Path)
	fmt.Fprintf(w, "Size:     %s\n", humanize.Bytes(uint64(size)))
	fmt.Fprintf(w, "Format:   %s (%s)\n", clip.Format, clip.Kind)
	fmt.Fprintf(w, "Frames:   %s\n", humanize.Comma(int64(clip.FrameCount())))
	if clip.FrameRate > 0 {
		d := time.Duration(float64(clip.FrameCount()) * clip.SampleInterval * float64(time.Second))
		fmt.Fprintf(w, "Rate:     %g fps (%s)\n", clip.FrameRate, d.Round(time.Millisecond))
	} else {
		fmt.Fprintln(w, "Rate:     none")
	}
	if clip.Info.Units != "" {
		fmt.Fprintf(w, "Units:    %s\n", clip.Info.Units)
	}
	if clip.Info.AnalogChannels > 0 {
		fmt.Fprintf(w, "Analog:   %d channels @ %g Hz\n", clip.Info.AnalogChannels, clip.Info.AnalogRate)
	}

	label := "Joints"
	if clip.Kind == mocap.PointCloud {
		label = "Markers"
	}
	fmt.Fprintf(w, "\n%s (%d):\n", label, len(clip.Entities))
	for i, e := range clip.Entities {
		if entityLimit > 0 && i >= entityLimit {
			fmt.Fprintf(w, "  ... %d more\n", len(clip.Entities)-i)
			break
		}
		fmt.Fprintf(w, "  %s%s%s\n", strings.Repeat("  ", depth(clip, i)), e.Name, channels(e))
	}

	if len(clip.Info.Events) > 0 {
		fmt.Fprintf(w, "\nEvents (%d):\n", len(clip.Info.Events))
		for _, ev := range clip.Info.Events {
			fmt.Fprintf(w, "  %8.3fs  %s\n", ev.Time, ev.Label)
		}
	}

	if showParams && len(clip.Info.Groups) > 0 {
		fmt.Fprintln(w, "\nParameters:")
		for _, g := range clip.Info.Groups {
			fmt.Fprintf(w, "  %s", g.Name)
			if g.Description != "" {
				fmt.Fprintf(w, "  (%s)", g.Description)
			}
			fmt.Fprintln(w)
			for _, p := range g.Params {
				fmt.Fprintf(w, "    %-16s %-7s %s\n", p.Name, p.Kind, truncate(p.Display, paramValueWidth))
			}
		}
	}
}

func depth(clip *mocap.Clip, i int) int {
	d := 0
	for p := clip.Entities[i].Parent; p != mocap.NoParent; p = clip.Entities[p].Parent {
		d++
	}
	return d
}

func channels(e mocap.Entity) string {
	switch {
	case e.HasTranslation && e.HasRotation:
		return "  [translation rotation]"
	case e.HasTranslation:
		return "  [translation]"
	case e.HasRotation:
		return "  [rotation]"
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
