// mocap2gltf converts BVH and C3D motion capture files into glTF animations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scottpetrovic/mocap2gltf/internal/config"
	"github.com/scottpetrovic/mocap2gltf/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "mocap2gltf",
	Short: "Convert motion capture data to glTF animations",
	Long: `mocap2gltf reads BVH skeleton animations or C3D marker recordings and
writes a glTF 2.0 document with one animation plus its binary buffers.

Settings are read from ./mocap2gltf.yaml (or --config) and can be
overridden with flags.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var (
	flags *config.Flags
	cfg   *config.Config
)

func init() {
	flags = config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads the configuration and starts the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flags)
	if err != nil {
		return err
	}
	return logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		if cfg != nil {
			logger.Error(err.Error())
		} else {
			// Logger is not up when config loading fails
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
