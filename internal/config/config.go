// Package config handles converter configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/scottpetrovic/mocap2gltf/internal/anim"
	"github.com/scottpetrovic/mocap2gltf/internal/convert"
	"github.com/scottpetrovic/mocap2gltf/internal/logger"
	"github.com/scottpetrovic/mocap2gltf/internal/mocap"
	"github.com/scottpetrovic/mocap2gltf/internal/pack"
	"github.com/scottpetrovic/mocap2gltf/internal/scene"
)

// Config holds all converter settings.
type Config struct {
	Conversion ConversionConfig `yaml:"conversion"`
	C3D        C3DConfig        `yaml:"c3d"`
	Asset      AssetConfig      `yaml:"asset"`
	Batch      BatchConfig      `yaml:"batch"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ConversionConfig holds pipeline settings shared by every input format.
type ConversionConfig struct {
	Format        string `yaml:"format"`        // bvh or c3d
	TimeBasis     string `yaml:"time_basis"`    // normalized or absolute
	Packing       string `yaml:"packing"`       // grouped or per_array
	Interpolation string `yaml:"interpolation"` // LINEAR or STEP
}

// C3DConfig holds point-cloud settings.
type C3DConfig struct {
	Meters   bool   `yaml:"meters"` // Scale millimetre data to metres
	ZUp      bool   `yaml:"z_up"`   // Rotate Z-up data into Y-up
	RootName string `yaml:"root_name"`
}

// AssetConfig holds the glTF asset metadata.
type AssetConfig struct {
	Generator string `yaml:"generator"`
	Copyright string `yaml:"copyright"`
}

// BatchConfig holds batch conversion settings.
type BatchConfig struct {
	Parallelism int `yaml:"parallelism"` // 0 means one per CPU
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Conversion: ConversionConfig{
			TimeBasis:     string(anim.Normalized),
			Packing:       string(pack.Grouped),
			Interpolation: string(scene.Linear),
		},
		C3D: C3DConfig{
			RootName: anim.DefaultRootName,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every setting with an unknown value.
func (c *Config) Validate() error {
	var err error
	if c.Conversion.Format != "" {
		_, e := mocap.ParseFormat(c.Conversion.Format)
		err = multierr.Append(err, e)
	}
	_, e := anim.ParseTimeBasis(c.Conversion.TimeBasis)
	err = multierr.Append(err, e)
	_, e = pack.ParsePolicy(c.Conversion.Packing)
	err = multierr.Append(err, e)
	_, e = scene.ParseInterpolation(c.Conversion.Interpolation)
	err = multierr.Append(err, e)

	if c.Batch.Parallelism < 0 {
		err = multierr.Append(err, fmt.Errorf("batch.parallelism must be >= 0, got %d", c.Batch.Parallelism))
	}
	_, e = logger.ParseLevel(c.Logging.Level)
	err = multierr.Append(err, e)
	return err
}

// Job returns the conversion of input to output under this configuration.
// An empty output selects the default next to the input.
func (c *Config) Job(input, output string) convert.Config {
	return convert.Config{
		InputPath:     input,
		OutputPath:    output,
		Format:        mocap.Format(c.Conversion.Format),
		TimeBasis:     anim.TimeBasis(c.Conversion.TimeBasis),
		Packing:       pack.Policy(c.Conversion.Packing),
		Interpolation: scene.Interpolation(c.Conversion.Interpolation),
		Generator:     c.Asset.Generator,
		Copyright:     c.Asset.Copyright,
		Meters:        c.C3D.Meters,
		ZUp:           c.C3D.ZUp,
		RootName:      c.C3D.RootName,
	}
}
