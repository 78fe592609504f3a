package config

import "github.com/spf13/pflag"

// Flags holds command-line overrides. Only flags the user set are applied.
type Flags struct {
	set *pflag.FlagSet

	ConfigPath    string
	Debug         bool
	Format        string
	TimeBasis     string
	Packing       string
	Interpolation string
	Generator     string
	Copyright     string
	Meters        bool
	ZUp           bool
	RootName      string
	Parallelism   int
	LogLevel      string
	LogFile       string
}

// BindFlags registers the config flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{set: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVarP(&f.Format, "format", "f", "", "Input format (bvh or c3d)")
	fs.StringVar(&f.TimeBasis, "time-basis", "", "Sample times: normalized or absolute")
	fs.StringVar(&f.Packing, "packing", "", "Buffer packing: grouped or per_array")
	fs.StringVar(&f.Interpolation, "interpolation", "", "Sampler interpolation: LINEAR or STEP")
	fs.StringVar(&f.Generator, "generator", "", "asset.generator value")
	fs.StringVar(&f.Copyright, "copyright", "", "asset.copyright value")
	fs.BoolVar(&f.Meters, "meters", false, "Scale C3D millimetres to metres")
	fs.BoolVar(&f.ZUp, "z-up", false, "Rotate Z-up C3D data into Y-up")
	fs.StringVar(&f.RootName, "root-name", "", "Name of the C3D root node")
	fs.IntVarP(&f.Parallelism, "jobs", "j", 0, "Parallel conversions in batch mode (0 = one per CPU)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write JSON logs to this file")
	return f
}

func (f *Flags) configPath() string {
	if f == nil {
		return ""
	}
	return f.ConfigPath
}

func (f *Flags) changed(name string) bool {
	return f.set != nil && f.set.Changed(name)
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.changed("format") {
		cfg.Conversion.Format = f.Format
	}
	if f.changed("time-basis") {
		cfg.Conversion.TimeBasis = f.TimeBasis
	}
	if f.changed("packing") {
		cfg.Conversion.Packing = f.Packing
	}
	if f.changed("interpolation") {
		cfg.Conversion.Interpolation = f.Interpolation
	}
	if f.changed("generator") {
		cfg.Asset.Generator = f.Generator
	}
	if f.changed("copyright") {
		cfg.Asset.Copyright = f.Copyright
	}
	if f.changed("meters") {
		cfg.C3D.Meters = f.Meters
	}
	if f.changed("z-up") {
		cfg.C3D.ZUp = f.ZUp
	}
	if f.changed("root-name") {
		cfg.C3D.RootName = f.RootName
	}
	if f.changed("jobs") {
		cfg.Batch.Parallelism = f.Parallelism
	}
	if f.changed("log-level") {
		cfg.Logging.Level = f.LogLevel
	}
	if f.changed("log-file") {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
}
