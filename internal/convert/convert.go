// Package convert runs the full motion capture to glTF pipeline:
// read, build, pack, assemble and write.
package convert

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/scottpetrovic/mocap2gltf/internal/anim"
	"github.com/scottpetrovic/mocap2gltf/internal/export"
	"github.com/scottpetrovic/mocap2gltf/internal/logger"
	"github.com/scottpetrovic/mocap2gltf/internal/mocap"
	"github.com/scottpetrovic/mocap2gltf/internal/pack"
	"github.com/scottpetrovic/mocap2gltf/internal/scene"
	pkgmath "github.com/scottpetrovic/mocap2gltf/pkg/math"
)

// Stage names a pipeline step.
type Stage string

const (
	StageConfig   Stage = "config"
	StageRead     Stage = "read"
	StageBuild    Stage = "build"
	StagePack     Stage = "pack"
	StageAssemble Stage = "assemble"
	StageWrite    Stage = "write"
)

// StageError wraps the first failure of a conversion with the stage and
// input it occurred in. errors.As still reaches the typed error beneath.
type StageError struct {
	Stage Stage
	Input string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("convert %s: %s: %v", e.Input, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Config describes one conversion.
type Config struct {
	InputPath  string
	OutputPath string // Empty means the input path with a .gltf extension
	Format     mocap.Format

	TimeBasis     anim.TimeBasis      // Empty means normalized
	Packing       pack.Policy         // Empty means grouped
	Interpolation scene.Interpolation // Empty means LINEAR

	Generator string
	Copyright string

	// Point-cloud options
	Meters   bool   // Scale millimetres to metres
	ZUp      bool   // Rotate Z-up data into Y-up
	RootName string // Empty means anim.DefaultRootName
}

var (
	errNoInput  = errors.New("input path is required")
	errNoFormat = errors.New("format is required (bvh or c3d)")
)

// Validate checks the configuration before any file is touched.
func (c *Config) Validate() error {
	_, err := c.normalized()
	return err
}

// normalized returns a copy of c with every enum parsed into canonical form.
func (c Config) normalized() (Config, error) {
	if c.InputPath == "" {
		return c, errNoInput
	}
	if c.Format == "" {
		return c, errNoFormat
	}
	var err error
	if c.Format, err = mocap.ParseFormat(string(c.Format)); err != nil {
		return c, err
	}
	if c.TimeBasis != "" {
		if c.TimeBasis, err = anim.ParseTimeBasis(string(c.TimeBasis)); err != nil {
			return c, err
		}
	}
	if c.Packing != "" {
		if c.Packing, err = pack.ParsePolicy(string(c.Packing)); err != nil {
			return c, err
		}
	}
	if c.Interpolation != "" {
		if c.Interpolation, err = scene.ParseInterpolation(string(c.Interpolation)); err != nil {
			return c, err
		}
	}
	return c, nil
}

// Output returns the document path the conversion writes.
func (c *Config) Output() string {
	if c.OutputPath != "" {
		return c.OutputPath
	}
	return DefaultOutputPath(c.InputPath)
}

// DefaultOutputPath replaces the extension of input with .gltf.
func DefaultOutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".gltf"
}

// pointTransform maps the point-cloud options to a matrix.
func (c *Config) pointTransform() pkgmath.Mat4 {
	m := pkgmath.Identity()
	if c.Meters {
		m = pkgmath.Scale(0.001, 0.001, 0.001)
	}
	if c.ZUp {
		m = pkgmath.ZUpToYUp().Mul(m)
	}
	return m
}

// Result summarizes a successful conversion.
type Result struct {
	Input  string
	Output string
	Format mocap.Format
	Frames int
	Nodes  int
	Tracks int
	Files  []export.File
	Bytes  int
	Clip   *mocap.Clip
	Model  *anim.Model
}

// Run converts one file. Either the document and every binary it references
// are written, or nothing is.
func Run(cfg Config) (*Result, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, &StageError{Stage: StageConfig, Input: cfg.InputPath, Err: err}
	}
	format := cfg.Format
	output := cfg.Output()

	fail := func(stage Stage, err error) (*Result, error) {
		return nil, &StageError{Stage: stage, Input: cfg.InputPath, Err: err}
	}

	clip, err := mocap.Read(cfg.InputPath, format)
	if err != nil {
		return fail(StageRead, err)
	}

	model, err := anim.Build(clip, anim.Options{
		TimeBasis:      cfg.TimeBasis,
		RootName:       cfg.RootName,
		PointTransform: cfg.pointTransform(),
	})
	if err != nil {
		return fail(StageBuild, err)
	}

	packed, err := pack.Pack(model, cfg.Packing)
	if err != nil {
		return fail(StagePack, err)
	}

	base := filepath.Base(output)
	doc, err := scene.Assemble(model, packed, scene.Options{
		BaseName:      strings.TrimSuffix(base, filepath.Ext(base)),
		Generator:     cfg.Generator,
		Copyright:     cfg.Copyright,
		Interpolation: cfg.Interpolation,
	})
	if err != nil {
		return fail(StageAssemble, err)
	}

	written, err := export.Write(output, doc, packed.Buffers)
	if err != nil {
		return fail(StageWrite, err)
	}

	res := &Result{
		Input:  cfg.InputPath,
		Output: output,
		Format: format,
		Frames: clip.FrameCount(),
		Nodes:  len(model.Nodes),
		Tracks: len(model.Tracks),
		Files:  written.Files,
		Bytes:  written.TotalBytes(),
		Clip:   clip,
		Model:  model,
	}

	logger.Info("converted",
		zap.String("input", res.Input),
		zap.String("output", res.Output),
		zap.String("format", string(format)),
		zap.Int("frames", res.Frames),
		zap.Int("nodes", res.Nodes),
		zap.Int("tracks", res.Tracks),
		zap.Int("bytes", res.Bytes),
	)

	return res, nil
}
