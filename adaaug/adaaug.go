// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package adaaug implements a stochastic, differentiable image augmentation
// pipeline for adversarial training, in the style of adaptive discriminator
// augmentation (ADA).
//
// A Pipe applies up to 12 augmentation categories to a batch of NCHW images,
// each gated per batch element with probability (multiplier × strength): pixel
// blitting (x-flip, 90° rotation, integer translation), general geometric
// transforms (isotropic/anisotropic scaling, rotation, fractional translation),
// color transforms (brightness, contrast, luma flip, hue rotation, saturation),
// image-space frequency filtering, and image-space corruptions (additive noise,
// cutout). All operations are built from differentiable graph ops, so
// gradients flow through the augmented images back to the generator.
//
// The strength scalar is shared by every category and lives in the model's
// context, so a training loop can adjust it between steps without rebuilding
// any graph. Config multipliers are fixed at construction.
//
// Shape or dtype violations inside graph building panic with an exception, as
// graph ops do; configuration errors are returned by New.
package adaaug

import (
	"math"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"

	"github.com/gomlx/augments/wavelets"
)

// ErrInvalidConfiguration is wrapped by all errors returned from New for
// Config values outside their valid domain.
var ErrInvalidConfiguration = errors.New("invalid augmentation configuration")

// ErrNumericDegenerate is wrapped by errors reporting NaN or infinite values
// where a finite number is required.
var ErrNumericDegenerate = errors.New("non-finite value")

// Config holds the probability multipliers and distribution parameters of
// every augmentation category. A multiplier of 0 disables its category
// entirely (it is not even sampled); the effective per-sample probability of
// an enabled category is multiplier × strength, deliberately unclamped so
// multipliers above 1 saturate earlier in a strength ramp.
//
// Use NewConfig for the standard parameter defaults, then raise the
// multipliers you want, or start from a Preset.
type Config struct {
	// Pixel blitting.
	XFlip    float64 // Probability multiplier for x-flip.
	Rotate90 float64 // Probability multiplier for 90 degree rotations.
	XInt     float64 // Probability multiplier for integer translation.
	XIntMax  float64 // Range of integer translation, relative to image dimensions.

	// General geometric transformations.
	Scale     float64 // Probability multiplier for isotropic scaling.
	Rotate    float64 // Probability multiplier for arbitrary rotation.
	Aniso     float64 // Probability multiplier for anisotropic scaling.
	XFrac     float64 // Probability multiplier for fractional translation.
	ScaleStd  float64 // Log2 standard deviation of isotropic scaling.
	RotateMax float64 // Range of arbitrary rotation, 1 = full circle.
	AnisoStd  float64 // Log2 standard deviation of anisotropic scaling.
	XFracStd  float64 // Standard deviation of fractional translation, relative to image dimensions.

	// Color transformations.
	Brightness    float64 // Probability multiplier for brightness.
	Contrast      float64 // Probability multiplier for contrast.
	LumaFlip      float64 // Probability multiplier for luma flip.
	Hue           float64 // Probability multiplier for hue rotation.
	Saturation    float64 // Probability multiplier for saturation.
	BrightnessStd float64 // Standard deviation of brightness.
	ContrastStd   float64 // Log2 standard deviation of contrast.
	HueMax        float64 // Range of hue rotation, 1 = full circle.
	SaturationStd float64 // Log2 standard deviation of saturation.

	// Image-space filtering.
	ImgFilter      float64                    // Probability multiplier for image-space filtering.
	ImgFilterBands [wavelets.NumBands]float64 // Probability multipliers for individual frequency bands.
	ImgFilterStd   float64                    // Log2 standard deviation of image-space filter amplification.

	// Image-space corruptions.
	Noise      float64 // Probability multiplier for additive RGB noise.
	Cutout     float64 // Probability multiplier for cutout.
	NoiseStd   float64 // Standard deviation of additive RGB noise.
	CutoutSize float64 // Size of the cutout rectangle, relative to image dimensions.
}

// NewConfig returns a Config with every multiplier at 0 and the distribution
// parameters at their standard defaults.
func NewConfig() Config {
	return Config{
		XIntMax:        0.125,
		ScaleStd:       0.2,
		RotateMax:      1,
		AnisoStd:       0.2,
		XFracStd:       0.125,
		BrightnessStd:  0.2,
		ContrastStd:    0.5,
		HueMax:         1,
		SaturationStd:  1,
		ImgFilterBands: [wavelets.NumBands]float64{1, 1, 1, 1},
		ImgFilterStd:   1,
		NoiseStd:       0.1,
		CutoutSize:     0.5,
	}
}

// Pipe is an immutable augmentation pipeline built from a Config. It holds
// the fixed anti-aliasing filter and band filter bank; the only mutable state,
// the overall strength, lives in the context passed to Apply.
//
// A Pipe is safe for concurrent use from multiple graph builds.
type Pipe struct {
	cfg    Config
	hzGeom []float64

	// Filter bank flattened row-major, [wavelets.NumBands, fbankTaps].
	hzFbank   []float64
	fbankTaps int

	anyGeom  bool
	anyColor bool
}

// Scope is the context scope under which the pipeline keeps its strength
// variable.
const Scope = "augment_pipe"

const strengthVariableName = "strength"

// New validates cfg and builds the pipeline. The returned error wraps
// ErrInvalidConfiguration or ErrNumericDegenerate.
func New(cfg Config) (*Pipe, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	bank := wavelets.FilterBank()
	_, taps := bank.Dims()
	flat := make([]float64, wavelets.NumBands*taps)
	for i := 0; i < wavelets.NumBands; i++ {
		copy(flat[i*taps:], bank.RawRowView(i))
	}
	p := &Pipe{
		cfg:       cfg,
		hzGeom:    wavelets.GeomLowpass(),
		hzFbank:   flat,
		fbankTaps: taps,
	}
	p.anyGeom = cfg.XFlip > 0 || cfg.Rotate90 > 0 || cfg.XInt > 0 ||
		cfg.Scale > 0 || cfg.Rotate > 0 || cfg.Aniso > 0 || cfg.XFrac > 0
	p.anyColor = cfg.Brightness > 0 || cfg.Contrast > 0 || cfg.LumaFlip > 0 ||
		cfg.Hue > 0 || cfg.Saturation > 0
	return p, nil
}

// MustNew is like New but panics on error.
func MustNew(cfg Config) *Pipe {
	return must.M1(New(cfg))
}

func validate(cfg Config) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"XFlip", cfg.XFlip}, {"Rotate90", cfg.Rotate90}, {"XInt", cfg.XInt},
		{"XIntMax", cfg.XIntMax},
		{"Scale", cfg.Scale}, {"Rotate", cfg.Rotate}, {"Aniso", cfg.Aniso},
		{"XFrac", cfg.XFrac}, {"ScaleStd", cfg.ScaleStd}, {"RotateMax", cfg.RotateMax},
		{"AnisoStd", cfg.AnisoStd}, {"XFracStd", cfg.XFracStd},
		{"Brightness", cfg.Brightness}, {"Contrast", cfg.Contrast},
		{"LumaFlip", cfg.LumaFlip}, {"Hue", cfg.Hue}, {"Saturation", cfg.Saturation},
		{"BrightnessStd", cfg.BrightnessStd}, {"ContrastStd", cfg.ContrastStd},
		{"HueMax", cfg.HueMax}, {"SaturationStd", cfg.SaturationStd},
		{"ImgFilter", cfg.ImgFilter}, {"ImgFilterStd", cfg.ImgFilterStd},
		{"Noise", cfg.Noise}, {"Cutout", cfg.Cutout}, {"NoiseStd", cfg.NoiseStd},
		{"CutoutSize", cfg.CutoutSize},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return errors.Wrapf(ErrNumericDegenerate, "Config.%s=%g", f.name, f.value)
		}
		if f.value < 0 {
			return errors.Wrapf(ErrInvalidConfiguration, "Config.%s=%g, must be ≥ 0", f.name, f.value)
		}
	}
	for i, b := range cfg.ImgFilterBands {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return errors.Wrapf(ErrNumericDegenerate, "Config.ImgFilterBands[%d]=%g", i, b)
		}
		if b < 0 {
			return errors.Wrapf(ErrInvalidConfiguration, "Config.ImgFilterBands[%d]=%g, must be ≥ 0", i, b)
		}
	}
	if cfg.CutoutSize > 1 {
		return errors.Wrapf(ErrInvalidConfiguration, "Config.CutoutSize=%g, must be ≤ 1", cfg.CutoutSize)
	}
	return nil
}

// Config returns a copy of the configuration the pipeline was built with.
func (p *Pipe) Config() Config { return p.cfg }

func (p *Pipe) strengthVar(ctx *context.Context) *context.Variable {
	v := ctx.Checked(false).In(Scope).VariableWithValue(strengthVariableName, float32(1))
	return v.SetTrainable(false)
}

// SetStrength sets the overall augmentation strength in ctx. The strength is
// deliberately not clamped to [0, 1]: values above 1 saturate every enabled
// category. Returns an error wrapping ErrNumericDegenerate for non-finite
// values, or ErrInvalidConfiguration for negative ones.
func (p *Pipe) SetStrength(ctx *context.Context, strength float64) error {
	if math.IsNaN(strength) || math.IsInf(strength, 0) {
		return errors.Wrapf(ErrNumericDegenerate, "strength=%g", strength)
	}
	if strength < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "strength=%g, must be ≥ 0", strength)
	}
	return p.strengthVar(ctx).SetValue(tensors.FromScalar(float32(strength)))
}

// Strength reads the current augmentation strength from ctx. A freshly
// created context reports the default of 1.
func (p *Pipe) Strength(ctx *context.Context) float64 {
	return float64(tensors.ToScalar[float32](p.strengthVar(ctx).MustValue()))
}

// Apply augments the [batch, channels, height, width] float image batch x,
// drawing fresh per-sample parameters from the context RNG. Pixel values are
// expected roughly in [-1, 1] but are not clamped.
//
// Channels must be 3 (RGB) or 1 (grayscale) when any color category is
// enabled; the hue and saturation categories are skipped for grayscale input.
// Violations panic with an exception during graph building.
func (p *Pipe) Apply(ctx *context.Context, x *Node) *Node {
	return p.apply(ctx, x, nil)
}

// ApplyDebug is Apply with every enabled category forced on and all its
// random draws replaced by the given percentile of their distribution. Two
// calls with the same percentile produce bit-identical graphs modulo the
// additive noise image, which stays random. Used to eyeball what a strength
// setting does to real images.
func (p *Pipe) ApplyDebug(ctx *context.Context, x *Node, percentile float64) *Node {
	if percentile < 0 || percentile > 1 {
		exceptions.Panicf("adaaug: debug percentile must be in [0, 1], got %g", percentile)
	}
	return p.apply(ctx, x, Scalar(x.Graph(), x.DType(), percentile))
}

func (p *Pipe) apply(ctx *context.Context, x *Node, debug *Node) *Node {
	if x.Rank() != 4 {
		exceptions.Panicf("adaaug: images must be rank-4 NCHW, got %s", x.Shape())
	}
	if !x.DType().IsFloat() {
		exceptions.Panicf("adaaug: images must be float, got %s", x.Shape())
	}
	g := x.Graph()
	s := &sampler{
		ctx:      ctx,
		g:        g,
		dtype:    x.DType(),
		batch:    x.Shape().Dimensions[0],
		strength: ConvertDType(p.strengthVar(ctx).ValueGraph(g), x.DType()),
		debug:    debug,
	}
	x = p.applyGeometric(s, x)
	x = p.applyColor(s, x)
	x = p.applyFilter(s, x)
	x = p.applyNoise(s, x)
	x = p.applyCutout(s, x)
	return x
}
