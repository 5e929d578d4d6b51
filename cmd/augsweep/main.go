// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// augsweep renders a grid of augmented versions of one image: strength sweeps
// down the rows, the debug percentile (or a fresh random draw for the
// lightweight backend) across the columns. Handy to eyeball what a strength
// schedule will do to a dataset before training with it.
//
// Usage:
//
//	augsweep -image photo.png -out sweep.png -preset bgc
package main

import (
	"flag"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	timages "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/compute/dtypes"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/gomlx/augments"
	"github.com/gomlx/augments/adaaug"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagImage       = flag.String("image", "", "Input image to augment.")
	flagOut         = flag.String("out", "augsweep.png", "Output grid image.")
	flagSize        = flag.Int("size", 128, "Side length each augmented tile is resized to.")
	flagPreset      = flag.String("preset", "bgc", "Augmentation preset: "+strings.Join(adaaug.PresetNames(), ", ")+".")
	flagLightweight = flag.Bool("lightweight", false, "Use the lightweight backend instead of the full pipeline.")
	flagProb        = flag.Float64("prob", 0.5, "Base per-op probability of the lightweight backend.")
	flagStrengths   = flag.String("strengths", "0,0.2,0.4,0.6,0.8,1", "Comma-separated strengths, one grid row each.")
	flagColumns     = flag.Int("columns", 8, "Number of grid columns.")
	flagSeed        = flag.Int64("seed", 42, "RNG seed for the lightweight backend columns.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagImage == "" {
		klog.Exit("augsweep: -image is required")
	}

	strengths := parseStrengths(*flagStrengths)
	backend := backends.MustNew()
	aug := must.M1(augments.New(augments.Options{
		Lightweight: *flagLightweight,
		Prob:        *flagProb,
		Preset:      *flagPreset,
	}))

	src := must.M1(imaging.Open(*flagImage))
	src = imaging.Resize(src, *flagSize, *flagSize, imaging.Lanczos)
	input := timages.ToTensor(dtypes.Float32).Single(src) // [size, size, 3] in [0, 1]

	columns := *flagColumns
	grid := imaging.New(columns**flagSize, len(strengths)**flagSize, color.White)
	bar := progressbar.Default(int64(len(strengths)*columns), "augmenting")

	ctx := context.New()
	must.M(ctx.SetRNGStateFromSeed(*flagSeed))
	for row, strength := range strengths {
		must.M(aug.SetStrength(ctx, strength))
		for col := 0; col < columns; col++ {
			tile := renderTile(backend, ctx, aug, input, col, columns)
			grid = imaging.Paste(grid, tile, image.Pt(col**flagSize, row**flagSize))
			must.M(bar.Add(1))
		}
	}
	must.M(imaging.Save(grid, *flagOut))
	klog.Infof("Wrote %dx%d augmentation grid to %s", columns, len(strengths), *flagOut)
}

// renderTile augments the input once and converts it back to an image. The
// full pipeline gets a deterministic percentile per column so rows are
// comparable; the lightweight backend redraws at random.
func renderTile(backend backends.Backend, ctx *context.Context, aug augments.Augmenter,
	input *tensors.Tensor, col, columns int) image.Image {
	percentile := (float64(col) + 0.5) / float64(columns)
	out := context.MustExecOnce(backend, ctx, func(ctx *context.Context, x *Node) *Node {
		// [size, size, 3] in [0, 1] to NCHW in [-1, 1].
		x = InsertAxes(TransposeAllDims(x, 2, 0, 1), 0)
		x = AddScalar(MulScalar(x, 2), -1)
		if pipe, ok := aug.(*adaaug.Pipe); ok {
			x = pipe.ApplyDebug(ctx, x, percentile)
		} else {
			x = aug.Apply(ctx, x)
		}
		x = MulScalar(AddScalar(ClipScalar(x, -1, 1), 1), 0.5)
		return TransposeAllDims(Squeeze(x, 0), 1, 2, 0)
	}, input)
	return timages.ToImage().Single(out)
}

func parseStrengths(s string) []float64 {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			klog.Exitf("augsweep: bad strength %q: %v", part, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		klog.Exit("augsweep: -strengths must name at least one value")
	}
	return out
}
