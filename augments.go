// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package augments provides differentiable, stochastic image augmentation
// pipelines for adversarial generative training, with two interchangeable
// backends: the full adaptive pipeline of package adaaug and the lightweight
// set of package diffaug. Both operate on [batch, channels, height, width]
// float images inside a GoMLX graph, so gradients flow through the augmented
// images.
//
// The typical use is to wrap the discriminator input with Apply and ramp the
// strength up or down between training steps based on an overfitting
// heuristic.
package augments

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"

	"github.com/gomlx/augments/adaaug"
	"github.com/gomlx/augments/diffaug"
)

// Augmenter is the interface shared by both augmentation backends. Apply is
// called during graph building; SetStrength and Strength act on the host-side
// state in ctx and take effect on the next execution without rebuilding the
// graph.
type Augmenter interface {
	Apply(ctx *context.Context, x *Node) *Node
	SetStrength(ctx *context.Context, strength float64) error
	Strength(ctx *context.Context) float64
}

// Options selects and parameterizes an augmentation backend.
type Options struct {
	// Lightweight switches to the diffaug backend. The default is the full
	// adaptive pipeline.
	Lightweight bool

	// Prob is the base per-op probability of the lightweight backend.
	// Ignored by the full pipeline.
	Prob float64

	// Preset names the category combination of the full pipeline, one of
	// adaaug.PresetNames. Empty means "bgc". Ignored by the lightweight
	// backend.
	Preset string
}

// New builds the augmentation backend described by opts.
func New(opts Options) (Augmenter, error) {
	if opts.Lightweight {
		pipe, err := diffaug.New(opts.Prob)
		if err != nil {
			return nil, errors.WithMessage(err, "building lightweight augmentation backend")
		}
		return pipe, nil
	}
	name := opts.Preset
	if name == "" {
		name = "bgc"
	}
	cfg, err := adaaug.Preset(name)
	if err != nil {
		return nil, err
	}
	pipe, err := adaaug.New(cfg)
	if err != nil {
		return nil, errors.WithMessage(err, "building adaptive augmentation backend")
	}
	return pipe, nil
}

var (
	_ Augmenter = (*adaaug.Pipe)(nil)
	_ Augmenter = (*diffaug.Pipe)(nil)
)
