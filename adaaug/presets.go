// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package adaaug

import "github.com/pkg/errors"

// The category groups that presets are spelled from. Each enables its
// multipliers at 1 and leaves the distribution parameters at the NewConfig
// defaults.

// EnableBlit enables x-flip, 90 degree rotations and integer translation.
func (c Config) EnableBlit() Config {
	c.XFlip, c.Rotate90, c.XInt = 1, 1, 1
	return c
}

// EnableGeom enables isotropic and anisotropic scaling, rotation and
// fractional translation.
func (c Config) EnableGeom() Config {
	c.Scale, c.Rotate, c.Aniso, c.XFrac = 1, 1, 1, 1
	return c
}

// EnableColor enables brightness, contrast, luma flip, hue rotation and
// saturation.
func (c Config) EnableColor() Config {
	c.Brightness, c.Contrast, c.LumaFlip, c.Hue, c.Saturation = 1, 1, 1, 1, 1
	return c
}

// EnableFilter enables image-space frequency filtering.
func (c Config) EnableFilter() Config {
	c.ImgFilter = 1
	return c
}

// EnableNoise enables additive RGB noise.
func (c Config) EnableNoise() Config {
	c.Noise = 1
	return c
}

// EnableCutout enables cutout.
func (c Config) EnableCutout() Config {
	c.Cutout = 1
	return c
}

// Preset returns the named standard configuration. The single-group names are
// "blit", "geom", "color", "filter", "noise" and "cutout"; the cumulative
// combinations are "bg", "bgc", "bgcf", "bgcfn" and "bgcfnc", one letter per
// group in that order. "bgc" is the usual choice for adaptive augmentation.
func Preset(name string) (Config, error) {
	c := NewConfig()
	switch name {
	case "blit":
		return c.EnableBlit(), nil
	case "geom":
		return c.EnableGeom(), nil
	case "color":
		return c.EnableColor(), nil
	case "filter":
		return c.EnableFilter(), nil
	case "noise":
		return c.EnableNoise(), nil
	case "cutout":
		return c.EnableCutout(), nil
	case "bg":
		return c.EnableBlit().EnableGeom(), nil
	case "bgc":
		return c.EnableBlit().EnableGeom().EnableColor(), nil
	case "bgcf":
		return c.EnableBlit().EnableGeom().EnableColor().EnableFilter(), nil
	case "bgcfn":
		return c.EnableBlit().EnableGeom().EnableColor().EnableFilter().EnableNoise(), nil
	case "bgcfnc":
		return c.EnableBlit().EnableGeom().EnableColor().EnableFilter().EnableNoise().EnableCutout(), nil
	}
	return Config{}, errors.Wrapf(ErrInvalidConfiguration, "unknown augmentation preset %q", name)
}

// PresetNames lists the names accepted by Preset.
func PresetNames() []string {
	return []string{"blit", "geom", "color", "filter", "noise", "cutout",
		"bg", "bgc", "bgcf", "bgcfn", "bgcfnc"}
}
