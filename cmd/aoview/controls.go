package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ao/common"
	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
)

const (
	intensityStep = 0.1
	radiusFactor  = 1.25
)

// controls maps viewer input onto the effect's setters.
type controls struct {
	effect     obscurance.Effect
	profiler   func(enabled bool)
	screenshot func()
	profiling  bool
}

// handleKey applies the binding for one key press.
//
//	Space  toggle the effect
//	E      switch estimator
//	D      toggle half-resolution estimation
//	B      cycle blur iterations
//	1-4    sample density tier
//	Up     raise intensity, Down lowers it
//	Right  widen the radius, Left narrows it
//	P      toggle profiler output
//	S      save the presented frame
func (c *controls) handleKey(key uint32) {
	cfg := c.effect.Config()
	switch key {
	case common.KeySpace:
		if c.effect.Enabled() {
			c.effect.OnDisable()
		} else if err := c.effect.OnEnable(); err != nil {
			obscurance.Logger().Warn("enable failed", "err", err)
		}
	case common.KeyE:
		if cfg.EffectiveEstimator() == obscurance.EstimatorAngleBased {
			c.effect.SetEstimator(obscurance.EstimatorDistanceBased)
		} else {
			c.effect.SetEstimator(obscurance.EstimatorAngleBased)
		}
	case common.KeyD:
		c.effect.SetDownsample(!cfg.Downsample)
	case common.KeyB:
		c.effect.SetBlurIterations((cfg.EffectiveBlurIterations() + 1) % (obscurance.MaxBlurIterations + 1))
	case common.Key1, common.Key2, common.Key3, common.Key4:
		c.effect.SetSampleDensity(obscurance.SampleDensity(key - common.Key1))
	case common.KeyUp:
		c.effect.SetIntensity(cfg.EffectiveIntensity() + intensityStep)
	case common.KeyDown:
		c.effect.SetIntensity(max(cfg.EffectiveIntensity()-intensityStep, 0))
	case common.KeyRight:
		c.effect.SetRadius(cfg.EffectiveRadius() * radiusFactor)
	case common.KeyLeft:
		c.effect.SetRadius(cfg.EffectiveRadius() / radiusFactor)
	case common.KeyP:
		c.profiling = !c.profiling
		if c.profiler != nil {
			c.profiler(c.profiling)
		}
	case common.KeyS:
		if c.screenshot != nil {
			c.screenshot()
		}
	}
}

// handleScroll scales the radius by one step per wheel notch.
func (c *controls) handleScroll(delta float32) {
	r := c.effect.Config().EffectiveRadius()
	switch {
	case delta > 0:
		c.effect.SetRadius(r * radiusFactor)
	case delta < 0:
		c.effect.SetRadius(r / radiusFactor)
	}
}

// title summarises the effect state for the window title bar.
func (c *controls) title(name string) string {
	if !c.effect.Enabled() {
		return fmt.Sprintf("%s | off", name)
	}
	cfg := c.effect.Config()
	stats := c.effect.Stats()
	return fmt.Sprintf("%s | %s %s x%d | blur %d | intensity %.1f radius %.2f | %s, %d passes",
		name,
		cfg.EffectiveEstimator(),
		cfg.EffectiveSampleDensity(),
		cfg.EffectiveSampleCount(),
		cfg.EffectiveBlurIterations(),
		cfg.EffectiveIntensity(),
		cfg.EffectiveRadius(),
		stats.Strategy,
		stats.Passes,
	)
}
