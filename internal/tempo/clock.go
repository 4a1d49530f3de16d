package tempo

import (
	"math"

	"go.uber.org/zap"
)

// snapEpsilon is how close the smoothed scale must get before it snaps to
// the target.
const snapEpsilon = 1e-3

// ClockConfig tunes the global time scale and its energy budget. Costs and
// rates are per second.
type ClockConfig struct {
	MinScale          float64
	MaxScale          float64
	MaxEnergy         float64
	StopCost          float64
	SlowCost          float64
	RegenRate         float64
	TransitionSpeed   float64
	Smoothing         bool
	ExhaustedCooldown float64 // seconds without regen after running dry
	RewindCost        float64
}

func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		MinScale:          0,
		MaxScale:          4,
		MaxEnergy:         100,
		StopCost:          20,
		SlowCost:          10,
		RegenRate:         5,
		TransitionSpeed:   6,
		Smoothing:         true,
		ExhaustedCooldown: 2,
		RewindCost:        25,
	}
}

// ClockState is a copy-out view of the clock.
type ClockState struct {
	Scale     float64 `json:"scale"`
	Target    float64 `json:"target"`
	Stopped   bool    `json:"stopped"`
	Energy    float64 `json:"energy"`
	MaxEnergy float64 `json:"max_energy"`
	Elapsed   float64 `json:"elapsed"`
}

// ClockReport summarises what one Tick changed.
type ClockReport struct {
	PrevScale float64
	Scale     float64
	Depleted  bool
}

func (r ClockReport) ScaleChanged() bool { return r.PrevScale != r.Scale }

// Clock owns the global time scale and the energy that pays for slowing or
// stopping it. Speeding time up is free.
type Clock struct {
	cfg      ClockConfig
	scale    float64
	target   float64
	energy   float64
	elapsed  float64
	cooldown float64
	log      *zap.Logger
}

func NewClock(cfg ClockConfig, log *zap.Logger) *Clock {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxScale < cfg.MinScale {
		cfg.MaxScale = cfg.MinScale
	}
	c := &Clock{cfg: cfg, energy: cfg.MaxEnergy, log: log}
	c.scale = c.clamp(1)
	c.target = c.scale
	return c
}

func (c *Clock) Config() ClockConfig { return c.cfg }

// RequestScale sets the target scale, clamped to [MinScale, MaxScale].
// Slowing below 1 with an empty tank is refused, as is a non-finite target.
func (c *Clock) RequestScale(target float64, immediate bool) bool {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		c.log.Debug("scale request refused: not finite", zap.Float64("target", target))
		return false
	}
	if c.energy <= 0 && target < 1 {
		c.log.Debug("scale request refused: no energy", zap.Float64("target", target))
		return false
	}
	c.target = c.clamp(target)
	if immediate || !c.cfg.Smoothing {
		c.scale = c.target
	}
	return true
}

// Tick advances the clock by delta seconds of loop time.
func (c *Clock) Tick(delta float64, rewinding bool) ClockReport {
	rep := ClockReport{PrevScale: c.scale, Scale: c.scale}
	if delta <= 0 {
		return rep
	}
	c.elapsed += delta

	if c.scale != c.target {
		if c.cfg.Smoothing {
			k := 1 - math.Exp(-c.cfg.TransitionSpeed*delta)
			c.scale += (c.target - c.scale) * k
			if math.Abs(c.target-c.scale) < snapEpsilon {
				c.scale = c.target
			}
		} else {
			c.scale = c.target
		}
		c.scale = c.clamp(c.scale)
	}

	var cost float64
	if !rewinding {
		switch {
		case c.scale == 0:
			cost = c.cfg.StopCost * delta
		case c.scale < 1:
			cost = c.cfg.SlowCost * delta * (1 - c.scale)
		}
	}

	if cost > 0 {
		c.energy -= cost
		if c.energy <= 0 {
			c.energy = 0
			c.cooldown = c.cfg.ExhaustedCooldown
			c.RequestScale(1, true)
			rep.Depleted = true
			c.log.Info("energy depleted, time control released", zap.Float64("elapsed", c.elapsed))
		}
	} else if c.cooldown > 0 {
		c.cooldown = math.Max(0, c.cooldown-delta)
	} else {
		c.energy = math.Min(c.cfg.MaxEnergy, c.energy+c.cfg.RegenRate*delta)
	}

	rep.Scale = c.scale
	return rep
}

// Spend deducts cost if the tank holds at least that much.
func (c *Clock) Spend(cost float64) bool {
	if cost < 0 || c.energy < cost {
		return false
	}
	c.energy -= cost
	return true
}

// RestoreEnergy sets the energy level, clamped to [0, MaxEnergy].
func (c *Clock) RestoreEnergy(e float64) {
	c.energy = math.Max(0, math.Min(c.cfg.MaxEnergy, e))
}

// Restore reloads a saved state. The scale is clamped to the current limits.
func (c *Clock) Restore(st ClockState) {
	c.scale = c.clamp(st.Scale)
	c.target = c.clamp(st.Target)
	c.elapsed = math.Max(0, st.Elapsed)
	c.RestoreEnergy(st.Energy)
}

func (c *Clock) Scale() float64   { return c.scale }
func (c *Clock) Target() float64  { return c.target }
func (c *Clock) Energy() float64  { return c.energy }
func (c *Clock) Elapsed() float64 { return c.elapsed }
func (c *Clock) Stopped() bool    { return c.scale == 0 }

// EnergyPercentage is energy over max energy, in [0, 100].
func (c *Clock) EnergyPercentage() float64 {
	if c.cfg.MaxEnergy <= 0 {
		return 0
	}
	return c.energy / c.cfg.MaxEnergy * 100
}

func (c *Clock) State() ClockState {
	return ClockState{
		Scale:     c.scale,
		Target:    c.target,
		Stopped:   c.Stopped(),
		Energy:    c.energy,
		MaxEnergy: c.cfg.MaxEnergy,
		Elapsed:   c.elapsed,
	}
}

func (c *Clock) clamp(s float64) float64 {
	return math.Max(c.cfg.MinScale, math.Min(c.cfg.MaxScale, s))
}
